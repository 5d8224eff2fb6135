// beadprep — запуск протокола очистки на магнитных бусинах и
// просмотр журнала прогонов.
//
// Использование:
//
//	beadprep [--api-url URL] [--json] <command> [flags]
//
// Команды:
//
//	run       Выполнить протокол на роботе
//	plan      Сухой прогон на симуляторе со списком команд
//	height    Высота жидкости и план ступенчатого дозирования
//	profiles  Калибровочные профили планшетов
//	history   История runs из beadprep-api
//	watch     События runs в реальном времени
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/beadprep/internal/cli"
	"github.com/shaiso/beadprep/internal/robot"
	"github.com/shaiso/beadprep/internal/robot/sim"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	sim.Register(robot.Drivers)

	rootCmd := &cobra.Command{
		Use:           "beadprep",
		Short:         "beadprep — magnetic bead DNA purification on a pipetting robot",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	apiDefault := "http://localhost:8090"
	if v := os.Getenv("BEADPREP_API_URL"); v != "" {
		apiDefault = v
	}
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", apiDefault, "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewRunCmd(robot.Drivers, outputFn),
		cli.NewPlanCmd(outputFn),
		cli.NewHeightCmd(outputFn),
		cli.NewProfilesCmd(outputFn),
		cli.NewHistoryCmd(clientFn, outputFn),
		cli.NewWatchCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
