package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/shaiso/beadprep/internal/config"
	"github.com/shaiso/beadprep/internal/domain"
	"github.com/shaiso/beadprep/internal/mq"
	"github.com/shaiso/beadprep/internal/repo"
	"github.com/shaiso/beadprep/internal/robot"
	"github.com/shaiso/beadprep/internal/robot/sim"
	"github.com/shaiso/beadprep/internal/sequencer"
	"github.com/shaiso/beadprep/internal/telemetry"
)

// NewRunCmd создаёт команду запуска протокола на роботе.
func NewRunCmd(drivers *robot.Registry, outputFn func() *Output) *cobra.Command {
	var flags runFlags
	var driver string
	var realtime, noJournal bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the bead purification protocol",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			if !drivers.Has(driver) {
				return fmt.Errorf("%w: %s (available: %s)", robot.ErrDriverNotFound, driver, strings.Join(drivers.Names(), ", "))
			}
			logger := telemetry.SetupLogger()

			env, err := config.FromEnv()
			if err != nil {
				return err
			}
			rf, profile, err := flags.resolve(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			r, err := drivers.Open(driver, robot.DriverConfig{Realtime: realtime, Logger: logger})
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			metrics := telemetry.NewMetrics(reg)
			if env.MetricsAddr != "" {
				srv := serveMetrics(env.MetricsAddr, reg, logger)
				defer srv.Close()
			}

			cfg := sequencer.Config{
				Robot:        r,
				DriverName:   driver,
				Params:       rf.Params,
				Profile:      profile,
				Layout:       rf.Layout,
				Metrics:      metrics,
				DoorInterval: env.DoorPollInterval,
				Logger:       logger,
			}

			if !noJournal {
				store, err := repo.Open(ctx, repo.Config{
					DatabaseURL: env.DatabaseURL,
					SQLitePath:  env.SQLitePath,
					Logger:      logger,
				})
				if err != nil {
					out.Warn(fmt.Sprintf("journal unavailable, run will not be recorded: %v", err))
				} else {
					defer store.Close()
					cfg.Journal = store
				}
			}

			if env.RabbitMQURL != "" {
				if pub, closeFn, err := openPublisher(ctx, env.RabbitMQURL, logger); err != nil {
					out.Warn(fmt.Sprintf("event bus unavailable, events will not be published: %v", err))
				} else {
					defer closeFn()
					cfg.Events = pub
				}
			}

			run, err := sequencer.New(cfg).Run(ctx)
			if run != nil {
				printRun(out, run)
			}
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("run %s completed in %s", run.ID, run.Duration().Round(time.Second)))
			return nil
		},
	}

	flags.bind(cmd)
	cmd.Flags().StringVar(&driver, "driver", sim.DriverName, "Robot driver")
	cmd.Flags().BoolVar(&realtime, "realtime", false, "Execute delays in real time on the simulator")
	cmd.Flags().BoolVar(&noJournal, "no-journal", false, "Do not record the run in the journal")
	return cmd
}

// openPublisher подключается к шине и объявляет топологию.
func openPublisher(ctx context.Context, url string, logger *slog.Logger) (*mq.Publisher, func() error, error) {
	conn, err := mq.Dial(url, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := mq.SetupTopology(ctx, conn); err != nil {
		conn.Close()
		return nil, nil, err
	}
	return mq.NewPublisher(conn, logger), conn.Close, nil
}

// serveMetrics отдаёт метрики раннера на addr.
func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()
	return srv
}

func printRun(out *Output, run *domain.Run) {
	if out.JSONMode() {
		out.JSON(run)
		return
	}

	fields := [][2]string{
		{"Run", run.ID.String()},
		{"Status", Status(run.Status.String())},
		{"Phase", run.Phase.String()},
		{"Samples", fmt.Sprintf("%d (%d columns)", run.Params.SampleCount, run.Params.Columns())},
		{"Pauses", strconv.Itoa(run.Pauses)},
		{"Duration", run.Duration().Round(time.Millisecond).String()},
	}
	if run.Error != "" {
		fields = append(fields, [2]string{"Error", run.Error})
	}
	out.Fields(fields)
}

// PipetteSummary — расход одной пипетки в плане.
type PipetteSummary struct {
	Pipette   string  `json:"pipette"`
	Picked    int     `json:"tips_picked"`
	Returned  int     `json:"tips_returned"`
	Dropped   int     `json:"tips_dropped"`
	Aspirated float64 `json:"aspirated_ul"`
	Dispensed float64 `json:"dispensed_ul"`
}

// Plan — результат симуляции протокола.
type Plan struct {
	Params   domain.Params    `json:"params"`
	Profile  string           `json:"profile"`
	Duration time.Duration    `json:"duration_ns"`
	Commands []sim.Command    `json:"commands"`
	Pipettes []PipetteSummary `json:"pipettes"`
}

// Summarize считает расход наконечников и объёмов по журналу команд.
func Summarize(cmds []sim.Command) []PipetteSummary {
	byName := make(map[string]*PipetteSummary)
	for _, c := range cmds {
		if c.Pipette == "" {
			continue
		}
		s, ok := byName[c.Pipette]
		if !ok {
			s = &PipetteSummary{Pipette: c.Pipette}
			byName[c.Pipette] = s
		}
		switch c.Kind {
		case sim.KindPickUpTip:
			s.Picked++
		case sim.KindReturnTip:
			s.Returned++
		case sim.KindDropTip:
			s.Dropped++
		case sim.KindAspirate:
			s.Aspirated += c.Volume
		case sim.KindDispense:
			s.Dispensed += c.Volume
		}
	}

	out := make([]PipetteSummary, 0, len(byName))
	for _, s := range byName {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pipette < out[j].Pipette })
	return out
}

// NewPlanCmd создаёт команду сухого прогона на симуляторе.
func NewPlanCmd(outputFn func() *Output) *cobra.Command {
	var flags runFlags
	var liquidOnly bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Simulate the protocol and print the command list",
		RunE: func(cmd *cobra.Command, args []string) error {
			rf, profile, err := flags.resolve(cmd)
			if err != nil {
				return err
			}

			quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
			r := sim.New(sim.Options{Logger: quiet})

			_, err = sequencer.New(sequencer.Config{
				Robot:      r,
				DriverName: sim.DriverName,
				Params:     rf.Params,
				Profile:    profile,
				Layout:     rf.Layout,
				Logger:     quiet,
			}).Run(cmd.Context())
			if err != nil {
				return err
			}

			plan := Plan{
				Params:   rf.Params,
				Profile:  profile.Name,
				Duration: r.Elapsed(),
				Commands: r.Commands(),
				Pipettes: Summarize(r.Commands()),
			}
			if liquidOnly {
				plan.Commands = r.Filter(sim.Command.IsLiquid)
			}

			out := outputFn()
			if out.JSONMode() {
				out.JSON(plan)
				return nil
			}

			rows := make([][]string, len(plan.Commands))
			for i, c := range plan.Commands {
				rows[i] = []string{strconv.Itoa(c.Seq), c.At.Round(time.Second).String(), c.String()}
			}
			out.Table([]string{"SEQ", "AT", "COMMAND"}, rows)
			out.Line("")

			summary := make([][]string, len(plan.Pipettes))
			for i, p := range plan.Pipettes {
				summary[i] = []string{
					p.Pipette,
					strconv.Itoa(p.Picked),
					strconv.Itoa(p.Returned),
					strconv.Itoa(p.Dropped),
					fmt.Sprintf("%.1f", p.Aspirated),
					fmt.Sprintf("%.1f", p.Dispensed),
				}
			}
			out.Table([]string{"PIPETTE", "PICKED", "RETURNED", "DROPPED", "ASPIRATED_UL", "DISPENSED_UL"}, summary)
			out.Line("")
			out.Line("estimated duration: %s", plan.Duration.Round(time.Second))
			return nil
		},
	}

	flags.bind(cmd)
	cmd.Flags().BoolVar(&liquidOnly, "liquid-only", false, "Show only aspirate and dispense commands")
	return cmd
}
