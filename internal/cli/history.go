package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// NewHistoryCmd создаёт группу команд истории runs.
func NewHistoryCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse journaled runs",
	}

	cmd.AddCommand(
		newHistoryListCmd(clientFn, outputFn),
		newHistoryShowCmd(clientFn, outputFn),
		newHistoryPhasesCmd(clientFn, outputFn),
	)
	return cmd
}

func newHistoryListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ListRunsOpts

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := clientFn().ListRuns(opts)
			if err != nil {
				return err
			}

			headers := []string{"ID", "STATUS", "PHASE", "SAMPLES", "PAUSES", "DURATION", "CREATED"}
			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = []string{
					r.ID,
					Status(r.Status),
					r.Phase,
					strconv.Itoa(r.Params.SampleCount),
					strconv.Itoa(r.Pauses),
					formatMS(r.DurationMS),
					r.CreatedAt,
				}
			}

			outputFn().Print(headers, rows, runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "Filter by status (PENDING, RUNNING, SUCCEEDED, FAILED, CANCELLED)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of results")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Number of runs to skip")
	return cmd
}

func newHistoryShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show run details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := clientFn().GetRun(args[0])
			if err != nil {
				return err
			}

			out := outputFn()
			if out.JSONMode() {
				out.JSON(run)
				return nil
			}

			fields := [][2]string{
				{"ID", run.ID},
				{"Status", Status(run.Status)},
				{"Phase", run.Phase},
				{"Driver", run.Driver},
				{"Profile", run.Profile},
				{"Samples", fmt.Sprintf("%d (%d columns)", run.Params.SampleCount, run.Columns)},
				{"Sample volume", fmt.Sprintf("%.1f µl", run.Params.SampleVolume)},
				{"Bead ratio", fmt.Sprintf("%.2f", run.Params.BeadRatio)},
				{"Wash cycles", strconv.Itoa(run.Params.WashCycleCount)},
				{"Elution volume", fmt.Sprintf("%.1f µl", run.Params.ElutionVolume)},
				{"Pauses", strconv.Itoa(run.Pauses)},
				{"Started", run.StartedAt},
				{"Finished", run.FinishedAt},
				{"Duration", formatMS(run.DurationMS)},
			}
			if run.Error != "" {
				fields = append(fields, [2]string{"Error", run.Error})
			}
			out.Fields(fields)
			return nil
		},
	}
}

func newHistoryPhasesCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "phases RUN_ID",
		Short: "Show phase timeline of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			phases, err := clientFn().ListPhases(args[0])
			if err != nil {
				return err
			}

			headers := []string{"#", "PHASE", "STATUS", "DURATION", "ERROR"}
			rows := make([][]string, len(phases))
			for i, p := range phases {
				rows[i] = []string{
					strconv.Itoa(p.Ordinal),
					p.Phase,
					Status(p.Status),
					formatMS(p.DurationMS),
					p.Error,
				}
			}

			outputFn().Print(headers, rows, phases)
			return nil
		},
	}
}

// formatMS форматирует длительность в миллисекундах.
func formatMS(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return (time.Duration(ms) * time.Millisecond).Round(time.Second).String()
}
