package cli

import (
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/shaiso/beadprep/internal/domain"
)

// NewWatchCmd создаёт команду просмотра событий в реальном времени.
func NewWatchCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var runID string
	var untilDone bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream live run events",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := outputFn()
			out.Success("watching events, Ctrl+C to stop")

			err := clientFn().WatchEvents(ctx, runID, func(e domain.Event) error {
				printEvent(out, e)
				if untilDone && isTerminal(e.Type) {
					stop()
				}
				return nil
			})
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Only events of this run ID")
	cmd.Flags().BoolVar(&untilDone, "until-done", false, "Exit after the first terminal run event")
	return cmd
}

func printEvent(out *Output, e domain.Event) {
	if out.JSONMode() {
		out.JSON(e)
		return
	}

	line := e.Timestamp.Format("15:04:05") + "  " + e.RunID.String()[:8] + "  " + eventType(e.Type)
	if e.Phase != "" {
		line += "  " + e.Phase.String()
	}
	if e.Message != "" {
		line += "  " + e.Message
	}
	out.Line("%s", line)
}

// eventType раскрашивает тип события.
func eventType(t domain.EventType) string {
	switch t {
	case domain.EventRunSucceeded:
		return color.New(color.FgGreen).Sprint(t)
	case domain.EventRunFailed, domain.EventPhaseFailed:
		return color.New(color.FgRed).Sprint(t)
	case domain.EventRunPaused, domain.EventRunCancelled:
		return color.New(color.FgYellow).Sprint(t)
	default:
		return string(t)
	}
}

func isTerminal(t domain.EventType) bool {
	return t == domain.EventRunSucceeded || t == domain.EventRunFailed || t == domain.EventRunCancelled
}
