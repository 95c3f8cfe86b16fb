package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/derval/core/timeseries"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List the resource adequacy events scheduled over the horizon",
	RunE:  runEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newService()
	if err != nil {
		return err
	}
	defer closeService(svc)
	summaries, err := svc.Events(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(summaries) == 0 {
		fmt.Fprintln(out, "no resource adequacy service configured")
		return nil
	}
	for _, s := range summaries {
		fmt.Fprintf(out, "%s: qualifying capacity %.3f kW, %d events, %d intervals\n",
			s.Stream, s.QualifyingCapacity, len(s.Starts), s.Intervals)
		for _, start := range s.Starts {
			fmt.Fprintf(out, "  event  %s\n", start.Format(timeseries.DateTimeLayout))
		}
		for _, peak := range s.Peaks {
			fmt.Fprintf(out, "  peak   %s\n", peak.Format(timeseries.DateTimeLayout))
		}
	}
	return nil
}
