package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/derval/core/timeseries"
	"github.com/kilianp07/derval/infra/kpi"
)

var (
	historyDB  string
	historyRun string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show runs recorded by the sqlite metrics sink",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyDB, "db", "runs.db", "run history database")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "list the windows of this run")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := kpi.NewSQLiteStore(historyDB)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()
	out := cmd.OutOrStdout()

	if historyRun != "" {
		wins, err := store.Windows(historyRun)
		if err != nil {
			return err
		}
		for _, w := range wins {
			status := "solved"
			if w.Failed() {
				status = "failed: " + w.Error
			}
			fmt.Fprintf(out, "%-12s %s %5d %14.2f %s\n", w.Window,
				w.Start.Format(timeseries.DateTimeLayout), w.Size, w.Objective, status)
		}
		return nil
	}

	runs, err := store.Runs()
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Fprintf(out, "%s %-36s %-12s windows=%d requirements=%d", r.Time.Format(timeseries.DateTimeLayout),
			r.RunID, r.Phase, r.Windows, r.Requirements)
		if r.Error != "" {
			fmt.Fprintf(out, " error=%q", r.Error)
		}
		fmt.Fprintln(out)
	}
	return nil
}
