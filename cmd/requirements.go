package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
)

var requirementsCmd = &cobra.Command{
	Use:   "requirements",
	Short: "Compute the system requirements of the configured services",
	RunE:  runRequirements,
}

func init() {
	rootCmd.AddCommand(requirementsCmd)
}

func runRequirements(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newService()
	if err != nil {
		return err
	}
	defer closeService(svc)
	reqs, err := svc.Requirements(ctx)
	if err != nil {
		return err
	}
	for _, r := range reqs {
		fmt.Fprintln(cmd.OutOrStdout(), r.String())
	}
	return nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
