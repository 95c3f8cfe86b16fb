package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/derval/app"
	"github.com/kilianp07/derval/config"
	"github.com/kilianp07/derval/infra/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "derval",
	Short: "Grid service valuation of distributed energy resources",
	RunE:  run,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scenario and write its reports",
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.AddCommand(runCmd)
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func newService() (*app.Service, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return newServiceFrom(cfg)
}

func newServiceFrom(cfg *config.Config) (*app.Service, error) {
	return app.New(cfg)
}

func closeService(svc *app.Service) {
	if err := svc.Close(); err != nil {
		logger.New("main").Errorf("service close: %v", err)
	}
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newService()
	if err != nil {
		return err
	}
	defer closeService(svc)
	res, err := svc.Run(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s: %d windows, %d requirements\n", res.RunID, res.Windows, len(res.Requirements))
	for _, name := range sortedKeys(res.Objective) {
		fmt.Fprintf(out, "  %-28s %14.2f\n", name, res.Objective[name])
	}
	return nil
}
