package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/kilianp07/derval/api"
	"github.com/kilianp07/derval/config"
	"github.com/kilianp07/derval/infra/kpi"
	"github.com/kilianp07/derval/infra/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Compute the requirement plan and serve it with the run history over HTTP",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := newServiceFrom(cfg)
	if err != nil {
		return err
	}
	defer closeService(svc)
	plan, err := svc.Plan(ctx)
	if err != nil {
		return err
	}

	var history api.History
	if cfg.API.History != "" {
		store, err := kpi.NewSQLiteStore(cfg.API.History)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer store.Close()
		history = store
	}

	if os.Getenv("APP_ENV") != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.NewHandler(plan, history), cfg.API.Token)
	logger.New("api").Infof("serving %d requirements on %s", len(plan.Requirements), cfg.API.Addr)
	return api.Serve(ctx, cfg.API.Addr, api.WithCORS(router, cfg.API.AllowedOrigins))
}
