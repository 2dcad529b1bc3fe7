package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/robocharge/app"
	"github.com/kilianp07/robocharge/config"
	"github.com/kilianp07/robocharge/infra/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the simulation control surface and snapshot stream",
	RunE:  serve,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfgPath == "" {
		return &ExitError{Code: 1, Err: fmt.Errorf("--config is required for serve")}
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return &ExitError{Code: 1, Err: fmt.Errorf("load config: %w", err)}
	}
	svc, err := app.New(cfg)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	if err := svc.Run(ctx); err != nil {
		return &ExitError{Code: 2, Err: err}
	}
	return nil
}
