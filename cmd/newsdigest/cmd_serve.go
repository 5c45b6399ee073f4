package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daily scheduler and the HTTP analyze API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, cfg, logger, err := buildApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := application.Close(); cerr != nil {
			logger.Warn("close application", "error", cerr)
		}
	}()

	logger.Info("serving",
		"addr", cfg.HTTP.Addr,
		"daily_time", cfg.Scheduler.DailyTime,
		"timezone", cfg.Scheduler.Location().String(),
		"sites", len(cfg.Sites),
	)
	if err := application.Serve(ctx); err != nil {
		logger.Error("server stopped", "error", err)
		return err
	}
	logger.Info("server stopped")
	return nil
}
