package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"NewsDigest/internal/app"
	"NewsDigest/internal/config"
	"NewsDigest/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

var rootCmd = &cobra.Command{
	Use:           "newsdigest",
	Short:         "Daily AI news digest",
	Long:          "newsdigest collects AI news from configured sites, scores, categorizes\nand translates them with a language model, and publishes a daily digest.",
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&rootFlags.configPath, "config", "c", "", "Path to YAML config (default $NEWSDIGEST_CONFIG)")
	pf.StringVar(&rootFlags.logLevel, "log-level", "", "Override logging level (debug|info|warn|error)")
	pf.StringVar(&rootFlags.logFormat, "log-format", "", "Override logging format (text|json)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.Version = version
}

// loadConfig reads the config and applies logging flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(rootFlags.configPath)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	if rootFlags.logLevel != "" {
		cfg.Logging.Level = rootFlags.logLevel
	}
	if rootFlags.logFormat != "" {
		cfg.Logging.Format = rootFlags.logFormat
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())
	return cfg, logger, nil
}

func buildApp(ctx context.Context, cmd *cobra.Command) (*app.Application, config.Config, *slog.Logger, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, config.Config{}, nil, fmt.Errorf("build application: %w", err)
	}
	return application, cfg, logger, nil
}
