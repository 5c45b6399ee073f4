package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/format"
	"NewsDigest/internal/render"
)

var runFlags struct {
	day    string
	format string
	dryRun bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build and publish the digest for one day",
	RunE:  runOnce,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.day, "day", "", "Day to process as YYYY-MM-DD (default today in the scheduler timezone)")
	f.StringVarP(&runFlags.format, "format", "f", "text", "Output format: text|table|markdown|json")
	f.BoolVar(&runFlags.dryRun, "dry-run", false, "Analyse without publishing or updating the ledger")
}

func runOnce(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	application, cfg, logger, err := buildApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := application.Close(); cerr != nil {
			logger.Warn("close application", "error", cerr)
		}
	}()

	day := time.Now().In(cfg.Scheduler.Location())
	if runFlags.day != "" {
		day, err = time.ParseInLocation("2006-01-02", runFlags.day, cfg.Scheduler.Location())
		if err != nil {
			return fmt.Errorf("parse --day: %w", err)
		}
	}

	digest, err := application.RunOnce(ctx, day, runFlags.dryRun)
	if err != nil {
		return fmt.Errorf("run %s: %w", day.Format("2006-01-02"), err)
	}
	return writeDigest(cmd, digest, runFlags.format)
}

func writeDigest(cmd *cobra.Command, digest domain.Digest, outFormat string) error {
	out := cmd.OutOrStdout()
	switch strings.ToLower(outFormat) {
	case "", "text":
		fmt.Fprintln(out, render.Text(digest))
	case "json":
		raw, err := render.JSON(digest)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(raw))
	default:
		mode, err := format.ParseMode(outFormat)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, render.TopTable(digest, mode))
		meta := digest.Metadata
		fmt.Fprintf(out, "mode=%s items=%d filtered=%d enhanced=%d translated=%d", meta.Mode, len(digest.Items), meta.FilteredOut, meta.Enhanced, meta.Translated)
		if len(digest.Trends) > 0 {
			fmt.Fprintf(out, " trends=%s", strings.Join(digest.Trends, ", "))
		}
		fmt.Fprintln(out)
	}
	return nil
}
