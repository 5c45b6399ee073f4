package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"NewsDigest/internal/format"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the config and ping the language model endpoint",
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, _ []string) error {
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

	out := cmd.OutOrStdout()
	tb := format.NewTable(format.ASCII)
	tb.Header("Site", "Scanner", "Categories")
	for _, site := range cfg.Sites {
		tb.Row(site.Name, site.Scanner, len(site.Categories))
	}
	fmt.Fprintln(out, tb.String())

	if err := application.Ping(ctx); err != nil {
		return fmt.Errorf("llm %s: %w", cfg.LLM.Model, err)
	}
	fmt.Fprintf(out, "llm %s reachable at %s\n", cfg.LLM.Model, cfg.LLM.Endpoint)
	return nil
}
