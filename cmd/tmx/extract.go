package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/gcanale/tmx/internal/artifact"
	"github.com/gcanale/tmx/internal/config"
	"github.com/gcanale/tmx/internal/logging"
	"github.com/gcanale/tmx/internal/pipeline"
	"github.com/gcanale/tmx/internal/scan"
	"github.com/gcanale/tmx/internal/sink"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [dir]",
		Short: "Scan a Teams export and classify its records into typed artifacts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logging.Init(false, logging.ParseLevel(cfg.LogLevel))
			if len(args) == 1 {
				cfg.ExportRoot = args[0]
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			db, err := sink.OpenDB(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()

			fmt.Fprintf(os.Stderr, "Scanning %s...\n", cfg.ExportRoot)
			docs, err := scan.Scan(cfg.ExportRoot)
			if err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			if len(docs) == 0 {
				fmt.Fprintln(os.Stderr, "No JSON documents found.")
				return nil
			}

			loaded, unreadable := scan.Load(docs)
			for _, s := range unreadable {
				slog.Warn("unreadable document", "path", s.Path, "reason", s.Reason)
			}

			runID := uuid.NewString()
			w, err := db.StartRun(runID, cfg.ExportRoot)
			if err != nil {
				return fmt.Errorf("start run: %w", err)
			}

			res, err := pipeline.Run(ctx, loaded, w)
			// An interrupt stops the run between records; the records already
			// emitted are kept. Only genuine failures roll the run back.
			interrupted := errors.Is(err, context.Canceled)
			if err != nil && !interrupted {
				w.Abort()
				return fmt.Errorf("extract: %w", err)
			}
			for _, s := range res.Skipped {
				slog.Warn("malformed document", "path", s.Path, "reason", s.Reason)
			}

			skipped := len(unreadable) + len(res.Skipped)
			if err := w.Finish(res.Emitted, skipped); err != nil {
				return fmt.Errorf("finish run: %w", err)
			}

			if interrupted {
				fmt.Fprintf(os.Stderr, "Interrupted; keeping partial output.\n")
			}
			fmt.Fprintf(os.Stderr, "Run %s: %d artifacts from %d documents (%d skipped)\n",
				runID, res.Emitted, len(loaded), skipped)
			for _, k := range artifact.Kinds {
				if n := res.Counts[k]; n > 0 {
					fmt.Fprintf(os.Stderr, "  %-14s %d\n", k, n)
				}
			}
			return nil
		},
	}

	return cmd
}
