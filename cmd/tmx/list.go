package main

import (
	"fmt"
	"sort"

	"github.com/gcanale/tmx/internal/config"
	"github.com/gcanale/tmx/internal/sink"
	"github.com/spf13/cobra"
)

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List extraction runs and artifact counts by kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			db, err := sink.OpenDB(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := db.Runs()
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			if len(runs) == 0 {
				fmt.Println("No extraction runs yet. Run 'tmx extract' first.")
				return nil
			}

			fmt.Println("=== Runs ===")
			for _, r := range runs {
				status := fmt.Sprintf("%d artifacts, %d skipped", r.Emitted, r.Skipped)
				if r.FinishedAt == "" {
					status = "(unfinished)"
				}
				fmt.Printf("  %s  %s  %s  %s\n",
					r.StartedAt, r.RunID, status, r.ExportRoot)
			}

			counts, err := db.KindCounts()
			if err != nil {
				return fmt.Errorf("count kinds: %w", err)
			}

			fmt.Println("\n=== Artifacts ===")
			kinds := make([]string, 0, len(counts))
			for k := range counts {
				kinds = append(kinds, k)
			}
			sort.Strings(kinds)
			for _, k := range kinds {
				fmt.Printf("  %-14s %d\n", k, counts[k])
			}
			return nil
		},
	}
}
