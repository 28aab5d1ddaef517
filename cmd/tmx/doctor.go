package main

import (
	"fmt"
	"os"

	"github.com/gcanale/tmx/internal/config"
	"github.com/gcanale/tmx/internal/pipeline"
	"github.com/gcanale/tmx/internal/scan"
	"github.com/gcanale/tmx/internal/sink"
	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Self-check: verify export root, DB, FTS5, and show stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			// check export root
			fmt.Println("=== Export Root ===")
			checkDir("Root", cfg.ExportRoot)

			// scan file counts
			fmt.Println("\n=== File Scan ===")
			docs, err := scan.Scan(cfg.ExportRoot)
			if err != nil {
				fmt.Printf("  scan error: %v\n", err)
			} else {
				counts := map[pipeline.Category]int{}
				for _, d := range docs {
					counts[d.Category]++
				}
				fmt.Printf("  People files:        %d\n", counts[pipeline.People])
				fmt.Printf("  Conversation files:  %d\n", counts[pipeline.Conversations])
				fmt.Printf("  Other JSON files:    %d\n", counts[pipeline.Other])
			}

			// check DB
			fmt.Println("\n=== Database ===")
			fmt.Printf("  Path: %s\n", cfg.DBPath)
			if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
				fmt.Println("  Status: NOT FOUND (run 'tmx extract' first)")
				return nil
			}

			db, err := sink.OpenDB(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()

			runCount, err := db.RunCount()
			if err != nil {
				return fmt.Errorf("count runs: %w", err)
			}

			artifactCount, err := db.ArtifactCount()
			if err != nil {
				return fmt.Errorf("count artifacts: %w", err)
			}

			fmt.Printf("  Runs:      %d\n", runCount)
			fmt.Printf("  Artifacts: %d\n", artifactCount)

			// check FTS5
			fmt.Println("\n=== FTS5 ===")
			var ftsCount int
			err = db.Raw().QueryRow("SELECT COUNT(*) FROM artifacts_fts").Scan(&ftsCount)
			if err != nil {
				fmt.Printf("  FTS5 error: %v\n", err)
			} else {
				fmt.Printf("  FTS5 entries: %d\n", ftsCount)
				if ftsCount == artifactCount {
					fmt.Println("  Status: OK (synced)")
				} else {
					fmt.Printf("  Status: MISMATCH (artifacts=%d, fts=%d)\n", artifactCount, ftsCount)
				}
			}

			// check DB file size
			if info, err := os.Stat(cfg.DBPath); err == nil {
				sizeMB := float64(info.Size()) / 1024 / 1024
				fmt.Printf("\n=== DB Size: %.1f MB ===\n", sizeMB)
			}

			return nil
		},
	}
}

func checkDir(name, path string) {
	if info, err := os.Stat(path); err != nil {
		fmt.Printf("  %s: %s (NOT FOUND)\n", name, path)
	} else if !info.IsDir() {
		fmt.Printf("  %s: %s (NOT A DIRECTORY)\n", name, path)
	} else {
		fmt.Printf("  %s: %s (OK)\n", name, path)
	}
}
