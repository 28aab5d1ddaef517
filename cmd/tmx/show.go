package main

import (
	"fmt"
	"strconv"

	"github.com/gcanale/tmx/internal/config"
	"github.com/gcanale/tmx/internal/render"
	"github.com/gcanale/tmx/internal/sink"
	"github.com/spf13/cobra"
)

func showCmd() *cobra.Command {
	var query string
	var width int

	cmd := &cobra.Command{
		Use:   "show <artifactId>",
		Short: "Show one artifact with all of its attributes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			artifactID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid artifact id %q", args[0])
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			db, err := sink.OpenDB(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			out, err := render.Artifact(db, artifactID, render.Options{
				Width: width,
				Query: query,
			})
			if err != nil {
				return err
			}

			fmt.Print(out)
			return nil
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "Search query for keyword highlighting")
	cmd.Flags().IntVar(&width, "width", 0, "Wrap width (0 = no wrap)")

	return cmd
}
