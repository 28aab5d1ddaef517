package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/gcanale/tmx/internal/config"
	"github.com/gcanale/tmx/internal/search"
	"github.com/gcanale/tmx/internal/sink"
	"github.com/gcanale/tmx/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	sColorReset   = "\033[0m"
	sColorBoldRed = "\033[1;31m"
	sColorBlue    = "\033[1;34m"
	sColorGreen   = "\033[1;32m"
	sColorDim     = "\033[2m"
)

func colorizeKind(kind string) string {
	switch {
	case kind == "message" || kind == "attachment":
		return sColorBlue + kind + sColorReset
	case strings.HasPrefix(kind, "call") || strings.HasPrefix(kind, "meeting"):
		return sColorGreen + kind + sColorReset
	default:
		return kind
	}
}

func colorizeSnippet(snippet string) string {
	snippet = strings.ReplaceAll(snippet, ">>>", sColorBoldRed)
	snippet = strings.ReplaceAll(snippet, "<<<", sColorReset)
	return snippet
}

func searchCmd() *cobra.Command {
	var kind string
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search across extracted artifacts",
		Long: `Search extracted artifacts using FTS5. Output is TSV for fzf integration:
  artifactId, kind, docPath, snippet

Recommended shell function (add to .zshrc):
  tmxf() {
    tmx search "$*" | fzf \
      --ansi \
      --delimiter='\t' --with-nth=2.. \
      --preview 'tmx show {1} --query {q}' \
      --preview-window=right:60%:wrap \
      --preview-debounce=150
  }`,
		Args: cobra.ExactArgs(1),
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

			opts := search.Options{
				Kind:  kind,
				Limit: limit,
			}

			// Interactive TUI when stdout is a terminal; TSV output for pipes
			if term.IsTerminal(int(os.Stdout.Fd())) {
				return tui.Run(db, args[0], opts)
			}

			opts.Query = args[0]
			results, err := search.Search(db, opts)
			if err != nil {
				return err
			}

			if len(results) == 0 {
				fmt.Fprintln(os.Stderr, "No results found.")
				return nil
			}

			for _, r := range results {
				snippet := strings.ReplaceAll(r.Snippet, "\t", " ")
				snippet = strings.ReplaceAll(snippet, "\n", " ")
				snippet = colorizeSnippet(snippet)
				// first field (artifactId) stays plain for fzf {1}
				fmt.Printf("%d\t%s\t%s%s%s\t%s\n",
					r.ArtifactID,
					colorizeKind(r.Kind),
					sColorDim, r.DocPath, sColorReset,
					snippet,
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Filter by artifact kind (message/call_log/...)")
	cmd.Flags().IntVar(&limit, "limit", 100, "Max results")

	return cmd
}
