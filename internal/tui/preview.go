package tui

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gcanale/tmx/internal/render"
	"github.com/gcanale/tmx/internal/search"
	"github.com/gcanale/tmx/internal/sink"
)

// previewRenderedMsg is sent when an async preview render completes.
type previewRenderedMsg struct {
	artifactID int64
	content    string
	err        error
}

// loadPreviewCmd returns a tea.Cmd that renders the artifact preview async.
func loadPreviewCmd(db *sink.DB, r search.Result, query string, width int) tea.Cmd {
	return func() tea.Msg {
		content, err := render.Artifact(db, r.ArtifactID, render.Options{
			Width: width,
			Query: query,
		})
		return previewRenderedMsg{
			artifactID: r.ArtifactID,
			content:    content,
			err:        err,
		}
	}
}

// newViewport creates a new viewport model with the given dimensions.
func newViewport(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.Style = stylePanelBorder
	return vp
}
