package render

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gcanale/tmx/internal/sink"
	"github.com/mattn/go-runewidth"
)

const (
	colorReset   = "\033[0m"
	colorName    = "\033[1;34m" // bold blue attribute names
	colorKind    = "\033[1;32m" // bold green kind tag
	colorDim     = "\033[2m"
	colorBoldRed = "\033[1;31m" // bold red for keyword highlights
)

type Options struct {
	Width int    // wrap width (0 = no wrap)
	Query string // search query for keyword highlighting
}

// fts5Operators are FTS5 operators that should not be highlighted as keywords.
var fts5Operators = map[string]bool{
	"AND": true, "OR": true, "NOT": true, "NEAR": true,
	"and": true, "or": true, "not": true, "near": true,
}

// highlightKeywords wraps case-insensitive matches of query terms in bold red ANSI codes.
func highlightKeywords(text, query string) string {
	if query == "" {
		return text
	}
	terms := strings.Fields(query)
	var filtered []string
	for _, t := range terms {
		if !fts5Operators[t] {
			filtered = append(filtered, t)
		}
	}
	if len(filtered) == 0 {
		return text
	}
	for _, term := range filtered {
		lower := strings.ToLower(term)
		i := 0
		for i < len(text) {
			idx := strings.Index(strings.ToLower(text[i:]), lower)
			if idx < 0 {
				break
			}
			pos := i + idx
			orig := text[pos : pos+len(term)]
			replacement := colorBoldRed + orig + colorReset
			text = text[:pos] + replacement + text[pos+len(term):]
			i = pos + len(replacement)
		}
	}
	return text
}

// indentLines prepends each line of text with the given prefix.
func indentLines(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// wrapLine breaks a single line into multiple lines that fit within maxWidth
// visible columns, correctly skipping ANSI escape sequences when measuring width.
func wrapLine(line string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{line}
	}

	var result []string
	var cur strings.Builder
	visW := 0

	i := 0
	for i < len(line) {
		// check for ANSI escape sequence: ESC[ ... m
		if i+1 < len(line) && line[i] == '\033' && line[i+1] == '[' {
			j := i + 2
			for j < len(line) && line[j] != 'm' {
				j++
			}
			if j < len(line) {
				j++ // include 'm'
			}
			cur.WriteString(line[i:j])
			i = j
			continue
		}

		r, size := utf8.DecodeRuneInString(line[i:])
		rw := runewidth.RuneWidth(r)

		if visW+rw > maxWidth {
			result = append(result, cur.String())
			cur.Reset()
			visW = 0
		}

		cur.WriteRune(r)
		visW += rw
		i += size
	}

	if cur.Len() > 0 {
		result = append(result, cur.String())
	}

	if len(result) == 0 {
		return []string{""}
	}
	return result
}

// Artifact renders one stored artifact with all of its attributes.
func Artifact(db *sink.DB, artifactID int64, opts Options) (string, error) {
	art, err := db.GetArtifact(artifactID)
	if err != nil {
		return "", fmt.Errorf("get artifact: %w", err)
	}
	if art == nil {
		return "", fmt.Errorf("artifact not found: %d", artifactID)
	}

	attrs, err := db.GetAttributes(artifactID)
	if err != nil {
		return "", fmt.Errorf("get attributes: %w", err)
	}

	var b strings.Builder
	writeLine := func(s string) {
		for _, wl := range wrapLine(s, opts.Width) {
			b.WriteString(wl)
			b.WriteString("\n")
		}
	}

	writeLine(fmt.Sprintf("%s--- artifact %d%s %s[%s]%s %s%s%s",
		colorDim, art.ArtifactID, colorReset,
		colorKind, art.Kind, colorReset,
		colorDim, art.DocPath, colorReset))

	for _, a := range attrs {
		val := AttrValue(a)
		val = highlightKeywords(val, opts.Query)
		if strings.Contains(val, "\n") {
			writeLine(fmt.Sprintf("%s%s:%s", colorName, a.Name, colorReset))
			for _, l := range strings.Split(indentLines(val, "  "), "\n") {
				writeLine(l)
			}
			continue
		}
		writeLine(fmt.Sprintf("%s%s:%s %s", colorName, a.Name, colorReset, val))
	}

	return b.String(), nil
}

// AttrValue formats one attribute for display. Epoch attributes render as a
// UTC timestamp alongside the raw seconds.
func AttrValue(a sink.AttrRow) string {
	if a.Type == "epoch" {
		return fmt.Sprintf("%s (%d)",
			time.Unix(a.Epoch, 0).UTC().Format("2006-01-02 15:04:05"), a.Epoch)
	}
	return a.Str
}
