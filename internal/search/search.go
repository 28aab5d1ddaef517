package search

import (
	"database/sql"
	"fmt"
	"strings"
	"unicode"

	"github.com/gcanale/tmx/internal/sink"
)

type Result struct {
	ArtifactID int64
	Kind       string
	DocPath    string
	Snippet    string
	Rank       float64
}

type Options struct {
	Query string
	Kind  string // "" = all, e.g. "message", "call_log"
	Limit int
}

// containsCJK returns true if the string contains any CJK Unified Ideograph.
func containsCJK(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// makeSnippet extracts a snippet around the first occurrence of query in text.
func makeSnippet(text, query string, contextChars int) string {
	lower := strings.ToLower(text)
	qLower := strings.ToLower(query)
	idx := strings.Index(lower, qLower)
	if idx < 0 {
		// no match, return head
		if len([]rune(text)) > contextChars*2 {
			return string([]rune(text)[:contextChars*2]) + "..."
		}
		return text
	}
	runes := []rune(text)
	qRunes := []rune(query)
	// find rune position of idx
	runePos := len([]rune(text[:idx]))
	start := runePos - contextChars
	if start < 0 {
		start = 0
	}
	end := runePos + len(qRunes) + contextChars
	if end > len(runes) {
		end = len(runes)
	}
	prefix := ""
	suffix := ""
	if start > 0 {
		prefix = "..."
	}
	if end < len(runes) {
		suffix = "..."
	}
	// wrap the matched part with markers
	snippet := string(runes[start:runePos]) +
		">>>" + string(runes[runePos:runePos+len(qRunes)]) + "<<<" +
		string(runes[runePos+len(qRunes):end])
	return prefix + snippet + suffix
}

func Search(db *sink.DB, opts Options) ([]Result, error) {
	if opts.Limit <= 0 {
		opts.Limit = 100
	}
	// FTS5 tokenizes CJK text poorly; fall back to substring matching
	if containsCJK(opts.Query) {
		return searchLike(db, opts)
	}
	return searchFTS(db, opts)
}

func searchFTS(db *sink.DB, opts Options) ([]Result, error) {
	var conditions []string
	var args []interface{}

	// FTS match
	conditions = append(conditions, "artifacts_fts MATCH ?")
	args = append(args, opts.Query)

	// kind filter
	if opts.Kind != "" {
		conditions = append(conditions, "a.kind = ?")
		args = append(args, opts.Kind)
	}

	where := strings.Join(conditions, " AND ")

	query := fmt.Sprintf(`
		SELECT
			a.artifact_id,
			a.kind,
			a.doc_path,
			snippet(artifacts_fts, 0, '>>>','<<<', '...', 40) as snip,
			bm25(artifacts_fts, 1.0) as rank
		FROM artifacts_fts
		JOIN artifacts a ON artifacts_fts.rowid = a.artifact_id
		WHERE %s
		ORDER BY rank
		LIMIT ?
	`, where)

	args = append(args, opts.Limit)

	rows, err := db.Raw().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

func searchLike(db *sink.DB, opts Options) ([]Result, error) {
	var conditions []string
	var args []interface{}

	// LIKE match for CJK substring search
	conditions = append(conditions, "a.content LIKE ?")
	args = append(args, "%"+opts.Query+"%")

	// kind filter
	if opts.Kind != "" {
		conditions = append(conditions, "a.kind = ?")
		args = append(args, opts.Kind)
	}

	where := strings.Join(conditions, " AND ")

	query := fmt.Sprintf(`
		SELECT
			a.artifact_id,
			a.kind,
			a.doc_path,
			a.content
		FROM artifacts a
		WHERE %s
		ORDER BY a.artifact_id DESC
		LIMIT ?
	`, where)

	args = append(args, opts.Limit)

	rows, err := db.Raw().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var fullText string
		if err := rows.Scan(&r.ArtifactID, &r.Kind, &r.DocPath, &fullText); err != nil {
			return nil, err
		}
		r.Snippet = makeSnippet(fullText, opts.Query, 30)
		r.Rank = 0
		results = append(results, r)
	}
	return results, rows.Err()
}

func scanResults(rows *sql.Rows) ([]Result, error) {
	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ArtifactID, &r.Kind, &r.DocPath, &r.Snippet, &r.Rank); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
