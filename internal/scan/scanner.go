// Package scan discovers export documents under a root directory and sorts
// them into the three pipeline categories by their canonical file names.
package scan

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gcanale/tmx/internal/pipeline"
)

// Canonical file names produced by the upstream extraction step.
const (
	peopleFile        = "output_people.json"
	conversationsFile = "output_conversations.json"
)

// Scan walks the export root and returns every JSON document with its
// category assigned. Results come back sorted by path so repeated runs
// process documents in the same order. A missing root yields no documents
// and no error.
func Scan(root string) ([]pipeline.Document, error) {
	var docs []pipeline.Document
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable dirs
		}
		if info.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil
		}
		docs = append(docs, pipeline.Document{
			Path:     path,
			Category: Categorize(path),
		})
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

// Categorize maps a document path to its pipeline category by base name.
// Anything that is not the people or conversations export carries messages.
func Categorize(path string) pipeline.Category {
	switch strings.ToLower(filepath.Base(path)) {
	case peopleFile:
		return pipeline.People
	case conversationsFile:
		return pipeline.Conversations
	default:
		return pipeline.Other
	}
}

// Load reads the document bodies off disk. Unreadable files are dropped from
// the run and reported as skipped.
func Load(docs []pipeline.Document) ([]pipeline.Document, []pipeline.Skipped) {
	var loaded []pipeline.Document
	var skipped []pipeline.Skipped
	for _, doc := range docs {
		data, err := os.ReadFile(doc.Path)
		if err != nil {
			skipped = append(skipped, pipeline.Skipped{Path: doc.Path, Reason: err.Error()})
			continue
		}
		doc.Data = data
		loaded = append(loaded, doc)
	}
	return loaded, skipped
}
