// Package directory maps opaque participant identifiers (MRIs) to display
// names. The directory is built while contact records are processed and
// consulted by every later pipeline stage, so it must be populated before the
// dependent phases run.
package directory

import "strings"

// Directory is pipeline-scoped mutable state. Entries are never removed.
// It is not safe for concurrent use; the pipeline is single-threaded.
type Directory struct {
	names map[string]string
	order []string
}

func New() *Directory {
	return &Directory{names: make(map[string]string)}
}

// Record inserts or overwrites the display name for an identifier. Empty
// identifiers and names are ignored.
func (d *Directory) Record(id, name string) {
	if id == "" || name == "" {
		return
	}
	if _, seen := d.names[id]; !seen {
		d.order = append(d.order, id)
	}
	d.names[id] = name
}

// Len reports the number of directory entries.
func (d *Directory) Len() int { return len(d.names) }

// Lookup resolves an identifier to a display name: exact match first, then a
// scan where either identifier being a substring of the other counts as a
// hit. The scan runs in insertion order so the first recorded match wins,
// keeping results stable across runs.
func (d *Directory) Lookup(id string) (string, bool) {
	if id == "" || len(d.names) == 0 {
		return "", false
	}
	if name, ok := d.names[id]; ok {
		return name, true
	}
	for _, known := range d.order {
		if known == "" {
			continue
		}
		if strings.Contains(known, id) || strings.Contains(id, known) {
			return d.names[known], true
		}
	}
	return "", false
}

// Enrich renders an identifier with its display name appended in parentheses,
// or unchanged when the directory has no entry for it.
func (d *Directory) Enrich(id string) string {
	if id == "" {
		return id
	}
	if name, ok := d.Lookup(id); ok {
		return id + " (" + name + ")"
	}
	return id
}
