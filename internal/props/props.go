// Package props extracts attachment, mention, and timestamp side-data from
// the loosely typed "properties" structure attached to each Teams message.
// Property fields may arrive as native arrays or as strings holding
// serialized JSON; both forms are accepted everywhere.
package props

import (
	"strings"

	"github.com/gcanale/tmx/internal/rawjson"
	"github.com/gcanale/tmx/internal/timeutil"
)

// File is a minimal attachment descriptor.
type File struct {
	Name string
	Type string
}

// Mention is one mentioned participant after fragment merging.
type Mention struct {
	MRI         string
	Type        string
	DisplayName string
}

// Extract pulls link URLs, file descriptors, and merged mentions from a
// message's properties.
func Extract(p rawjson.Value) (links []string, files []File, mentions []Mention) {
	for _, l := range p.Field("links").AsList() {
		if url := l.Field("url").Str(); url != "" {
			links = append(links, url)
		}
	}

	for _, f := range p.Field("files").AsList() {
		if !f.IsMap() {
			continue
		}
		name := f.Field("fileName").Str()
		if name == "" {
			name = f.Field("title").Str()
		}
		ftype := f.Field("fileType").Str()
		if ftype == "" {
			ftype = f.Field("type").Str()
		}
		files = append(files, File{Name: name, Type: ftype})
	}

	mentions = mergeMentions(p.Field("mentions").AsList())
	return links, files, mentions
}

// mergeMentions groups mention fragments by participant identifier: the
// platform splits one mention into adjacent fragments that share an MRI, each
// carrying part of the display name. Parts are joined with single spaces and
// punctuation spacing is normalized. Groups keep first-seen order.
func mergeMentions(raw []rawjson.Value) []Mention {
	type group struct {
		mtype string
		parts []string
	}
	byMRI := make(map[string]*group)
	var order []string

	for _, m := range raw {
		if !m.IsMap() {
			continue
		}
		mri := m.Field("mri").Str()
		if mri == "" {
			continue
		}
		g, ok := byMRI[mri]
		if !ok {
			g = &group{mtype: m.Field("mentionType").Str()}
			byMRI[mri] = g
			order = append(order, mri)
		}
		g.parts = append(g.parts, m.Field("displayName").Str())
	}

	var merged []Mention
	for _, mri := range order {
		g := byMRI[mri]
		var parts []string
		for _, p := range g.parts {
			if t := strings.TrimSpace(p); t != "" {
				parts = append(parts, t)
			}
		}
		if len(parts) == 0 {
			continue
		}
		name := strings.Join(parts, " ")
		name = strings.ReplaceAll(name, " ,", ",")
		name = strings.ReplaceAll(name, "( ", "(")
		name = strings.ReplaceAll(name, " )", ")")
		merged = append(merged, Mention{MRI: mri, Type: g.mtype, DisplayName: name})
	}
	return merged
}

// HasAttachments reports whether the message carries any attachment: an
// extracted link or file, or a non-empty blur-hash list (image previews).
func HasAttachments(p rawjson.Value, links []string, files []File) bool {
	if len(links) > 0 || len(files) > 0 {
		return true
	}
	return len(p.Field("blurHash").AsList()) > 0
}

// FileNames joins the file names from the properties with " | ", used as
// fallback content for messages whose body is empty.
func FileNames(p rawjson.Value) string {
	var names []string
	for _, f := range p.Field("files").AsList() {
		if !f.IsMap() {
			continue
		}
		name := f.Field("fileName").Str()
		if name == "" {
			name = f.Field("title").Str()
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, " | ")
}

// EmbeddedEpoch pulls a named side-channel timestamp and normalizes it to
// epoch seconds.
func EmbeddedEpoch(p rawjson.Value, key string) (int64, bool) {
	if !p.Has(key) {
		return 0, false
	}
	return timeutil.Epoch(p.Field(key))
}
