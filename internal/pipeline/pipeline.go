// Package pipeline drives a full extraction run: documents are processed in
// a fixed category order because the contact directory and tenant map built
// by the early phases feed enrichment in the later ones. Reordering the
// phases silently changes output, so the order is part of the contract.
package pipeline

import (
	"context"
	"fmt"

	"github.com/gcanale/tmx/internal/artifact"
	"github.com/gcanale/tmx/internal/classify"
	"github.com/gcanale/tmx/internal/rawjson"
)

// Category tells the driver which phase a document belongs to.
type Category string

const (
	People        Category = "people"
	Conversations Category = "conversations"
	Other         Category = "other"
)

// Document is one raw JSON export file queued for a run.
type Document struct {
	Path     string
	Category Category
	Data     []byte
}

// Sink consumes the typed records a run produces. StartDocument is called
// once per parsed document before any of its records, even when the document
// yields no records, so a sink can retire earlier output for that path.
// Emit is called once per record, in emission order, tagged with the source
// document path.
type Sink interface {
	StartDocument(path string) error
	Emit(path string, rec *artifact.Record) error
}

// Skipped describes one document dropped from a run.
type Skipped struct {
	Path   string
	Reason string
}

// Result summarizes a run. Counts is keyed by entity kind; Skipped lists
// documents that failed to load. A cancelled run returns the partial result
// alongside the context error.
type Result struct {
	Counts  map[artifact.Kind]int
	Emitted int
	Skipped []Skipped
}

func newResult() *Result {
	return &Result{Counts: make(map[artifact.Kind]int)}
}

// Run processes every document and streams the resulting records to the
// sink. Malformed documents are skipped and reported, never fatal; a sink
// failure aborts the run. Cancellation is checked between top-level records,
// so a cancelled run has emitted every record of the work finished so far
// and nothing partial.
func Run(ctx context.Context, docs []Document, sink Sink) (*Result, error) {
	res := newResult()
	state := classify.NewContext()

	for _, cat := range []Category{People, Conversations, Other} {
		for _, doc := range docs {
			if doc.Category != cat {
				continue
			}
			if err := runDocument(ctx, doc, state, sink, res); err != nil {
				return res, err
			}
		}
	}
	return res, nil
}

func runDocument(ctx context.Context, doc Document, state *classify.Context, sink Sink, res *Result) error {
	parsed, err := rawjson.Parse(doc.Data)
	if err != nil {
		res.Skipped = append(res.Skipped, Skipped{Path: doc.Path, Reason: err.Error()})
		return nil
	}
	records := parsed.List()
	if records == nil {
		res.Skipped = append(res.Skipped, Skipped{Path: doc.Path, Reason: "top-level value is not an array"})
		return nil
	}

	// A document that parses but yields nothing still announces itself, so
	// the sink drops whatever an earlier run stored for it. Skipped documents
	// never reach this point and keep their previous output.
	if err := sink.StartDocument(doc.Path); err != nil {
		return fmt.Errorf("start document %s: %w", doc.Path, err)
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		var out []*artifact.Record
		switch doc.Category {
		case People:
			out = state.ProcessContact(rec)
		case Conversations:
			out = state.ProcessThread(rec)
		default:
			out = expandMessages(state, rec)
		}
		for _, r := range out {
			if err := sink.Emit(doc.Path, r); err != nil {
				return fmt.Errorf("emit %s record: %w", r.Kind, err)
			}
			res.Counts[r.Kind]++
			res.Emitted++
		}
	}
	return nil
}

// expandMessages unwraps one record of a message export: a conversation id
// plus a map of messages keyed by id. Keys returns sorted names, so a run
// walks messages in a reproducible order.
func expandMessages(state *classify.Context, rec rawjson.Value) []*artifact.Record {
	val := rec.Field("value").Field("value")
	convID := val.Field("conversationId").Str()
	messages := val.Field("messageMap")
	if convID == "" || !messages.IsMap() {
		return nil
	}

	var out []*artifact.Record
	for _, key := range messages.Keys() {
		out = append(out, state.ProcessMessage(messages.Field(key), convID)...)
	}
	return out
}
