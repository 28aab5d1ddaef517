package sink

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/gcanale/tmx/internal/artifact"
	"github.com/gcanale/tmx/internal/pipeline"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "tmx.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func message(id, content string) *artifact.Record {
	return artifact.New(artifact.Message).
		SetStr("message_id", id).
		SetStr("content", content).
		SetEpoch("server_arrival_time", 1709641845)
}

func TestWriteAndReadBack(t *testing.T) {
	db := openTestDB(t)

	w, err := db.StartRun("run-1", "/export")
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	if err := w.Emit("chats.json", message("m1", "hello world")); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if err := w.Emit("chats.json", message("m2", "second")); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if err := w.Finish(2, 0); err != nil {
		t.Fatalf("finish: %v", err)
	}

	n, err := db.ArtifactCount()
	if err != nil || n != 2 {
		t.Fatalf("artifact count = %d (%v), want 2", n, err)
	}
	counts, err := db.KindCounts()
	if err != nil || counts["message"] != 2 {
		t.Fatalf("kind counts = %v (%v)", counts, err)
	}

	runs, err := db.Runs()
	if err != nil || len(runs) != 1 {
		t.Fatalf("runs = %v (%v)", runs, err)
	}
	if runs[0].RunID != "run-1" || runs[0].Emitted != 2 {
		t.Errorf("run row = %+v", runs[0])
	}
	if runs[0].FinishedAt == "" {
		t.Errorf("finished_at not stamped")
	}

	art, err := db.GetArtifact(1)
	if err != nil || art == nil {
		t.Fatalf("get artifact: %v", err)
	}
	if art.Kind != "message" || art.Content != "hello world" {
		t.Errorf("artifact = %+v", art)
	}
	attrs, err := db.GetAttributes(art.ArtifactID)
	if err != nil {
		t.Fatalf("get attributes: %v", err)
	}
	if len(attrs) != 3 {
		t.Fatalf("attrs = %+v, want 3", attrs)
	}
	if attrs[0].Name != "message_id" || attrs[0].Str != "m1" {
		t.Errorf("first attr = %+v, attribute order must be preserved", attrs[0])
	}
	if attrs[2].Type != "epoch" || attrs[2].Epoch != 1709641845 {
		t.Errorf("epoch attr = %+v", attrs[2])
	}
}

func TestReExtractionReplacesDocument(t *testing.T) {
	db := openTestDB(t)

	w, err := db.StartRun("run-1", "/export")
	if err != nil {
		t.Fatal(err)
	}
	w.Emit("chats.json", message("m1", "old"))
	w.Emit("chats.json", message("m2", "old"))
	w.Emit("other.json", message("m3", "kept"))
	if err := w.Finish(3, 0); err != nil {
		t.Fatal(err)
	}

	w, err = db.StartRun("run-2", "/export")
	if err != nil {
		t.Fatal(err)
	}
	w.Emit("chats.json", message("m1", "new"))
	if err := w.Finish(1, 0); err != nil {
		t.Fatal(err)
	}

	n, _ := db.ArtifactCount()
	if n != 2 {
		t.Fatalf("artifact count = %d, want old chats.json rows replaced", n)
	}
	// FTS stays in sync through the triggers
	var ftsOld, ftsNew int
	db.Raw().QueryRow("SELECT COUNT(*) FROM artifacts_fts WHERE artifacts_fts MATCH 'old'").Scan(&ftsOld)
	db.Raw().QueryRow("SELECT COUNT(*) FROM artifacts_fts WHERE artifacts_fts MATCH 'new'").Scan(&ftsNew)
	if ftsOld != 0 || ftsNew != 1 {
		t.Errorf("fts old=%d new=%d, want 0 and 1", ftsOld, ftsNew)
	}
	// orphaned attributes are cleaned up with their artifacts
	var orphans int
	db.Raw().QueryRow(
		"SELECT COUNT(*) FROM attributes WHERE artifact_id NOT IN (SELECT artifact_id FROM artifacts)",
	).Scan(&orphans)
	if orphans != 0 {
		t.Errorf("orphaned attributes = %d", orphans)
	}
}

func TestEmptiedDocumentDropsStaleRows(t *testing.T) {
	db := openTestDB(t)

	w, err := db.StartRun("run-1", "/export")
	if err != nil {
		t.Fatal(err)
	}
	w.Emit("chats.json", message("m1", "old"))
	w.Emit("other.json", message("m2", "kept"))
	if err := w.Finish(2, 0); err != nil {
		t.Fatal(err)
	}

	// the document still exists but now yields no records
	w, err = db.StartRun("run-2", "/export")
	if err != nil {
		t.Fatal(err)
	}
	if err := w.StartDocument("chats.json"); err != nil {
		t.Fatalf("start document: %v", err)
	}
	if err := w.Finish(0, 0); err != nil {
		t.Fatal(err)
	}

	n, _ := db.ArtifactCount()
	if n != 1 {
		t.Fatalf("artifact count = %d, want only other.json's row left", n)
	}
	var ftsOld int
	db.Raw().QueryRow("SELECT COUNT(*) FROM artifacts_fts WHERE artifacts_fts MATCH 'old'").Scan(&ftsOld)
	if ftsOld != 0 {
		t.Errorf("fts still matches the retired document, hits = %d", ftsOld)
	}
}

// interruptSink wraps a Writer and cancels the run's context on the first
// record, the way an operator interrupt lands mid-run.
type interruptSink struct {
	w      *Writer
	cancel context.CancelFunc
}

func (s *interruptSink) StartDocument(path string) error { return s.w.StartDocument(path) }

func (s *interruptSink) Emit(path string, rec *artifact.Record) error {
	s.cancel()
	return s.w.Emit(path, rec)
}

func TestInterruptedRunKeepsPartialOutput(t *testing.T) {
	db := openTestDB(t)

	doc := `[
		{"value": {"value": {
			"conversationId": "19:abc@thread.v2",
			"messageMap": {
				"m1": {"messageType": "Text", "id": "m1", "creator": "8:alice", "content": "first"},
				"m2": {"messageType": "Text", "id": "m2", "creator": "8:bob", "content": "second"}
			}
		}}},
		{"value": {"value": {
			"conversationId": "19:abc@thread.v2",
			"messageMap": {
				"m3": {"messageType": "Text", "id": "m3", "creator": "8:carol", "content": "never lands"}
			}
		}}}
	]`

	w, err := db.StartRun("run-1", "/export")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res, err := pipeline.Run(ctx, []pipeline.Document{
		{Path: "chats.json", Category: pipeline.Other, Data: []byte(doc)},
	}, &interruptSink{w: w, cancel: cancel})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if res.Emitted != 2 {
		t.Fatalf("emitted = %d, want the first record's 2 messages", res.Emitted)
	}

	// an interrupted run is finished, not rolled back
	if err := w.Finish(res.Emitted, 0); err != nil {
		t.Fatalf("finish: %v", err)
	}

	n, _ := db.ArtifactCount()
	if n != 2 {
		t.Fatalf("artifact count = %d, want the partial output kept", n)
	}
	runs, err := db.Runs()
	if err != nil || len(runs) != 1 {
		t.Fatalf("runs = %v (%v)", runs, err)
	}
	if runs[0].FinishedAt == "" || runs[0].Emitted != 2 {
		t.Errorf("run row = %+v, want stamped with the partial stats", runs[0])
	}
}

func TestAbortLeavesNothing(t *testing.T) {
	db := openTestDB(t)

	w, err := db.StartRun("run-1", "/export")
	if err != nil {
		t.Fatal(err)
	}
	w.Emit("chats.json", message("m1", "doomed"))
	w.Abort()

	n, _ := db.ArtifactCount()
	runs, _ := db.RunCount()
	if n != 0 || runs != 0 {
		t.Fatalf("aborted run left artifacts=%d runs=%d", n, runs)
	}
}
