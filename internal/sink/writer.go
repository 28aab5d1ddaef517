package sink

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/gcanale/tmx/internal/artifact"
)

const timeLayout = "2006-01-02T15:04:05Z"

// Writer persists one extraction run inside a single transaction. When a
// document is announced, everything previously stored for it is replaced,
// which makes re-extraction idempotent even for documents that no longer
// produce records. Nothing is visible to readers until Finish commits.
type Writer struct {
	tx       *sql.Tx
	runID    string
	seenDocs map[string]bool
}

// StartRun opens the transaction and records the run row.
func (d *DB) StartRun(runID, exportRoot string) (*Writer, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	_, err = tx.Exec(
		"INSERT INTO runs (run_id, export_root, started_at) VALUES (?, ?, ?)",
		runID, exportRoot, time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return &Writer{tx: tx, runID: runID, seenDocs: make(map[string]bool)}, nil
}

// StartDocument implements pipeline.Sink. It retires the document's output
// from earlier runs, so a document that now yields zero records does not
// leave stale rows behind.
func (w *Writer) StartDocument(path string) error {
	if w.seenDocs[path] {
		return nil
	}
	if err := w.deleteDoc(path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	w.seenDocs[path] = true
	return nil
}

func (w *Writer) Emit(path string, rec *artifact.Record) error {
	if err := w.StartDocument(path); err != nil {
		return err
	}

	res, err := w.tx.Exec(
		"INSERT INTO artifacts (run_id, doc_path, kind, content) VALUES (?, ?, ?, ?)",
		w.runID, path, string(rec.Kind), rec.Content(),
	)
	if err != nil {
		return err
	}
	artifactID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for pos, a := range rec.Attrs {
		_, err := w.tx.Exec(
			"INSERT INTO attributes (artifact_id, pos, name, type, str_value, epoch_value) VALUES (?, ?, ?, ?, ?, ?)",
			artifactID, pos, a.Name, string(a.Type), a.Str, a.Epoch,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) deleteDoc(path string) error {
	_, err := w.tx.Exec(
		"DELETE FROM attributes WHERE artifact_id IN (SELECT artifact_id FROM artifacts WHERE doc_path = ?)",
		path,
	)
	if err != nil {
		return err
	}
	_, err = w.tx.Exec("DELETE FROM artifacts WHERE doc_path = ?", path)
	return err
}

// Finish stamps the run row with the final stats and commits.
func (w *Writer) Finish(emitted, skipped int) error {
	_, err := w.tx.Exec(
		"UPDATE runs SET finished_at = ?, emitted = ?, skipped = ? WHERE run_id = ?",
		time.Now().UTC().Format(timeLayout), emitted, skipped, w.runID,
	)
	if err != nil {
		w.tx.Rollback()
		return err
	}
	return w.tx.Commit()
}

// Abort rolls the run back. Safe to call after Finish.
func (w *Writer) Abort() {
	w.tx.Rollback()
}
