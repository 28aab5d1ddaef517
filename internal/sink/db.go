package sink

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA cache_size = -64000;
PRAGMA busy_timeout = 5000;

CREATE TABLE IF NOT EXISTS runs (
    run_id      TEXT PRIMARY KEY,
    export_root TEXT NOT NULL DEFAULT '',
    started_at  TEXT NOT NULL DEFAULT '',
    finished_at TEXT NOT NULL DEFAULT '',
    emitted     INTEGER NOT NULL DEFAULT 0,
    skipped     INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS artifacts (
    artifact_id INTEGER PRIMARY KEY,
    run_id      TEXT NOT NULL,
    doc_path    TEXT NOT NULL,
    kind        TEXT NOT NULL,
    content     TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS artifacts_by_doc ON artifacts(doc_path);
CREATE INDEX IF NOT EXISTS artifacts_by_kind ON artifacts(kind);

CREATE TABLE IF NOT EXISTS attributes (
    artifact_id INTEGER NOT NULL,
    pos         INTEGER NOT NULL,
    name        TEXT NOT NULL,
    type        TEXT NOT NULL,
    str_value   TEXT NOT NULL DEFAULT '',
    epoch_value INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (artifact_id, pos)
);

CREATE VIRTUAL TABLE IF NOT EXISTS artifacts_fts USING fts5(
    content,
    content=artifacts,
    content_rowid=artifact_id,
    tokenize='unicode61'
);

-- triggers to keep FTS in sync
CREATE TRIGGER IF NOT EXISTS artifacts_ai AFTER INSERT ON artifacts BEGIN
    INSERT INTO artifacts_fts(rowid, content) VALUES (new.artifact_id, new.content);
END;

CREATE TRIGGER IF NOT EXISTS artifacts_ad AFTER DELETE ON artifacts BEGIN
    INSERT INTO artifacts_fts(artifacts_fts, rowid, content) VALUES('delete', old.artifact_id, old.content);
END;

CREATE TRIGGER IF NOT EXISTS artifacts_au AFTER UPDATE ON artifacts BEGIN
    INSERT INTO artifacts_fts(artifacts_fts, rowid, content) VALUES('delete', old.artifact_id, old.content);
    INSERT INTO artifacts_fts(rowid, content) VALUES (new.artifact_id, new.content);
END;
`

type DB struct {
	db *sql.DB
}

func OpenDB(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	// schema version tracking for forced re-extraction
	db.Exec("CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT)")
	d := &DB{db: db}
	d.migrateSchemaVersion()

	return d, nil
}

// schemaVersion should be bumped whenever classification or attribute layout
// changes, to force a full re-extraction.
const schemaVersion = "1"

func (d *DB) migrateSchemaVersion() {
	var ver string
	err := d.db.QueryRow("SELECT value FROM meta WHERE key = 'schema_version'").Scan(&ver)
	if err != nil || ver != schemaVersion {
		d.db.Exec("DELETE FROM attributes")
		d.db.Exec("DELETE FROM artifacts")
		d.db.Exec("DELETE FROM runs")
		d.db.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)", schemaVersion)
	}
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Raw() *sql.DB {
	return d.db
}

func (d *DB) RunCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&n)
	return n, err
}

func (d *DB) ArtifactCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM artifacts").Scan(&n)
	return n, err
}

// KindCounts returns the number of stored artifacts per entity kind.
func (d *DB) KindCounts() (map[string]int, error) {
	rows, err := d.db.Query("SELECT kind, COUNT(*) FROM artifacts GROUP BY kind")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

type RunRow struct {
	RunID      string
	ExportRoot string
	StartedAt  string
	FinishedAt string
	Emitted    int
	Skipped    int
}

// Runs lists extraction runs, newest first.
func (d *DB) Runs() ([]RunRow, error) {
	rows, err := d.db.Query(
		"SELECT run_id, export_root, started_at, finished_at, emitted, skipped FROM runs ORDER BY started_at DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRow
	for rows.Next() {
		var r RunRow
		if err := rows.Scan(&r.RunID, &r.ExportRoot, &r.StartedAt, &r.FinishedAt, &r.Emitted, &r.Skipped); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type ArtifactRow struct {
	ArtifactID int64
	RunID      string
	DocPath    string
	Kind       string
	Content    string
}

type AttrRow struct {
	Name  string
	Type  string
	Str   string
	Epoch int64
}

func (d *DB) GetArtifact(artifactID int64) (*ArtifactRow, error) {
	var a ArtifactRow
	err := d.db.QueryRow(
		"SELECT artifact_id, run_id, doc_path, kind, content FROM artifacts WHERE artifact_id = ?",
		artifactID,
	).Scan(&a.ArtifactID, &a.RunID, &a.DocPath, &a.Kind, &a.Content)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (d *DB) GetAttributes(artifactID int64) ([]AttrRow, error) {
	rows, err := d.db.Query(
		"SELECT name, type, str_value, epoch_value FROM attributes WHERE artifact_id = ? ORDER BY pos",
		artifactID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attrs []AttrRow
	for rows.Next() {
		var a AttrRow
		if err := rows.Scan(&a.Name, &a.Type, &a.Str, &a.Epoch); err != nil {
			return nil, err
		}
		attrs = append(attrs, a)
	}
	return attrs, rows.Err()
}
