// Package ledger keeps a SQLite-backed history of engine runs for audit
// across regenerations of the corpus. The ledger is an archive only: a
// run's own report is always computed from in-run decisions, never read
// back from here.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/steveyegge/winnow/internal/corpus"
	"github.com/steveyegge/winnow/internal/report"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started_at DATETIME NOT NULL,
    finished_at DATETIME NOT NULL,
    corpus_path TEXT NOT NULL,
    similarity_threshold REAL NOT NULL,
    group_scope TEXT NOT NULL,
    dry_run INTEGER NOT NULL DEFAULT 0,
    total_records INTEGER NOT NULL,
    exact_clusters INTEGER NOT NULL,
    near_clusters INTEGER NOT NULL,
    records_removed INTEGER NOT NULL,
    uniqueness_ratio REAL NOT NULL,
    success INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

CREATE TABLE IF NOT EXISTS run_files (
    run_id TEXT NOT NULL,
    file TEXT NOT NULL,
    records INTEGER NOT NULL,
    removals INTEGER NOT NULL,
    error_kind TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (run_id, file),
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);
`

// RunSummary is one row of run history
type RunSummary struct {
	ID              string    `json:"id"`
	StartedAt       time.Time `json:"started_at"`
	CorpusPath      string    `json:"corpus_path"`
	TotalRecords    int       `json:"total_records"`
	RecordsRemoved  int       `json:"records_removed"`
	UniquenessRatio float64   `json:"uniqueness_ratio"`
	DryRun          bool      `json:"dry_run"`
	Success         bool      `json:"success"`
}

// FileRow is one run's outcome for one file
type FileRow struct {
	File      string `json:"file"`
	Records   int    `json:"records"`
	Removals  int    `json:"removals"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// Ledger wraps the history database
type Ledger struct {
	db *sql.DB
}

// DBPath resolves the ledger location for a corpus: WINNOW_DB_PATH when
// set, else <corpus>/.winnow/ledger.db (beside the corpus directory's
// other artifacts; a single-file corpus keeps it next to the file).
func DBPath(corpusPath string) string {
	if p := os.Getenv("WINNOW_DB_PATH"); p != "" {
		return p
	}
	dir := corpusPath
	if info, err := os.Stat(corpusPath); err == nil && !info.IsDir() {
		dir = filepath.Dir(corpusPath)
	}
	return filepath.Join(dir, corpus.ArtifactDirName, "ledger.db")
}

// Open opens (creating if needed) the ledger database at path
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening ledger database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging ledger database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close releases the database handle
func (l *Ledger) Close() error {
	return l.db.Close()
}

// RecordRun archives one completed run and its per-file detail in a single
// transaction
func (l *Ledger) RecordRun(ctx context.Context, r *report.Report) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning ledger transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, corpus_path, similarity_threshold,
			group_scope, dry_run, total_records, exact_clusters, near_clusters,
			records_removed, uniqueness_ratio, success)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.StartedAt, r.FinishedAt, r.CorpusPath, r.Threshold,
		r.Scope, r.DryRun, r.TotalRecords, r.ExactClusters, r.NearClusters,
		r.RecordsRemoved, r.UniquenessRatio, r.Success)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", r.RunID, err)
	}

	for _, f := range r.Files {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_files (run_id, file, records, removals, error_kind)
			VALUES (?, ?, ?, ?, '')`,
			r.RunID, f.File, f.Records, f.Removals)
		if err != nil {
			return fmt.Errorf("inserting run file %s: %w", f.File, err)
		}
	}
	for _, f := range r.Failures {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_files (run_id, file, records, removals, error_kind)
			VALUES (?, ?, 0, 0, ?)`,
			r.RunID, f.File, string(f.Kind))
		if err != nil {
			return fmt.Errorf("inserting run failure %s: %w", f.File, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing ledger transaction: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first
func (l *Ledger) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, started_at, corpus_path, total_records, records_removed,
			uniqueness_ratio, dry_run, success
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.CorpusPath, &r.TotalRecords,
			&r.RecordsRemoved, &r.UniquenessRatio, &r.DryRun, &r.Success); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunFiles returns one run's per-file detail
func (l *Ledger) RunFiles(ctx context.Context, runID string) ([]FileRow, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT file, records, removals, error_kind
		FROM run_files WHERE run_id = ? ORDER BY file`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying run files: %w", err)
	}
	defer rows.Close()

	var files []FileRow
	for rows.Next() {
		var f FileRow
		if err := rows.Scan(&f.File, &f.Records, &f.Removals, &f.ErrorKind); err != nil {
			return nil, fmt.Errorf("scanning run file row: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no ledger entry for run %s", runID)
	}
	return files, nil
}
