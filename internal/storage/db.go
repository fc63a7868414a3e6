package storage

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"aduanas/internal"
)

const (
	SourceStatusProcessed = "processed"
	SourceStatusFailed    = "failed"

	timeLayout = time.RFC3339Nano
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, eris.Wrap(err, "storage: create db dir")
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "storage: open")
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, eris.Wrap(err, "storage: enable wal")
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId TEXT NOT NULL UNIQUE,
  variant TEXT NOT NULL,
  inputPath TEXT NOT NULL,
  lines INTEGER NOT NULL,
  processed INTEGER NOT NULL,
  errored INTEGER NOT NULL,
  records INTEGER NOT NULL,
  duplicates INTEGER NOT NULL,
  startedAt TEXT,
  finishedAt TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS records (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId TEXT NOT NULL,
  seq INTEGER NOT NULL,
  acceptanceNumber TEXT NOT NULL,
  product TEXT NOT NULL,
  brand TEXT NOT NULL,
  reference TEXT NOT NULL,
  model TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit TEXT NOT NULL,
  isChain INTEGER NOT NULL,
  stepMeasure TEXT NOT NULL,
  originalQuantity TEXT NOT NULL,
  processedAt TEXT NOT NULL,
  UNIQUE(runId, seq),
  FOREIGN KEY(runId) REFERENCES runs(runId)
);
CREATE INDEX IF NOT EXISTS idx_records_acceptance ON records(acceptanceNumber);

CREATE TABLE IF NOT EXISTS sources (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  path TEXT NOT NULL,
  hash TEXT NOT NULL UNIQUE,
  status TEXT NOT NULL,
  runId TEXT,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return eris.Wrap(err, "storage: init schema")
}

// SaveRun stores a run summary and its records in one transaction.
func (d *DB) SaveRun(summary internal.RunSummary, records []internal.ExtractedRecord) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return eris.Wrap(err, "storage: begin")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
INSERT INTO runs (runId, variant, inputPath, lines, processed, errored, records, duplicates, startedAt, finishedAt)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID, summary.Variant, summary.InputPath, summary.Lines, summary.Processed,
		summary.Errored, summary.Records, summary.Duplicates,
		summary.StartedAt.Format(timeLayout), summary.FinishedAt.Format(timeLayout),
	); err != nil {
		return eris.Wrapf(err, "storage: insert run %s", summary.RunID)
	}

	stmt, err := tx.Prepare(`
INSERT INTO records (
  runId, seq, acceptanceNumber, product, brand, reference, model,
  quantity, unit, isChain, stepMeasure, originalQuantity, processedAt
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "storage: prepare records")
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.Exec(
			summary.RunID, i, r.AcceptanceNumber, r.Product, r.Brand, r.Reference, r.Model,
			r.Quantity, r.Unit, r.IsChain, r.StepMeasure, r.OriginalQuantity, r.ProcessedAt.Format(timeLayout),
		); err != nil {
			return eris.Wrapf(err, "storage: insert record %d", i)
		}
	}

	return eris.Wrap(tx.Commit(), "storage: commit run")
}

func (d *DB) ListRecords(runID string) ([]internal.ExtractedRecord, error) {
	rows, err := d.conn.Query(`
SELECT acceptanceNumber, product, brand, reference, model,
       quantity, unit, isChain, stepMeasure, originalQuantity, processedAt
FROM records WHERE runId = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "storage: query records")
	}
	defer rows.Close()

	var out []internal.ExtractedRecord
	for rows.Next() {
		var r internal.ExtractedRecord
		var processedAt string
		if err := rows.Scan(
			&r.AcceptanceNumber, &r.Product, &r.Brand, &r.Reference, &r.Model,
			&r.Quantity, &r.Unit, &r.IsChain, &r.StepMeasure, &r.OriginalQuantity, &processedAt,
		); err != nil {
			return nil, eris.Wrap(err, "storage: scan record")
		}
		r.ProcessedAt, _ = time.Parse(timeLayout, processedAt)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "storage: iterate records")
}

func (d *DB) GetRun(runID string) (*internal.RunRow, error) {
	var r internal.RunRow
	err := d.conn.QueryRow(`
SELECT id, runId, variant, inputPath, lines, processed, errored, records, duplicates, createdAt
FROM runs WHERE runId = ?`, runID).Scan(
		&r.ID, &r.RunID, &r.Variant, &r.InputPath, &r.Lines, &r.Processed,
		&r.Errored, &r.Records, &r.Duplicates, &r.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "storage: get run")
	}
	return &r, nil
}

func (d *DB) ListRuns(limit int) ([]internal.RunRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.conn.Query(`
SELECT id, runId, variant, inputPath, lines, processed, errored, records, duplicates, createdAt
FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "storage: query runs")
	}
	defer rows.Close()

	var out []internal.RunRow
	for rows.Next() {
		var r internal.RunRow
		if err := rows.Scan(
			&r.ID, &r.RunID, &r.Variant, &r.InputPath, &r.Lines, &r.Processed,
			&r.Errored, &r.Records, &r.Duplicates, &r.CreatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "storage: scan run")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "storage: iterate runs")
}

func (d *DB) GetSourceByHash(hash string) (*internal.SourceRow, error) {
	var s internal.SourceRow
	var runID sql.NullString
	err := d.conn.QueryRow(`
SELECT id, path, hash, status, runId, updatedAt FROM sources WHERE hash = ?`, hash).Scan(
		&s.ID, &s.Path, &s.Hash, &s.Status, &runID, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "storage: get source")
	}
	s.RunID = runID.String
	return &s, nil
}

// UpsertSource records the outcome for a raw file, keyed by content hash.
func (d *DB) UpsertSource(path, hash, status, runID string) error {
	_, err := d.conn.Exec(`
INSERT INTO sources (path, hash, status, runId) VALUES (?, ?, ?, NULLIF(?, ''))
ON CONFLICT(hash) DO UPDATE SET
  path = excluded.path,
  status = excluded.status,
  runId = excluded.runId,
  updatedAt = CURRENT_TIMESTAMP
`, path, hash, status, runID)
	return eris.Wrap(err, "storage: upsert source")
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return eris.Wrap(err, "storage: set metadata")
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "storage: get metadata")
	}
	return &value, nil
}
