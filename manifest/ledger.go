package manifest

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// Ledger stores run manifests in a SQLite database.
type Ledger struct {
	db *sql.DB
}

// RunRecord is one row of the runs table.
type RunRecord struct {
	RunID      string
	CreatedAt  time.Time
	Status     string
	Error      string
	Input      string
	Output     string
	RunLength  int
	PixelSize  float64
	Parts      int
	Rows       int
	Chars      int
	Placements int
}

// OpenLedger creates or opens a ledger database at path.
func OpenLedger(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps in-memory databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	l := &Ledger{db: db}
	if err := l.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init ledger schema: %w", err)
	}

	return l, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT,
			input TEXT,
			output TEXT,
			run_length INTEGER,
			pixel_size REAL,
			parts INTEGER,
			row_count INTEGER,
			chars INTEGER,
			placements INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS parts (
			run_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			path TEXT,
			first_row INTEGER,
			row_count INTEGER,
			chars INTEGER,
			placements INTEGER,
			symbols INTEGER,
			raw_bytes INTEGER,
			bytes INTEGER,
			checksum TEXT,
			PRIMARY KEY (run_id, idx)
		);`,
		`CREATE TABLE IF NOT EXISTS usage (
			run_id TEXT NOT NULL,
			ngram TEXT NOT NULL,
			count INTEGER NOT NULL,
			PRIMARY KEY (run_id, ngram)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);`,
	}

	for _, q := range queries {
		if _, err := l.db.Exec(q); err != nil {
			return err
		}
	}

	return nil
}

// Record stores m and the full usage counts of its run in one transaction.
// Recording the same run again replaces it.
func (l *Ledger) Record(ctx context.Context, m *Manifest, counts map[string]uint64) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"parts", "usage"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_id = ?", m.RunID); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, created_at, status, error, input, output, run_length, pixel_size, parts, row_count, chars, placements)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			created_at=excluded.created_at,
			status=excluded.status,
			error=excluded.error,
			input=excluded.input,
			output=excluded.output,
			run_length=excluded.run_length,
			pixel_size=excluded.pixel_size,
			parts=excluded.parts,
			row_count=excluded.row_count,
			chars=excluded.chars,
			placements=excluded.placements
	`, m.RunID, m.CreatedAt.UTC().Format(time.RFC3339), m.Status, m.Error, m.Input, m.Output,
		m.Settings.RunLength, m.Settings.PixelSize, m.Totals.Parts, m.Totals.Rows, m.Totals.Chars, m.Totals.Placements)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	partStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO parts (run_id, idx, path, first_row, row_count, chars, placements, symbols, raw_bytes, bytes, checksum)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer partStmt.Close()

	for _, p := range m.Parts {
		if _, err := partStmt.ExecContext(ctx, m.RunID, p.Index, p.Path, p.FirstRow, p.Rows, p.Chars,
			p.Placements, p.Symbols, p.RawBytes, p.Bytes, p.Checksum); err != nil {
			return fmt.Errorf("insert part %d: %w", p.Index, err)
		}
	}

	usageStmt, err := tx.PrepareContext(ctx, `INSERT INTO usage (run_id, ngram, count) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer usageStmt.Close()

	for key, n := range counts {
		if _, err := usageStmt.ExecContext(ctx, m.RunID, key, int64(n)); err != nil {
			return fmt.Errorf("insert usage %s: %w", key, err)
		}
	}

	return tx.Commit()
}

// Runs lists recorded runs, newest first.
func (l *Ledger) Runs(ctx context.Context) ([]RunRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT run_id, created_at, status, COALESCE(error, ''), COALESCE(input, ''), COALESCE(output, ''),
			run_length, pixel_size, parts, row_count, chars, placements
		FROM runs ORDER BY created_at DESC, run_id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			r       RunRecord
			created string
		)
		if err := rows.Scan(&r.RunID, &created, &r.Status, &r.Error, &r.Input, &r.Output,
			&r.RunLength, &r.PixelSize, &r.Parts, &r.Rows, &r.Chars, &r.Placements); err != nil {
			return nil, err
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, fmt.Errorf("run %s: %w", r.RunID, err)
		}
		out = append(out, r)
	}

	return out, rows.Err()
}

// Parts returns the parts of one run, by index.
func (l *Ledger) Parts(ctx context.Context, runID string) ([]Part, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT idx, COALESCE(path, ''), first_row, row_count, chars, placements, symbols, raw_bytes, bytes, COALESCE(checksum, '')
		FROM parts WHERE run_id = ? ORDER BY idx
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Part
	for rows.Next() {
		var p Part
		if err := rows.Scan(&p.Index, &p.Path, &p.FirstRow, &p.Rows, &p.Chars, &p.Placements,
			&p.Symbols, &p.RawBytes, &p.Bytes, &p.Checksum); err != nil {
			return nil, err
		}
		out = append(out, p)
	}

	return out, rows.Err()
}

// Usage returns the usage counts of one run.
func (l *Ledger) Usage(ctx context.Context, runID string) (map[string]uint64, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT ngram, count FROM usage WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]uint64)
	for rows.Next() {
		var (
			key string
			n   int64
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		out[key] = uint64(n)
	}

	return out, rows.Err()
}
