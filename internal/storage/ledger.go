package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/JanSimek/fallout2-modding/internal/logging"
)

// timeLayout keeps stored timestamps fixed-width so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// Run outcomes beyond the gate's terminal states.
const (
	OutcomeUpToDate = "up-to-date"
	OutcomeFailed   = "failed"
)

// Run is one generation run.
type Run struct {
	ID              string    `json:"id" yaml:"id"`
	Kind            string    `json:"kind" yaml:"kind"`
	StartedAt       time.Time `json:"startedAt" yaml:"startedAt"`
	FinishedAt      time.Time `json:"finishedAt" yaml:"finishedAt"`
	Commit          string    `json:"commit" yaml:"commit"`
	Placeholder     bool      `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Outcome         string    `json:"outcome" yaml:"outcome"`
	Added           int       `json:"added" yaml:"added"`
	Removed         int       `json:"removed" yaml:"removed"`
	Modified        int       `json:"modified" yaml:"modified"`
	RevisionChanged bool      `json:"revisionChanged" yaml:"revisionChanged"`
	EntryCount      int       `json:"entryCount" yaml:"entryCount"`
	OutputPath      string    `json:"outputPath,omitempty" yaml:"outputPath,omitempty"`
}

// Origin is the recorded provenance of one alias.
type Origin struct {
	RunID       string `json:"runId" yaml:"runId"`
	Canonical   string `json:"canonical" yaml:"canonical"`
	Underlying  string `json:"underlying,omitempty" yaml:"underlying,omitempty"`
	DispatchKey string `json:"dispatchKey,omitempty" yaml:"dispatchKey,omitempty"`
	Origin      string `json:"origin" yaml:"origin"`
	File        string `json:"file" yaml:"file"`
	StartLine   int    `json:"startLine" yaml:"startLine"`
	EndLine     int    `json:"endLine" yaml:"endLine"`
	// Commit and RecordedAt come from the owning run.
	Commit     string    `json:"commit" yaml:"commit"`
	RecordedAt time.Time `json:"recordedAt" yaml:"recordedAt"`
}

// Ledger records runs in the database.
type Ledger struct {
	db     *DB
	logger *logging.Logger
	enc    *zstd.Encoder
	dec    *zstd.Decoder
}

// OpenLedger opens the ledger database at path.
func OpenLedger(path string, logger *logging.Logger) (*Ledger, error) {
	db, err := Open(path, logger)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		_ = db.Close()
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	return &Ledger{db: db, logger: db.logger, enc: enc, dec: dec}, nil
}

// Close releases the database and codecs.
func (l *Ledger) Close() error {
	_ = l.enc.Close()
	l.dec.Close()
	return l.db.Close()
}

// NewRunID returns a fresh run id.
func NewRunID() string {
	return uuid.NewString()
}

// Record stores a run, its alias origins and, when artifact is non-nil, the
// artifact bytes. Everything is written in one transaction.
func (l *Ledger) Record(run Run, origins []Origin, artifact []byte) error {
	if run.ID == "" {
		run.ID = NewRunID()
	}

	err := l.db.WithTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO runs (id, kind, started_at, finished_at, commit_id, placeholder, outcome,
				added, removed, modified, revision_changed, entry_count, output_path)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, run.Kind, formatTime(run.StartedAt), formatTime(run.FinishedAt), run.Commit,
			boolInt(run.Placeholder), run.Outcome, run.Added, run.Removed, run.Modified,
			boolInt(run.RevisionChanged), run.EntryCount, run.OutputPath)
		if err != nil {
			return fmt.Errorf("inserting run: %w", err)
		}

		stmt, err := tx.Prepare(`
			INSERT OR REPLACE INTO alias_origins (run_id, canonical, underlying, dispatch_key, origin, file, start_line, end_line)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, o := range origins {
			if _, err := stmt.Exec(run.ID, o.Canonical, o.Underlying, o.DispatchKey, o.Origin, o.File, o.StartLine, o.EndLine); err != nil {
				return fmt.Errorf("inserting origin %s: %w", o.Canonical, err)
			}
		}

		if artifact != nil {
			blob := l.enc.EncodeAll(artifact, nil)
			if _, err := tx.Exec(`INSERT INTO artifacts (run_id, kind, encoding, size, data) VALUES (?, ?, 'zstd', ?, ?)`,
				run.ID, run.Kind, len(artifact), blob); err != nil {
				return fmt.Errorf("inserting artifact: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	l.logger.Debug("run recorded", logging.Fields{"id": run.ID, "outcome": run.Outcome, "origins": len(origins)})
	return nil
}

// Runs returns the most recent runs, newest first. limit <= 0 returns all.
func (l *Ledger) Runs(limit int) ([]Run, error) {
	query := `
		SELECT id, kind, started_at, finished_at, commit_id, placeholder, outcome,
			added, removed, modified, revision_changed, entry_count, output_path
		FROM runs ORDER BY started_at DESC, rowid DESC`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		var placeholder, revChanged int
		if err := rows.Scan(&r.ID, &r.Kind, &started, &finished, &r.Commit, &placeholder, &r.Outcome,
			&r.Added, &r.Removed, &r.Modified, &revChanged, &r.EntryCount, &r.OutputPath); err != nil {
			return nil, err
		}
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		r.Placeholder = placeholder != 0
		r.RevisionChanged = revChanged != 0
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LatestOrigin returns the most recently recorded origin of canonical name,
// or nil when the ledger has none.
func (l *Ledger) LatestOrigin(name string) (*Origin, error) {
	var o Origin
	var recorded string
	err := l.db.QueryRow(`
		SELECT a.run_id, a.canonical, a.underlying, a.dispatch_key, a.origin, a.file, a.start_line, a.end_line,
			r.commit_id, r.finished_at
		FROM alias_origins a JOIN runs r ON r.id = a.run_id
		WHERE a.canonical = ?
		ORDER BY r.started_at DESC, r.rowid DESC
		LIMIT 1`, name).Scan(&o.RunID, &o.Canonical, &o.Underlying, &o.DispatchKey, &o.Origin,
		&o.File, &o.StartLine, &o.EndLine, &o.Commit, &recorded)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying origin of %s: %w", name, err)
	}
	o.RecordedAt = parseTime(recorded)
	return &o, nil
}

// Artifact returns the decompressed artifact written by run, or nil when
// the run did not write one.
func (l *Ledger) Artifact(runID string) ([]byte, error) {
	var blob []byte
	var size int
	err := l.db.QueryRow(`SELECT data, size FROM artifacts WHERE run_id = ?`, runID).Scan(&blob, &size)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying artifact: %w", err)
	}
	data, err := l.dec.DecodeAll(blob, make([]byte, 0, size))
	if err != nil {
		return nil, fmt.Errorf("decompressing artifact: %w", err)
	}
	return data, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
