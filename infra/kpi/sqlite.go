// Package kpi keeps a history of scenario runs in a SQLite database.
package kpi

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	coremetrics "github.com/kilianp07/derval/core/metrics"
)

// SQLiteStore persists window and run records in a SQLite database. It
// implements the metrics sink interfaces so it can be configured as a sink.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS window_kpi (
        run_id TEXT,
        label TEXT,
        start_ts INTEGER,
        end_ts INTEGER,
        size INTEGER,
        objective REAL,
        duration_ms REAL,
        error TEXT,
        PRIMARY KEY(run_id, label)
    );
    CREATE TABLE IF NOT EXISTS run_kpi (
        run_id TEXT,
        phase TEXT,
        ts INTEGER,
        windows INTEGER,
        requirements INTEGER,
        duration_ms REAL,
        error TEXT,
        PRIMARY KEY(run_id, phase)
    );`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// RecordWindow inserts or replaces the window record.
func (s *SQLiteStore) RecordWindow(m coremetrics.WindowMetric) error {
	_, err := s.db.Exec(`INSERT INTO window_kpi (run_id, label, start_ts, end_ts, size, objective, duration_ms, error)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(run_id, label) DO UPDATE SET
            start_ts = excluded.start_ts,
            end_ts = excluded.end_ts,
            size = excluded.size,
            objective = excluded.objective,
            duration_ms = excluded.duration_ms,
            error = excluded.error`,
		m.RunID, m.Window, m.Start.UnixNano(), m.End.UnixNano(), m.Size, m.Objective,
		millis(m.Duration), m.Error)
	return err
}

// RecordRun inserts or replaces the record of one run phase.
func (s *SQLiteStore) RecordRun(m coremetrics.RunMetric) error {
	_, err := s.db.Exec(`INSERT INTO run_kpi (run_id, phase, ts, windows, requirements, duration_ms, error)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(run_id, phase) DO UPDATE SET
            ts = excluded.ts,
            windows = excluded.windows,
            requirements = excluded.requirements,
            duration_ms = excluded.duration_ms,
            error = excluded.error`,
		m.RunID, m.Phase, m.Time.UnixNano(), m.Windows, m.Requirements, millis(m.Duration), m.Error)
	return err
}

// Runs returns every recorded run phase ordered by time.
func (s *SQLiteStore) Runs() ([]coremetrics.RunMetric, error) {
	rows, err := s.db.Query(`SELECT run_id, phase, ts, windows, requirements, duration_ms, error
        FROM run_kpi ORDER BY ts, run_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []coremetrics.RunMetric
	for rows.Next() {
		var m coremetrics.RunMetric
		var ts int64
		var ms float64
		if err := rows.Scan(&m.RunID, &m.Phase, &ts, &m.Windows, &m.Requirements, &ms, &m.Error); err != nil {
			return nil, err
		}
		m.Time = time.Unix(0, ts).UTC()
		m.Duration = fromMillis(ms)
		res = append(res, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Windows returns the windows of a run ordered by start time.
func (s *SQLiteStore) Windows(runID string) ([]coremetrics.WindowMetric, error) {
	rows, err := s.db.Query(`SELECT run_id, label, start_ts, end_ts, size, objective, duration_ms, error
        FROM window_kpi WHERE run_id = ? ORDER BY start_ts`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []coremetrics.WindowMetric
	for rows.Next() {
		var m coremetrics.WindowMetric
		var start, end int64
		var ms float64
		if err := rows.Scan(&m.RunID, &m.Window, &start, &end, &m.Size, &m.Objective, &ms, &m.Error); err != nil {
			return nil, err
		}
		m.Start = time.Unix(0, start).UTC()
		m.End = time.Unix(0, end).UTC()
		m.Duration = fromMillis(ms)
		res = append(res, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Flush closes the database at the end of a run.
func (s *SQLiteStore) Flush() error { return s.Close() }

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func millis(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

func fromMillis(ms float64) time.Duration { return time.Duration(ms * float64(time.Millisecond)) }
