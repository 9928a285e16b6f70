// Package db keeps a SQLite snapshot of the most recent step session.
// Saving a session replaces whatever was stored before.
package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/step.report/internal/session"
	"github.com/banshee-data/step.report/internal/step"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// ErrNoSession is returned when no session has been saved yet.
var ErrNoSession = errors.New("no saved session")

// Migrations returns the embedded schema migrations.
func Migrations() fs.FS {
	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		panic(fmt.Sprintf("embedded migrations: %v", err))
	}
	return sub
}

type DB struct {
	*sql.DB
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA foreign_keys=ON",
}

// OpenDB opens path and applies connection pragmas without touching the
// schema. The pool holds a single connection so per-connection pragmas
// stay in effect.
func OpenDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	sqlDB.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	return &DB{sqlDB}, nil
}

// NewDB opens path and migrates it to the latest embedded schema.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(Migrations()); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// SessionRecord is a saved session summary.
type SessionRecord struct {
	ID        uuid.UUID     `json:"id"`
	Seed      uint64        `json:"seed"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed_ns"`

	SampleRate          int     `json:"sample_rate"`
	PeriodSeconds       int     `json:"period_seconds"`
	WindowSize          int     `json:"window_size"`
	ValidStepsThreshold int     `json:"valid_steps_threshold"`
	Sensitivity         float64 `json:"sensitivity"`

	TotalDetected int     `json:"total_detected"`
	CreditedSteps int     `json:"credited_steps"`
	Regular       bool    `json:"regular"`
	Threshold     float64 `json:"threshold"`
	Candidates    int     `json:"candidates"`
	Pairs         int     `json:"pairs"`
	Lost          int     `json:"lost"`

	MagnitudeMean   float64 `json:"magnitude_mean"`
	MagnitudeStdDev float64 `json:"magnitude_stddev"`
	FilteredMean    float64 `json:"filtered_mean"`
	FilteredStdDev  float64 `json:"filtered_stddev"`
}

// SaveSession replaces the stored snapshot with s and its valid events.
func (db *DB) SaveSession(s *session.Session) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM step_events`); err != nil {
		return fmt.Errorf("clear step_events: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM session`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	res := s.Result
	_, err = tx.Exec(`
		INSERT INTO session (
			session_id, seed, started_at_ns, elapsed_ns,
			sample_rate, period_seconds, window_size, valid_steps_threshold, sensitivity,
			total_detected, credited_steps, regular, threshold, candidates, pairs, lost,
			magnitude_mean, magnitude_stddev, filtered_mean, filtered_stddev
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID.String(), strconv.FormatUint(s.Seed, 10), s.StartedAt.UnixNano(), int64(s.Elapsed),
		s.Config.SampleRate, s.Config.PeriodSeconds, s.Params.WindowSize, s.Params.ValidStepsThreshold, s.Params.Sensitivity,
		s.TotalDetected(), res.TotalSteps, res.Regular, res.Threshold, res.Candidates, res.Pairs, res.Lost,
		s.Summary.Magnitude.Mean, s.Summary.Magnitude.StdDev, s.Summary.Filtered.Mean, s.Summary.Filtered.StdDev,
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", s.ID, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO step_events (session_id, ordinal, time_s, max_tick, min_tick) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare step_events: %w", err)
	}
	defer stmt.Close()

	for _, e := range s.Steps() {
		if _, err := stmt.Exec(s.ID.String(), e.Ordinal, e.Time, e.MaxTick, e.MinTick); err != nil {
			return fmt.Errorf("insert step %d: %w", e.Ordinal, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LatestSession returns the stored session summary, or ErrNoSession.
func (db *DB) LatestSession() (*SessionRecord, error) {
	var (
		rec              SessionRecord
		id, seed         string
		startedNs, elaNs int64
	)
	err := db.QueryRow(`
		SELECT session_id, seed, started_at_ns, elapsed_ns,
			sample_rate, period_seconds, window_size, valid_steps_threshold, sensitivity,
			total_detected, credited_steps, regular, threshold, candidates, pairs, lost,
			magnitude_mean, magnitude_stddev, filtered_mean, filtered_stddev
		FROM session LIMIT 1`).Scan(
		&id, &seed, &startedNs, &elaNs,
		&rec.SampleRate, &rec.PeriodSeconds, &rec.WindowSize, &rec.ValidStepsThreshold, &rec.Sensitivity,
		&rec.TotalDetected, &rec.CreditedSteps, &rec.Regular, &rec.Threshold, &rec.Candidates, &rec.Pairs, &rec.Lost,
		&rec.MagnitudeMean, &rec.MagnitudeStdDev, &rec.FilteredMean, &rec.FilteredStdDev,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}

	if rec.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("session id %q: %w", id, err)
	}
	if rec.Seed, err = strconv.ParseUint(seed, 10, 64); err != nil {
		return nil, fmt.Errorf("session seed %q: %w", seed, err)
	}
	rec.StartedAt = time.Unix(0, startedNs).UTC()
	rec.Elapsed = time.Duration(elaNs)
	return &rec, nil
}

// StepEvents returns the valid events stored for sessionID in ordinal
// order, terminated by a sentinel like the in-memory record.
func (db *DB) StepEvents(sessionID uuid.UUID) (step.Records, error) {
	rows, err := db.Query(`
		SELECT ordinal, time_s, max_tick, min_tick
		FROM step_events WHERE session_id = ? ORDER BY ordinal`, sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("query step_events: %w", err)
	}
	defer rows.Close()

	var out step.Records
	for rows.Next() {
		e := step.Event{Valid: true}
		if err := rows.Scan(&e.Ordinal, &e.Time, &e.MaxTick, &e.MinTick); err != nil {
			return nil, fmt.Errorf("scan step event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return append(out, step.Event{Ordinal: len(out)}), nil
}
