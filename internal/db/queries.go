package db

import (
	"database/sql"
	"fmt"
)

// IterationEvent represents a row in the iteration_events table.
type IterationEvent struct {
	ID        int
	Run       string
	Iteration int
	Event     string
	Detail    string
	Timestamp string
}

// WorkerRun represents a row in the worker_runs table.
type WorkerRun struct {
	ID         int
	Run        string
	Iteration  int
	Capability string
	Kind       string
	Findings   int
	Error      string
	Timestamp  string
}

// FixAttempt represents a row in the fix_attempts table.
type FixAttempt struct {
	ID        int
	Run       string
	Iteration int
	Location  string
	Category  string
	Attempt   int
	Status    string
	LastError string
	Timestamp string
}

// LogIterationEvent inserts an iteration lifecycle event.
func (d *DB) LogIterationEvent(run string, iteration int, event string, detail string) error {
	_, err := d.conn.Exec(
		`INSERT INTO iteration_events (run, iteration, event, detail) VALUES (?, ?, ?, ?)`,
		run, iteration, event, detail,
	)
	if err != nil {
		return fmt.Errorf("log iteration event: %w", err)
	}
	return nil
}

// LogWorkerRun inserts one dispatched worker outcome.
func (d *DB) LogWorkerRun(run string, iteration int, capability string, kind string, findings int, errMsg string) error {
	_, err := d.conn.Exec(
		`INSERT INTO worker_runs (run, iteration, capability, kind, findings, error) VALUES (?, ?, ?, ?, ?, ?)`,
		run, iteration, capability, kind, findings, errMsg,
	)
	if err != nil {
		return fmt.Errorf("log worker run: %w", err)
	}
	return nil
}

// LogFixAttempt inserts one fix attempt outcome.
func (d *DB) LogFixAttempt(run string, iteration int, location string, category string, attempt int, status string, lastError string) error {
	_, err := d.conn.Exec(
		`INSERT INTO fix_attempts (run, iteration, location, category, attempt, status, last_error) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run, iteration, location, category, attempt, status, lastError,
	)
	if err != nil {
		return fmt.Errorf("log fix attempt: %w", err)
	}
	return nil
}

// IterationEvents returns all iteration events for a run, oldest first.
func (d *DB) IterationEvents(run string) ([]IterationEvent, error) {
	rows, err := d.conn.Query(
		`SELECT id, run, iteration, event, detail, timestamp
		 FROM iteration_events WHERE run = ? ORDER BY id ASC`,
		run,
	)
	if err != nil {
		return nil, fmt.Errorf("query iteration events: %w", err)
	}
	defer rows.Close()

	var events []IterationEvent
	for rows.Next() {
		var e IterationEvent
		var detail sql.NullString
		if err := rows.Scan(&e.ID, &e.Run, &e.Iteration, &e.Event, &detail, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan iteration event: %w", err)
		}
		e.Detail = detail.String
		events = append(events, e)
	}
	return events, rows.Err()
}

// WorkerRuns returns all worker outcomes for one iteration of a run.
func (d *DB) WorkerRuns(run string, iteration int) ([]WorkerRun, error) {
	rows, err := d.conn.Query(
		`SELECT id, run, iteration, capability, kind, findings, error, timestamp
		 FROM worker_runs WHERE run = ? AND iteration = ? ORDER BY id ASC`,
		run, iteration,
	)
	if err != nil {
		return nil, fmt.Errorf("query worker runs: %w", err)
	}
	defer rows.Close()

	var runs []WorkerRun
	for rows.Next() {
		var w WorkerRun
		var errMsg sql.NullString
		if err := rows.Scan(&w.ID, &w.Run, &w.Iteration, &w.Capability, &w.Kind, &w.Findings, &errMsg, &w.Timestamp); err != nil {
			return nil, fmt.Errorf("scan worker run: %w", err)
		}
		w.Error = errMsg.String
		runs = append(runs, w)
	}
	return runs, rows.Err()
}

// FixAttempts returns all fix attempts for one iteration of a run.
func (d *DB) FixAttempts(run string, iteration int) ([]FixAttempt, error) {
	rows, err := d.conn.Query(
		`SELECT id, run, iteration, location, category, attempt, status, last_error, timestamp
		 FROM fix_attempts WHERE run = ? AND iteration = ? ORDER BY id ASC`,
		run, iteration,
	)
	if err != nil {
		return nil, fmt.Errorf("query fix attempts: %w", err)
	}
	defer rows.Close()

	var attempts []FixAttempt
	for rows.Next() {
		var f FixAttempt
		var lastError sql.NullString
		if err := rows.Scan(&f.ID, &f.Run, &f.Iteration, &f.Location, &f.Category, &f.Attempt, &f.Status, &lastError, &f.Timestamp); err != nil {
			return nil, fmt.Errorf("scan fix attempt: %w", err)
		}
		f.LastError = lastError.String
		attempts = append(attempts, f)
	}
	return attempts, rows.Err()
}

// RunLogger binds the DB to one run name so it satisfies the loop's
// EventLogger interface.
type RunLogger struct {
	db  *DB
	run string
}

// Logger returns a per-run event logger.
func (d *DB) Logger(run string) *RunLogger {
	return &RunLogger{db: d, run: run}
}

func (l *RunLogger) LogIteration(iteration int, event string, detail string) error {
	return l.db.LogIterationEvent(l.run, iteration, event, detail)
}

func (l *RunLogger) LogWorkerRun(iteration int, capability string, kind string, findings int, errMsg string) error {
	return l.db.LogWorkerRun(l.run, iteration, capability, kind, findings, errMsg)
}

func (l *RunLogger) LogFixAttempt(iteration int, location string, category string, attempt int, status string, lastError string) error {
	return l.db.LogFixAttempt(l.run, iteration, location, category, attempt, status, lastError)
}
