package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/velveeva/internal/build"
)

// RunStatus represents the status of a recorded build run.
type RunStatus string

const (
	RunRunning     RunStatus = "running"
	RunSucceeded   RunStatus = "succeeded"
	RunFailed      RunStatus = "failed"
	RunInterrupted RunStatus = "interrupted"
)

// TaskStatus represents the outcome of a task within a run.
type TaskStatus string

const (
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskSkipped   TaskStatus = "skipped"
)

// Run is one invocation of a build.
type Run struct {
	ID         string     `json:"id" yaml:"id"`
	Goals      []string   `json:"goals" yaml:"goals"`
	Stages     int        `json:"stages" yaml:"stages"`
	Status     RunStatus  `json:"status" yaml:"status"`
	FailedTask string     `json:"failed_task,omitempty" yaml:"failed_task,omitempty"`
	Error      string     `json:"error,omitempty" yaml:"error,omitempty"`
	ExitCode   int        `json:"exit_code" yaml:"exit_code"`
	StartedAt  time.Time  `json:"started_at" yaml:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
}

// TaskRecord is the outcome of a single task within a run.
type TaskRecord struct {
	RunID      string        `json:"run_id"`
	Task       string        `json:"task"`
	Stage      int           `json:"stage"`
	Status     TaskStatus    `json:"status"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
	RecordedAt time.Time     `json:"recorded_at"`
}

// NewRun returns a running record for goals with a fresh ID.
func NewRun(goals []string, startedAt time.Time) *Run {
	g := make([]string, len(goals))
	copy(g, goals)
	return &Run{
		ID:        uuid.NewString(),
		Goals:     g,
		Status:    RunRunning,
		StartedAt: startedAt,
	}
}

// Finish fills in the outcome of a run from the executor result and the
// error returned by planning or execution. result may be nil when the run
// never reached the executor.
func (r *Run) Finish(result *build.Result, runErr error, finishedAt time.Time) {
	r.FinishedAt = &finishedAt
	r.ExitCode = build.ExitCode(runErr)
	if result != nil {
		r.Stages = result.Stages
		r.FailedTask = string(result.Failed)
	}
	if runErr == nil {
		r.Status = RunSucceeded
		r.Error = ""
		return
	}
	r.Status = RunFailed
	r.Error = runErr.Error()

	var ae *build.ActionError
	if r.FailedTask == "" && errors.As(runErr, &ae) {
		r.FailedTask = string(ae.Task)
	}
}

// Duration returns how long the run took, or zero while it is running.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// CreateRun inserts a new run record.
func (db *DB) CreateRun(r *Run) error {
	goals, err := json.Marshal(r.Goals)
	if err != nil {
		return fmt.Errorf("marshal goals: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO runs (id, goals, stages, status, failed_task, error, exit_code, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, string(goals), r.Stages, string(r.Status), nullString(r.FailedTask), nullString(r.Error),
		r.ExitCode, formatTime(r.StartedAt), nullTime(r.FinishedAt))
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// FinishRun stores the outcome fields of a run created with CreateRun.
func (db *DB) FinishRun(r *Run) error {
	result, err := db.Exec(`
		UPDATE runs SET stages = ?, status = ?, failed_task = ?, error = ?, exit_code = ?, finished_at = ?
		WHERE id = ?
	`, r.Stages, string(r.Status), nullString(r.FailedTask), nullString(r.Error), r.ExitCode,
		nullTime(r.FinishedAt), r.ID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: not found", r.ID)
	}
	return nil
}

const runColumns = `id, goals, stages, status, failed_task, error, exit_code, started_at, finished_at`

// GetRun retrieves a run by ID. It returns nil, nil when no run matches.
func (db *DB) GetRun(id string) (*Run, error) {
	row := db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// FindRun retrieves the single run whose ID starts with prefix.
// It returns nil, nil when none matches and an error when several do.
func (db *DB) FindRun(prefix string) (*Run, error) {
	rows, err := db.Query(`SELECT `+runColumns+` FROM runs WHERE id LIKE ? || '%' ORDER BY started_at DESC LIMIT 2`, prefix)
	if err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}
	runs, err := scanRuns(rows)
	if err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}
	switch len(runs) {
	case 0:
		return nil, nil
	case 1:
		return &runs[0], nil
	default:
		return nil, fmt.Errorf("find run: prefix %q is ambiguous", prefix)
	}
}

// ListRuns returns the most recent runs, newest first. A limit of zero or
// less returns every run.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	runs, err := scanRuns(rows)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// RecordTask stores the outcome of a task. Recording the same task twice
// for a run replaces the earlier record.
func (db *DB) RecordTask(t *TaskRecord) error {
	_, err := db.Exec(`
		INSERT OR REPLACE INTO run_tasks (run_id, task, stage, status, duration_ms, error, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, t.RunID, t.Task, t.Stage, string(t.Status), t.Duration.Milliseconds(), nullString(t.Error),
		formatTime(t.RecordedAt))
	if err != nil {
		return fmt.Errorf("record task: %w", err)
	}
	return nil
}

// ListTasks returns the task records of a run ordered by stage.
func (db *DB) ListTasks(runID string) ([]TaskRecord, error) {
	rows, err := db.Query(`
		SELECT run_id, task, stage, status, duration_ms, error, recorded_at
		FROM run_tasks WHERE run_id = ? ORDER BY stage, task
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var records []TaskRecord
	for rows.Next() {
		var t TaskRecord
		var durationMs int64
		var errText sql.NullString
		var recordedAt string
		if err := rows.Scan(&t.RunID, &t.Task, &t.Stage, &t.Status, &durationMs, &errText, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Duration = time.Duration(durationMs) * time.Millisecond
		t.Error = errText.String
		t.RecordedAt, _ = parseTime(recordedAt)
		records = append(records, t)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var r Run
	var goals string
	var failedTask, errText, finishedAt sql.NullString
	var startedAt string
	if err := s.Scan(&r.ID, &goals, &r.Stages, &r.Status, &failedTask, &errText, &r.ExitCode, &startedAt, &finishedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(goals), &r.Goals); err != nil {
		return nil, fmt.Errorf("unmarshal goals: %w", err)
	}
	r.FailedTask = failedTask.String
	r.Error = errText.String
	r.StartedAt, _ = parseTime(startedAt)
	r.FinishedAt = parseNullableTime(finishedAt)
	return &r, nil
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}
