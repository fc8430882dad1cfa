package state

import (
	"io"
	"time"
)

// RunStore handles run persistence.
type RunStore interface {
	CreateRun(r *Run) error
	FinishRun(r *Run) error
	GetRun(id string) (*Run, error)
	FindRun(prefix string) (*Run, error)
	ListRuns(limit int) ([]Run, error)
}

// TaskStore handles per-task outcome persistence.
type TaskStore interface {
	RecordTask(t *TaskRecord) error
	ListTasks(runID string) ([]TaskRecord, error)
}

// HistoryStore is the full history backend used by the CLI.
type HistoryStore interface {
	RunStore
	TaskStore
	io.Closer
	MarkInterrupted(cutoff time.Time) (int64, error)
	PurgeOldRuns(olderThan time.Duration) (int64, error)
}

var _ HistoryStore = (*DB)(nil)
