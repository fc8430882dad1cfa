package state

import (
	"sync"

	"github.com/ShayCichocki/velveeva/internal/build"
)

// Recorder is a build.EventSink that stores task outcomes of one run.
// Storage errors do not interrupt the build; the first one is kept and
// reported by Err.
type Recorder struct {
	store TaskStore
	runID string

	mu  sync.Mutex
	err error
}

// NewRecorder returns a Recorder writing task records for runID.
func NewRecorder(store TaskStore, runID string) *Recorder {
	return &Recorder{store: store, runID: runID}
}

// Emit implements build.EventSink.
func (r *Recorder) Emit(e build.Event) {
	var status TaskStatus
	switch e.Type {
	case build.EventTaskCompleted:
		status = TaskCompleted
	case build.EventTaskFailed:
		status = TaskFailed
	case build.EventTaskSkipped:
		status = TaskSkipped
	default:
		return
	}

	rec := &TaskRecord{
		RunID:      r.runID,
		Task:       string(e.Task),
		Stage:      e.Stage,
		Status:     status,
		Duration:   e.Duration,
		RecordedAt: e.Timestamp,
	}
	if e.Error != nil {
		rec.Error = e.Error.Error()
	}

	if err := r.store.RecordTask(rec); err != nil {
		r.mu.Lock()
		if r.err == nil {
			r.err = err
		}
		r.mu.Unlock()
	}
}

// Err returns the first storage error seen, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Tee fans events out to several sinks in order. Nil sinks are skipped.
type Tee []build.EventSink

// Emit implements build.EventSink.
func (t Tee) Emit(e build.Event) {
	for _, s := range t {
		if s != nil {
			s.Emit(e)
		}
	}
}
