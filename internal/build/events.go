package build

import (
	"log"
	"sync/atomic"
	"time"
)

// EventType represents the type of execution event.
type EventType string

const (
	// EventRunStarted is emitted once before the pre-flight hook.
	EventRunStarted EventType = "run_started"
	// EventStageStarted indicates a stage is about to run.
	EventStageStarted EventType = "stage_started"
	// EventTaskStarted indicates a task's action has been invoked.
	EventTaskStarted EventType = "task_started"
	// EventTaskCompleted indicates a task's action returned nil.
	EventTaskCompleted EventType = "task_completed"
	// EventTaskFailed indicates a task's action returned an error.
	EventTaskFailed EventType = "task_failed"
	// EventTaskSkipped indicates a task was not started because a sibling failed.
	EventTaskSkipped EventType = "task_skipped"
	// EventStageCompleted indicates every task of a stage has finished.
	EventStageCompleted EventType = "stage_completed"
	// EventHookStarted indicates a pre-flight or post-flight hook is running.
	EventHookStarted EventType = "hook_started"
	// EventRunFinished is emitted once when the run ends, successfully or not.
	EventRunFinished EventType = "run_finished"
)

// Event is emitted by the Executor as a run progresses.
type Event struct {
	Type EventType
	// Stage is the stage index, or -1 for run and hook events.
	Stage int
	// Task is set for task events.
	Task TaskID
	// Message is the task's display message or the hook phase.
	Message string
	// Error is set for failure events.
	Error error
	// Duration is the elapsed time for completion events.
	Duration  time.Duration
	Timestamp time.Time
}

// EventSink receives execution events. Implementations must be safe for
// concurrent use because tasks in a parallel stage report concurrently.
type EventSink interface {
	Emit(Event)
}

// EventFunc adapts a function to the EventSink interface.
type EventFunc func(Event)

// Emit calls f(e).
func (f EventFunc) Emit(e Event) {
	f(e)
}

// EventEmitter is a channel-backed EventSink for subscribers such as the
// progress view.
type EventEmitter struct {
	events       chan Event
	droppedCount atomic.Uint64
}

// NewEventEmitter creates a new EventEmitter with the given buffer size.
func NewEventEmitter(bufferSize int) *EventEmitter {
	return &EventEmitter{
		events: make(chan Event, bufferSize),
	}
}

// Emit sends an event to the events channel.
// If the channel is full, it tries with a timeout before dropping the event.
func (e *EventEmitter) Emit(event Event) {
	select {
	case e.events <- event:
		return
	default:
	}

	select {
	case e.events <- event:
		return
	case <-time.After(100 * time.Millisecond):
		count := e.droppedCount.Add(1)
		if count%10 == 1 {
			log.Printf("[build] WARNING: event channel full, dropped event (total dropped: %d): type=%s", count, event.Type)
		}
	}
}

// DroppedCount returns the total number of events that have been dropped.
func (e *EventEmitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Events returns a read-only channel of events.
func (e *EventEmitter) Events() <-chan Event {
	return e.events
}

// Close closes the events channel. Call it after the run has finished.
func (e *EventEmitter) Close() {
	close(e.events)
}

type nopSink struct{}

func (nopSink) Emit(Event) {}
