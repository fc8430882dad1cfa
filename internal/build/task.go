package build

import (
	"context"
)

// TaskID identifies a task. IDs are unique within a Registry.
type TaskID string

// String returns the task ID as a plain string.
func (id TaskID) String() string {
	return string(id)
}

// Action is the unit of work bound to a task.
// The environment is shared by every action in a run and must not be modified.
// stage is the index of the stage the task runs in.
type Action interface {
	Execute(ctx context.Context, env *Environment, stage int) error
}

// ActionFunc adapts an ordinary function to the Action interface.
type ActionFunc func(ctx context.Context, env *Environment, stage int) error

// Execute calls f(ctx, env, stage).
func (f ActionFunc) Execute(ctx context.Context, env *Environment, stage int) error {
	return f(ctx, env, stage)
}

// Task is a named unit of work with its prerequisites.
// Tasks are immutable once registered.
type Task struct {
	// ID is the unique task identifier.
	ID TaskID
	// Requires lists tasks that must complete before this one starts.
	Requires []TaskID
	// Conflicts lists tasks that must not appear in the same plan.
	Conflicts []TaskID
	// Message is announced by the executor before the action runs.
	Message string
	// Action performs the work.
	Action Action
}

// IsRoot reports whether the task has no prerequisites.
func (t *Task) IsRoot() bool {
	return len(t.Requires) == 0
}

// Requirement pairs a task with the tasks it requires.
// A DependencyGraph is built from a set of requirements.
type Requirement struct {
	Task     TaskID
	Requires []TaskID
}
