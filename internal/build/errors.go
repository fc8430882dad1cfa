package build

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for errors.Is checks.
var (
	// ErrUnknownTask indicates a reference to a task that was never registered.
	ErrUnknownTask = errors.New("unknown task")
	// ErrDuplicateTask indicates a task ID was registered twice.
	ErrDuplicateTask = errors.New("task already registered")
	// ErrCyclicDependency indicates the dependency graph cannot be fully resolved.
	ErrCyclicDependency = errors.New("cyclic dependency")
	// ErrConflictingTasks indicates a plan holds two tasks that exclude each other.
	ErrConflictingTasks = errors.New("conflicting tasks")
	// ErrActionFailed indicates a task's action returned an error.
	ErrActionFailed = errors.New("action failed")
	// ErrHookFailed indicates a pre-flight or post-flight hook failed.
	ErrHookFailed = errors.New("hook failed")
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitStageFailed = 1
	ExitPlanFailed  = 2
	ExitHookFailed  = 3
)

// UnknownTaskError is returned when a goal or a requires list names a task
// that is not in the registry.
type UnknownTaskError struct {
	ID TaskID
	// RequiredBy is the task that referenced ID, empty for direct requests.
	RequiredBy TaskID
}

func (e *UnknownTaskError) Error() string {
	if e.RequiredBy != "" {
		return fmt.Sprintf("unknown task %q (required by %q)", e.ID, e.RequiredBy)
	}
	return fmt.Sprintf("unknown task %q", e.ID)
}

func (e *UnknownTaskError) Unwrap() error {
	return ErrUnknownTask
}

// CyclicDependencyError lists the tasks left unresolved when the frontier emptied.
type CyclicDependencyError struct {
	Unresolved []TaskID
}

func (e *CyclicDependencyError) Error() string {
	ids := make([]string, len(e.Unresolved))
	for i, id := range e.Unresolved {
		ids[i] = string(id)
	}
	sort.Strings(ids)
	return fmt.Sprintf("cyclic dependency among tasks: %s", strings.Join(ids, ", "))
}

func (e *CyclicDependencyError) Unwrap() error {
	return ErrCyclicDependency
}

// ConflictError names two planned tasks that must not run together.
type ConflictError struct {
	Task, With TaskID
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("tasks %q and %q cannot run in the same build", e.Task, e.With)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflictingTasks
}

// ActionError records which task failed, in which stage, and why.
type ActionError struct {
	Task  TaskID
	Stage int
	Cause error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("task %q failed in stage %d: %v", e.Task, e.Stage, e.Cause)
}

// Unwrap exposes both the sentinel and the original cause.
func (e *ActionError) Unwrap() []error {
	return []error{ErrActionFailed, e.Cause}
}

// HookPhase names when a hook runs.
type HookPhase string

const (
	HookPreFlight  HookPhase = "pre-flight"
	HookPostFlight HookPhase = "post-flight"
)

// HookError is returned when a configured hook command fails.
type HookError struct {
	Phase  HookPhase
	Output string
	Cause  error
}

func (e *HookError) Error() string {
	msg := fmt.Sprintf("%s hook failed: %v", e.Phase, e.Cause)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *HookError) Unwrap() []error {
	return []error{ErrHookFailed, e.Cause}
}

// ExitCode maps a planning or execution error to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUnknownTask), errors.Is(err, ErrCyclicDependency), errors.Is(err, ErrDuplicateTask),
		errors.Is(err, ErrConflictingTasks):
		return ExitPlanFailed
	case errors.Is(err, ErrHookFailed):
		return ExitHookFailed
	default:
		return ExitStageFailed
	}
}
