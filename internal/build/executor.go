package build

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	iexec "github.com/ShayCichocki/velveeva/internal/exec"
)

// DefaultWorkers bounds the number of tasks run at once in a parallel stage.
const DefaultWorkers = 4

// RunState is the executor's position in a run.
type RunState int

const (
	StateIdle RunState = iota
	StateRunning
	StateFailed
	StateSucceeded
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateFailed:
		return "failed"
	case StateSucceeded:
		return "succeeded"
	default:
		return fmt.Sprintf("RunState(%d)", int(s))
	}
}

// Option configures an Executor. Use With* functions to create Options.
type Option func(*executorOptions)

type executorOptions struct {
	workers int
	sink    EventSink
	runner  iexec.CommandRunner
}

// WithWorkers sets the worker pool size for parallel stages.
// Values below 1 fall back to DefaultWorkers.
func WithWorkers(n int) Option {
	return func(o *executorOptions) { o.workers = n }
}

// WithEventSink sets the receiver of execution events.
func WithEventSink(s EventSink) Option {
	return func(o *executorOptions) { o.sink = s }
}

// WithHookRunner sets the command runner used for pre-flight and post-flight hooks.
func WithHookRunner(r iexec.CommandRunner) Option {
	return func(o *executorOptions) { o.runner = r }
}

// Executor runs a compiled plan stage by stage. A stage starts only after
// every task of the previous stage has finished, and no stage starts after
// a failure has been observed.
type Executor struct {
	registry *Registry
	workers  int
	sink     EventSink
	runner   iexec.CommandRunner

	mu    sync.Mutex
	state RunState
	stage int
}

// Result summarizes a run.
type Result struct {
	State RunState
	// Stages is the number of stages that finished, successfully or not.
	Stages int
	// Completed lists tasks whose actions returned nil, in completion order.
	Completed []TaskID
	// Failed is the task that caused the run to fail, if any.
	Failed   TaskID
	Duration time.Duration
}

// NewExecutor creates an executor that resolves plan tasks in reg.
func NewExecutor(reg *Registry, opts ...Option) *Executor {
	o := executorOptions{workers: DefaultWorkers}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers < 1 {
		o.workers = DefaultWorkers
	}
	if o.sink == nil {
		o.sink = nopSink{}
	}
	if o.runner == nil {
		o.runner = iexec.NewRunner()
	}
	return &Executor{
		registry: reg,
		workers:  o.workers,
		sink:     o.sink,
		runner:   o.runner,
		stage:    -1,
	}
}

// State returns the current run state.
func (x *Executor) State() RunState {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.state
}

// CurrentStage returns the index of the running stage, or -1 before the first stage.
func (x *Executor) CurrentStage() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.stage
}

func (x *Executor) transition(state RunState, stage int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.state = state
	x.stage = stage
}

// Run executes plan against env. The pre-flight hook runs before stage 0;
// the post-flight hook runs only if every stage succeeded. The returned
// error is the first failure observed; use ExitCode to map it to a process
// exit status. Cancellation of ctx is honored at stage boundaries.
func (x *Executor) Run(ctx context.Context, plan *Plan, env *Environment) (*Result, error) {
	start := time.Now()
	res := &Result{}

	finish := func(err error) (*Result, error) {
		res.Duration = time.Since(start)
		if err != nil {
			res.State = StateFailed
		} else {
			res.State = StateSucceeded
		}
		x.transition(res.State, x.CurrentStage())
		x.emit(Event{Type: EventRunFinished, Stage: -1, Error: err, Duration: res.Duration})
		debugLog("[executor.Run] finished state=%s stages=%d err=%v", res.State, res.Stages, err)
		return res, err
	}

	// Resolve every task up front so a bad plan fails before any side effect.
	stages := make([][]*Task, len(plan.Stages))
	for i, s := range plan.Stages {
		for _, id := range s.Tasks {
			t, err := x.registry.Resolve(id)
			if err != nil {
				return finish(err)
			}
			stages[i] = append(stages[i], t)
		}
	}

	x.transition(StateRunning, -1)
	x.emit(Event{Type: EventRunStarted, Stage: -1, Message: fmt.Sprintf("%d stages", len(plan.Stages))})
	debugLog("[executor.Run] starting %d stages with %d workers", len(plan.Stages), x.workers)

	if err := x.runHook(ctx, env, HookPreFlight, env.Hooks.Pre); err != nil {
		return finish(err)
	}

	var completedMu sync.Mutex
	for i, tasks := range stages {
		if err := ctx.Err(); err != nil {
			return finish(fmt.Errorf("stage %d not started: %w", i, err))
		}

		x.transition(StateRunning, i)
		x.emit(Event{Type: EventStageStarted, Stage: i, Message: stageLabel(tasks)})
		stageStart := time.Now()

		var err error
		if len(tasks) == 1 {
			err = x.runTask(ctx, env, i, tasks[0])
			if err == nil {
				res.Completed = append(res.Completed, tasks[0].ID)
			}
		} else {
			err = x.runParallel(ctx, env, i, tasks, func(id TaskID) {
				completedMu.Lock()
				res.Completed = append(res.Completed, id)
				completedMu.Unlock()
			})
		}

		res.Stages++
		x.emit(Event{Type: EventStageCompleted, Stage: i, Error: err, Duration: time.Since(stageStart)})
		if err != nil {
			var ae *ActionError
			if errors.As(err, &ae) {
				res.Failed = ae.Task
			}
			return finish(err)
		}
	}

	if err := x.runHook(ctx, env, HookPostFlight, env.Hooks.Post); err != nil {
		return finish(err)
	}
	return finish(nil)
}

// runParallel runs every task of a stage on a bounded pool and waits for all
// of them. Once a task fails, tasks not yet started are skipped; tasks
// already running are left to finish.
func (x *Executor) runParallel(ctx context.Context, env *Environment, stage int, tasks []*Task, done func(TaskID)) error {
	var g errgroup.Group
	g.SetLimit(x.workers)

	var failed atomic.Bool
	for _, t := range tasks {
		g.Go(func() error {
			if failed.Load() {
				x.emit(Event{Type: EventTaskSkipped, Stage: stage, Task: t.ID, Message: t.Message})
				return nil
			}
			if err := x.runTask(ctx, env, stage, t); err != nil {
				failed.Store(true)
				return err
			}
			done(t.ID)
			return nil
		})
	}
	return g.Wait()
}

func (x *Executor) runTask(ctx context.Context, env *Environment, stage int, t *Task) (err error) {
	start := time.Now()
	x.emit(Event{Type: EventTaskStarted, Stage: stage, Task: t.ID, Message: t.Message})
	debugLog("[executor] stage %d: %s started", stage, t.ID)

	defer func() {
		if r := recover(); r != nil {
			err = &ActionError{Task: t.ID, Stage: stage, Cause: fmt.Errorf("panic: %v", r)}
		}
		d := time.Since(start)
		if err != nil {
			debugLog("[executor] stage %d: %s failed after %s: %v", stage, t.ID, d, err)
			x.emit(Event{Type: EventTaskFailed, Stage: stage, Task: t.ID, Message: t.Message, Error: err, Duration: d})
			return
		}
		debugLog("[executor] stage %d: %s completed in %s", stage, t.ID, d)
		x.emit(Event{Type: EventTaskCompleted, Stage: stage, Task: t.ID, Message: t.Message, Duration: d})
	}()

	if aerr := t.Action.Execute(ctx, env, stage); aerr != nil {
		return &ActionError{Task: t.ID, Stage: stage, Cause: aerr}
	}
	return nil
}

func (x *Executor) runHook(ctx context.Context, env *Environment, phase HookPhase, command string) error {
	if command == "" {
		return nil
	}
	x.emit(Event{Type: EventHookStarted, Stage: -1, Message: string(phase)})
	debugLog("[executor] running %s hook: %s", phase, command)

	out, err := x.runner.RunShell(ctx, env.Root, command)
	if err != nil {
		return &HookError{Phase: phase, Output: string(out), Cause: err}
	}
	return nil
}

func (x *Executor) emit(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	x.sink.Emit(e)
}

func stageLabel(tasks []*Task) string {
	if len(tasks) == 1 {
		return string(tasks[0].ID)
	}
	return fmt.Sprintf("%d tasks", len(tasks))
}
