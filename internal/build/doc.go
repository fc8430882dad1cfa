// Package build plans and executes a content build.
//
// A build starts from user-facing goal names. The GoalExpander turns goals
// into task IDs, the Registry supplies each task's prerequisites and Action,
// Compile turns the induced DependencyGraph into an ordered list of stages,
// and the Executor runs the stages one at a time. Tasks inside a stage run
// concurrently on a bounded worker pool and the executor waits for all of
// them before moving on. The first failure stops the run at the next stage
// boundary.
package build
