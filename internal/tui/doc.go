// Package tui provides the terminal views for velveeva builds.
//
// The progress view is a read-only bubbletea program fed by the executor's
// event stream. It shows the plan's stages, the task each stage is running,
// a progress bar and the recent activity. Users can only cancel with 'q'
// or Ctrl+C, which cancels the build's context.
//
// Usage:
//
//	emitter := build.NewEventEmitter(64)
//	program, app := tui.NewBuildProgram(plan, reg, cancel)
//	forwarded := make(chan struct{})
//	go func() {
//	    tui.Forward(emitter, program)
//	    close(forwarded)
//	}()
//
//	go func() {
//	    result, err := executor.Run(ctx, plan, env)
//	    emitter.Close()
//	    <-forwarded
//	    program.Send(tui.BuildDoneMsg{Result: result, Err: err})
//	}()
//	program.Run()
//
// RenderPlan draws a compiled plan without starting a program and is used
// by `velveeva plan`.
package tui
