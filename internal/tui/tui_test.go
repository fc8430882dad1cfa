package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ShayCichocki/velveeva/internal/build"
)

func devPlan() *build.Plan {
	return &build.Plan{
		Requested: []build.TaskID{"veev2rel"},
		Stages: []build.Stage{
			{Index: 0, Tasks: []build.TaskID{"nuke"}, Kind: build.StageChainStart},
			{Index: 1, Tasks: []build.TaskID{"scaffold"}, Kind: build.StageChainLink},
			{Index: 2, Tasks: []build.TaskID{"globals", "locals"}, Kind: build.StageParallel, Chain: 1},
			{Index: 3, Tasks: []build.TaskID{"veev2rel"}, Kind: build.StageChainStart, Chain: 2},
		},
	}
}

var devMessages = map[build.TaskID]string{
	"nuke":     "Nuking old builds...",
	"scaffold": "Creating directories...",
	"globals":  "Injecting globals...",
	"locals":   "Copying local assets...",
	"veev2rel": "Converting links...",
}

func TestNewBuildState(t *testing.T) {
	s := NewBuildState(devPlan(), nil)

	if s.Stage != -1 {
		t.Errorf("Stage = %d, want -1", s.Stage)
	}
	done, total := s.Counts()
	if done != 0 || total != 5 {
		t.Errorf("Counts() = (%d, %d), want (0, 5)", done, total)
	}
	for id, st := range s.Status {
		if st != TaskPending {
			t.Errorf("%s status = %v, want pending", id, st)
		}
	}
}

func TestBuildState_Apply(t *testing.T) {
	s := NewBuildState(devPlan(), devMessages)
	now := time.Now()

	events := []build.Event{
		{Type: build.EventStageStarted, Stage: 0, Timestamp: now},
		{Type: build.EventTaskStarted, Stage: 0, Task: "nuke", Message: "Nuking old builds...", Timestamp: now},
		{Type: build.EventTaskCompleted, Stage: 0, Task: "nuke", Duration: 5 * time.Millisecond, Timestamp: now},
		{Type: build.EventStageStarted, Stage: 2, Timestamp: now},
		{Type: build.EventTaskFailed, Stage: 2, Task: "globals", Error: errors.New("no globals"), Timestamp: now},
		{Type: build.EventTaskSkipped, Stage: 2, Task: "locals", Timestamp: now},
	}
	for _, e := range events {
		s.Apply(e)
	}

	tests := []struct {
		task build.TaskID
		want TaskStatus
	}{
		{"nuke", TaskDone},
		{"scaffold", TaskPending},
		{"globals", TaskFailed},
		{"locals", TaskSkipped},
	}
	for _, tt := range tests {
		if got := s.Status[tt.task]; got != tt.want {
			t.Errorf("%s = %v, want %v", tt.task, got, tt.want)
		}
	}
	if s.Stage != 2 {
		t.Errorf("Stage = %d, want 2", s.Stage)
	}
	if s.Durations["nuke"] != 5*time.Millisecond {
		t.Errorf("nuke duration = %v", s.Durations["nuke"])
	}
	if len(s.Logs) != 2 || !s.Logs[1].Failed || s.Logs[1].Message != "no globals" {
		t.Errorf("Logs = %+v", s.Logs)
	}
}

func TestBuildState_LogIsBounded(t *testing.T) {
	s := NewBuildState(devPlan(), nil)
	for i := 0; i < maxLogEntries*2; i++ {
		s.Apply(build.Event{Type: build.EventTaskStarted, Task: "nuke", Message: "x"})
	}
	if len(s.Logs) != maxLogEntries {
		t.Errorf("len(Logs) = %d, want %d", len(s.Logs), maxLogEntries)
	}
}

func TestTaskMessages(t *testing.T) {
	reg := build.NewRegistry()
	reg.MustRegister(build.Task{ID: "nuke", Message: "Nuking old builds...", Action: build.ActionFunc(func(context.Context, *build.Environment, int) error { return nil })})

	plan := &build.Plan{Stages: []build.Stage{{Tasks: []build.TaskID{"nuke", "ghost"}}}}
	got := TaskMessages(plan, reg)

	if got["nuke"] != "Nuking old builds..." {
		t.Errorf("nuke = %q", got["nuke"])
	}
	if _, ok := got["ghost"]; ok {
		t.Error("unregistered task should have no message")
	}
}

func TestBuildApp_EventsUpdateView(t *testing.T) {
	app := NewBuildApp(devPlan(), devMessages, nil)

	app.Update(EventMsg{Event: build.Event{Type: build.EventStageStarted, Stage: 0}})
	app.Update(EventMsg{Event: build.Event{Type: build.EventTaskStarted, Stage: 0, Task: "nuke"}})

	view := app.View()
	for _, want := range []string{"stage 0", "nuke", "Nuking old builds...", "globals", "locals", "Press q to cancel"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestBuildApp_DoneQuits(t *testing.T) {
	app := NewBuildApp(devPlan(), devMessages, nil)

	_, cmd := app.Update(BuildDoneMsg{Result: &build.Result{State: build.StateSucceeded}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if !strings.Contains(app.View(), "Build complete.") {
		t.Error("view should report completion")
	}
}

func TestBuildApp_DoneWithError(t *testing.T) {
	app := NewBuildApp(devPlan(), devMessages, nil)
	app.Update(BuildDoneMsg{Err: errors.New("sass exploded")})

	if app.Err() == nil {
		t.Fatal("Err() should return run error")
	}
	if !strings.Contains(app.View(), "sass exploded") {
		t.Error("view should show the error")
	}
}

func TestBuildApp_QuitCancelsRun(t *testing.T) {
	cancelled := false
	app := NewBuildApp(devPlan(), devMessages, func() { cancelled = true })

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !cancelled {
		t.Error("quitting should cancel the run")
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if !app.Quitting() {
		t.Error("Quitting() = false")
	}
	if app.View() != "Build cancelled.\n" {
		t.Errorf("View() = %q", app.View())
	}
}

func TestBuildApp_QuitAfterDoneDoesNotCancel(t *testing.T) {
	cancelled := false
	app := NewBuildApp(devPlan(), devMessages, func() { cancelled = true })

	app.Update(BuildDoneMsg{})
	app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cancelled {
		t.Error("cancel should not run once the build is done")
	}
}

type sendRecorder struct {
	msgs []tea.Msg
}

func (s *sendRecorder) Send(msg tea.Msg) {
	s.msgs = append(s.msgs, msg)
}

func TestForward(t *testing.T) {
	emitter := build.NewEventEmitter(4)
	emitter.Emit(build.Event{Type: build.EventRunStarted})
	emitter.Emit(build.Event{Type: build.EventRunFinished})
	emitter.Close()

	rec := &sendRecorder{}
	Forward(emitter, rec)

	if len(rec.msgs) != 2 {
		t.Fatalf("forwarded %d messages, want 2", len(rec.msgs))
	}
	if m, ok := rec.msgs[1].(EventMsg); !ok || m.Event.Type != build.EventRunFinished {
		t.Errorf("second message = %#v", rec.msgs[1])
	}
}

func TestRenderPlan(t *testing.T) {
	out := RenderPlan(devPlan(), devMessages)

	for _, want := range []string{
		"Plan: 5 tasks in 4 stages",
		"requested: veev2rel",
		"parallel",
		"start",
		"then",
		"Injecting globals...",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderPlan missing %q:\n%s", want, out)
		}
	}

	var taskLines int
	for _, l := range strings.Split(out, "\n") {
		if strings.HasSuffix(l, "...") {
			taskLines++
		}
	}
	if taskLines != 5 {
		t.Errorf("found %d task lines, want 5:\n%s", taskLines, out)
	}
}

func TestHeader(t *testing.T) {
	h := NewHeader("Build")
	view := h.View()
	if !strings.Contains(view, "~~ Build ~~") {
		t.Errorf("header missing subtitle:\n%s", view)
	}
	if h.Height() != len(logo)+2 {
		t.Errorf("Height() = %d", h.Height())
	}
}

func TestStatsView(t *testing.T) {
	s := NewStatsView()
	s.SetProgress(3, 4, 90*time.Second)

	if s.Percent() != 75 {
		t.Errorf("Percent() = %v, want 75", s.Percent())
	}
	view := s.View()
	for _, want := range []string{"1m30s", "3 done / 4 total", "75%"} {
		if !strings.Contains(view, want) {
			t.Errorf("stats view missing %q:\n%s", want, view)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{42 * time.Second, "42s"},
		{3*time.Minute + 5*time.Second, "3m5s"},
		{2*time.Hour + 7*time.Minute, "2h7m"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
