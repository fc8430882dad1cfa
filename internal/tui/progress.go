package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/velveeva/internal/build"
)

// TaskStatus is the display status of a planned task.
type TaskStatus int

const (
	TaskPending TaskStatus = iota
	TaskRunning
	TaskDone
	TaskFailed
	TaskSkipped
)

func (s TaskStatus) String() string {
	switch s {
	case TaskRunning:
		return "running"
	case TaskDone:
		return "done"
	case TaskFailed:
		return "failed"
	case TaskSkipped:
		return "skipped"
	default:
		return "pending"
	}
}

// maxLogEntries is how many activity lines the progress view keeps.
const maxLogEntries = 8

// LogEntry is one line of the activity log.
type LogEntry struct {
	Timestamp time.Time
	Task      string
	Message   string
	Failed    bool
}

// BuildState tracks the progress of one run through its plan.
type BuildState struct {
	Plan     *build.Plan
	Messages map[build.TaskID]string
	Status   map[build.TaskID]TaskStatus
	// Stage is the index of the running stage, -1 before the first.
	Stage int
	Hook  string
	Logs  []LogEntry
	// Durations holds the elapsed time of finished tasks.
	Durations map[build.TaskID]time.Duration
}

// NewBuildState returns the initial state for plan. messages supplies the
// display message of each task and may be nil.
func NewBuildState(plan *build.Plan, messages map[build.TaskID]string) BuildState {
	s := BuildState{
		Plan:      plan,
		Messages:  messages,
		Status:    make(map[build.TaskID]TaskStatus),
		Durations: make(map[build.TaskID]time.Duration),
		Stage:     -1,
	}
	if s.Messages == nil {
		s.Messages = make(map[build.TaskID]string)
	}
	for _, id := range plan.Tasks() {
		s.Status[id] = TaskPending
	}
	return s
}

// TaskMessages collects the display message of every planned task from reg.
func TaskMessages(plan *build.Plan, reg *build.Registry) map[build.TaskID]string {
	out := make(map[build.TaskID]string)
	for _, id := range plan.Tasks() {
		if t, err := reg.Resolve(id); err == nil {
			out[id] = t.Message
		}
	}
	return out
}

// Apply folds an executor event into the state.
func (s *BuildState) Apply(e build.Event) {
	switch e.Type {
	case build.EventStageStarted:
		s.Stage = e.Stage
		s.Hook = ""
	case build.EventHookStarted:
		s.Hook = e.Message
		s.log(e, e.Message+" hook", false)
	case build.EventTaskStarted:
		s.Status[e.Task] = TaskRunning
		s.log(e, e.Message, false)
	case build.EventTaskCompleted:
		s.Status[e.Task] = TaskDone
		s.Durations[e.Task] = e.Duration
	case build.EventTaskFailed:
		s.Status[e.Task] = TaskFailed
		s.Durations[e.Task] = e.Duration
		msg := "failed"
		if e.Error != nil {
			msg = e.Error.Error()
		}
		s.log(e, msg, true)
	case build.EventTaskSkipped:
		s.Status[e.Task] = TaskSkipped
	}
}

func (s *BuildState) log(e build.Event, msg string, failed bool) {
	s.Logs = append(s.Logs, LogEntry{
		Timestamp: e.Timestamp,
		Task:      string(e.Task),
		Message:   msg,
		Failed:    failed,
	})
	if len(s.Logs) > maxLogEntries {
		s.Logs = s.Logs[len(s.Logs)-maxLogEntries:]
	}
}

// Counts returns the number of finished tasks and the total.
func (s *BuildState) Counts() (done, total int) {
	for _, st := range s.Status {
		if st == TaskDone {
			done++
		}
	}
	return done, len(s.Status)
}

// EventMsg carries an executor event into the program.
type EventMsg struct {
	Event build.Event
}

// BuildDoneMsg is sent when the run ends.
type BuildDoneMsg struct {
	Result *build.Result
	Err    error
}

// BuildApp is the bubbletea model for the build progress view.
type BuildApp struct {
	state    BuildState
	header   *Header
	stats    *StatsView
	spinner  spinner.Model
	cancel   func()
	started  time.Time
	width    int
	quitting bool
	done     bool
	result   *build.Result
	err      error

	pendingStyle lipgloss.Style
	runningStyle lipgloss.Style
	doneStyle    lipgloss.Style
	failedStyle  lipgloss.Style
	skippedStyle lipgloss.Style
	stageStyle   lipgloss.Style
	logTimeStyle lipgloss.Style
	hintStyle    lipgloss.Style
}

// NewBuildApp creates the progress model for plan. cancel is called when
// the user quits before the run ends and may be nil.
func NewBuildApp(plan *build.Plan, messages map[build.TaskID]string, cancel func()) *BuildApp {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &BuildApp{
		state:   NewBuildState(plan, messages),
		header:  NewHeader("Build"),
		stats:   NewStatsView(),
		spinner: sp,
		cancel:  cancel,
		started: time.Now(),

		pendingStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		runningStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true),
		doneStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		failedStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		skippedStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		stageStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(10),
		logTimeStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		hintStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// State returns the current build state.
func (a *BuildApp) State() BuildState {
	return a.state
}

// Err returns the run error once BuildDoneMsg has been received.
func (a *BuildApp) Err() error {
	return a.err
}

// Quitting reports whether the user cancelled the view.
func (a *BuildApp) Quitting() bool {
	return a.quitting
}

// Init implements tea.Model.
func (a *BuildApp) Init() tea.Cmd {
	return a.spinner.Tick
}

// Update implements tea.Model.
func (a *BuildApp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			a.quitting = true
			if !a.done && a.cancel != nil {
				a.cancel()
			}
			return a, tea.Quit
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.header.SetWidth(msg.Width)
		a.stats.SetSize(msg.Width, msg.Height)

	case spinner.TickMsg:
		if a.done {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case EventMsg:
		a.state.Apply(msg.Event)

	case BuildDoneMsg:
		a.done = true
		a.result = msg.Result
		a.err = msg.Err
		return a, tea.Quit
	}

	return a, nil
}

// View implements tea.Model.
func (a *BuildApp) View() string {
	if a.quitting && !a.done {
		return "Build cancelled.\n"
	}

	var b strings.Builder
	b.WriteString(a.header.View())
	b.WriteString("\n")

	for _, stage := range a.state.Plan.Stages {
		b.WriteString(a.renderStage(stage))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	done, total := a.state.Counts()
	a.stats.SetProgress(done, total, a.elapsed())
	b.WriteString(a.stats.View())
	b.WriteString("\n")

	b.WriteString(a.renderLogs())

	b.WriteString("\n")
	switch {
	case a.done && a.err != nil:
		b.WriteString(a.failedStyle.Render(fmt.Sprintf("Error: %v", a.err)))
	case a.done:
		b.WriteString(a.doneStyle.Render("Build complete."))
	default:
		b.WriteString(a.hintStyle.Render("Press q to cancel"))
	}
	b.WriteString("\n")

	return b.String()
}

func (a *BuildApp) elapsed() time.Duration {
	if a.result != nil {
		return a.result.Duration
	}
	return time.Since(a.started)
}

// renderStage renders one stage line with a marker per task.
func (a *BuildApp) renderStage(stage build.Stage) string {
	label := fmt.Sprintf("stage %d", stage.Index)
	if stage.Index == a.state.Stage && !a.done {
		label = a.spinner.View() + " " + label
	} else {
		label = "  " + label
	}

	parts := make([]string, 0, len(stage.Tasks))
	for _, id := range stage.Tasks {
		parts = append(parts, a.renderTask(id))
	}
	return a.stageStyle.Render(label) + " " + strings.Join(parts, "  ")
}

func (a *BuildApp) renderTask(id build.TaskID) string {
	name := string(id)
	switch a.state.Status[id] {
	case TaskRunning:
		msg := a.state.Messages[id]
		if msg == "" {
			return a.runningStyle.Render(name)
		}
		return a.runningStyle.Render(name) + a.pendingStyle.Render(" "+msg)
	case TaskDone:
		return a.doneStyle.Render("✓ " + name)
	case TaskFailed:
		return a.failedStyle.Render("✗ " + name)
	case TaskSkipped:
		return a.skippedStyle.Render("- " + name)
	default:
		return a.pendingStyle.Render(name)
	}
}

// renderLogs renders the recent activity.
func (a *BuildApp) renderLogs() string {
	if len(a.state.Logs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("252")).
		Render("Activity"))
	b.WriteString("\n")

	for _, entry := range a.state.Logs {
		ts := a.logTimeStyle.Render(entry.Timestamp.Format("15:04:05"))
		task := lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Width(12).
			Render(entry.Task)
		msgStyle := a.pendingStyle
		if entry.Failed {
			msgStyle = a.failedStyle
		}
		b.WriteString(fmt.Sprintf("  %s %s %s\n", ts, task, msgStyle.Render(entry.Message)))
	}
	return b.String()
}

// Sender is the part of tea.Program used to deliver messages.
type Sender interface {
	Send(msg tea.Msg)
}

// Forward delivers every event from emitter to p until the emitter is closed.
func Forward(emitter *build.EventEmitter, p Sender) {
	for e := range emitter.Events() {
		p.Send(EventMsg{Event: e})
	}
}

// NewBuildProgram creates a bubbletea program showing the progress of plan.
func NewBuildProgram(plan *build.Plan, reg *build.Registry, cancel func()) (*tea.Program, *BuildApp) {
	app := NewBuildApp(plan, TaskMessages(plan, reg), cancel)
	return tea.NewProgram(app), app
}
