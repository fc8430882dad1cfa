package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/velveeva/internal/build"
	"github.com/ShayCichocki/velveeva/internal/config"
	"github.com/ShayCichocki/velveeva/internal/state"
	"github.com/ShayCichocki/velveeva/internal/steps"
)

// newProject initializes a project in a temp dir and returns its config path.
func newProject(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	if err := initProject(io.Discard, dir, "deck", false, false); err != nil {
		t.Fatalf("initProject: %v", err)
	}
	return dir, filepath.Join(dir, config.FileName)
}

func testPlan(t *testing.T, goals ...string) *build.Plan {
	t.Helper()
	catalog, err := steps.NewCatalog(steps.Deps{})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	plan, unknown, err := catalog.Plan(goals)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(unknown) != 0 {
		t.Fatalf("unknown goals %v", unknown)
	}
	return plan
}

func TestBanner(t *testing.T) {
	if got := banner(""); got != bannerArt {
		t.Errorf("banner(\"\") = %q, want bare art", got)
	}

	got := banner("Build Complete")
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	last := lines[len(lines)-1]
	width := len(strings.SplitN(bannerArt, "\n", 2)[0])
	if len(last) != width {
		t.Errorf("subtitle line width = %d, want %d", len(last), width)
	}
	if !strings.Contains(last, " Build Complete ") || !strings.HasPrefix(last, "~") || !strings.HasSuffix(last, "~") {
		t.Errorf("subtitle line = %q", last)
	}

	long := strings.Repeat("x", 60)
	if !strings.HasSuffix(banner(long), " "+long+" \n") {
		t.Errorf("long subtitle not appended verbatim")
	}
}

func TestFprintStatus(t *testing.T) {
	var buf bytes.Buffer
	fprintStatus(&buf, "✔", "Wrote config", colorOK)
	if !strings.Contains(buf.String(), "Wrote config\n") || !strings.Contains(buf.String(), "✔") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestEventPrinter(t *testing.T) {
	events := []build.Event{
		{Type: build.EventStageStarted, Stage: 0, Message: "nuke"},
		{Type: build.EventTaskStarted, Task: "nuke", Message: "Cleaning up..."},
		{Type: build.EventTaskCompleted, Task: "nuke", Duration: 1500 * time.Millisecond},
		{Type: build.EventTaskFailed, Task: "sass", Error: errors.New("exit status 1")},
		{Type: build.EventTaskSkipped, Task: "package"},
		{Type: build.EventHookStarted, Message: "pre"},
		{Type: build.EventRunFinished, Duration: 2 * time.Second},
	}

	tests := []struct {
		name    string
		verbose bool
		want    []string
		notWant []string
	}{
		{
			name:    "quiet",
			verbose: false,
			want:    []string{"Cleaning up...", "sass failed: exit status 1", "Running pre hook..."},
			notWant: []string{"stage 0", "package skipped", "finished in", "nuke ("},
		},
		{
			name:    "verbose",
			verbose: true,
			want: []string{
				"stage 0: nuke",
				"Cleaning up...",
				"nuke (1s)",
				"sass failed: exit status 1",
				"package skipped",
				"finished in 2s",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			p := newEventPrinter(&buf, tt.verbose)
			for _, e := range events {
				p.Emit(e)
			}
			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(out, w) {
					t.Errorf("output unexpectedly contains %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestWritePlan(t *testing.T) {
	plan := testPlan(t, "clean")

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		if err := writePlan(&buf, plan, nil, "text"); err != nil {
			t.Fatalf("writePlan: %v", err)
		}
		if !strings.Contains(buf.String(), "Plan: 1 tasks in 1 stages") {
			t.Errorf("text output = %q", buf.String())
		}
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := writePlan(&buf, plan, nil, "json"); err != nil {
			t.Fatalf("writePlan: %v", err)
		}
		var decoded struct {
			Requested []string `json:"requested"`
			Stages    []struct {
				Tasks []string `json:"tasks"`
				Kind  string   `json:"kind"`
			} `json:"stages"`
		}
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("decode: %v\n%s", err, buf.String())
		}
		if len(decoded.Stages) != 1 || decoded.Stages[0].Tasks[0] != string(steps.TaskNuke) {
			t.Errorf("stages = %+v", decoded.Stages)
		}
		if decoded.Stages[0].Kind != "chain-start" {
			t.Errorf("kind = %q, want chain-start", decoded.Stages[0].Kind)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		if err := writePlan(&buf, plan, nil, "yaml"); err != nil {
			t.Fatalf("writePlan: %v", err)
		}
		var decoded map[string]interface{}
		if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if _, ok := decoded["stages"]; !ok {
			t.Errorf("yaml missing stages:\n%s", buf.String())
		}
		if !strings.Contains(buf.String(), "kind: chain-start") {
			t.Errorf("yaml kind not encoded as text:\n%s", buf.String())
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		if err := writePlan(io.Discard, plan, nil, "xml"); err == nil {
			t.Error("expected error for unknown format")
		}
	})
}

func TestInitProject(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	if err := initProject(&buf, dir, "", false, true); err != nil {
		t.Fatalf("initProject: %v", err)
	}

	cfg, err := config.LoadFromPath(filepath.Join(dir, config.FileName))
	if err != nil {
		t.Fatalf("load written config: %v", err)
	}
	if cfg.Main.Name != filepath.Base(dir) {
		t.Errorf("name = %q, want directory name %q", cfg.Main.Name, filepath.Base(dir))
	}

	for _, d := range []string{cfg.Main.SourceDir, cfg.Main.GlobalsDir, cfg.Main.PartialsDir, cfg.Main.TemplatesDir} {
		if info, err := os.Stat(filepath.Join(dir, d)); err != nil || !info.IsDir() {
			t.Errorf("directory %s not created", d)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		t.Fatalf("read .gitignore: %v", err)
	}
	for _, e := range []string{"# velveeva", "build/", state.DirName + "/"} {
		if !strings.Contains(string(data), e) {
			t.Errorf(".gitignore missing %q:\n%s", e, data)
		}
	}

	// A second init without --force refuses to overwrite.
	buf.Reset()
	err = initProject(&buf, dir, "other", false, true)
	var silent *silentError
	if !errors.As(err, &silent) {
		t.Fatalf("second init error = %v, want silentError", err)
	}
	if !strings.Contains(buf.String(), "--force") {
		t.Errorf("missing --force hint: %q", buf.String())
	}

	if err := initProject(io.Discard, dir, "other", true, false); err != nil {
		t.Fatalf("forced init: %v", err)
	}
	cfg, err = config.LoadFromPath(filepath.Join(dir, config.FileName))
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if cfg.Main.Name != "other" {
		t.Errorf("forced name = %q, want other", cfg.Main.Name)
	}
}

func TestUpdateGitignore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".gitignore")
	if err := os.WriteFile(path, []byte("node_modules/\nbuild/"), 0644); err != nil {
		t.Fatal(err)
	}

	entries := []string{"build/", "tmp/", ".velveeva/"}
	if err := updateGitignore(dir, entries); err != nil {
		t.Fatalf("updateGitignore: %v", err)
	}
	first, _ := os.ReadFile(path)
	want := "node_modules/\nbuild/\n\n# velveeva\ntmp/\n.velveeva/\n"
	if string(first) != want {
		t.Errorf(".gitignore = %q, want %q", first, want)
	}

	if err := updateGitignore(dir, entries); err != nil {
		t.Fatalf("second updateGitignore: %v", err)
	}
	second, _ := os.ReadFile(path)
	if string(second) != string(first) {
		t.Errorf("second update changed file:\n%s", second)
	}
}

func TestCleanEntry(t *testing.T) {
	tests := map[string]string{
		"./build":  "build/",
		"build/":   "build/",
		"./a/b/":   "a/b/",
		"tmp":      "tmp/",
		"./.cache": ".cache/",
	}
	for in, want := range tests {
		if got := cleanEntry(in); got != want {
			t.Errorf("cleanEntry(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDisplayConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Veeva.Password = "hunter2"

	t.Run("single key", func(t *testing.T) {
		var buf bytes.Buffer
		if err := displayConfigKey(&buf, cfg, "main.source_dir"); err != nil {
			t.Fatalf("displayConfigKey: %v", err)
		}
		if buf.String() != cfg.Main.SourceDir+"\n" {
			t.Errorf("output = %q", buf.String())
		}
	})

	t.Run("password masked", func(t *testing.T) {
		var buf bytes.Buffer
		if err := displayConfigKey(&buf, cfg, "VEEVA.password"); err != nil {
			t.Fatalf("displayConfigKey: %v", err)
		}
		if strings.Contains(buf.String(), "hunter2") {
			t.Errorf("password leaked: %q", buf.String())
		}
	})

	t.Run("section as yaml", func(t *testing.T) {
		var buf bytes.Buffer
		if err := displayConfigKey(&buf, cfg, "ss.full"); err != nil {
			t.Fatalf("displayConfigKey: %v", err)
		}
		if !strings.Contains(buf.String(), "width: 1024") {
			t.Errorf("section output = %q", buf.String())
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		if err := displayConfigKey(io.Discard, cfg, "MAIN.nope"); err == nil {
			t.Error("expected error for unknown key")
		}
	})

	t.Run("all keys", func(t *testing.T) {
		var buf bytes.Buffer
		if err := displayAllConfig(&buf, cfg); err != nil {
			t.Fatalf("displayAllConfig: %v", err)
		}
		out := buf.String()
		if strings.Contains(out, "hunter2") {
			t.Errorf("password leaked:\n%s", out)
		}
		for _, w := range []string{"MAIN.source_dir: ", "SS.thumb.width: 200", "VEEVA.password: ********"} {
			if !strings.Contains(out, w) {
				t.Errorf("output missing %q:\n%s", w, out)
			}
		}
	})
}

func TestFlaggedGoals(t *testing.T) {
	flags := pflag.NewFlagSet("go", pflag.ContinueOnError)
	for _, g := range goalNames() {
		flags.Bool(g, false, steps.GoalHelp[g])
	}
	flags.Bool("watch", false, "")

	if err := flags.Parse([]string{"--publish", "--clean", "--watch"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := flaggedGoals(flags)
	want := []string{"clean", "publish"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("flaggedGoals = %v, want %v", got, want)
	}
}

func TestGoCommandHasGoalFlags(t *testing.T) {
	for _, g := range goalNames() {
		if goCmd.Flags().Lookup(g) == nil {
			t.Errorf("go command missing --%s", g)
		}
	}
}

func TestFlaggedGoalsPipelineOrder(t *testing.T) {
	flags := pflag.NewFlagSet("go", pflag.ContinueOnError)
	for _, g := range goalNames() {
		flags.Bool(g, false, steps.GoalHelp[g])
	}
	if err := flags.Parse([]string{"--controlsonly", "--packageonly"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	got := flaggedGoals(flags)
	if strings.Join(got, ",") != "packageonly,controlsonly" {
		t.Fatalf("flaggedGoals = %v, want [packageonly controlsonly]", got)
	}
	plan := testPlan(t, got...)
	var order []build.TaskID
	for _, st := range plan.Stages {
		order = append(order, st.Tasks...)
	}
	want := []build.TaskID{steps.TaskPackageOnly, steps.TaskControlsOnly}
	if len(order) != len(want) || order[0] != want[0] || order[1] != want[1] {
		t.Errorf("plan order = %v, want %v", order, want)
	}
}

func TestDescribeChanges(t *testing.T) {
	tests := []struct {
		changed []string
		want    string
	}{
		{[]string{"src/a/a.html"}, "Changed: src/a/a.html"},
		{[]string{"a", "b"}, "2 changes: a, b"},
		{[]string{"a", "b", "c", "d", "e"}, "5 changes: a, b, c, ..."},
	}
	for _, tt := range tests {
		if got := describeChanges(tt.changed); got != tt.want {
			t.Errorf("describeChanges(%v) = %q, want %q", tt.changed, got, tt.want)
		}
	}
}

func TestRunGoalsCleanRecordsHistory(t *testing.T) {
	dir, cfgPath := newProject(t)
	if err := os.MkdirAll(filepath.Join(dir, "build", "old"), 0755); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	err := runGoals(context.Background(), goOptions{
		configPath: cfgPath,
		goals:      []string{"clean", "bogus"},
		out:        &out,
	})
	if err != nil {
		t.Fatalf("runGoals: %v\n%s", err, out.String())
	}

	if !strings.Contains(out.String(), `Unknown goal "bogus" ignored`) {
		t.Errorf("missing unknown goal warning:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "Build Complete") {
		t.Errorf("missing completion banner:\n%s", out.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "build")); !os.IsNotExist(err) {
		t.Errorf("build dir still exists: %v", err)
	}

	db, err := state.OpenProject(dir)
	if err != nil {
		t.Fatalf("OpenProject: %v", err)
	}
	defer db.Close()
	runs, err := db.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	if runs[0].Status != state.RunSucceeded || runs[0].ExitCode != build.ExitOK {
		t.Errorf("run = %+v", runs[0])
	}
	tasks, err := db.ListTasks(runs[0].ID)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Task != string(steps.TaskNuke) || tasks[0].Status != state.TaskCompleted {
		t.Errorf("tasks = %+v", tasks)
	}

	if _, err := os.Stat(build.DebugLogPath(dir)); err != nil {
		t.Errorf("debug log not written: %v", err)
	}
}

func TestRunGoalsDryRun(t *testing.T) {
	dir, cfgPath := newProject(t)

	var out bytes.Buffer
	err := runGoals(context.Background(), goOptions{
		configPath: cfgPath,
		goals:      []string{"dev"},
		dryRun:     true,
		out:        &out,
	})
	if err != nil {
		t.Fatalf("runGoals: %v", err)
	}
	if !strings.Contains(out.String(), "Plan:") {
		t.Errorf("dry run did not print plan:\n%s", out.String())
	}
	if _, err := os.Stat(state.ProjectDBPath(dir)); !os.IsNotExist(err) {
		t.Errorf("dry run opened history: %v", err)
	}
}

func TestRunGoalsPreHookFailure(t *testing.T) {
	dir, cfgPath := newProject(t)
	cfg, err := config.LoadFromPath(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Hooks.Pre = "exit 3"
	if err := config.Write(cfgPath, cfg, true); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	err = runGoals(context.Background(), goOptions{
		configPath: cfgPath,
		goals:      []string{"clean"},
		out:        &out,
	})
	var silent *silentError
	if !errors.As(err, &silent) {
		t.Fatalf("err = %v, want silentError", err)
	}
	if code := build.ExitCode(err); code != build.ExitHookFailed {
		t.Errorf("exit code = %d, want %d", code, build.ExitHookFailed)
	}
	if !strings.Contains(out.String(), "Build Failed") {
		t.Errorf("missing failure banner:\n%s", out.String())
	}

	db, err := state.OpenProject(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	runs, err := db.ListRuns(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Status != state.RunFailed || runs[0].ExitCode != build.ExitHookFailed {
		t.Errorf("runs = %+v", runs)
	}
}

func TestRunGoalsMissingConfig(t *testing.T) {
	err := runGoals(context.Background(), goOptions{
		configPath: filepath.Join(t.TempDir(), config.FileName),
		out:        io.Discard,
	})
	if err == nil {
		t.Fatal("expected error for missing config")
	}
}

func TestRunTasksIsolated(t *testing.T) {
	dir, cfgPath := newProject(t)
	if err := os.MkdirAll(filepath.Join(dir, "build", "old"), 0755); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	err := runGoals(context.Background(), goOptions{
		configPath: cfgPath,
		tasks:      []build.TaskID{steps.TaskNuke},
		out:        &out,
	})
	if err != nil {
		t.Fatalf("runGoals: %v\n%s", err, out.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "build")); !os.IsNotExist(err) {
		t.Errorf("build dir still exists: %v", err)
	}

	db, err := state.OpenProject(dir)
	if err != nil {
		t.Fatalf("OpenProject: %v", err)
	}
	defer db.Close()
	runs, err := db.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	if strings.Join(runs[0].Goals, ",") != "run:nuke" {
		t.Errorf("goals = %v, want [run:nuke]", runs[0].Goals)
	}
	tasks, err := db.ListTasks(runs[0].ID)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Task != string(steps.TaskNuke) {
		t.Errorf("tasks = %+v", tasks)
	}
}

func TestRunTasksUnknown(t *testing.T) {
	dir, cfgPath := newProject(t)

	var out bytes.Buffer
	err := runGoals(context.Background(), goOptions{
		configPath: cfgPath,
		tasks:      []build.TaskID{"nope"},
		out:        &out,
	})
	var silent *silentError
	if !errors.As(err, &silent) {
		t.Fatalf("err = %v, want silentError", err)
	}
	if !errors.Is(err, build.ErrUnknownTask) {
		t.Errorf("err = %v, want ErrUnknownTask", err)
	}
	if code := build.ExitCode(err); code != build.ExitPlanFailed {
		t.Errorf("ExitCode = %d, want %d", code, build.ExitPlanFailed)
	}
	if !strings.Contains(out.String(), "Build Failed") {
		t.Errorf("missing failure banner:\n%s", out.String())
	}
	if _, err := os.Stat(state.ProjectDBPath(dir)); !os.IsNotExist(err) {
		t.Errorf("history db created for a plan that never ran: %v", err)
	}
}

func TestListTasks(t *testing.T) {
	var buf bytes.Buffer
	if err := listTasks(&buf); err != nil {
		t.Fatalf("listTasks: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "TASK") {
		t.Errorf("missing header:\n%s", out)
	}
	for _, id := range []build.TaskID{steps.TaskNuke, steps.TaskSass, steps.TaskPackageOnly} {
		if !strings.Contains(out, string(id)) {
			t.Errorf("missing task %q:\n%s", id, out)
		}
	}
}

func TestHistoryOutput(t *testing.T) {
	dir := t.TempDir()
	db, err := state.OpenProject(dir)
	if err != nil {
		t.Fatalf("OpenProject: %v", err)
	}
	defer db.Close()

	var buf bytes.Buffer
	printRuns(&buf, nil)
	if !strings.Contains(buf.String(), "No builds recorded yet.") {
		t.Errorf("empty history output = %q", buf.String())
	}

	start := time.Now().Add(-time.Minute)
	run := state.NewRun([]string{"package"}, start)
	if err := db.CreateRun(run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := db.RecordTask(&state.TaskRecord{
		RunID: run.ID, Task: "sass", Stage: 1, Status: state.TaskFailed,
		Duration: 2 * time.Second, Error: "boom", RecordedAt: start,
	}); err != nil {
		t.Fatalf("RecordTask: %v", err)
	}
	run.Finish(&build.Result{Stages: 2, Failed: "sass"}, &build.ActionError{Task: "sass", Stage: 1, Cause: errors.New("boom")}, start.Add(3*time.Second))
	if err := db.FinishRun(run); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	runs, err := db.ListRuns(10)
	if err != nil {
		t.Fatal(err)
	}
	buf.Reset()
	printRuns(&buf, runs)
	line := buf.String()
	for _, w := range []string{shortID(run.ID), "failed", "3s", "package", "(sass)"} {
		if !strings.Contains(line, w) {
			t.Errorf("run line missing %q: %q", w, line)
		}
	}

	buf.Reset()
	if err := showRun(&buf, db, run.ID[:6]); err != nil {
		t.Fatalf("showRun: %v", err)
	}
	detail := buf.String()
	for _, w := range []string{"Run:      " + run.ID, "exit 1", "Stages:   2", "sass", "2s"} {
		if !strings.Contains(detail, w) {
			t.Errorf("detail missing %q:\n%s", w, detail)
		}
	}

	if err := showRun(io.Discard, db, "zzzz"); err == nil {
		t.Error("expected error for unknown run")
	}
}

func TestShortIDAndDayDuration(t *testing.T) {
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID(abc) = %q", got)
	}
	if got := shortID("0123456789"); got != "01234567" {
		t.Errorf("shortID = %q", got)
	}
	if got := dayDuration(2); got != 48*time.Hour {
		t.Errorf("dayDuration(2) = %v", got)
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	if !strings.HasPrefix(buf.String(), "velveeva version ") {
		t.Errorf("output = %q", buf.String())
	}
}
