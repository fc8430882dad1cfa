package build

import (
	"context"
	"strings"
	"testing"
)

func TestExpandCommand(t *testing.T) {
	env := &Environment{
		Root: "/proj",
		Dirs: Dirs{SourceDir: "src", OutputDir: "build", TempDir: "/tmp/v"},
	}

	got := ExpandCommand("sass {src}/a.scss {out}/{name}.css --tmp {temp}", env, map[string]string{"name": "main"})
	want := "sass /proj/src/a.scss /proj/build/main.css --tmp /tmp/v"
	if got != want {
		t.Errorf("ExpandCommand() = %q, want %q", got, want)
	}
}

func TestCommandAction_Execute(t *testing.T) {
	runner := &fakeRunner{fail: map[string]bool{"false /proj": true}}
	env := &Environment{Root: "/proj"}

	ok := NewCommandAction(runner, "echo {root}")
	if err := ok.Execute(context.Background(), env, 0); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(runner.commands) != 1 || runner.commands[0] != "echo /proj" {
		t.Errorf("commands = %v", runner.commands)
	}

	bad := NewCommandAction(runner, "false {root}")
	err := bad.Execute(context.Background(), env, 0)
	if err == nil || !strings.Contains(err.Error(), "hook output") {
		t.Errorf("Execute() error = %v, want output in message", err)
	}

	empty := NewCommandAction(runner, "   ")
	if err := empty.Execute(context.Background(), env, 0); err == nil {
		t.Error("Execute() with empty command should fail")
	}
}
