package build

import (
	"context"
	"fmt"
	"strings"

	iexec "github.com/ShayCichocki/velveeva/internal/exec"
)

// CommandAction runs a shell command in the project root.
// The command may reference project directories with {root}, {src}, {out},
// {globals}, {templates}, {partials} and {temp}, and any key of Vars.
type CommandAction struct {
	Runner  iexec.CommandRunner
	Command string
	Vars    map[string]string
}

// NewCommandAction creates a CommandAction using runner.
func NewCommandAction(runner iexec.CommandRunner, command string) *CommandAction {
	return &CommandAction{Runner: runner, Command: command}
}

// Execute expands the command against env and runs it through the shell.
func (a *CommandAction) Execute(ctx context.Context, env *Environment, stage int) error {
	cmd := ExpandCommand(a.Command, env, a.Vars)
	if strings.TrimSpace(cmd) == "" {
		return fmt.Errorf("empty command")
	}
	out, err := a.Runner.RunShell(ctx, env.Root, cmd)
	if env.Verbose && len(out) > 0 {
		debugLog("[command] %s\n%s", cmd, out)
	}
	if err != nil {
		return fmt.Errorf("%s: %w: %s", cmd, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// ExpandCommand substitutes {name} placeholders in command. Keys in vars take
// precedence over the project directory names.
func ExpandCommand(command string, env *Environment, vars map[string]string) string {
	values := map[string]string{
		"root":      env.Root,
		"src":       env.SourcePath(),
		"out":       env.OutputPath(),
		"globals":   env.GlobalsPath(),
		"templates": env.TemplatesPath(),
		"partials":  env.PartialsPath(),
		"temp":      env.TempPath(),
	}
	for k, v := range vars {
		values[k] = v
	}

	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(command)
}

var _ Action = (*CommandAction)(nil)
