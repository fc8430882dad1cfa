package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/ShayCichocki/velveeva/internal/build"
	"github.com/ShayCichocki/velveeva/internal/tui"
)

const (
	colorOK    = color.FgGreen
	colorWarn  = color.FgYellow
	colorError = color.FgRed
	colorInfo  = color.FgCyan
)

// bannerArt is printed before and after a build.
const bannerArt = ` _   ________ _   ___________   _____ 
| | / / __/ /| | / / __/ __| | / / _ |
| |/ / _// /_| |/ / _// _/ | |/ / __ |
|___/___/____|___/___/___/ |___/_/ |_|
`

// banner returns the ASCII banner with a centered subtitle.
func banner(subtitle string) string {
	if subtitle == "" {
		return bannerArt
	}
	width := len(strings.SplitN(bannerArt, "\n", 2)[0])
	label := " " + subtitle + " "
	pad := width - len(label)
	if pad < 2 {
		return bannerArt + label + "\n"
	}
	left := pad / 2
	return bannerArt + strings.Repeat("~", left) + label + strings.Repeat("~", pad-left) + "\n"
}

// printBanner writes the banner in yellow, or red when failed is set.
func printBanner(w io.Writer, subtitle string, failed bool) {
	c := color.New(color.FgYellow, color.Bold)
	if failed {
		c = color.New(color.FgRed, color.Bold)
	}
	c.Fprint(w, banner(subtitle))
}

// printStatus prints a status line with color
func printStatus(symbol, message string, colorAttr color.Attribute) {
	fprintStatus(os.Stdout, symbol, message, colorAttr)
}

func fprintStatus(w io.Writer, symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Fprintf(w, "%s %s\n", c.Sprint(symbol), message)
}

// isTerminal reports whether stdout is an interactive terminal.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// eventPrinter writes executor events as plain status lines. Task messages
// are always printed; completions and skips only when verbose.
type eventPrinter struct {
	w       io.Writer
	verbose bool
	mu      sync.Mutex
}

func newEventPrinter(w io.Writer, verbose bool) *eventPrinter {
	return &eventPrinter{w: w, verbose: verbose}
}

// Emit implements build.EventSink.
func (p *eventPrinter) Emit(e build.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch e.Type {
	case build.EventTaskStarted:
		fprintStatus(p.w, "→", e.Message, colorInfo)
	case build.EventHookStarted:
		fprintStatus(p.w, "→", "Running "+e.Message+" hook...", colorInfo)
	case build.EventTaskFailed:
		msg := string(e.Task) + " failed"
		if e.Error != nil {
			msg += ": " + e.Error.Error()
		}
		fprintStatus(p.w, "✗", msg, colorError)
	case build.EventTaskCompleted:
		if p.verbose {
			fprintStatus(p.w, "✔", fmt.Sprintf("%s (%s)", e.Task, tui.FormatDuration(e.Duration)), colorOK)
		}
	case build.EventTaskSkipped:
		if p.verbose {
			fprintStatus(p.w, "-", string(e.Task)+" skipped", colorWarn)
		}
	case build.EventStageStarted:
		if p.verbose {
			fmt.Fprintf(p.w, "stage %d: %s\n", e.Stage, e.Message)
		}
	case build.EventRunFinished:
		if p.verbose {
			fmt.Fprintf(p.w, "finished in %s\n", tui.FormatDuration(e.Duration.Round(time.Millisecond)))
		}
	}
}
