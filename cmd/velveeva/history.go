package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/velveeva/internal/state"
	"github.com/ShayCichocki/velveeva/internal/tui"
)

var (
	historyLimit int
	historyPurge int
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recent builds",
	Long: `List recent builds of this project, newest first.

With a run ID (or a unique prefix of one), show that run's tasks.
History is stored in .velveeva/history.db under the project root.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		db, err := state.OpenProject(cfg.Root())
		if err != nil {
			return err
		}
		defer db.Close()

		w := cmd.OutOrStdout()
		if historyPurge > 0 {
			n, err := db.PurgeOldRuns(dayDuration(historyPurge))
			if err != nil {
				return err
			}
			fprintStatus(w, "✔", fmt.Sprintf("Purged %d runs older than %d days", n, historyPurge), colorOK)
			return nil
		}
		if len(args) == 1 {
			return showRun(w, db, args[0])
		}
		runs, err := db.ListRuns(historyLimit)
		if err != nil {
			return err
		}
		printRuns(w, runs)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of runs to list (0 for all)")
	historyCmd.Flags().IntVar(&historyPurge, "purge", 0, "Delete runs older than this many days")
}

// printRuns writes one line per run.
func printRuns(w io.Writer, runs []state.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No builds recorded yet.")
		return
	}
	for _, r := range runs {
		line := fmt.Sprintf("%s  %s  %-11s  %-8s  %s",
			shortID(r.ID),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			statusColor(r.Status).Sprint(r.Status),
			tui.FormatDuration(r.Duration()),
			strings.Join(r.Goals, ","))
		if r.FailedTask != "" {
			line += "  (" + r.FailedTask + ")"
		}
		fmt.Fprintln(w, line)
	}
}

// showRun prints the details and task records of one run.
func showRun(w io.Writer, store state.HistoryStore, idPrefix string) error {
	r, err := store.FindRun(idPrefix)
	if err != nil {
		return err
	}
	if r == nil {
		return fmt.Errorf("no run matches %q", idPrefix)
	}
	tasks, err := store.ListTasks(r.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Run:      %s\n", r.ID)
	fmt.Fprintf(w, "Goals:    %s\n", strings.Join(r.Goals, ", "))
	fmt.Fprintf(w, "Status:   %s (exit %d)\n", statusColor(r.Status).Sprint(r.Status), r.ExitCode)
	fmt.Fprintf(w, "Started:  %s\n", r.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Duration: %s\n", tui.FormatDuration(r.Duration()))
	fmt.Fprintf(w, "Stages:   %d\n", r.Stages)
	if r.Error != "" {
		fmt.Fprintf(w, "Error:    %s\n", r.Error)
	}
	if len(tasks) > 0 {
		fmt.Fprintln(w)
		for _, t := range tasks {
			fmt.Fprintf(w, "  %2d  %-14s %-9s %s\n", t.Stage, t.Task, t.Status, tui.FormatDuration(t.Duration))
		}
	}
	return nil
}

func statusColor(s state.RunStatus) *color.Color {
	switch s {
	case state.RunSucceeded:
		return color.New(colorOK)
	case state.RunFailed, state.RunInterrupted:
		return color.New(colorError)
	default:
		return color.New(colorWarn)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func dayDuration(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}
