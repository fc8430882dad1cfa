package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/velveeva/internal/build"
	"github.com/ShayCichocki/velveeva/internal/steps"
)

var (
	runDryRun  bool
	runWorkers int
)

var runCmd = &cobra.Command{
	Use:   "run [task...]",
	Short: "Run single tasks without their prerequisites",
	Long: `Run one or more registered tasks on their own, in the order given.

Unlike "velveeva go", prerequisites are not run first, so "velveeva run sass"
recompiles stylesheets against the existing build without cleaning or
copying assets again. This is the quickest way to retry a task that failed.

With no arguments, the registered tasks are listed.

Exit status: 0 on success, 1 when a task fails, 2 for an unknown task,
3 when a hook fails.

Examples:
  velveeva run                  # list tasks
  velveeva run sass             # recompile stylesheets only
  velveeva run package-only controls-only`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return listTasks(cmd.OutOrStdout())
		}
		ids := make([]build.TaskID, len(args))
		for i, a := range args {
			ids[i] = build.TaskID(a)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runGoals(ctx, goOptions{
			configPath: configPath,
			tasks:      ids,
			verbose:    verbose,
			dryRun:     runDryRun,
			workers:    runWorkers,
			out:        cmd.OutOrStdout(),
		})
	},
}

func init() {
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Print the plan without running it")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "Per-task concurrency (default from config)")
}

// listTasks writes every registered task with its prerequisites.
func listTasks(w io.Writer) error {
	catalog, err := steps.NewCatalog(steps.Deps{})
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK\tREQUIRES\tDESCRIPTION")
	for _, id := range catalog.Registry.IDs() {
		t, err := catalog.Registry.Resolve(id)
		if err != nil {
			return err
		}
		requires := "-"
		if len(t.Requires) > 0 {
			requires = joinIDs(t.Requires)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", id, requires, t.Message)
	}
	return tw.Flush()
}

func joinIDs(ids []build.TaskID) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += ","
		}
		out += string(id)
	}
	return out
}
