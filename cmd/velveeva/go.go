package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ShayCichocki/velveeva/internal/build"
	"github.com/ShayCichocki/velveeva/internal/config"
	iexec "github.com/ShayCichocki/velveeva/internal/exec"
	"github.com/ShayCichocki/velveeva/internal/git"
	"github.com/ShayCichocki/velveeva/internal/state"
	"github.com/ShayCichocki/velveeva/internal/steps"
	"github.com/ShayCichocki/velveeva/internal/tui"
	"github.com/ShayCichocki/velveeva/internal/watch"
)

var (
	goWatch   bool
	goTUI     bool
	goDryRun  bool
	goWorkers int
	goalFlags = map[string]*bool{}
)

var goCmd = &cobra.Command{
	Use:   "go [goal...]",
	Short: "Run a build",
	Long: `Run the tasks needed for the requested goals.

Goals can be given as flags (--package) or as arguments (package).
With no goals, velveeva cleans, packages and takes screenshots.
Unknown goals are reported and ignored.

Exit status: 0 on success, 1 when a task fails, 2 when no plan can be
built, 3 when a pre-flight or post-flight hook fails.

Examples:
  velveeva go                     # clean, package, screenshots
  velveeva go --publish           # full build and upload
  velveeva go dev                 # relative-link build, then watch
  velveeva go --bake --dry-run    # print the plan only`,
	RunE: func(cmd *cobra.Command, args []string) error {
		goals := append(flaggedGoals(cmd.Flags()), args...)
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runGoals(ctx, goOptions{
			configPath: configPath,
			goals:      goals,
			verbose:    verbose,
			watch:      goWatch,
			useTUI:     goTUI,
			dryRun:     goDryRun,
			workers:    goWorkers,
			out:        cmd.OutOrStdout(),
		})
	},
}

func init() {
	for _, g := range goalNames() {
		goalFlags[g] = goCmd.Flags().Bool(g, false, steps.GoalHelp[g])
	}
	goCmd.Flags().BoolVar(&goWatch, "watch", false, "Rebuild when sources change")
	goCmd.Flags().BoolVar(&goTUI, "tui", false, "Show the interactive progress view")
	goCmd.Flags().BoolVar(&goDryRun, "dry-run", false, "Print the plan without running it")
	goCmd.Flags().IntVar(&goWorkers, "workers", 0, "Parallel tasks per stage (default from config)")
}

// goalNames returns every goal, sorted.
func goalNames() []string {
	names := make([]string, 0, len(steps.Goals))
	for g := range steps.Goals {
		names = append(names, g)
	}
	sort.Strings(names)
	return names
}

// flaggedGoals returns the goals set as flags, in pipeline order.
func flaggedGoals(flags *pflag.FlagSet) []string {
	var goals []string
	for _, g := range steps.GoalOrder {
		if v, err := flags.GetBool(g); err == nil && v {
			goals = append(goals, g)
		}
	}
	return goals
}

type goOptions struct {
	configPath string
	goals      []string
	verbose    bool
	watch      bool
	useTUI     bool
	dryRun     bool
	workers    int
	out        io.Writer
	// tasks, when set, are run on their own instead of expanding goals.
	tasks []build.TaskID
	// deps overrides the action collaborators, mainly for tests.
	deps steps.Deps
}

// session is one invocation of `velveeva go`: a compiled plan and the
// environment it runs against.
type session struct {
	opts    goOptions
	cfg     *config.Config
	catalog *steps.Catalog
	plan    *build.Plan
	env     *build.Environment
	logger  *build.DebugLogger
	history state.HistoryStore
}

// runGoals plans the requested goals and runs them, once or on every change.
func runGoals(ctx context.Context, o goOptions) error {
	if o.out == nil {
		o.out = os.Stdout
	}
	cfg, err := loadConfig(o.configPath)
	if err != nil {
		return err
	}
	root := cfg.Root()

	logger := build.NewDebugLoggerForProject(root)
	build.SetLogger(logger)
	defer func() {
		build.SetLogger(nil)
		logger.Close()
	}()

	s := &session{opts: o, cfg: cfg, logger: logger}
	if err := s.compile(); err != nil {
		printBanner(o.out, "Build Failed", true)
		return &silentError{err: err}
	}

	if o.dryRun || o.verbose {
		fmt.Fprint(o.out, tui.RenderPlan(s.plan, tui.TaskMessages(s.plan, s.catalog.Registry)))
		fmt.Fprintln(o.out)
	}
	if o.dryRun {
		return nil
	}
	if s.plan.Len() == 0 {
		fprintStatus(o.out, "⚠", "Nothing to build", colorWarn)
		return nil
	}

	s.env = cfg.Environment(root, git.Version(git.NewRunner(root), nil), o.verbose)

	history, err := state.OpenProject(root)
	if err != nil {
		fprintStatus(o.out, "⚠", "Build history unavailable: "+err.Error(), colorWarn)
		logger.Log("[go] history disabled: %v", err)
	} else {
		s.history = history
		defer history.Close()
		if n, err := history.MarkInterrupted(time.Now()); err == nil && n > 0 {
			logger.Log("[go] marked %d stale runs interrupted", n)
		}
	}

	printBanner(o.out, s.env.Name, false)
	err = s.build(ctx)
	if !o.watch && !steps.WantsWatch(o.goals) {
		return err
	}
	return s.watch(ctx)
}

// compile expands the goals and builds the plan, reporting unknown goals.
func (s *session) compile() error {
	deps := s.opts.deps
	if deps.Workers == 0 {
		deps.Workers = s.workers()
	}
	catalog, err := steps.NewCatalog(deps)
	if err != nil {
		return err
	}
	s.catalog = catalog

	if len(s.opts.tasks) > 0 {
		plan, err := build.CompileIsolated(catalog.Registry, s.opts.tasks)
		if err != nil {
			fprintStatus(s.opts.out, "✗", err.Error(), colorError)
			return err
		}
		s.plan = plan
		s.logger.Log("[go] tasks %v planned without prerequisites", s.opts.tasks)
		return nil
	}

	plan, unknown, err := catalog.Plan(s.opts.goals)
	for _, g := range unknown {
		fprintStatus(s.opts.out, "⚠", fmt.Sprintf("Unknown goal %q ignored", g), colorWarn)
		s.logger.Log("[go] unknown goal %q ignored", g)
	}
	if err != nil {
		fprintStatus(s.opts.out, "✗", err.Error(), colorError)
		return err
	}
	s.plan = plan
	s.logger.Log("[go] goals %v compiled to %d stages", s.opts.goals, plan.Len())
	return nil
}

func (s *session) workers() int {
	if s.opts.workers > 0 {
		return s.opts.workers
	}
	return s.cfg.Build.Workers
}

// build runs the plan once, recording the outcome in the history.
func (s *session) build(ctx context.Context) error {
	goals := s.opts.goals
	switch {
	case len(s.opts.tasks) > 0:
		goals = nil
		for _, id := range s.opts.tasks {
			goals = append(goals, "run:"+string(id))
		}
	case len(goals) == 0:
		goals = steps.DefaultGoals
	}
	run := state.NewRun(goals, time.Now())
	var recorder build.EventSink
	if s.history != nil {
		if err := s.history.CreateRun(run); err != nil {
			s.logger.Log("[go] create run: %v", err)
		} else {
			recorder = state.NewRecorder(s.history, run.ID)
		}
	}

	var result *build.Result
	var err error
	if s.opts.useTUI && isTerminal() {
		result, err = s.runTUI(ctx, recorder)
	} else {
		sink := state.Tee{newEventPrinter(s.opts.out, s.opts.verbose), recorder}
		result, err = s.executor(sink).Run(ctx, s.plan, s.env)
	}

	run.Finish(result, err, time.Now())
	if s.history != nil {
		if ferr := s.history.FinishRun(run); ferr != nil {
			s.logger.Log("[go] finish run: %v", ferr)
		}
	}

	if err != nil {
		fprintStatus(s.opts.out, "✗", err.Error(), colorError)
		printBanner(s.opts.out, "Build Failed", true)
		return &silentError{err: err}
	}
	fprintStatus(s.opts.out, "✔", fmt.Sprintf("Done in %s", tui.FormatDuration(result.Duration)), colorOK)
	printBanner(s.opts.out, "Build Complete", false)
	return nil
}

func (s *session) executor(sink build.EventSink) *build.Executor {
	return build.NewExecutor(s.catalog.Registry,
		build.WithWorkers(s.workers()),
		build.WithEventSink(sink),
		build.WithHookRunner(iexec.NewRunner()),
	)
}

// runTUI runs the plan behind the bubbletea progress view.
func (s *session) runTUI(ctx context.Context, recorder build.EventSink) (*build.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	emitter := build.NewEventEmitter(64)
	program, _ := tui.NewBuildProgram(s.plan, s.catalog.Registry, cancel)

	forwarded := make(chan struct{})
	go func() {
		tui.Forward(emitter, program)
		close(forwarded)
	}()

	type outcome struct {
		result *build.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := s.executor(state.Tee{emitter, recorder}).Run(ctx, s.plan, s.env)
		emitter.Close()
		<-forwarded
		program.Send(tui.BuildDoneMsg{Result: result, Err: err})
		done <- outcome{result, err}
	}()

	if _, err := program.Run(); err != nil {
		cancel()
		s.logger.Log("[go] progress view: %v", err)
	}
	o := <-done
	return o.result, o.err
}

// watchIgnore lists editor and OS droppings that never trigger a rebuild.
var watchIgnore = []string{".*", "*~", "*.swp", "*.tmp", "Thumbs.db"}

// watch rebuilds on every settled batch of source changes until ctx ends.
func (s *session) watch(ctx context.Context) error {
	ig, err := steps.NewIgnore(watchIgnore...)
	if err != nil {
		return err
	}
	w, err := watch.ForEnvironment(s.env,
		watch.WithIgnore(ig),
		watch.WithErrorHandler(func(err error) { s.logger.Log("[watch] %v", err) }),
	)
	if err != nil {
		return err
	}
	defer w.Close()

	fprintStatus(s.opts.out, "…", "Watching for changes (Ctrl+C to stop)", colorInfo)
	return w.Run(ctx, func(changed []string) {
		fprintStatus(s.opts.out, "↻", describeChanges(changed), colorInfo)
		s.logger.Log("[watch] rebuilding after %d changes", len(changed))
		// Failures are reported by build; keep watching.
		_ = s.build(ctx)
	})
}

func describeChanges(changed []string) string {
	if len(changed) == 1 {
		return "Changed: " + changed[0]
	}
	shown := changed
	if len(shown) > 3 {
		shown = shown[:3]
	}
	msg := fmt.Sprintf("%d changes: %s", len(changed), strings.Join(shown, ", "))
	if len(changed) > len(shown) {
		msg += ", ..."
	}
	return msg
}
