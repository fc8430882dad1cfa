package steps

import (
	"fmt"

	"github.com/ShayCichocki/velveeva/internal/build"
)

// Task IDs.
const (
	TaskNuke         build.TaskID = "nuke"
	TaskScaffold     build.TaskID = "scaffold"
	TaskGlobals      build.TaskID = "globals"
	TaskLocals       build.TaskID = "locals"
	TaskSass         build.TaskID = "sass"
	TaskTemplates    build.TaskID = "templates"
	TaskRelink       build.TaskID = "relink"
	TaskVeev2Rel     build.TaskID = "veev2rel"
	TaskScreenshots  build.TaskID = "screenshots"
	TaskPackage      build.TaskID = "package"
	TaskControls     build.TaskID = "controls"
	TaskPublish      build.TaskID = "publish"
	TaskPackageOnly  build.TaskID = "package-only"
	TaskControlsOnly build.TaskID = "controls-only"
	TaskPublishOnly  build.TaskID = "publish-only"
)

// Goal names that need special handling by the CLI.
const (
	GoalDev = "dev"
)

// DefaultGoals run when no goal is requested.
var DefaultGoals = []string{"clean", "package", "screenshots"}

// Goals maps each goal to the tasks it requests.
var Goals = build.GoalTable{
	"bake":         {TaskSass, TaskTemplates},
	"clean":        {TaskNuke},
	"controls":     {TaskControls},
	"controlsonly": {TaskControlsOnly},
	GoalDev:        {TaskNuke, TaskVeev2Rel},
	"package":      {TaskPackage},
	"packageonly":  {TaskPackageOnly},
	"publish":      {TaskPublish},
	"publishonly":  {TaskPublishOnly},
	"relink":       {TaskRelink},
	"screenshots":  {TaskScreenshots},
	"veev2rel":     {TaskVeev2Rel},
}

// GoalOrder lists every goal in pipeline order. Goals given as flags are
// requested in this order, so the no-prerequisite "only" goals still
// package before generating controls and generate controls before publishing.
var GoalOrder = []string{
	"clean",
	GoalDev,
	"bake",
	"relink",
	"veev2rel",
	"screenshots",
	"package",
	"controls",
	"publish",
	"packageonly",
	"controlsonly",
	"publishonly",
}

// GoalHelp describes each goal for flag help text.
var GoalHelp = map[string]string{
	"bake":         "Compile templates and SASS",
	"clean":        "Remove old builds",
	"controls":     "Build, package and generate .ctl files",
	"controlsonly": "Only generate .ctl files from existing packages",
	GoalDev:        "Clean build with relative links, then watch for changes",
	"package":      "Build and package slides",
	"packageonly":  "Only package the existing build",
	"publish":      "Build, package, generate .ctl files and upload",
	"publishonly":  "Only upload existing packages and .ctl files",
	"relink":       "Rewrite links for the content platform",
	"screenshots":  "Build and take screenshots",
	"veev2rel":     "Rewrite veeva links as relative links",
}

// Steps binds the actions to their collaborators.
type Steps struct {
	deps Deps
}

// New creates the actions with deps, filling in defaults.
func New(deps Deps) *Steps {
	return &Steps{deps: deps.withDefaults()}
}

// Tasks returns the task table.
func (s *Steps) Tasks() []build.Task {
	return []build.Task{
		{ID: TaskNuke, Message: "Nuking old builds...", Action: build.ActionFunc(Nuke)},
		{ID: TaskScaffold, Requires: []build.TaskID{TaskNuke}, Message: "Creating directories...", Action: build.ActionFunc(Scaffold)},
		{ID: TaskGlobals, Requires: []build.TaskID{TaskScaffold}, Message: "Injecting globals...", Action: build.ActionFunc(s.Globals)},
		{ID: TaskLocals, Requires: []build.TaskID{TaskScaffold}, Message: "Copying local assets...", Action: build.ActionFunc(s.Locals)},
		{ID: TaskSass, Requires: []build.TaskID{TaskGlobals, TaskLocals}, Message: "Compiling SASS...", Action: build.ActionFunc(s.Sass)},
		{ID: TaskTemplates, Requires: []build.TaskID{TaskGlobals, TaskLocals}, Message: "Rendering templates...", Action: build.ActionFunc(s.Templates)},
		{ID: TaskRelink, Requires: []build.TaskID{TaskTemplates}, Conflicts: []build.TaskID{TaskVeev2Rel}, Message: "Relinking hrefs...", Action: build.ActionFunc(RelinkAction)},
		{ID: TaskVeev2Rel, Requires: []build.TaskID{TaskTemplates}, Conflicts: []build.TaskID{TaskRelink}, Message: "Converting veeva links...", Action: build.ActionFunc(Veev2RelAction)},
		{ID: TaskScreenshots, Requires: []build.TaskID{TaskSass, TaskTemplates}, Message: "Taking screenshots...", Action: build.ActionFunc(s.Screenshots)},
		{ID: TaskPackage, Requires: []build.TaskID{TaskScreenshots}, Message: "Packaging slides...", Action: build.ActionFunc(s.Package)},
		{ID: TaskControls, Requires: []build.TaskID{TaskPackage}, Message: "Generating .ctl files...", Action: build.ActionFunc(s.Controls)},
		{ID: TaskPublish, Requires: []build.TaskID{TaskControls}, Message: "Publishing to Veeva...", Action: build.ActionFunc(s.Publish)},
		{ID: TaskPackageOnly, Message: "Packaging slides...", Action: build.ActionFunc(s.Package)},
		{ID: TaskControlsOnly, Message: "Generating .ctl files...", Action: build.ActionFunc(s.Controls)},
		{ID: TaskPublishOnly, Message: "Publishing to Veeva...", Action: build.ActionFunc(s.Publish)},
	}
}

// Catalog is the registry and goal expander for a run.
type Catalog struct {
	Registry *build.Registry
	Goals    *build.GoalExpander
}

// NewCatalog registers every task and validates the goal table.
func NewCatalog(deps Deps) (*Catalog, error) {
	s := New(deps)
	reg := build.NewRegistry()
	for _, t := range s.Tasks() {
		if err := reg.Register(t); err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
	}
	goals, err := build.NewGoalExpander(Goals, reg)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return &Catalog{Registry: reg, Goals: goals}, nil
}

// Plan expands goals and compiles the plan. With no goals DefaultGoals are
// used. Unknown goals are returned for the caller to report.
func (c *Catalog) Plan(goals []string) (*build.Plan, []string, error) {
	if len(goals) == 0 {
		goals = DefaultGoals
	}
	tasks, unknown := c.Goals.Expand(goals)
	if len(tasks) == 0 {
		return &build.Plan{}, unknown, nil
	}
	plan, err := build.CompileRequest(c.Registry, tasks)
	return plan, unknown, err
}

// WantsWatch reports whether goals include the dev goal, which keeps
// rebuilding on change.
func WantsWatch(goals []string) bool {
	for _, g := range goals {
		if build.NormalizeGoal(g) == GoalDev {
			return true
		}
	}
	return false
}
