package build

import (
	"fmt"
	"sort"
	"strings"
)

// GoalTable maps a user-facing goal name to the tasks it requests.
type GoalTable map[string][]TaskID

// GoalExpander turns goal names into a de-duplicated list of task IDs.
type GoalExpander struct {
	table GoalTable
}

// NewGoalExpander validates the table against the registry. Every task named
// by a goal must be registered.
func NewGoalExpander(table GoalTable, reg *Registry) (*GoalExpander, error) {
	normalized := make(GoalTable, len(table))
	for goal, ids := range table {
		for _, id := range ids {
			if !reg.Has(id) {
				return nil, fmt.Errorf("goal %q: %w", goal, &UnknownTaskError{ID: id})
			}
		}
		cp := make([]TaskID, len(ids))
		copy(cp, ids)
		normalized[NormalizeGoal(goal)] = cp
	}
	return &GoalExpander{table: normalized}, nil
}

// NormalizeGoal lower-cases a goal and strips leading dashes, so "--bake",
// "bake" and "BAKE" name the same goal.
func NormalizeGoal(goal string) string {
	return strings.ToLower(strings.TrimLeft(strings.TrimSpace(goal), "-"))
}

// Expand returns the tasks requested by goals, keeping first-seen order and
// dropping duplicates. Unknown goal names do not abort expansion; they are
// returned in unknown so the caller can warn about them.
func (e *GoalExpander) Expand(goals []string) (tasks []TaskID, unknown []string) {
	seen := make(map[TaskID]bool)
	for _, goal := range goals {
		ids, ok := e.table[NormalizeGoal(goal)]
		if !ok {
			debugLog("[goals.Expand] ignoring unknown goal %q", goal)
			unknown = append(unknown, goal)
			continue
		}
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			tasks = append(tasks, id)
		}
	}
	debugLog("[goals.Expand] goals=%v -> tasks=%v", goals, tasks)
	return tasks, unknown
}

// Known reports whether goal is in the table.
func (e *GoalExpander) Known(goal string) bool {
	_, ok := e.table[NormalizeGoal(goal)]
	return ok
}

// Goals returns the goal names in sorted order.
func (e *GoalExpander) Goals() []string {
	names := make([]string, 0, len(e.table))
	for name := range e.table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tasks returns the tasks a single goal denotes.
func (e *GoalExpander) Tasks(goal string) []TaskID {
	ids := e.table[NormalizeGoal(goal)]
	out := make([]TaskID, len(ids))
	copy(out, ids)
	return out
}
