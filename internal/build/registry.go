package build

import (
	"fmt"
	"sync"
)

// Registry maps task IDs to their prerequisites and actions.
// It is populated once at startup and read-only afterwards.
type Registry struct {
	mu    sync.RWMutex
	tasks map[TaskID]*Task
	order []TaskID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tasks: make(map[TaskID]*Task),
	}
}

// Register adds a task. It fails if the ID is empty, has no action, or is
// already registered. Prerequisites may name tasks registered later; unknown
// prerequisites are reported when a graph is built.
func (r *Registry) Register(t Task) error {
	if t.ID == "" {
		return fmt.Errorf("register task: empty id")
	}
	if t.Action == nil {
		return fmt.Errorf("register task %q: nil action", t.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[t.ID]; exists {
		return fmt.Errorf("register task %q: %w", t.ID, ErrDuplicateTask)
	}

	requires := make([]TaskID, len(t.Requires))
	copy(requires, t.Requires)
	t.Requires = requires
	t.Conflicts = append([]TaskID(nil), t.Conflicts...)

	r.tasks[t.ID] = &t
	r.order = append(r.order, t.ID)
	return nil
}

// MustRegister is like Register but panics on error.
// Intended for compiled-in task tables.
func (r *Registry) MustRegister(t Task) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Resolve returns the task registered under id.
func (r *Registry) Resolve(id TaskID) (*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, &UnknownTaskError{ID: id}
	}
	return t, nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id TaskID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tasks[id]
	return ok
}

// Requires returns the prerequisites of id.
func (r *Registry) Requires(id TaskID) ([]TaskID, error) {
	t, err := r.Resolve(id)
	if err != nil {
		return nil, err
	}
	out := make([]TaskID, len(t.Requires))
	copy(out, t.Requires)
	return out, nil
}

// IDs returns all registered task IDs in registration order.
func (r *Registry) IDs() []TaskID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]TaskID, len(r.order))
	copy(out, r.order)
	return out
}

// Requirements walks the requires closure of the requested tasks and returns
// one Requirement per reachable task, in discovery order. A requested or
// required ID that is not registered yields an *UnknownTaskError.
func (r *Registry) Requirements(requested []TaskID) ([]Requirement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[TaskID]bool)
	var reqs []Requirement

	type item struct {
		id, requiredBy TaskID
	}
	queue := make([]item, 0, len(requested))
	for _, id := range requested {
		queue = append(queue, item{id: id})
	}

	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if seen[next.id] {
			continue
		}

		t, ok := r.tasks[next.id]
		if !ok {
			return nil, &UnknownTaskError{ID: next.id, RequiredBy: next.requiredBy}
		}
		seen[next.id] = true

		requires := make([]TaskID, len(t.Requires))
		copy(requires, t.Requires)
		reqs = append(reqs, Requirement{Task: t.ID, Requires: requires})

		for _, dep := range t.Requires {
			if !seen[dep] {
				queue = append(queue, item{id: dep, requiredBy: t.ID})
			}
		}
	}

	debugLog("[registry.Requirements] %d requested -> %d reachable tasks", len(requested), len(reqs))
	return reqs, nil
}
