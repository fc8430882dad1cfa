package build

import (
	"fmt"
)

// StageKind classifies how a stage relates to the stage before it.
type StageKind int

const (
	// StageParallel is a stage of two or more sibling tasks.
	StageParallel StageKind = iota
	// StageChainLink is a single task whose only prerequisite is the single
	// task of the previous stage. It continues that stage's chain.
	StageChainLink
	// StageChainStart is a single task that begins a new chain: a root, a
	// join point with several prerequisites, or a task following a parallel stage.
	StageChainStart
)

// String returns the kind name used in plan output.
func (k StageKind) String() string {
	switch k {
	case StageParallel:
		return "parallel"
	case StageChainLink:
		return "chain-link"
	case StageChainStart:
		return "chain-start"
	default:
		return fmt.Sprintf("StageKind(%d)", int(k))
	}
}

// MarshalText encodes the kind as its name for JSON and YAML output.
func (k StageKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Stage is a set of tasks with no dependencies on each other whose
// prerequisites all belong to earlier stages.
type Stage struct {
	Index int       `json:"index" yaml:"index"`
	Tasks []TaskID  `json:"tasks" yaml:"tasks"`
	Kind  StageKind `json:"kind" yaml:"kind"`
	// Chain groups consecutive stages that form one sequential run.
	Chain int `json:"chain" yaml:"chain"`
}

// Parallel reports whether the stage holds more than one task.
func (s Stage) Parallel() bool {
	return len(s.Tasks) > 1
}

// Plan is an ordered sequence of stages.
type Plan struct {
	Requested []TaskID `json:"requested" yaml:"requested"`
	Stages    []Stage  `json:"stages" yaml:"stages"`
}

// Len returns the number of stages.
func (p *Plan) Len() int {
	return len(p.Stages)
}

// Tasks returns every task in the plan, stage by stage.
func (p *Plan) Tasks() []TaskID {
	var out []TaskID
	for _, s := range p.Stages {
		out = append(out, s.Tasks...)
	}
	return out
}

// StageOf returns the index of the stage containing id.
func (p *Plan) StageOf(id TaskID) (int, bool) {
	for _, s := range p.Stages {
		for _, t := range s.Tasks {
			if t == id {
				return s.Index, true
			}
		}
	}
	return -1, false
}

// Chains groups stage indices by chain, in chain order.
func (p *Plan) Chains() [][]int {
	var chains [][]int
	last := -1
	for _, s := range p.Stages {
		if s.Chain != last {
			chains = append(chains, nil)
			last = s.Chain
		}
		chains[len(chains)-1] = append(chains[len(chains)-1], s.Index)
	}
	return chains
}

// Compile drains the graph frontier by frontier into stages.
// If the frontier empties while nodes remain, the graph has a cycle and a
// *CyclicDependencyError naming the unresolved tasks is returned.
func Compile(g *DependencyGraph) (*Plan, error) {
	plan := &Plan{}
	chain := -1

	for {
		ready := g.Frontier()
		if len(ready) == 0 {
			break
		}

		stage := Stage{Index: len(plan.Stages), Tasks: ready}
		switch {
		case len(ready) > 1:
			stage.Kind = StageParallel
			chain++
		case extendsChain(g, ready[0], plan):
			stage.Kind = StageChainLink
		default:
			stage.Kind = StageChainStart
			chain++
		}
		stage.Chain = chain

		debugLog("[plan.Compile] stage %d (%s, chain %d): %v", stage.Index, stage.Kind, stage.Chain, stage.Tasks)
		plan.Stages = append(plan.Stages, stage)
		g.Advance(ready)
	}

	if !g.IsEmpty() {
		unresolved := g.Unresolved()
		debugLog("[plan.Compile] cycle detected, unresolved: %v", unresolved)
		return nil, &CyclicDependencyError{Unresolved: unresolved}
	}
	return plan, nil
}

// extendsChain reports whether id's sole prerequisite is the single task of
// the last stage in plan.
func extendsChain(g *DependencyGraph, id TaskID, plan *Plan) bool {
	if len(plan.Stages) == 0 {
		return false
	}
	prev := plan.Stages[len(plan.Stages)-1]
	if prev.Parallel() {
		return false
	}
	preds := g.Predecessors(id)
	return len(preds) == 1 && preds[0] == prev.Tasks[0]
}

// CompileRequest plans the requested tasks and everything they transitively
// require. When the closure has no dependency edges at all, each requested
// task becomes its own stage in request order and no graph is built.
func CompileRequest(reg *Registry, requested []TaskID) (*Plan, error) {
	reqs, err := reg.Requirements(requested)
	if err != nil {
		return nil, fmt.Errorf("plan %v: %w", requested, err)
	}

	ids := make([]TaskID, len(reqs))
	for i, r := range reqs {
		ids[i] = r.Task
	}
	if err := checkConflicts(reg, ids); err != nil {
		return nil, fmt.Errorf("plan %v: %w", requested, err)
	}

	if !hasEdges(reqs) {
		return sequentialPlan(requested), nil
	}

	g, err := NewDependencyGraph(reqs)
	if err != nil {
		return nil, fmt.Errorf("plan %v: %w", requested, err)
	}
	plan, err := Compile(g)
	if err != nil {
		return nil, fmt.Errorf("plan %v: %w", requested, err)
	}
	plan.Requested = append([]TaskID(nil), requested...)
	return plan, nil
}

// CompileIsolated plans the given tasks without their prerequisites, one
// stage per task in the order given. Every id must be registered; repeats
// run once.
func CompileIsolated(reg *Registry, ids []TaskID) (*Plan, error) {
	seen := make(map[TaskID]bool, len(ids))
	var unique []TaskID
	for _, id := range ids {
		if _, err := reg.Resolve(id); err != nil {
			return nil, fmt.Errorf("plan %v: %w", ids, err)
		}
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	ids = unique
	if err := checkConflicts(reg, ids); err != nil {
		return nil, fmt.Errorf("plan %v: %w", ids, err)
	}
	return sequentialPlan(ids), nil
}

// checkConflicts returns a *ConflictError for the first pair of ids that
// exclude each other. ids must all be registered.
func checkConflicts(reg *Registry, ids []TaskID) error {
	planned := make(map[TaskID]bool, len(ids))
	for _, id := range ids {
		planned[id] = true
	}
	for _, id := range ids {
		t, err := reg.Resolve(id)
		if err != nil {
			return err
		}
		for _, c := range t.Conflicts {
			if planned[c] {
				debugLog("[plan] %s conflicts with %s", id, c)
				return &ConflictError{Task: id, With: c}
			}
		}
	}
	return nil
}

func hasEdges(reqs []Requirement) bool {
	for _, r := range reqs {
		if len(r.Requires) > 0 {
			return true
		}
	}
	return false
}

func sequentialPlan(requested []TaskID) *Plan {
	plan := &Plan{Requested: append([]TaskID(nil), requested...)}
	seen := make(map[TaskID]bool)
	for _, id := range requested {
		if seen[id] {
			continue
		}
		seen[id] = true
		idx := len(plan.Stages)
		plan.Stages = append(plan.Stages, Stage{
			Index: idx,
			Tasks: []TaskID{id},
			Kind:  StageChainStart,
			Chain: idx,
		})
	}
	debugLog("[plan.CompileRequest] no dependencies, %d sequential stages", len(plan.Stages))
	return plan
}
