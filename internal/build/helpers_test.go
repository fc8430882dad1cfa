package build

import (
	"context"
	"testing"
)

func noop() Action {
	return ActionFunc(func(context.Context, *Environment, int) error { return nil })
}

// newTestRegistry registers one no-op task per key, requiring the listed IDs.
func newTestRegistry(t *testing.T, deps map[TaskID][]TaskID) *Registry {
	t.Helper()
	reg := NewRegistry()
	for id, requires := range deps {
		if err := reg.Register(Task{ID: id, Requires: requires, Action: noop()}); err != nil {
			t.Fatalf("Register(%s) error = %v", id, err)
		}
	}
	return reg
}

func stageSets(p *Plan) [][]TaskID {
	out := make([][]TaskID, len(p.Stages))
	for i, s := range p.Stages {
		out[i] = append([]TaskID(nil), s.Tasks...)
	}
	return out
}

func equalIDs(a, b []TaskID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
