package build

import (
	"errors"
	"testing"
)

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register(Task{ID: "a", Action: noop()}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := reg.Register(Task{ID: "a", Action: noop()}); !errors.Is(err, ErrDuplicateTask) {
		t.Errorf("duplicate Register() error = %v, want ErrDuplicateTask", err)
	}
	if err := reg.Register(Task{ID: "", Action: noop()}); err == nil {
		t.Error("Register() with empty id should fail")
	}
	if err := reg.Register(Task{ID: "b"}); err == nil {
		t.Error("Register() with nil action should fail")
	}
}

func TestRegistry_RegisterCopiesRequires(t *testing.T) {
	reg := NewRegistry()
	requires := []TaskID{"x"}
	reg.MustRegister(Task{ID: "a", Requires: requires, Action: noop()})
	requires[0] = "mutated"

	got, err := reg.Requires("a")
	if err != nil {
		t.Fatalf("Requires() error = %v", err)
	}
	if !equalIDs(got, []TaskID{"x"}) {
		t.Errorf("Requires() = %v, want [x]", got)
	}
}

func TestRegistry_MustRegisterPanics(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(Task{ID: "a", Action: noop()})

	defer func() {
		if recover() == nil {
			t.Error("MustRegister() should panic on duplicate")
		}
	}()
	reg.MustRegister(Task{ID: "a", Action: noop()})
}

func TestRegistry_Resolve(t *testing.T) {
	reg := newTestRegistry(t, map[TaskID][]TaskID{"a": nil})

	task, err := reg.Resolve("a")
	if err != nil || task.ID != "a" {
		t.Fatalf("Resolve(a) = %v, %v", task, err)
	}

	_, err = reg.Resolve("missing")
	var ute *UnknownTaskError
	if !errors.As(err, &ute) || ute.ID != "missing" {
		t.Errorf("Resolve(missing) error = %v, want UnknownTaskError", err)
	}
	if !errors.Is(err, ErrUnknownTask) {
		t.Error("error should match ErrUnknownTask")
	}
}

func TestRegistry_IDsKeepsRegistrationOrder(t *testing.T) {
	reg := NewRegistry()
	for _, id := range []TaskID{"c", "a", "b"} {
		reg.MustRegister(Task{ID: id, Action: noop()})
	}
	if got := reg.IDs(); !equalIDs(got, []TaskID{"c", "a", "b"}) {
		t.Errorf("IDs() = %v", got)
	}
}

func TestRegistry_Requirements(t *testing.T) {
	reg := newTestRegistry(t, map[TaskID][]TaskID{
		"a":      {"b", "c"},
		"b":      {"d"},
		"c":      {"d"},
		"d":      nil,
		"unused": nil,
	})

	reqs, err := reg.Requirements([]TaskID{"a"})
	if err != nil {
		t.Fatalf("Requirements() error = %v", err)
	}
	if len(reqs) != 4 {
		t.Fatalf("got %d requirements, want 4: %v", len(reqs), reqs)
	}
	if reqs[0].Task != "a" {
		t.Errorf("first requirement = %s, want a", reqs[0].Task)
	}
	for _, r := range reqs {
		if r.Task == "unused" {
			t.Error("closure should not include unrequested task")
		}
	}
}

func TestRegistry_RequirementsUnknown(t *testing.T) {
	tests := []struct {
		name       string
		requested  []TaskID
		wantID     TaskID
		wantParent TaskID
	}{
		{name: "requested directly", requested: []TaskID{"nope"}, wantID: "nope"},
		{name: "required transitively", requested: []TaskID{"a"}, wantID: "ghost", wantParent: "b"},
	}

	reg := newTestRegistry(t, map[TaskID][]TaskID{
		"a": {"b"},
		"b": {"ghost"},
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Requirements(tt.requested)
			var ute *UnknownTaskError
			if !errors.As(err, &ute) {
				t.Fatalf("error = %v, want UnknownTaskError", err)
			}
			if ute.ID != tt.wantID || ute.RequiredBy != tt.wantParent {
				t.Errorf("got %+v, want ID=%s RequiredBy=%s", ute, tt.wantID, tt.wantParent)
			}
		})
	}
}
