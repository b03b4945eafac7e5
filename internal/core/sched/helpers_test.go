package sched_test

import (
	"fmt"

	"github.com/chronotree/engine/internal/core/sched"
)

// journal records hook invocations in order so tests can assert sequencing
// across nodes.
type journal struct {
	entries []string
}

func (j *journal) add(format string, args ...any) {
	j.entries = append(j.entries, fmt.Sprintf(format, args...))
}

// fixture bundles a world with a name table so journal entries read as
// "removed X from A" instead of raw handles.
type fixture struct {
	w     *sched.World
	j     journal
	names map[sched.NodeID]string
}

func newFixture() *fixture {
	return &fixture{
		w:     sched.NewWorld(),
		names: make(map[sched.NodeID]string),
	}
}

func (f *fixture) name(id sched.NodeID) string {
	if n, ok := f.names[id]; ok {
		return n
	}
	return fmt.Sprintf("#%d", id)
}

func (f *fixture) spawn(name string) sched.NodeID {
	id := f.w.Spawn(&recorder{f: f, name: name})
	f.names[id] = name
	return id
}

func (f *fixture) spawnRoot(name string) sched.NodeID {
	id := f.w.SpawnRoot(&recorder{f: f, name: name})
	f.names[id] = name
	return id
}

// childrenOf drains a cursor into a slice.
func (f *fixture) childrenOf(id sched.NodeID) []sched.NodeID {
	var out []sched.NodeID
	cur := f.w.Children(id)
	for cur.Next() {
		out = append(out, cur.ID())
	}
	return out
}

// recorder implements Behavior and every optional hook interface, writing
// each invocation into the fixture's journal. The on* fields let individual
// tests inject extra work at hook time.
type recorder struct {
	f    *fixture
	name string

	onFrame   func(w *sched.World, self sched.NodeID)
	onAdded   func(w *sched.World, self, owner sched.NodeID)
	onRemoved func(w *sched.World, self, owner sched.NodeID)
}

func (r *recorder) FrameActions(w *sched.World, self sched.NodeID) {
	r.f.j.add("frame %s", r.name)
	if r.onFrame != nil {
		r.onFrame(w, self)
	}
}

func (r *recorder) AddedActions(w *sched.World, self, owner sched.NodeID) {
	r.f.j.add("added %s to %s", r.name, r.f.name(owner))
	if r.onAdded != nil {
		r.onAdded(w, self, owner)
	}
}

func (r *recorder) RemovedActions(w *sched.World, self, owner sched.NodeID) {
	r.f.j.add("removed %s from %s", r.name, r.f.name(owner))
	if r.onRemoved != nil {
		r.onRemoved(w, self, owner)
	}
}

func (r *recorder) EnterActions(w *sched.World, self sched.NodeID) {
	r.f.j.add("enter %s", r.name)
}

func (r *recorder) ExitActions(w *sched.World, self sched.NodeID) {
	r.f.j.add("exit %s", r.name)
}
