package scripting

import (
	"fmt"

	"github.com/chronotree/engine/internal/core/fixed"
	"github.com/chronotree/engine/internal/core/sched"
	"github.com/chronotree/engine/internal/data"
)

// Scene is a scene table instantiated into a world: the spawned root
// handles plus a two-way name index over every node built from the table.
type Scene struct {
	Roots []sched.NodeID

	names map[sched.NodeID]string
	ids   map[string]sched.NodeID
}

// Name returns the scene name of a node, or "" for nodes the scene does
// not know (including the zero handle).
func (s *Scene) Name(id sched.NodeID) string {
	return s.names[id]
}

// ID returns the node handle for a scene name, or the zero handle.
func (s *Scene) ID(name string) sched.NodeID {
	return s.ids[name]
}

// BuildScene spawns the table's trees into the world. Each node gets a
// ScriptBehavior wired to its declared handlers, its priority and time
// factor, and its timers armed. Children attach under their parents as
// they are built, so on_added handlers fire during the build.
func BuildScene(w *sched.World, eng *Engine, tbl *data.SceneTable) (*Scene, error) {
	s := &Scene{
		names: make(map[sched.NodeID]string),
		ids:   make(map[string]sched.NodeID),
	}
	for i := range tbl.Roots {
		id, err := s.build(w, eng, &tbl.Roots[i], 0)
		if err != nil {
			return nil, err
		}
		s.Roots = append(s.Roots, id)
	}
	return s, nil
}

func (s *Scene) build(w *sched.World, eng *Engine, sn *data.SceneNode, parent sched.NodeID) (sched.NodeID, error) {
	b := &ScriptBehavior{
		eng:       eng,
		scene:     s,
		name:      sn.Name,
		onFrame:   sn.OnFrame,
		onAdded:   sn.OnAdded,
		onRemoved: sn.OnRemoved,
		onEnter:   sn.OnEnter,
		onExit:    sn.OnExit,
	}
	var id sched.NodeID
	if parent.IsZero() {
		id = w.SpawnRoot(b)
	} else {
		id = w.Spawn(b)
	}
	s.names[id] = sn.Name
	s.ids[sn.Name] = id

	if sn.TimeFactor != nil {
		if err := w.SetTimeFactor(id, fixed.FromFloat(*sn.TimeFactor)); err != nil {
			return 0, fmt.Errorf("scene node %q: %w", sn.Name, err)
		}
	}
	if sn.Priority != 0 {
		if err := w.SetFramePriority(id, int(sn.Priority)); err != nil {
			return 0, fmt.Errorf("scene node %q: %w", sn.Name, err)
		}
	}
	for _, tm := range sn.Timers {
		tid, err := w.RegisterTimer(id, eng.TimerFunc(tm.Handler, sn.Name))
		if err != nil {
			return 0, fmt.Errorf("scene node %q timer %q: %w", sn.Name, tm.Handler, err)
		}
		if err := w.SetTimer(id, tid, tm.Countdown); err != nil {
			return 0, fmt.Errorf("scene node %q timer %q: %w", sn.Name, tm.Handler, err)
		}
	}

	// The parent exists before any of its children, so the attach commits
	// immediately and on_added fires here, in document order.
	if !parent.IsZero() && !w.Attach(id, parent) {
		return 0, fmt.Errorf("scene node %q: cannot attach under %q", sn.Name, s.names[parent])
	}

	for i := range sn.Children {
		if _, err := s.build(w, eng, &sn.Children[i], id); err != nil {
			return 0, err
		}
	}
	return id, nil
}
