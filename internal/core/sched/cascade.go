package sched

import (
	"go.uber.org/zap"

	"github.com/chronotree/engine/internal/core/fixed"
)

// SetActive designates a root live or retires it, firing its enter/exit
// hooks. At most one root is live per world; activating a root retires the
// previous one first. DriveFrame drives the live root.
func (w *World) SetActive(id NodeID, active bool) error {
	n, err := w.lookup(id)
	if err != nil {
		return err
	}
	if !n.root {
		return ErrNotRoot
	}
	if active {
		if w.activeRoot == id {
			return nil
		}
		if prev := w.node(w.activeRoot); prev != nil {
			prevID := w.activeRoot
			prev.active = false
			if h, ok := prev.behavior.(RootHooks); ok {
				h.ExitActions(w, prevID)
			}
			publish(w, DeactivatedEvent{Root: prevID})
		}
		w.activeRoot = id
		n.active = true
		w.log.Debug("root activated", zap.Uint64("root", uint64(id)))
		if h, ok := n.behavior.(RootHooks); ok {
			h.EnterActions(w, id)
		}
		publish(w, ActivatedEvent{Root: id})
		return nil
	}
	if !n.active {
		return nil
	}
	n.active = false
	if w.activeRoot == id {
		w.activeRoot = 0
	}
	w.log.Debug("root deactivated", zap.Uint64("root", uint64(id)))
	if h, ok := n.behavior.(RootHooks); ok {
		h.ExitActions(w, id)
	}
	publish(w, DeactivatedEvent{Root: id})
	return nil
}

// ActiveRoot returns the live root, or zero when none is live.
func (w *World) ActiveRoot() NodeID { return w.activeRoot }

// DriveFrame is the host loop's once-per-frame entry point. It advances the
// clock for the live root's whole tree, firing due timers along the way,
// then runs the frame cascade over the same tree in priority order. A world
// with no live root does nothing.
func (w *World) DriveFrame() {
	root := w.activeRoot
	if w.node(root) == nil {
		return
	}
	w.framesDriven++
	w.advance(root, fixed.One)
	w.cascadeFrom(root)
}

// advance resolves the node's effective rate (its own non-negative factor,
// else the rate inherited from its owner), accumulates it, consumes whole
// units firing timers, then recurses into children passing the resolved
// rate down. An explicit override therefore scales its entire subtree until
// a deeper override replaces it.
func (w *World) advance(id NodeID, inherited fixed.Value) {
	n := w.node(id)
	if n == nil {
		return
	}
	rate := n.factor
	if rate < 0 {
		rate = inherited
	}
	n.acc = n.acc.Add(rate)
	for {
		// Timer callbacks may release this node; re-check every unit.
		n = w.node(id)
		if n == nil {
			return
		}
		if n.acc < fixed.One {
			break
		}
		n.acc = n.acc.Sub(fixed.One)
		w.unitsConsumed++
		w.fireDue(id)
	}
	cur := w.Children(id)
	for cur.Next() {
		w.advance(cur.ID(), rate)
	}
}

// fireDue consumes one whole unit of the node's timer table and invokes the
// callbacks that came due, in registration order.
func (w *World) fireDue(id NodeID) {
	n := w.node(id)
	if n == nil {
		return
	}
	due := n.timers.tick()
	for _, t := range due {
		fn := n.timers.fns[t]
		w.timersFired++
		fn(w, id)
		publish(w, TimerFiredEvent{Node: id, Timer: t})
		if w.node(id) == nil {
			return // callback released the node
		}
	}
}

// cascadeFrom runs the node's own frame actions, then its children in
// descending priority, ties by creation order. Attachment registers a child
// into its owner's cascade group, so driving the root reaches every live
// descendant exactly once.
func (w *World) cascadeFrom(id NodeID) {
	n := w.node(id)
	if n == nil {
		return
	}
	if n.behavior != nil {
		n.behavior.FrameActions(w, id)
	}
	cur := w.Children(id)
	for cur.Next() {
		w.cascadeFrom(cur.ID())
	}
}
