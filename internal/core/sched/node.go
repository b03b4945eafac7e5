package sched

import "github.com/chronotree/engine/internal/core/fixed"

// Behavior is the logic carried by a node. FrameActions runs once per driven
// frame, after the node's clock has advanced and before its children run.
// A nil behavior is allowed; the node then only schedules its subtree.
type Behavior interface {
	FrameActions(w *World, self NodeID)
}

// AttachHooks is optionally implemented by a Behavior that wants to observe
// ownership changes. Hooks fire when a queued change commits: once per hop,
// so a node moved through several owners before a flush sees every
// intermediate pair, in order.
type AttachHooks interface {
	AddedActions(w *World, self, owner NodeID)
	RemovedActions(w *World, self, owner NodeID)
}

// RootHooks is optionally implemented by a root Behavior. EnterActions and
// ExitActions fire when the host designates the root live or retires it.
type RootHooks interface {
	EnterActions(w *World, self NodeID)
	ExitActions(w *World, self NodeID)
}

// TimerFunc is a registered countdown callback. It fires on the node's own
// clock: once per whole consumed time unit in which its countdown hits zero.
type TimerFunc func(w *World, self NodeID)

// inheritRate marks a node that takes its owner's resolved rate. Any
// negative factor means inherit; this is the canonical stored form.
const inheritRate = fixed.Value(-1)

// change is one queued structural request. dest is the captured destination
// owner for an attach, or zero for a pure detach. The child's source owner
// is deliberately not captured: a commit detaches from whatever the live
// owner is at flush time, which is what makes reassignment chains resolve
// hop by hop. seq is the global request order; a record may only commit when
// it is its child's oldest pending change, so hops never commit out of
// request order even when they sit in different parents' queues.
type change struct {
	child NodeID
	dest  NodeID
	seq   uint64
}

type node struct {
	seq      uint64 // monotonic creation order, never reused; the ordering tie-break
	root     bool
	active   bool
	behavior Behavior

	factor fixed.Value // negative = inherit owner's resolved rate
	acc    fixed.Value // fractional units carried between frames

	priority int

	owner        NodeID // committed owner, zero when unowned
	pendingOwner NodeID // owner after all queued changes flush

	children       []NodeID
	childrenSorted bool
	iterDepth      int // open cursors over children; >0 defers structural changes

	queue   []change // pending changes to this node's children, FIFO
	inDirty bool

	pendingSeqs []uint64 // seqs of queued changes naming this node as child, FIFO

	timers timerTable

	pendingRelease bool
}
