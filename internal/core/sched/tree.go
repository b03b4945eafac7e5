package sched

import (
	"sort"

	"go.uber.org/zap"
)

// Attach queues child for attachment under parent and reports feasibility.
// It returns false, with no state change, when child already has a pending
// owner, when the attachment would close a cycle (including child == parent),
// when child is a root, or when either handle is stale. On success the
// child's pending owner is set immediately; the structural change itself
// commits at the next flush (synchronously, if nothing is being iterated).
func (w *World) Attach(child, parent NodeID) bool {
	c := w.node(child)
	p := w.node(parent)
	if c == nil || p == nil {
		w.log.Debug("attach on dead handle",
			zap.Uint64("child", uint64(child)), zap.Uint64("parent", uint64(parent)))
		return false
	}
	if child == parent || c.root {
		return false
	}
	if !c.pendingOwner.IsZero() {
		return false
	}
	// Cycle check walks pending owners upward from the parent; hitting the
	// child means the child is (or will be) an ancestor of the parent.
	for a := parent; !a.IsZero(); {
		if a == child {
			return false
		}
		an := w.node(a)
		if an == nil {
			break
		}
		a = an.pendingOwner
	}
	c.pendingOwner = parent
	w.enqueue(p, c, change{child: child, dest: parent})
	w.markDirty(parent)
	w.flush()
	return true
}

// Detach queues removal of child from parent. It returns false when child's
// pending owner is not parent: only the owner a child is headed for may let
// it go. On success the child's pending owner clears immediately; hooks fire
// when the removal commits.
func (w *World) Detach(child, parent NodeID) bool {
	c := w.node(child)
	p := w.node(parent)
	if c == nil || p == nil {
		return false
	}
	if c.pendingOwner != parent {
		return false
	}
	c.pendingOwner = 0
	w.enqueue(p, c, change{child: child})
	w.markDirty(parent)
	w.flush()
	return true
}

// enqueue stamps a record with the global request order and files it in the
// parent's queue and the child's pending-change sequence.
func (w *World) enqueue(parent, child *node, rec change) {
	w.nextChange++
	rec.seq = w.nextChange
	parent.queue = append(parent.queue, rec)
	child.pendingSeqs = append(child.pendingSeqs, rec.seq)
	w.queuedChanges++
}

// Cursor iterates a parent's committed children in cascade order. While any
// cursor over a parent is open, structural changes to that parent's children
// queue instead of applying, so the child a cursor is standing on stays
// visible until the walk ends.
type Cursor struct {
	w      *World
	parent NodeID
	pos    int
	cur    NodeID
	closed bool
}

// Children opens a cursor over parent's children. A cursor over a stale
// handle is empty. Close it by exhausting it or calling Stop.
func (w *World) Children(parent NodeID) *Cursor {
	c := &Cursor{w: w, parent: parent, pos: -1}
	n := w.node(parent)
	if n == nil {
		c.closed = true
		return c
	}
	if n.iterDepth == 0 {
		w.ensureSorted(n)
	}
	n.iterDepth++
	return c
}

// Next advances to the next child, reporting whether one exists. Exhaustion
// closes the cursor.
func (c *Cursor) Next() bool {
	if c.closed {
		return false
	}
	n := c.w.node(c.parent)
	if n == nil {
		c.closed = true
		return false
	}
	c.pos++
	if c.pos >= len(n.children) {
		c.close(n)
		return false
	}
	c.cur = n.children[c.pos]
	return true
}

// ID returns the child the cursor is standing on.
func (c *Cursor) ID() NodeID { return c.cur }

// Stop closes the cursor early. Safe to call on a closed cursor.
func (c *Cursor) Stop() {
	if c.closed {
		return
	}
	n := c.w.node(c.parent)
	if n == nil {
		c.closed = true
		return
	}
	c.close(n)
}

// Detach queues removal of the current child from the iterated parent. The
// child remains visible for the rest of this iteration.
func (c *Cursor) Detach() bool {
	if c.closed || c.cur.IsZero() {
		return false
	}
	return c.w.Detach(c.cur, c.parent)
}

func (c *Cursor) close(n *node) {
	c.closed = true
	n.iterDepth--
	if n.iterDepth == 0 {
		c.w.flush()
	}
}

// ensureSorted re-derives child order: descending priority, ties by
// ascending creation order. Only called when no cursor is open, so an
// in-flight walk never sees the order shift under it.
func (w *World) ensureSorted(n *node) {
	if n.childrenSorted {
		return
	}
	sort.Slice(n.children, func(i, j int) bool {
		a := w.nodes[n.children[i].index()]
		b := w.nodes[n.children[j].index()]
		if a.priority != b.priority {
			return a.priority > b.priority
		}
		return a.seq < b.seq
	})
	n.childrenSorted = true
}

func (w *World) markDirty(id NodeID) {
	n := w.nodes[id.index()]
	if !n.inDirty {
		n.inDirty = true
		w.dirty = append(w.dirty, id)
	}
}

// flush drains queued structural changes and deferred releases. It is a
// no-op while a flush is already running: the active drain will pick up
// anything hooks enqueue before it returns. A parent's queue is skipped
// while a cursor over its children is open, and a record is held back while
// the child's live owner is under iteration; held-back work is retried when
// the blocking cursor closes.
func (w *World) flush() {
	if w.flushing {
		return
	}
	w.flushing = true
	defer func() { w.flushing = false }()

	for progress := true; progress; {
		progress = false
		for i := 0; i < len(w.dirty); i++ {
			if w.drain(w.dirty[i]) {
				progress = true
			}
		}
		w.compactDirty()
		if w.drainReleases() {
			progress = true
		}
	}
}

// drain pops parent's queue in FIFO order, committing each record whose
// child's live owner is not under iteration. Reports whether anything
// committed.
func (w *World) drain(id NodeID) bool {
	n := w.node(id)
	if n == nil {
		return false
	}
	if n.iterDepth > 0 {
		return false
	}
	progress := false
	for len(n.queue) > 0 {
		rec := n.queue[0]
		if c := w.node(rec.child); c != nil {
			if len(c.pendingSeqs) > 0 && c.pendingSeqs[0] != rec.seq {
				break // an older change for this child is queued elsewhere
			}
			if !c.owner.IsZero() {
				if o := w.node(c.owner); o != nil && o.iterDepth > 0 {
					break // source container is being walked; retry later
				}
			}
		}
		n.queue = n.queue[1:]
		w.queuedChanges--
		if c := w.node(rec.child); c != nil && len(c.pendingSeqs) > 0 && c.pendingSeqs[0] == rec.seq {
			c.pendingSeqs = c.pendingSeqs[1:]
		}
		w.commit(rec)
		progress = true
		if n.iterDepth > 0 {
			break // a hook opened a cursor over this parent
		}
	}
	if len(n.queue) == 0 {
		n.inDirty = false
	}
	return progress
}

// commit applies one record: detach the child from whatever its live owner
// is right now, then attach it to the captured destination, firing the
// child's removed/added hooks for each half. No hop is elided even when a
// later record supersedes this destination.
func (w *World) commit(rec change) {
	child := w.node(rec.child)
	if child == nil {
		return // child released while the record was queued
	}
	if !child.owner.IsZero() {
		prev := child.owner
		if o := w.node(prev); o != nil {
			w.removeChild(o, rec.child)
		}
		child.owner = 0
		w.changesCommitted++
		if h, ok := child.behavior.(AttachHooks); ok {
			h.RemovedActions(w, rec.child, prev)
		}
		publish(w, DetachedEvent{Child: rec.child, Owner: prev})
	}
	if rec.dest.IsZero() {
		return
	}
	dest := w.node(rec.dest)
	if dest == nil {
		w.log.Warn("attach destination released before commit",
			zap.Uint64("child", uint64(rec.child)), zap.Uint64("dest", uint64(rec.dest)))
		return
	}
	// Re-fetch: a removal hook may have released the child.
	child = w.node(rec.child)
	if child == nil {
		return
	}
	dest.children = append(dest.children, rec.child)
	dest.childrenSorted = false
	child.owner = rec.dest
	w.changesCommitted++
	if h, ok := child.behavior.(AttachHooks); ok {
		h.AddedActions(w, rec.child, rec.dest)
	}
	publish(w, AttachedEvent{Child: rec.child, Owner: rec.dest})
}

func (w *World) removeChild(o *node, id NodeID) {
	for i, c := range o.children {
		if c == id {
			o.children = append(o.children[:i], o.children[i+1:]...)
			return
		}
	}
}

func (w *World) compactDirty() {
	kept := w.dirty[:0]
	for _, id := range w.dirty {
		if n := w.node(id); n != nil && n.inDirty {
			kept = append(kept, id)
		}
	}
	w.dirty = kept
}

// drainReleases frees every deferred subtree that has become safe: no open
// cursors and no queued changes anywhere below it.
func (w *World) drainReleases() bool {
	progress := false
	kept := w.releases[:0]
	for _, id := range w.releases {
		if w.node(id) == nil {
			progress = true // freed as part of an earlier subtree
			continue
		}
		if w.releasable(id) {
			w.free(id)
			progress = true
		} else {
			kept = append(kept, id)
		}
	}
	w.releases = kept
	return progress
}

func (w *World) releasable(id NodeID) bool {
	n := w.node(id)
	if n == nil {
		return false
	}
	if n.iterDepth > 0 || len(n.queue) > 0 {
		return false
	}
	for _, c := range n.children {
		if !w.releasable(c) {
			return false
		}
	}
	return true
}

// free recycles a subtree's slots. Children go with the released node; their
// handles become stale.
func (w *World) free(id NodeID) {
	n := w.node(id)
	if n == nil {
		return
	}
	for _, c := range n.children {
		if cn := w.node(c); cn != nil {
			cn.owner = 0
			cn.pendingOwner = 0
			w.free(c)
		}
	}
	w.nodes[id.index()] = nil
	w.pool.release(id)
	w.live--
}
