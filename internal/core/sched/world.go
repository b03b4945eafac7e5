// Package sched is the engine's scheduling core: an arena-allocated tree of
// nodes that each accumulate fixed-point time, run countdown timers, and
// take part in a priority-ordered per-frame callback cascade. Structural
// changes requested while the tree is being walked are queued and committed
// when the walk finishes.
//
// The world is confined to a single goroutine (the host's frame loop);
// nothing in this package locks.
package sched

import (
	"errors"

	"go.uber.org/zap"

	"github.com/chronotree/engine/internal/core/event"
	"github.com/chronotree/engine/internal/core/fixed"
)

// Precondition failures. Structural feasibility (cycles, double attach,
// unauthorized detach) is reported as a plain false so callers can probe;
// these errors are for misuse that a correct caller never commits.
var (
	ErrNilNode      = errors.New("sched: zero node handle")
	ErrStaleNode    = errors.New("sched: stale or released node handle")
	ErrNegativeRate = errors.New("sched: time factor must not be negative")
	ErrNilTimerFunc = errors.New("sched: nil timer callback")
	ErrUnknownTimer = errors.New("sched: timer not registered on this node")
	ErrNotRoot      = errors.New("sched: node is not a root")
	ErrOwned        = errors.New("sched: node is attached or pending attachment")
	ErrActiveRoot   = errors.New("sched: root is still active")
)

// Stats is a snapshot of the world's cumulative counters.
type Stats struct {
	FramesDriven     uint64
	UnitsConsumed    uint64
	TimersFired      uint64
	ChangesCommitted uint64
	Live             int
	QueuedChanges    int
}

// World owns the node arena and everything scheduled in it.
type World struct {
	pool  *pool
	nodes []*node // parallel to pool slots; nil when free

	nextSeq    uint64
	nextTimer  TimerID
	nextChange uint64

	activeRoot NodeID

	dirty    []NodeID // parents with queued changes, FIFO
	releases []NodeID
	flushing bool

	framesDriven     uint64
	unitsConsumed    uint64
	timersFired      uint64
	changesCommitted uint64
	queuedChanges    int
	live             int

	log *zap.Logger
	bus *event.Bus
}

// Option configures a World at construction.
type Option func(*World)

// WithLogger attaches a structured logger. The default is a nop logger.
func WithLogger(log *zap.Logger) Option {
	return func(w *World) {
		if log != nil {
			w.log = log
		}
	}
}

// WithBus publishes structural notifications (attach, detach, activation,
// timer firing) to the given bus for out-of-band consumers. Hook invocation
// stays synchronous regardless.
func WithBus(b *event.Bus) Option {
	return func(w *World) { w.bus = b }
}

func NewWorld(opts ...Option) *World {
	w := &World{
		pool:  newPool(),
		nodes: make([]*node, 1, 1024),
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Spawn creates a detached, attachable node carrying the given behavior
// (which may be nil). The node is frozen until attached under an active
// root, directly or transitively.
func (w *World) Spawn(b Behavior) NodeID {
	return w.spawn(b, false)
}

// SpawnRoot creates an unowned root node. Roots can never be attached; they
// resolve an unset time factor to unit rate instead of inheriting.
func (w *World) SpawnRoot(b Behavior) NodeID {
	return w.spawn(b, true)
}

func (w *World) spawn(b Behavior, root bool) NodeID {
	id := w.pool.create()
	idx := int(id.index())
	for idx >= len(w.nodes) {
		w.nodes = append(w.nodes, nil)
	}
	w.nextSeq++
	w.nodes[idx] = &node{
		seq:            w.nextSeq,
		root:           root,
		behavior:       b,
		factor:         inheritRate,
		childrenSorted: true,
	}
	w.live++
	return id
}

// Alive reports whether id names a live node.
func (w *World) Alive(id NodeID) bool {
	return w.pool.alive(id)
}

// node returns the slot for a live handle, or nil.
func (w *World) node(id NodeID) *node {
	if !w.pool.alive(id) {
		return nil
	}
	return w.nodes[id.index()]
}

func (w *World) lookup(id NodeID) (*node, error) {
	if id.IsZero() {
		return nil, ErrNilNode
	}
	n := w.node(id)
	if n == nil {
		return nil, ErrStaleNode
	}
	return n, nil
}

// Owner returns the committed owner of id, or zero when unowned or stale.
func (w *World) Owner(id NodeID) NodeID {
	n := w.node(id)
	if n == nil {
		return 0
	}
	return n.owner
}

// PendingOwner returns the owner id will have once queued changes flush.
func (w *World) PendingOwner(id NodeID) NodeID {
	n := w.node(id)
	if n == nil {
		return 0
	}
	return n.pendingOwner
}

// SetTimeFactor sets an explicit units-per-frame rate for the node. The
// resolved rate, not the raw factor, is what children inherit, so an
// override here scales the whole subtree until a deeper override replaces
// it. Negative rates are rejected; use InheritTimeFactor to clear.
func (w *World) SetTimeFactor(id NodeID, f fixed.Value) error {
	if f < 0 {
		return ErrNegativeRate
	}
	n, err := w.lookup(id)
	if err != nil {
		return err
	}
	n.factor = f
	return nil
}

// InheritTimeFactor clears the node's explicit rate. An owned node then
// takes its owner's resolved rate; an unowned root runs at unit rate; an
// unowned non-root is frozen.
func (w *World) InheritTimeFactor(id NodeID) error {
	n, err := w.lookup(id)
	if err != nil {
		return err
	}
	n.factor = inheritRate
	return nil
}

// TimeFactor returns the node's rate and whether it is explicit. For an
// inheriting node the returned value is zero.
func (w *World) TimeFactor(id NodeID) (fixed.Value, bool, error) {
	n, err := w.lookup(id)
	if err != nil {
		return 0, false, err
	}
	if n.factor < 0 {
		return 0, false, nil
	}
	return n.factor, true, nil
}

// SetFramePriority reorders the node among its siblings. Higher priorities
// run earlier in the cascade; ties break by creation order. The owner's
// child order is re-derived at the next fresh iteration, so an open cursor
// is never disturbed mid-walk.
func (w *World) SetFramePriority(id NodeID, priority int) error {
	n, err := w.lookup(id)
	if err != nil {
		return err
	}
	if n.priority == priority {
		return nil
	}
	n.priority = priority
	if o := w.node(n.owner); o != nil {
		o.childrenSorted = false
	}
	return nil
}

// FramePriority returns the node's cascade ordering key.
func (w *World) FramePriority(id NodeID) (int, error) {
	n, err := w.lookup(id)
	if err != nil {
		return 0, err
	}
	return n.priority, nil
}

// RegisterTimer installs a countdown callback on the node and returns its
// handle. The timer is created disarmed; arm it with SetTimer.
func (w *World) RegisterTimer(id NodeID, fn TimerFunc) (TimerID, error) {
	n, err := w.lookup(id)
	if err != nil {
		return 0, err
	}
	if fn == nil {
		return 0, ErrNilTimerFunc
	}
	w.nextTimer++
	n.timers.register(w.nextTimer, fn)
	return w.nextTimer, nil
}

// SetTimer arms (countdown >= 0) or disarms (countdown < 0) a registered
// timer. A countdown of n fires after the node consumes n whole time units;
// a countdown of zero fires on the next consumed unit.
func (w *World) SetTimer(id NodeID, timer TimerID, countdown int64) error {
	n, err := w.lookup(id)
	if err != nil {
		return err
	}
	if !n.timers.known(timer) {
		return ErrUnknownTimer
	}
	if countdown < 0 {
		n.timers.disarm(timer)
		return nil
	}
	n.timers.arm(timer, countdown)
	return nil
}

// Timer returns the remaining countdown for a timer, and false when the
// timer is not armed (including unknown timers and stale nodes).
func (w *World) Timer(id NodeID, timer TimerID) (int64, bool) {
	n := w.node(id)
	if n == nil {
		return 0, false
	}
	return n.timers.get(timer)
}

// Release returns a detached subtree's slots to the arena. The node must
// have no owner and no pending owner, and an active root must be retired
// first. If the subtree is under iteration or still has queued changes, the
// release is deferred and honored by the flush that follows.
func (w *World) Release(id NodeID) error {
	n, err := w.lookup(id)
	if err != nil {
		return err
	}
	if !n.owner.IsZero() || !n.pendingOwner.IsZero() {
		return ErrOwned
	}
	if n.root && n.active {
		return ErrActiveRoot
	}
	if n.pendingRelease {
		return nil
	}
	n.pendingRelease = true
	w.releases = append(w.releases, id)
	w.flush()
	return nil
}

// Live returns the number of live nodes.
func (w *World) Live() int { return w.live }

// Stats snapshots the world's counters.
func (w *World) Stats() Stats {
	return Stats{
		FramesDriven:     w.framesDriven,
		UnitsConsumed:    w.unitsConsumed,
		TimersFired:      w.timersFired,
		ChangesCommitted: w.changesCommitted,
		Live:             w.live,
		QueuedChanges:    w.queuedChanges,
	}
}

// publish emits a notification when a bus is attached.
func publish[T any](w *World, ev T) {
	if w.bus != nil {
		event.Emit(w.bus, ev)
	}
}
