package sched

// Notifications published to the optional event bus. These are delivered
// out-of-band by the host loop's dispatch; the synchronous hook contract on
// Behavior is unaffected.

// AttachedEvent fires when a queued attachment commits.
type AttachedEvent struct {
	Child NodeID
	Owner NodeID
}

// DetachedEvent fires when a child leaves an owner, including the
// intermediate hops of a reassignment chain.
type DetachedEvent struct {
	Child NodeID
	Owner NodeID
}

// ActivatedEvent fires when a root becomes live.
type ActivatedEvent struct {
	Root NodeID
}

// DeactivatedEvent fires when a live root is retired.
type DeactivatedEvent struct {
	Root NodeID
}

// TimerFiredEvent fires after a timer callback has run.
type TimerFiredEvent struct {
	Node  NodeID
	Timer TimerID
}
