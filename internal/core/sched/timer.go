package sched

// TimerID names a registered timer callback on one node. IDs are issued by
// RegisterTimer and are unique across the world, so two callbacks with equal
// behavior can never alias each other.
type TimerID uint64

// timerTable holds a node's registered callbacks and their armed countdowns.
// Registration is permanent for the node's lifetime; the armed map only has
// an entry while a countdown is running.
type timerTable struct {
	order []TimerID // registration order; the documented firing order
	fns   map[TimerID]TimerFunc
	armed map[TimerID]int64
}

func (t *timerTable) register(id TimerID, fn TimerFunc) {
	if t.fns == nil {
		t.fns = make(map[TimerID]TimerFunc, 4)
		t.armed = make(map[TimerID]int64, 4)
	}
	t.order = append(t.order, id)
	t.fns[id] = fn
}

func (t *timerTable) known(id TimerID) bool {
	_, ok := t.fns[id]
	return ok
}

func (t *timerTable) arm(id TimerID, countdown int64) {
	t.armed[id] = countdown
}

func (t *timerTable) disarm(id TimerID) {
	delete(t.armed, id)
}

func (t *timerTable) get(id TimerID) (int64, bool) {
	n, ok := t.armed[id]
	return n, ok
}

// tick consumes one whole time unit. Every armed countdown above zero is
// decremented first; only then does every timer sitting at zero fire, in
// registration order, each disarmed before its callback runs so the callback
// can re-arm it. Returns the ids that fired.
func (t *timerTable) tick() []TimerID {
	var due []TimerID
	for _, id := range t.order {
		n, ok := t.armed[id]
		if !ok {
			continue
		}
		if n > 0 {
			n--
			t.armed[id] = n
		}
		if n == 0 {
			due = append(due, id)
		}
	}
	for _, id := range due {
		delete(t.armed, id)
	}
	return due
}
