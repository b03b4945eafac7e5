package sched_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronotree/engine/internal/core/event"
	"github.com/chronotree/engine/internal/core/fixed"
	"github.com/chronotree/engine/internal/core/sched"
)

func TestSpawnAndRelease(t *testing.T) {
	f := newFixture()
	a := f.spawn("A")
	require.True(t, f.w.Alive(a))
	assert.Equal(t, 1, f.w.Live())

	require.NoError(t, f.w.Release(a))
	assert.False(t, f.w.Alive(a))
	assert.Equal(t, 0, f.w.Live())

	// The stale handle keeps failing even after the slot is recycled.
	b := f.spawn("B")
	require.True(t, f.w.Alive(b))
	assert.False(t, f.w.Alive(a))
}

func TestStaleHandleErrors(t *testing.T) {
	f := newFixture()
	a := f.spawn("A")
	require.NoError(t, f.w.Release(a))

	assert.ErrorIs(t, f.w.SetTimeFactor(a, fixed.One), sched.ErrStaleNode)
	assert.ErrorIs(t, f.w.SetFramePriority(a, 1), sched.ErrStaleNode)
	assert.ErrorIs(t, f.w.Release(a), sched.ErrStaleNode)
	_, err := f.w.RegisterTimer(a, func(w *sched.World, self sched.NodeID) {})
	assert.ErrorIs(t, err, sched.ErrStaleNode)

	assert.ErrorIs(t, f.w.SetTimeFactor(0, fixed.One), sched.ErrNilNode)
}

func TestNegativeTimeFactorRejected(t *testing.T) {
	f := newFixture()
	a := f.spawn("A")
	assert.ErrorIs(t, f.w.SetTimeFactor(a, fixed.FromInt(-1)), sched.ErrNegativeRate)

	// Clearing back to inherit goes through the dedicated call.
	require.NoError(t, f.w.SetTimeFactor(a, fixed.FromFloat(0.25)))
	v, explicit, err := f.w.TimeFactor(a)
	require.NoError(t, err)
	assert.True(t, explicit)
	assert.Equal(t, fixed.FromFloat(0.25), v)

	require.NoError(t, f.w.InheritTimeFactor(a))
	_, explicit, err = f.w.TimeFactor(a)
	require.NoError(t, err)
	assert.False(t, explicit)
}

func TestReleaseRefusesAttachedNodes(t *testing.T) {
	f := newFixture()
	a := f.spawn("A")
	x := f.spawn("X")
	require.True(t, f.w.Attach(x, a))

	assert.ErrorIs(t, f.w.Release(x), sched.ErrOwned)

	require.True(t, f.w.Detach(x, a))
	assert.NoError(t, f.w.Release(x))
}

func TestReleaseFreesSubtree(t *testing.T) {
	f := newFixture()
	a := f.spawn("A")
	x := f.spawn("X")
	y := f.spawn("Y")
	require.True(t, f.w.Attach(x, a))
	require.True(t, f.w.Attach(y, x))

	require.NoError(t, f.w.Release(a))
	assert.False(t, f.w.Alive(a))
	assert.False(t, f.w.Alive(x))
	assert.False(t, f.w.Alive(y))
	assert.Equal(t, 0, f.w.Live())
}

func TestReleaseDeferredUnderIteration(t *testing.T) {
	f := newFixture()
	a := f.spawn("A")
	x := f.spawn("X")
	require.True(t, f.w.Attach(x, a))

	cur := f.w.Children(a)
	require.True(t, cur.Next())
	require.NoError(t, f.w.Release(a))
	assert.True(t, f.w.Alive(a), "release waits for the open cursor")
	assert.True(t, f.w.Alive(x))

	cur.Stop()
	assert.False(t, f.w.Alive(a))
	assert.False(t, f.w.Alive(x))
}

func TestActivationLifecycle(t *testing.T) {
	f := newFixture()
	r1 := f.spawnRoot("R1")
	r2 := f.spawnRoot("R2")
	plain := f.spawn("plain")

	assert.ErrorIs(t, f.w.SetActive(plain, true), sched.ErrNotRoot)

	require.NoError(t, f.w.SetActive(r1, true))
	assert.Equal(t, r1, f.w.ActiveRoot())
	assert.Equal(t, []string{"enter R1"}, f.j.entries)

	// Activating another root retires the current one first.
	f.j.entries = nil
	require.NoError(t, f.w.SetActive(r2, true))
	assert.Equal(t, r2, f.w.ActiveRoot())
	assert.Equal(t, []string{"exit R1", "enter R2"}, f.j.entries)

	assert.ErrorIs(t, f.w.Release(r2), sched.ErrActiveRoot)

	f.j.entries = nil
	require.NoError(t, f.w.SetActive(r2, false))
	assert.Equal(t, sched.NodeID(0), f.w.ActiveRoot())
	assert.Equal(t, []string{"exit R2"}, f.j.entries)
	require.NoError(t, f.w.Release(r2))
}

func TestDriveFrameWithoutActiveRoot(t *testing.T) {
	f := newFixture()
	f.spawnRoot("R")
	f.w.DriveFrame() // nothing live, nothing to do
	assert.Empty(t, f.j.entries)
	assert.Equal(t, uint64(0), f.w.Stats().FramesDriven)
}

func TestStatsCounters(t *testing.T) {
	f := newFixture()
	r := f.spawnRoot("R")
	c := f.spawn("C")
	require.True(t, f.w.Attach(c, r))
	require.NoError(t, f.w.SetActive(r, true))

	tid, err := f.w.RegisterTimer(c, func(w *sched.World, self sched.NodeID) {})
	require.NoError(t, err)
	require.NoError(t, f.w.SetTimer(c, tid, 1))

	f.w.DriveFrame()
	s := f.w.Stats()
	assert.Equal(t, uint64(1), s.FramesDriven)
	assert.Equal(t, uint64(2), s.UnitsConsumed, "root and child each consumed one unit")
	assert.Equal(t, uint64(1), s.TimersFired)
	assert.Equal(t, uint64(1), s.ChangesCommitted)
	assert.Equal(t, 2, s.Live)
	assert.Equal(t, 0, s.QueuedChanges)
}

func TestBusPublishesStructuralNotifications(t *testing.T) {
	bus := event.NewBus()
	w := sched.NewWorld(sched.WithBus(bus))

	var attached []sched.AttachedEvent
	var detached []sched.DetachedEvent
	event.Subscribe(bus, func(ev sched.AttachedEvent) { attached = append(attached, ev) })
	event.Subscribe(bus, func(ev sched.DetachedEvent) { detached = append(detached, ev) })

	a := w.Spawn(nil)
	x := w.Spawn(nil)
	require.True(t, w.Attach(x, a))
	require.True(t, w.Detach(x, a))

	// Nothing is delivered until the host rotates and dispatches.
	assert.Empty(t, attached)
	bus.Rotate()
	bus.Dispatch()

	require.Len(t, attached, 1)
	assert.Equal(t, sched.AttachedEvent{Child: x, Owner: a}, attached[0])
	require.Len(t, detached, 1)
	assert.Equal(t, sched.DetachedEvent{Child: x, Owner: a}, detached[0])
}
