package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/chronotree/engine/internal/core/sched"
	coresys "github.com/chronotree/engine/internal/core/system"
	"github.com/chronotree/engine/internal/observability"
)

// StatsSystem exports the world's counters after each frame and logs a
// periodic summary. Phase 2 (Observe).
type StatsSystem struct {
	world   *sched.World
	metrics *observability.FrameCollector
	log     *zap.Logger

	prev     sched.Stats
	interval uint64 // frames between log lines
}

// NewStatsSystem creates the observer. metrics may be nil.
func NewStatsSystem(world *sched.World, metrics *observability.FrameCollector, log *zap.Logger) *StatsSystem {
	return &StatsSystem{
		world:    world,
		metrics:  metrics,
		log:      log,
		interval: 600,
	}
}

func (s *StatsSystem) Phase() coresys.Phase { return coresys.PhaseObserve }

func (s *StatsSystem) Update(_ time.Duration) {
	st := s.world.Stats()
	s.metrics.SetWorldGauges(st.Live, st.QueuedChanges)
	s.metrics.AddCumulative(
		st.UnitsConsumed-s.prev.UnitsConsumed,
		st.TimersFired-s.prev.TimersFired,
		st.ChangesCommitted-s.prev.ChangesCommitted,
	)
	s.prev = st

	if s.interval > 0 && st.FramesDriven > 0 && st.FramesDriven%s.interval == 0 {
		s.log.Info("frame stats",
			zap.Uint64("frames", st.FramesDriven),
			zap.Uint64("units", st.UnitsConsumed),
			zap.Uint64("timers_fired", st.TimersFired),
			zap.Int("live", st.Live),
		)
	}
}
