package system

import (
	"time"

	"github.com/chronotree/engine/internal/core/sched"
	coresys "github.com/chronotree/engine/internal/core/system"
	"github.com/chronotree/engine/internal/observability"
)

// DriveSystem advances the live root by one frame each tick and times it.
// Phase 1 (Update).
type DriveSystem struct {
	world   *sched.World
	metrics *observability.FrameCollector
}

// NewDriveSystem creates the frame driver. metrics may be nil.
func NewDriveSystem(world *sched.World, metrics *observability.FrameCollector) *DriveSystem {
	return &DriveSystem{world: world, metrics: metrics}
}

func (s *DriveSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *DriveSystem) Update(_ time.Duration) {
	start := time.Now()
	s.world.DriveFrame()
	s.metrics.ObserveFrame(time.Since(start))
}
