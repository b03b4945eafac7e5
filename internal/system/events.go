package system

import (
	"time"

	"github.com/chronotree/engine/internal/core/event"
	coresys "github.com/chronotree/engine/internal/core/system"
)

// EventDispatchSystem delivers the previous tick's engine notifications to
// bus subscribers. Phase 0 (Events).
type EventDispatchSystem struct {
	bus *event.Bus
}

func NewEventDispatchSystem(bus *event.Bus) *EventDispatchSystem {
	return &EventDispatchSystem{bus: bus}
}

func (s *EventDispatchSystem) Phase() coresys.Phase { return coresys.PhaseEvents }

func (s *EventDispatchSystem) Update(_ time.Duration) {
	s.bus.Rotate()
	s.bus.Dispatch()
}
