package system

import "time"

// Phase defines execution ordering within a single host-loop tick.
type Phase int

const (
	PhaseEvents  Phase = iota // 0: deliver last tick's engine notifications
	PhaseUpdate               // 1: drive the live root's frame
	PhaseObserve              // 2: export counters, log frame stats
)

// System is the interface every host-loop system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
