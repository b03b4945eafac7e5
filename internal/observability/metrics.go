// Package observability exposes the engine's frame loop counters as
// Prometheus metrics.
package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// FrameCollector bundles Prometheus metrics for the scheduling world and
// its host frame loop.
type FrameCollector struct {
	gatherer prometheus.Gatherer

	FrameDuration    prometheus.Histogram
	LiveNodes        prometheus.Gauge
	QueuedChanges    prometheus.Gauge
	UnitsConsumed    prometheus.Counter
	TimersFired      prometheus.Counter
	ChangesCommitted prometheus.Counter
}

// NewFrameCollector registers frame metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewFrameCollector(reg prometheus.Registerer) (*FrameCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	frames := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "engine_frame_duration_seconds",
		Help:    "Wall time spent driving one scheduling frame.",
		Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	})
	frames, err := registerHistogram(reg, frames, "engine_frame_duration_seconds")
	if err != nil {
		return nil, err
	}

	live, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "engine_live_nodes",
		Help: "Current number of live scheduled nodes.",
	}), "engine_live_nodes")
	if err != nil {
		return nil, err
	}
	queued, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "engine_queued_changes",
		Help: "Structural changes currently queued behind open iterations.",
	}), "engine_queued_changes")
	if err != nil {
		return nil, err
	}

	units, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_time_units_consumed_total",
		Help: "Cumulative whole time units consumed across all node clocks.",
	}), "engine_time_units_consumed_total")
	if err != nil {
		return nil, err
	}
	timers, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_timers_fired_total",
		Help: "Cumulative number of countdown timer callbacks fired.",
	}), "engine_timers_fired_total")
	if err != nil {
		return nil, err
	}
	changes, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_changes_committed_total",
		Help: "Cumulative number of ownership changes committed.",
	}), "engine_changes_committed_total")
	if err != nil {
		return nil, err
	}

	return &FrameCollector{
		gatherer:         gatherer,
		FrameDuration:    frames,
		LiveNodes:        live,
		QueuedChanges:    queued,
		UnitsConsumed:    units,
		TimersFired:      timers,
		ChangesCommitted: changes,
	}, nil
}

// ObserveFrame records one frame's wall time.
func (c *FrameCollector) ObserveFrame(d time.Duration) {
	if c == nil || c.FrameDuration == nil {
		return
	}
	c.FrameDuration.Observe(d.Seconds())
}

// SetWorldGauges updates the point-in-time gauges.
func (c *FrameCollector) SetWorldGauges(live, queued int) {
	if c == nil {
		return
	}
	if c.LiveNodes != nil {
		c.LiveNodes.Set(float64(live))
	}
	if c.QueuedChanges != nil {
		c.QueuedChanges.Set(float64(queued))
	}
}

// AddCumulative feeds deltas of the world's cumulative counters.
func (c *FrameCollector) AddCumulative(units, timers, changes uint64) {
	if c == nil {
		return
	}
	if c.UnitsConsumed != nil {
		c.UnitsConsumed.Add(float64(units))
	}
	if c.TimersFired != nil {
		c.TimersFired.Add(float64(timers))
	}
	if c.ChangesCommitted != nil {
		c.ChangesCommitted.Add(float64(changes))
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *FrameCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
