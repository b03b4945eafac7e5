package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorRecordsValues(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewFrameCollector(reg)
	if err != nil {
		t.Fatalf("NewFrameCollector: %v", err)
	}

	collector.ObserveFrame(2 * time.Millisecond)
	collector.SetWorldGauges(7, 2)
	collector.AddCumulative(10, 3, 4)
	collector.AddCumulative(1, 0, 1)

	if got := testutil.ToFloat64(collector.LiveNodes); got != 7 {
		t.Fatalf("engine_live_nodes = %v, want 7", got)
	}
	if got := testutil.ToFloat64(collector.QueuedChanges); got != 2 {
		t.Fatalf("engine_queued_changes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.UnitsConsumed); got != 11 {
		t.Fatalf("engine_time_units_consumed_total = %v, want 11", got)
	}
	if got := testutil.ToFloat64(collector.TimersFired); got != 3 {
		t.Fatalf("engine_timers_fired_total = %v, want 3", got)
	}
	if got := testutil.ToFloat64(collector.ChangesCommitted); got != 5 {
		t.Fatalf("engine_changes_committed_total = %v, want 5", got)
	}
}

func TestCollectorDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewFrameCollector(reg)
	if err != nil {
		t.Fatalf("NewFrameCollector: %v", err)
	}
	second, err := NewFrameCollector(reg)
	if err != nil {
		t.Fatalf("NewFrameCollector again: %v", err)
	}

	// The second collector adopts the already registered collectors.
	first.AddCumulative(0, 2, 0)
	second.AddCumulative(0, 3, 0)
	if got := testutil.ToFloat64(first.TimersFired); got != 5 {
		t.Fatalf("engine_timers_fired_total = %v, want 5", got)
	}
}

func TestMetricsHandlerExposesFrameMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewFrameCollector(reg)
	if err != nil {
		t.Fatalf("NewFrameCollector: %v", err)
	}
	collector.ObserveFrame(time.Millisecond)
	collector.SetWorldGauges(3, 1)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"engine_frame_duration_seconds",
		"engine_live_nodes",
		"engine_queued_changes",
		"engine_time_units_consumed_total",
		"engine_timers_fired_total",
		"engine_changes_committed_total",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
}
