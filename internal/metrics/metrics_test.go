package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewTimer(t *testing.T) {
	timer := NewTimer()
	if timer == nil {
		t.Fatal("NewTimer returned nil")
	}
	if timer.start.IsZero() {
		t.Error("timer start time was not set")
	}
}

func TestTimerDuration(t *testing.T) {
	timer := NewTimer()
	time.Sleep(10 * time.Millisecond)
	d := timer.Duration()
	if d < 10*time.Millisecond {
		t.Errorf("expected duration >= 10ms, got %v", d)
	}
}

func TestTimerObserveDuration(t *testing.T) {
	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "test_timer_observe_duration",
	})
	timer := NewTimer()
	time.Sleep(5 * time.Millisecond)
	timer.ObserveDuration(histogram)
}

func TestTimerObserveDurationVec(t *testing.T) {
	histogram := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "test_timer_observe_duration_vec",
	}, []string{"op"})
	timer := NewTimer()
	time.Sleep(5 * time.Millisecond)
	timer.ObserveDurationVec(histogram, "create")
}

func TestTimerConsistency(t *testing.T) {
	timer := NewTimer()
	d1 := timer.Duration()
	time.Sleep(5 * time.Millisecond)
	d2 := timer.Duration()
	if d2 <= d1 {
		t.Errorf("expected later duration %v to exceed earlier %v", d2, d1)
	}
}

func TestCollectorStartStopIdempotent(t *testing.T) {
	c := NewCollector(5*time.Millisecond, func() map[string]int {
		return map[string]int{"running": 2, "stopped": 1}
	}, func() (int, int) {
		return 3, 0
	})
	c.Start()
	c.Start()
	time.Sleep(20 * time.Millisecond)
	c.Stop()
	c.Stop()
}

func TestCollectorSamplesGauges(t *testing.T) {
	c := NewCollector(5*time.Millisecond, func() map[string]int {
		return map[string]int{"running": 4}
	}, func() (int, int) {
		return 7, 2
	})
	c.sample()
	if got := testutil.ToFloat64(CreateQueueDepth); got != 7 {
		t.Errorf("expected create queue depth 7, got %v", got)
	}
	if got := testutil.ToFloat64(StopQueueDepth); got != 2 {
		t.Errorf("expected stop queue depth 2, got %v", got)
	}
}
