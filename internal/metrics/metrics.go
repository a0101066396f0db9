package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WorldStates tracks how many worlds currently sit in each FSM state.
	WorldStates = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crld_world_states",
			Help: "Number of worlds currently in each FSM state",
		},
		[]string{"state"},
	)

	// FSMTransitionsTotal counts signals that matched a transition-table
	// cell. A signal with no transition from the current state (a no-op)
	// is logged but not counted.
	FSMTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crld_fsm_transitions_total",
			Help: "Total FSM transitions applied, by signal name",
		},
		[]string{"signal"},
	)

	// CreateQueueDepth is the number of pending items in the create
	// serializer queue.
	CreateQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "crld_create_queue_depth",
			Help: "Pending items in the create serializer queue",
		},
	)

	// StopQueueDepth is the number of pending items in the stop
	// serializer queue.
	StopQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "crld_stop_queue_depth",
			Help: "Pending items in the stop serializer queue",
		},
	)

	// BlockingOpDuration records how long create/start/stop/delete
	// operations take.
	BlockingOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crld_blocking_op_duration_seconds",
			Help:    "Duration of blocking world operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	// HealthReconcileDuration records how long one health reconciliation
	// pass takes.
	HealthReconcileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crld_health_reconcile_duration_seconds",
			Help:    "Duration of health reconciliation passes",
			Buckets: prometheus.DefBuckets,
		},
	)

	// HTTPRequestsTotal counts HTTP requests served by crld, by route and
	// status code.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crld_http_requests_total",
			Help: "Total HTTP requests served, by route and status",
		},
		[]string{"route", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		WorldStates,
		FSMTransitionsTotal,
		CreateQueueDepth,
		StopQueueDepth,
		BlockingOpDuration,
		HealthReconcileDuration,
		HTTPRequestsTotal,
	)
}

// Handler returns the HTTP handler that exposes all registered metrics
// for Prometheus scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer, starting now.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(t.Duration().Seconds())
}

// ObserveDurationVec records the elapsed duration to a histogram vec with
// the given label values.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(t.Duration().Seconds())
}

// Duration returns the time elapsed since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
