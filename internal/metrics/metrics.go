package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

const namespace = "synchooks"

// ResultSuccess labels sync requests that produced a response.
const ResultSuccess = "success"

var (
	syncRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_requests_total",
			Help:      "Total number of sync hook requests by outcome",
		},
		[]string{"hook", "result"},
	)

	syncDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of sync hook decisions in seconds",
			// Decisions are pure and in-memory; buckets focus on the sub-millisecond range.
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"hook"},
	)

	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Total number of decisions by controller and state machine transition",
		},
		[]string{"controller", "transition"},
	)

	desiredChildrenGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "desired_children",
			Help:      "Number of children in the last successful response of a hook",
		},
		[]string{"hook"},
	)

	droppedEventsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_events_dropped_total",
			Help:      "Total number of transition events dropped because the notification buffer was full",
		},
	)

	registerOnce sync.Once
)

// Register adds all collectors to the controller-runtime registry. Safe to call repeatedly.
func Register() {
	registerOnce.Do(func() {
		metrics.Registry.MustRegister(
			syncRequestsTotal,
			syncDurationHistogram,
			transitionsTotal,
			desiredChildrenGauge,
			droppedEventsTotal,
		)
	})
}

// ObserveSync records one hook request. result is ResultSuccess or an error reason.
func ObserveSync(hook, result string, duration time.Duration, children int) {
	syncRequestsTotal.WithLabelValues(hook, result).Inc()
	syncDurationHistogram.WithLabelValues(hook).Observe(duration.Seconds())
	if result == ResultSuccess {
		desiredChildrenGauge.WithLabelValues(hook).Set(float64(children))
	}
}

// RecordTransition counts one decision of a controller's state machine.
func RecordTransition(controller, transition string) {
	transitionsTotal.WithLabelValues(controller, transition).Inc()
}

// RecordDroppedEvent counts a transition event that could not be queued.
func RecordDroppedEvent() {
	droppedEventsTotal.Inc()
}
