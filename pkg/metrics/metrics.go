package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ExecutionMetrics instruments the execution coordinator.
type ExecutionMetrics struct {
	UnitsTotal   *prometheus.CounterVec
	UnitDuration prometheus.Histogram
	InFlight     prometheus.Gauge
	BytesSaved   prometheus.Counter
}

// NewExecutionMetrics registers the coordinator's metrics on the given
// registerer.
func NewExecutionMetrics(reg prometheus.Registerer) *ExecutionMetrics {
	factory := promauto.With(reg)
	return &ExecutionMetrics{
		UnitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "compadvisor",
			Name:      "execution_units_total",
			Help:      "Execution units by terminal status.",
		}, []string{"status"}),
		UnitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "compadvisor",
			Name:      "execution_unit_duration_seconds",
			Help:      "Wall time of one execution unit.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "compadvisor",
			Name:      "execution_units_in_flight",
			Help:      "Units currently executing.",
		}),
		BytesSaved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "compadvisor",
			Name:      "execution_bytes_saved_total",
			Help:      "Measured bytes reclaimed by successful executions.",
		}),
	}
}
