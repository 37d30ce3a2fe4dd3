package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iho/captable/internal/domain"
)

const namespace = "captable"

// Metrics holds the cap table Prometheus metrics. It implements usecase.Recorder.
type Metrics struct {
	// Operation metrics
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	OperationErrors   *prometheus.CounterVec

	// Normalization metrics
	Recalculations  prometheus.Counter
	Normalizations  prometheus.Counter
	AdjustedEntries prometheus.Histogram
}

// New creates the metrics and registers them with the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates the metrics and registers them with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total cap table operations by outcome",
			},
			[]string{"operation", "status"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of cap table operations",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		OperationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operation_errors_total",
				Help:      "Total failed cap table operations by error type",
			},
			[]string{"operation", "error_type"},
		),

		Recalculations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recalculations_total",
			Help:      "Total recalculations run",
		}),
		Normalizations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "normalizations_total",
			Help:      "Total recalculations that changed at least one entry",
		}),
		AdjustedEntries: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "adjusted_entries",
			Help:      "Entries changed per recalculation",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
	}
}

// RecordOperation records the outcome and duration of one operation.
func (m *Metrics) RecordOperation(operation string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		m.OperationErrors.WithLabelValues(operation, domain.ErrorCode(err)).Inc()
	}

	m.Operations.WithLabelValues(operation, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordNormalization records one recalculation that changed adjusted entries.
func (m *Metrics) RecordNormalization(adjusted int) {
	m.Recalculations.Inc()
	m.AdjustedEntries.Observe(float64(adjusted))
	if adjusted > 0 {
		m.Normalizations.Inc()
	}
}
