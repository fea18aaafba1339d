package treapx

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus collectors a VersionStore reports to. A nil *Metrics records nothing.
type Metrics struct {
	Ops            *prometheus.CounterVec
	OpErrors       *prometheus.CounterVec
	OpDuration     *prometheus.HistogramVec
	NodesAllocated prometheus.Counter
	Versions       prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. A nil reg creates unregistered
// collectors, which is convenient in tests.
func NewMetrics(reg prometheus.Registerer, labels prometheus.Labels) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Ops: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "treapx_ops_total",
			Help:        "Number of operations applied, by operation.",
			ConstLabels: labels,
		}, []string{"op"}),
		OpErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "treapx_op_errors_total",
			Help:        "Number of rejected operations, by operation.",
			ConstLabels: labels,
		}, []string{"op"}),
		OpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "treapx_op_duration_seconds",
			Help:        "Operation latency, by operation.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(1e-7, 4, 12),
		}, []string{"op"}),
		NodesAllocated: factory.NewCounter(prometheus.CounterOpts{
			Name:        "treapx_nodes_allocated_total",
			Help:        "Number of nodes allocated, leaves and clones.",
			ConstLabels: labels,
		}),
		Versions: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "treapx_versions",
			Help:        "Number of published versions including the empty version 0.",
			ConstLabels: labels,
		}),
	}
}

func (m *Metrics) observe(op string, start time.Time, allocated uint64, versions int) {
	if m == nil {
		return
	}
	m.Ops.WithLabelValues(op).Inc()
	m.OpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if allocated > 0 {
		m.NodesAllocated.Add(float64(allocated))
	}
	if versions > 0 {
		m.Versions.Set(float64(versions))
	}
}

func (m *Metrics) failed(op string) {
	if m == nil {
		return
	}
	m.OpErrors.WithLabelValues(op).Inc()
}
