package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Fleet metrics
	NodesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flotilla_nodes_total",
			Help: "Total number of worker nodes by status",
		},
		[]string{"status"},
	)

	NodeCPUCapacity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flotilla_node_cpu_capacity_cores",
			Help: "CPU capacity per node in cores",
		},
		[]string{"node"},
	)

	NodeCPUUsed = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flotilla_node_cpu_used_cores",
			Help: "CPU usage per node in cores, from declared task footprints",
		},
		[]string{"node"},
	)

	NodeMemoryCapacity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flotilla_node_memory_capacity_mb",
			Help: "Memory capacity per node in MB",
		},
		[]string{"node"},
	)

	NodeMemoryUsed = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flotilla_node_memory_used_mb",
			Help: "Memory usage per node in MB, from declared task footprints",
		},
		[]string{"node"},
	)

	// Sweep metrics
	SweepsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flotilla_sweeps_total",
			Help: "Total number of reconciliation sweeps",
		},
	)

	SweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flotilla_sweep_duration_seconds",
			Help:    "Reconciliation sweep duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	NodeSyncFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flotilla_node_sync_failures_total",
			Help: "Total number of per-node reconciliation failures",
		},
	)

	// Provisioning metrics
	ProvisionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flotilla_provision_duration_seconds",
			Help:    "Node provisioning duration in seconds",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
		},
	)

	ProvisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flotilla_provisions_total",
			Help: "Total number of provisioning attempts by outcome",
		},
		[]string{"outcome"},
	)

	// Alert metrics
	AlertsFired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flotilla_alerts_fired_total",
			Help: "Total number of alerts delivered by type",
		},
		[]string{"type"},
	)

	AlertsSuppressed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flotilla_alerts_suppressed_total",
			Help: "Total number of alerts suppressed by cooldown, by type",
		},
		[]string{"type"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(NodesTotal)
	prometheus.MustRegister(NodeCPUCapacity)
	prometheus.MustRegister(NodeCPUUsed)
	prometheus.MustRegister(NodeMemoryCapacity)
	prometheus.MustRegister(NodeMemoryUsed)
	prometheus.MustRegister(SweepsTotal)
	prometheus.MustRegister(SweepDuration)
	prometheus.MustRegister(NodeSyncFailures)
	prometheus.MustRegister(ProvisionDuration)
	prometheus.MustRegister(ProvisionsTotal)
	prometheus.MustRegister(AlertsFired)
	prometheus.MustRegister(AlertsSuppressed)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures a duration for histogram observation
type Timer struct {
	start time.Time
}

// NewTimer starts a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed time into a histogram
func (t *Timer) ObserveDuration(h prometheus.Histogram) {
	h.Observe(t.Duration().Seconds())
}
