package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all metrics of a generation process. A nil *Registry is valid
// and records nothing.
type Registry struct {
	registry *prometheus.Registry

	RunsTotal         *prometheus.CounterVec
	RunDuration       prometheus.Histogram
	FiresTotal        prometheus.Counter
	RecordsTotal      *prometheus.CounterVec
	WriterErrorsTotal *prometheus.CounterVec
	TopologyDevices   prometheus.Gauge
	TopologyConns     prometheus.Gauge
}

// NewRegistry creates a registry with Go runtime collectors and the generator metrics.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	r := &Registry{registry: reg}
	r.RunsTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "icsflowgen_runs_total",
			Help: "Generation runs by outcome",
		},
		[]string{"status"},
	)
	r.RunDuration = promauto.With(reg).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "icsflowgen_run_duration_seconds",
			Help:    "Wall-clock duration of generation runs",
			Buckets: prometheus.DefBuckets,
		},
	)
	r.FiresTotal = promauto.With(reg).NewCounter(
		prometheus.CounterOpts{
			Name: "icsflowgen_fires_total",
			Help: "Communication events fired across all connections",
		},
	)
	r.RecordsTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "icsflowgen_records_total",
			Help: "Flow records emitted by protocol",
		},
		[]string{"protocol"},
	)
	r.WriterErrorsTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "icsflowgen_writer_errors_total",
			Help: "Failed writes by writer type",
		},
		[]string{"writer"},
	)
	r.TopologyDevices = promauto.With(reg).NewGauge(
		prometheus.GaugeOpts{
			Name: "icsflowgen_topology_devices",
			Help: "Devices in the loaded topology",
		},
	)
	r.TopologyConns = promauto.With(reg).NewGauge(
		prometheus.GaugeOpts{
			Name: "icsflowgen_topology_connections",
			Help: "Connections in the loaded topology",
		},
	)
	return r
}

// Handler exposes the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Registry) ObserveTopology(devices, connections int) {
	if r == nil {
		return
	}
	r.TopologyDevices.Set(float64(devices))
	r.TopologyConns.Set(float64(connections))
}

func (r *Registry) ObserveRecord(protocol string) {
	if r == nil {
		return
	}
	r.RecordsTotal.WithLabelValues(protocol).Inc()
}

func (r *Registry) ObserveFires(n int) {
	if r == nil {
		return
	}
	r.FiresTotal.Add(float64(n))
}

func (r *Registry) ObserveWriterError(writer string) {
	if r == nil {
		return
	}
	r.WriterErrorsTotal.WithLabelValues(writer).Inc()
}

// ObserveRun records the outcome and duration of one run.
func (r *Registry) ObserveRun(started time.Time, err error) {
	if r == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.RunsTotal.WithLabelValues(status).Inc()
	r.RunDuration.Observe(time.Since(started).Seconds())
}
