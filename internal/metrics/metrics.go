// Package metrics exposes Prometheus counters for exports, searches and
// share views.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lucide"

// Metrics holds the collectors on a private registry. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	exports        *prometheus.CounterVec
	searchDuration *prometheus.HistogramVec
	shareViews     prometheus.Counter
	bootTime       prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Note exports by format and result",
		}, []string{"format", "result"}),
		searchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Note search latency by backend",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend"}),
		shareViews: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "share_views_total",
			Help:      "Views of publicly shared notes",
		}),
		bootTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "boot_time",
			Help:      "Server startup time",
		}),
	}
	m.bootTime.Set(float64(time.Now().UnixMilli()))
	m.registry.MustRegister(
		m.exports,
		m.searchDuration,
		m.shareViews,
		m.bootTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveExport(format, result string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(format, result).Inc()
}

func (m *Metrics) ObserveSearch(backend string, d time.Duration) {
	if m == nil {
		return
	}
	m.searchDuration.WithLabelValues(backend).Observe(d.Seconds())
}

func (m *Metrics) ShareViewed() {
	if m == nil {
		return
	}
	m.shareViews.Inc()
}
