package metrics

import (
	"net/http"
	"time"

	"kratio/internal/watcher"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kratio"

// Registry owns the prometheus collectors for one process. A nil *Registry
// accepts every call and records nothing.
type Registry struct {
	registry *prometheus.Registry

	analyses         *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
	tableRows        *prometheus.HistogramVec
	eventsPublished  *prometheus.CounterVec
	eventsDropped    *prometheus.CounterVec
	subscribers      *prometheus.GaugeVec
}

func NewRegistry() *Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)
	return &Registry{
		registry: registry,
		analyses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Completed analysis runs by unit kind and status.",
		}, []string{"kind", "status"}),
		analysisDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of one analysis run.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"kind"}),
		tableRows: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "table_rows",
			Help:      "Distinct units per frequency table.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"kind"}),
		eventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Events published per bus.",
		}, []string{"bus"}),
		eventsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events dropped because a subscriber was full.",
		}, []string{"bus"}),
		subscribers: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bus_subscribers",
			Help:      "Active subscribers per bus.",
		}, []string{"bus"}),
	}
}

// RecordAnalysis counts one run. status is "ok" or the failing stage.
func (r *Registry) RecordAnalysis(kind, status string, duration time.Duration, rows int) {
	if r == nil {
		return
	}
	r.analyses.WithLabelValues(kind, status).Inc()
	if status != "ok" {
		return
	}
	r.analysisDuration.WithLabelValues(kind).Observe(duration.Seconds())
	r.tableRows.WithLabelValues(kind).Observe(float64(rows))
}

func (r *Registry) IncEventPublished(bus string) {
	if r == nil {
		return
	}
	r.eventsPublished.WithLabelValues(bus).Inc()
}

func (r *Registry) IncEventDropped(bus string) {
	if r == nil {
		return
	}
	r.eventsDropped.WithLabelValues(bus).Inc()
}

func (r *Registry) SetSubscribers(bus string, count int) {
	if r == nil {
		return
	}
	r.subscribers.WithLabelValues(bus).Set(float64(count))
}

// RegisterWatcher exposes the counters of source, read at scrape time.
func (r *Registry) RegisterWatcher(source *watcher.Watcher) {
	if r == nil || source == nil {
		return
	}
	r.registry.MustRegister(newWatcherCollector(source))
}

// Handler serves the prometheus text exposition.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Gatherer exposes the underlying registry for tests and custom exporters.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}
