package metrics

import (
	"kratio/internal/watcher"

	"github.com/prometheus/client_golang/prometheus"
)

type watcherCollector struct {
	source   *watcher.Watcher
	accepted *prometheus.Desc
	dropped  *prometheus.Desc
	errors   *prometheus.Desc
	active   *prometheus.Desc
	watching *prometheus.Desc
}

func newWatcherCollector(source *watcher.Watcher) *watcherCollector {
	return &watcherCollector{
		source: source,
		accepted: prometheus.NewDesc(namespace+"_watcher_changes_accepted_total",
			"Filesystem changes delivered to the handler.", nil, nil),
		dropped: prometheus.NewDesc(namespace+"_watcher_changes_dropped_total",
			"Filesystem events dropped by the filter chain.", []string{"reason"}, nil),
		errors: prometheus.NewDesc(namespace+"_watcher_backend_errors_total",
			"Errors reported by the fsnotify backend.", nil, nil),
		active: prometheus.NewDesc(namespace+"_watcher_active_watches",
			"Directories registered with the backend.", nil, nil),
		watching: prometheus.NewDesc(namespace+"_watcher_watching",
			"1 while a watch session is running.", nil, nil),
	}
}

func (collector *watcherCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.accepted
	ch <- collector.dropped
	ch <- collector.errors
	ch <- collector.active
	ch <- collector.watching
}

func (collector *watcherCollector) Collect(ch chan<- prometheus.Metric) {
	snapshot := collector.source.Metrics()
	ch <- prometheus.MustNewConstMetric(collector.accepted, prometheus.CounterValue, float64(snapshot.Accepted))
	for reason, value := range map[string]uint64{
		"directory":  snapshot.DroppedDirectory,
		"debounce":   snapshot.DroppedDebounce,
		"target":     snapshot.DroppedTarget,
		"extension":  snapshot.DroppedExtension,
		"ignored_op": snapshot.IgnoredOperations,
	} {
		ch <- prometheus.MustNewConstMetric(collector.dropped, prometheus.CounterValue, float64(value), reason)
	}
	ch <- prometheus.MustNewConstMetric(collector.errors, prometheus.CounterValue, float64(snapshot.BackendErrors))
	ch <- prometheus.MustNewConstMetric(collector.active, prometheus.GaugeValue, float64(snapshot.ActiveWatches))
	watching := 0.0
	if snapshot.Watching {
		watching = 1
	}
	ch <- prometheus.MustNewConstMetric(collector.watching, prometheus.GaugeValue, watching)
}
