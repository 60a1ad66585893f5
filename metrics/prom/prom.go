// Package prom adapts cache.Metrics to Prometheus counters/gauges/histograms.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/quotecache/priocache/cache"
)

// Adapter implements cache.Metrics and exports Prometheus metrics. Safe
// for concurrent use; all Prometheus metric types are goroutine-safe.
type Adapter struct {
	insertLatency   prometheus.Histogram
	insertFailures  prometheus.Counter
	retrieveLatency prometheus.Histogram
	retrieveHits    prometheus.Counter
	retrieveMisses  prometheus.Counter
	queueDepth      prometheus.Gauge
}

// New constructs a Prometheus metrics adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter{
		insertLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "insert_latency_seconds",
			Help:        "Insert call latency",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		insertFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "insert_failures_total",
			Help:        "Insert calls that returned false",
			ConstLabels: constLabels,
		}),
		retrieveLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "retrieve_latency_seconds",
			Help:        "GetHighestPriority call latency",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		retrieveHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "retrieve_hits_total",
			Help:        "GetHighestPriority calls returning a live record",
			ConstLabels: constLabels,
		}),
		retrieveMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "retrieve_misses_total",
			Help:        "GetHighestPriority calls returning no live record",
			ConstLabels: constLabels,
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "reclaim_queue_depth",
			Help:        "Expired slots awaiting background reclamation",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(a.insertLatency, a.insertFailures, a.retrieveLatency, a.retrieveHits, a.retrieveMisses, a.queueDepth)
	return a
}

// RecordInsert observes insert latency and counts failures.
func (a *Adapter) RecordInsert(latency time.Duration, success bool) {
	a.insertLatency.Observe(latency.Seconds())
	if !success {
		a.insertFailures.Inc()
	}
}

// RecordRetrieve observes retrieve latency and counts hits/misses.
func (a *Adapter) RecordRetrieve(latency time.Duration, success, hit bool) {
	a.retrieveLatency.Observe(latency.Seconds())
	if !success {
		return
	}
	if hit {
		a.retrieveHits.Inc()
	} else {
		a.retrieveMisses.Inc()
	}
}

// RecordQueueDepth updates the reclaim queue depth gauge.
func (a *Adapter) RecordQueueDepth(depth int) {
	a.queueDepth.Set(float64(depth))
}

// Compile-time check: ensure Adapter implements cache.Metrics.
var _ cache.Metrics = (*Adapter)(nil)
