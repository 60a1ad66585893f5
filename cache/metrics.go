package cache

import "time"

// Metrics exposes cache-level observability hooks, invoked at the facade
// boundary and from the background reclaimer. A NoopMetrics implementation
// is provided and used by default; plug metrics/prom.Adapter to export to
// Prometheus.
type Metrics interface {
	// RecordInsert is called once per Insert attempt. InsertBatch does not
	// call it.
	RecordInsert(latency time.Duration, success bool)
	// RecordRetrieve is called once per GetHighestPriority(Batch) attempt.
	// hit is true only when a live record was returned.
	RecordRetrieve(latency time.Duration, success, hit bool)
	// RecordQueueDepth reports the current size of the reclaimer's
	// expired-slot queue after a drain cycle.
	RecordQueueDepth(depth int)
}

// NoopMetrics is a drop-in Metrics implementation that does nothing. It
// is safe for concurrent use and is the default when no observability
// backend is configured.
type NoopMetrics struct{}

func (NoopMetrics) RecordInsert(time.Duration, bool)         {}
func (NoopMetrics) RecordRetrieve(time.Duration, bool, bool) {}
func (NoopMetrics) RecordQueueDepth(int)                     {}

// Ensure NoopMetrics implements Metrics at compile time.
var _ Metrics = NoopMetrics{}
