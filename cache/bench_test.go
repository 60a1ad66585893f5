package cache

import (
	"context"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"
)

// benchmarkMix exercises an insert/retrieve mix against a warm cache
// under a fixed, small keyspace of symbols — the expected shape of the
// target workload.
func benchmarkMix(b *testing.B, retrievePct int) {
	c, err := New(Config{MaxNodes: 1_000_000, CleanupInterval: time.Second})
	if err != nil {
		b.Fatalf("New: %v", err)
	}
	b.Cleanup(func() { _ = c.Close(context.Background()) })

	symbols := []string{"AAPL", "MSFT", "GOOG", "AMZN", "TSLA", "META", "NVDA", "NFLX"}
	for _, s := range symbols {
		for p := int32(0); p < 100; p++ {
			c.Insert(float64(p), s, p, time.Minute)
		}
	}

	b.ReportAllocs()
	b.ResetTimer()

	var seed int64 = 1
	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(atomic.AddInt64(&seed, 1)))
		i := int32(0)
		for pb.Next() {
			s := symbols[r.Intn(len(symbols))]
			if r.Intn(100) < retrievePct {
				c.GetHighestPriority(s)
			} else {
				c.Insert(float64(i), s, i%100, time.Minute)
			}
			i++
		}
	})
}

func BenchmarkCache_90retrieve10insert(b *testing.B) { benchmarkMix(b, 90) }
func BenchmarkCache_50retrieve50insert(b *testing.B) { benchmarkMix(b, 50) }

// BenchmarkCache_InsertBatch measures throughput of the batch path in
// isolation, with a fresh cache each iteration to avoid capacity
// exhaustion skewing the timing.
func BenchmarkCache_InsertBatch(b *testing.B) {
	items := make([]InsertItem, 100)
	for i := range items {
		items[i] = InsertItem{Value: float64(i), Key: "AAPL", Priority: int32(i), TTL: time.Minute}
	}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c, err := New(Config{MaxNodes: uint64(len(items) * (b.N + 1)), CleanupInterval: time.Hour})
		if err != nil {
			b.Fatalf("New: %v", err)
		}
		c.InsertBatch(items)
		_ = c.Close(context.Background())
	}
}
