package cache

import (
	"context"
	"testing"
	"time"
)

func testConfig(maxNodes uint64) Config {
	return Config{
		MaxNodes:        maxNodes,
		CleanupInterval: 10 * time.Millisecond,
	}
}

// S1 — priority order, single thread, single key.
func TestCache_PriorityOrder(t *testing.T) {
	t.Parallel()

	cfg := testConfig(16)
	cfg.HeapInitialCapacity = 16 // the MaxNodes/10 default would hold only one record per key
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	if !c.Insert(100.0, "AAPL", 1, 60*time.Second) {
		t.Fatal("insert 1 must succeed")
	}
	if !c.Insert(101.0, "AAPL", 3, 60*time.Second) {
		t.Fatal("insert 2 must succeed")
	}
	if !c.Insert(100.5, "AAPL", 2, 60*time.Second) {
		t.Fatal("insert 3 must succeed")
	}

	rec, ok := c.GetHighestPriority("AAPL")
	if !ok || rec.Value != 101.0 || rec.Priority != 3 {
		t.Fatalf("want value=101.0 priority=3, got %+v ok=%v", rec, ok)
	}

	rec, ok = c.GetHighestPriority("AAPL")
	if !ok || rec.Priority != 2 {
		t.Fatalf("want priority=2, got %+v ok=%v", rec, ok)
	}

	rec, ok = c.GetHighestPriority("AAPL")
	if !ok || rec.Priority != 1 {
		t.Fatalf("want priority=1, got %+v ok=%v", rec, ok)
	}

	if _, ok := c.GetHighestPriority("AAPL"); ok {
		t.Fatal("bucket must be drained")
	}
}

// S2 — expiry.
func TestCache_Expiry(t *testing.T) {
	t.Parallel()

	c, err := New(testConfig(16))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	if !c.Insert(150.75, "AAPL", 1, time.Millisecond) {
		t.Fatal("insert must succeed")
	}
	time.Sleep(10 * time.Millisecond)

	if _, ok := c.GetHighestPriority("AAPL"); ok {
		t.Fatal("expired record must not be returned")
	}
}

// A zero ttl is "not supplied," not "immortal" or "already expired": it
// falls back to Config.DefaultExpirySeconds (OQ6, DESIGN.md).
func TestCache_ZeroTTLFallsBackToDefaultExpiry(t *testing.T) {
	t.Parallel()

	cfg := testConfig(16)
	cfg.DefaultExpirySeconds = 0.01 // 10ms
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	if !c.Insert(150.75, "AAPL", 1, 0) {
		t.Fatal("insert must succeed")
	}
	if rec, ok := c.GetHighestPriority("AAPL"); !ok || rec.Value != 150.75 {
		t.Fatalf("zero ttl must not expire immediately, got ok=%v rec=%+v", ok, rec)
	}

	if !c.Insert(150.75, "MSFT", 1, 0) {
		t.Fatal("insert must succeed")
	}
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.GetHighestPriority("MSFT"); ok {
		t.Fatal("record must have expired against the default TTL")
	}
}

// Expiry boundary: strictly greater-than, not greater-or-equal.
func TestArena_IsExpired_Boundary(t *testing.T) {
	t.Parallel()

	a, err := newArena(4)
	if err != nil {
		t.Fatalf("newArena: %v", err)
	}
	a.write(0, 1.0, 1, 100*time.Nanosecond, 1_000)

	if a.isExpired(0, 1_000+100) {
		t.Fatal("exactly-at-expiry must be live (strict > predicate)")
	}
	if !a.isExpired(0, 1_000+101) {
		t.Fatal("one ns past expiry must be expired")
	}
}

// S3 — capacity.
func TestCache_Capacity(t *testing.T) {
	t.Parallel()

	cfg := testConfig(3)
	cfg.HeapInitialCapacity = 3 // so the fourth insert fails on the arena, not on the bucket
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	for i := 0; i < 3; i++ {
		if !c.Insert(float64(i), "AAPL", int32(i), 60*time.Second) {
			t.Fatalf("insert %d must succeed", i)
		}
	}
	if c.Insert(99.0, "AAPL", 99, 60*time.Second) {
		t.Fatal("fourth insert must fail: arena exhausted")
	}
}

// Pushing into a bucket at exactly capacity fails.
func TestPriorityBucket_PushAtCapacity(t *testing.T) {
	t.Parallel()

	b := newPriorityBucket(2, func(Slot) int32 { return 0 })
	if !b.Push(0) {
		t.Fatal("first push must succeed")
	}
	if !b.Push(1) {
		t.Fatal("second push must succeed")
	}
	if b.Push(2) {
		t.Fatal("third push must fail: bucket full")
	}
}

// S4 — batch.
func TestCache_InsertBatch(t *testing.T) {
	t.Parallel()

	c, err := New(testConfig(1000))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	items := make([]InsertItem, 100)
	for i := range items {
		items[i] = InsertItem{Value: float64(i), Key: "AAPL", Priority: int32(i), TTL: 60 * time.Second}
	}
	if !c.InsertBatch(items) {
		t.Fatal("batch insert must succeed")
	}

	seen := map[int32]bool{}
	min, max := int32(1<<30), int32(-1<<30)
	count := 0
	for {
		rec, ok := c.GetHighestPriority("AAPL")
		if !ok {
			break
		}
		count++
		seen[rec.Priority] = true
		if rec.Priority < min {
			min = rec.Priority
		}
		if rec.Priority > max {
			max = rec.Priority
		}
	}
	if count != 100 {
		t.Fatalf("want 100 records, got %d", count)
	}
	if min != 0 || max != 99 {
		t.Fatalf("want min=0 max=99, got min=%d max=%d", min, max)
	}
}

// S6 — unknown key.
func TestCache_UnknownKey(t *testing.T) {
	t.Parallel()

	c, err := New(testConfig(16))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	if _, ok := c.GetHighestPriority("NOPE"); ok {
		t.Fatal("unknown key must miss")
	}

	c.Insert(1.0, "AAPL", 1, 60*time.Second)
	if _, ok := c.GetHighestPriority("NOPE"); ok {
		t.Fatal("unrelated key must still miss after an unrelated insert")
	}
	if _, ok := c.index.Get("NOPE"); ok {
		t.Fatal("bucket for an untouched key must never be created")
	}
}

// S8 — invalid configuration.
func TestCache_InvalidConfig(t *testing.T) {
	t.Parallel()

	c, err := New(Config{MaxNodes: 10_000, NumWorkerThreads: -1})
	if err == nil {
		t.Fatal("want error for negative NumWorkerThreads")
	}
	if c != nil {
		t.Fatal("want nil *Cache on construction error")
	}
}

// Zero-valued fields receive defaults rather than failing validation.
func TestCache_ZeroConfigGetsDefaults(t *testing.T) {
	t.Parallel()

	c, err := New(Config{})
	if err != nil {
		t.Fatalf("New with zero Config must succeed, got %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	if c.cfg.MaxNodes != 10_000 {
		t.Fatalf("want default MaxNodes=10000, got %d", c.cfg.MaxNodes)
	}
}

// Round-trip: insert then immediate retrieval on the same goroutine.
func TestCache_RoundTrip(t *testing.T) {
	t.Parallel()

	c, err := New(testConfig(16))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	c.Insert(42.5, "AAPL", 7, 60*time.Second)
	rec, ok := c.GetHighestPriority("AAPL")
	if !ok || rec.Value != 42.5 || rec.Priority != 7 {
		t.Fatalf("want value=42.5 priority=7, got %+v ok=%v", rec, ok)
	}
}

// GetHighestPriorityBatch is pointwise and position-aligned.
func TestCache_GetHighestPriorityBatch(t *testing.T) {
	t.Parallel()

	c, err := New(testConfig(16))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	c.Insert(1.0, "AAPL", 1, 60*time.Second)
	c.Insert(2.0, "MSFT", 2, 60*time.Second)

	results := c.GetHighestPriorityBatch([]string{"AAPL", "NOPE", "MSFT"})
	if len(results) != 3 {
		t.Fatalf("want 3 results, got %d", len(results))
	}
	if !results[0].Hit || results[0].Record.Value != 1.0 {
		t.Fatalf("want hit for AAPL, got %+v", results[0])
	}
	if results[1].Hit {
		t.Fatalf("want miss for NOPE, got %+v", results[1])
	}
	if !results[2].Hit || results[2].Record.Value != 2.0 {
		t.Fatalf("want hit for MSFT, got %+v", results[2])
	}
}
