// Package cache implements the priority cache's in-memory concurrent data
// plane: a fixed-capacity node arena, a sharded lock-free key→bucket
// index, a per-bucket concurrent max-priority heap with lazy expiry
// reclamation, and the Cache facade layered over them.
//
// Design
//
//   - Arena: Insert claims a slot with a single atomic fetch-add and
//     writes the record in place; slots are never recycled in the
//     steady state (record.go).
//
//   - Priority bucket: each key owns a fixed-capacity, lock-free
//     max-heap over slot indices, keyed on Priority. Concurrent pushes
//     and pops may leave the heap relaxed rather than strictly ordered;
//     Pop still returns a high-priority live record (bucket.go).
//
//   - Key index: 64 shards of atomic singly-linked lists map a key to
//     its bucket, created lazily and never removed (index.go).
//
//   - Facade: Insert/InsertBatch/GetHighestPriority/GetHighestPriorityBatch
//     compose the above and enforce the batch/capacity/expiry contracts
//     (this file).
//
//   - Reclamation: a single background goroutine periodically drains the
//     queue of slots discarded as expired during retrieval, purely for
//     advisory bookkeeping (reclaim.go).
//
// None of these operations take locks on the hot path; the only
// suspensions are bounded CAS-retry yields.
package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/quotecache/priocache/internal/util"
)

// InsertItem is one record in an InsertBatch call.
type InsertItem struct {
	Value    float64
	Key      string
	Priority int32
	TTL      time.Duration
}

// Optional is the position-aligned result of a batch retrieval: Hit is
// true only when Record holds a live record that was popped for this key.
type Optional struct {
	Record Record
	Hit    bool
}

// Cache is the priority cache facade. All methods are safe for
// concurrent use by multiple goroutines.
type Cache struct {
	arena *arena
	index *keyIndex
	cfg   Config

	totalNodes util.PaddedAtomicUint64

	reclaimQueue *reclaimQueue
	reclaimer    *reclaimer

	numaNode int
	closed   atomic.Bool
}

// New constructs a Cache from cfg. Zero-valued fields in cfg receive the
// defaults from SPEC_FULL.md §6; explicitly negative fields fail
// validation and New returns a non-nil error wrapping errs.ErrInvalidConfig
// (or errs.ErrAllocationFailure if the arena's backing slice could not be
// allocated).
func New(cfg Config) (*Cache, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ar, err := newArena(cfg.MaxNodes)
	if err != nil {
		return nil, err
	}

	c := &Cache{
		arena:        ar,
		cfg:          cfg,
		reclaimQueue: newReclaimQueue(),
		numaNode:     preferredNUMANode(cfg),
	}
	c.index = newKeyIndex(cfg.HeapInitialCapacity, ar.priorityOf)
	c.reclaimer = startReclaimer(c.reclaimQueue, cfg.CleanupInterval, cfg.MaxExpiredPerCleanup, cfg.Metrics)
	return c, nil
}

// NUMANode reports the NUMA node the arena was constructed with a
// preference for (SPEC_FULL.md §5, "NUMA"); -1 means no preference was
// resolved. It is informational only.
func (c *Cache) NUMANode() int { return c.numaNode }

// effectiveTTL resolves the TTL written into a record's ExpiryNS. A
// positive ttl is used as-is. A caller leaving ttl at its Go zero value is
// treated as "no TTL supplied" and falls back to cfg.DefaultExpirySeconds,
// mirroring the original's insert(..., double expiry_time = 60.0) default
// parameter (SPEC_FULL.md §9 Open Question 6). There is no way in Go to
// distinguish "argument omitted" from "argument explicitly zero" the way a
// C++ default parameter can, so a literal ttl<=0 is not reproduced as the
// original's "expires on the very next check" — see DESIGN.md.
func (c *Cache) effectiveTTL(ttl time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	return time.Duration(c.cfg.DefaultExpirySeconds * float64(time.Second))
}

// Insert claims an arena slot, writes the record, and pushes it onto the
// bucket for key (creating the bucket on first use). It returns false if
// the arena is exhausted (the failed claim still advances the pool index) or if the
// bucket is already at capacity — in the latter case the claimed slot is
// leaked in the arena, matching the original's behavior (SPEC_FULL.md
// §9 Open Question 1).
func (c *Cache) Insert(value float64, key string, priority int32, ttl time.Duration) bool {
	start := time.Now()
	if c.closed.Load() {
		c.cfg.Metrics.RecordInsert(time.Since(start), false)
		return false
	}

	slot, err := c.arena.claim()
	if err != nil {
		c.cfg.Metrics.RecordInsert(time.Since(start), false)
		return false
	}
	c.arena.write(slot, value, priority, c.effectiveTTL(ttl), nowNS())

	bucket := c.index.GetOrCreate(key)
	if !bucket.Push(slot) {
		c.cfg.Metrics.RecordInsert(time.Since(start), false)
		return false
	}

	c.totalNodes.Add(1)
	c.cfg.Metrics.RecordInsert(time.Since(start), true)
	return true
}

// InsertBatch reserves capacity for len(items) slots in one fetch-add,
// writes each record, and pushes each onto its key's bucket. Per-item
// push failures are silently swallowed — the record is lost but its slot
// is consumed — matching the original's batch contract (SPEC_FULL.md
// §4.4.2). The return value reflects only the capacity reservation, not
// all-or-nothing atomicity at the record level.
func (c *Cache) InsertBatch(items []InsertItem) bool {
	if c.closed.Load() || len(items) == 0 {
		return len(items) == 0
	}

	n := uint64(len(items))
	if c.totalNodes.Load()+n > c.cfg.MaxNodes {
		return false
	}
	first, ok := c.arena.claimRange(n)
	if !ok {
		return false
	}

	now := nowNS()
	for i, item := range items {
		slot := first + Slot(i)
		c.arena.write(slot, item.Value, item.Priority, c.effectiveTTL(item.TTL), now)
		bucket := c.index.GetOrCreate(item.Key)
		bucket.Push(slot) // failures intentionally ignored, see doc comment
	}
	c.totalNodes.Add(n)
	return true
}

// GetHighestPriority returns the highest-priority live record currently
// queued under key, popping it from the bucket. It returns (Record{},
// false) if key has never been inserted, its bucket is empty, or every
// queued record for it has expired. Expired records popped along the
// way are queued for the background reclaimer rather than freed inline.
func (c *Cache) GetHighestPriority(key string) (Record, bool) {
	start := time.Now()
	bucket, ok := c.index.Get(key)
	if !ok {
		c.cfg.Metrics.RecordRetrieve(time.Since(start), true, false)
		return Record{}, false
	}

	now := nowNS()
	for {
		slot, ok := bucket.Pop()
		if !ok {
			c.cfg.Metrics.RecordRetrieve(time.Since(start), true, false)
			return Record{}, false
		}
		if c.arena.isExpired(slot, now) {
			c.reclaimQueue.push(slot)
			continue
		}
		rec := c.arena.get(slot)
		c.cfg.Metrics.RecordRetrieve(time.Since(start), true, true)
		return rec, true
	}
}

// GetHighestPriorityBatch applies GetHighestPriority to each key in
// order, with no cross-key atomicity. The result is position-aligned
// with keys.
func (c *Cache) GetHighestPriorityBatch(keys []string) []Optional {
	results := make([]Optional, len(keys))
	for i, key := range keys {
		rec, ok := c.GetHighestPriority(key)
		results[i] = Optional{Record: rec, Hit: ok}
	}
	return results
}

// Close stops the background reclaimer, joining it (bounded by ctx), and
// marks the cache closed. Subsequent Insert/InsertBatch calls return
// false; GetHighestPriority(Batch) keep working against whatever state
// already exists, since retrieval never mutates arena capacity.
func (c *Cache) Close(ctx context.Context) error {
	c.closed.Store(true)
	return c.reclaimer.stop(ctx)
}
