package cache

import (
	"time"

	"github.com/quotecache/priocache/errs"
	"github.com/quotecache/priocache/internal/util"
)

// Slot identifies one record cell in the arena. A Slot is only meaningful
// in the context of the arena that issued it.
type Slot uint32

// noSlot is the sentinel used by the priority bucket for an empty cell;
// it is not a valid arena index.
const noSlot int64 = -1

// Record is a fixed-size value object stored in the arena. Records carry
// no key — the key is implied by the bucket a record's slot lives in.
// ExpiryNS holds the record's TTL in nanoseconds, not an absolute
// timestamp.
type Record struct {
	Value     float64
	Priority  int32
	CreatedNS uint64
	ExpiryNS  uint64
}

// arena is a pre-allocated, fixed-length sequence of Record slots backing
// the cache. A single monotonically increasing pool index names the next
// free slot; slots are never individually freed during normal operation
// (see cache/reclaim.go for how expired slots are instead tracked for
// advisory bookkeeping, not memory release — Go's GC owns the backing
// array for the lifetime of the Cache).
type arena struct {
	records   []Record
	poolIndex util.PaddedAtomicUint64
	maxNodes  uint64
}

// newArena allocates the backing slice for maxNodes records. The slice
// allocation is the only point where construction can fail on memory
// pressure; a panic from the allocation is recovered here and returned as
// errs.ErrAllocationFailure.
func newArena(maxNodes uint64) (a *arena, err error) {
	defer func() {
		if r := recover(); r != nil {
			a, err = nil, errs.ErrAllocationFailure
		}
	}()
	return &arena{
		records:  make([]Record, maxNodes),
		maxNodes: maxNodes,
	}, nil
}

// claim performs a wait-free atomic fetch-add on the pool index and
// returns the newly reserved slot, or errs.ErrCapacityExhausted if the
// arena has no room left. The pool index is not rolled back on failure
// (see SPEC_FULL.md §9 Open Question 1) — this wastes at most one slot
// index per failed claim, by design.
func (a *arena) claim() (Slot, error) {
	idx := a.poolIndex.Add(1) - 1
	if idx >= a.maxNodes {
		return 0, errs.ErrCapacityExhausted
	}
	return Slot(idx), nil
}

// claimRange reserves n consecutive slots in one fetch-add, used by batch
// insertion to avoid one CAS loop per item. It returns the first slot of
// the reserved range; the range is [first, first+n). On overflow past
// maxNodes, ok is false and the pool index is still advanced by n (the
// reservation is not rolled back — see SPEC_FULL.md §4.4.2).
func (a *arena) claimRange(n uint64) (first Slot, ok bool) {
	start := a.poolIndex.Add(n) - n
	if start+n > a.maxNodes {
		return 0, false
	}
	return Slot(start), true
}

// write initializes the four record fields for slot. It is the sole
// writer for this slot and must run before the slot's index is published
// through a priority bucket's atomic cell. ttl is stored as-is in
// nanoseconds; Cache.Insert/InsertBatch always resolve ttl through
// effectiveTTL (cache.go) before calling write, so ExpiryNS is never zero
// in practice — see SPEC_FULL.md §9 Open Question 6 and DESIGN.md for why
// a literal zero TTL is treated as "not supplied" rather than reproducing
// the original's expiry_time_ns = expiry_time * 1e9 immediate-expiry case.
func (a *arena) write(slot Slot, value float64, priority int32, ttl time.Duration, nowNS uint64) {
	r := &a.records[slot]
	r.Value = value
	r.Priority = priority
	r.CreatedNS = nowNS
	if ttl > 0 {
		r.ExpiryNS = uint64(ttl.Nanoseconds())
	}
}

// get returns a copy of the record stored at slot.
func (a *arena) get(slot Slot) Record {
	return a.records[slot]
}

// priorityOf returns the priority of the record at slot; it is the
// comparator the priority bucket's heap operations key on.
func (a *arena) priorityOf(slot Slot) int32 {
	return a.records[slot].Priority
}

// isExpired reports whether the record at slot has outlived its TTL as
// of nowNS. The predicate is strict: equality at the boundary is live.
func (a *arena) isExpired(slot Slot, nowNS uint64) bool {
	r := &a.records[slot]
	return nowNS-r.CreatedNS > r.ExpiryNS
}

// monoEpoch is the arbitrary epoch nowNS measures from.
var monoEpoch = time.Now()

// nowNS returns the current time as nanoseconds since an arbitrary
// monotonic epoch, matching the clock the C++ original samples with
// high_resolution_clock — time.Since uses the monotonic reading carried
// by monoEpoch, so wall-clock adjustments do not affect it.
func nowNS() uint64 {
	return uint64(time.Since(monoEpoch))
}
