package cache

import (
	"runtime"
	"sync/atomic"
)

// PriorityBucket is a fixed-capacity concurrent max-heap over arena slot
// indices, keyed on the slot's Priority. It is the structure associated
// with exactly one key (midpoint) in the key index.
//
// The heap only weakly maintains the max-heap property: sift-up and
// sift-down abandon on CAS failure rather than retrying, so concurrent
// pushes/pops may leave the array transiently — or, rarely, persistently
// — out of strict heap order. Pop returns a high-priority slot, not
// necessarily the highest; it does not check expiry, which the Cache
// facade does after popping. See SPEC_FULL.md §4.2.
type PriorityBucket struct {
	priorityOf func(Slot) int32

	cells    []atomic.Int64
	size     atomic.Int64
	capacity int64
}

// newPriorityBucket constructs an empty bucket with room for capacity
// slots. priorityOf is a weak reference back into the owning arena: the
// bucket never outlives the arena in practice, but holds no pointer to
// it, only this accessor closure (SPEC_FULL.md §3, "Relationships").
func newPriorityBucket(capacity int, priorityOf func(Slot) int32) *PriorityBucket {
	if capacity < 1 {
		capacity = 1
	}
	b := &PriorityBucket{
		priorityOf: priorityOf,
		cells:      make([]atomic.Int64, capacity),
		capacity:   int64(capacity),
	}
	for i := range b.cells {
		b.cells[i].Store(noSlot)
	}
	return b
}

// Push inserts slot into the heap. It returns false iff the bucket is
// already at capacity; Cache.Insert then returns false.
func (b *PriorityBucket) Push(slot Slot) bool {
	for {
		size := b.size.Load()
		if size >= b.capacity {
			return false
		}
		if b.size.CompareAndSwap(size, size+1) {
			b.cells[size].Store(int64(slot))
			b.siftUp(int(size))
			return true
		}
		runtime.Gosched()
	}
}

// Pop removes and returns the slot at the root of the heap. It returns
// ok=false iff the bucket is empty; it never fails for any other reason.
func (b *PriorityBucket) Pop() (slot Slot, ok bool) {
	for {
		size := b.size.Load()
		if size == 0 {
			return 0, false
		}
		top := b.cells[0].Load()
		if top == noSlot {
			runtime.Gosched()
			continue
		}
		if b.size.CompareAndSwap(size, size-1) {
			last := b.cells[size-1].Swap(noSlot)
			if size > 1 {
				b.cells[0].Store(last)
				b.siftDown(0)
			}
			return Slot(top), true
		}
		runtime.Gosched()
	}
}

// Len returns a snapshot of the number of slots currently resident in
// the heap. Not useful as a precise size under concurrent mutation.
func (b *PriorityBucket) Len() int {
	return int(b.size.Load())
}

// siftUp walks index parent-ward, swapping a child over its parent while
// the child's priority is strictly greater. It stops — leaving the heap
// relaxed rather than strict — the moment either CAS in the swap fails.
func (b *PriorityBucket) siftUp(index int) {
	for index > 0 {
		parent := (index - 1) / 2
		child := b.cells[index].Load()
		parentSlot := b.cells[parent].Load()
		if child == noSlot || parentSlot == noSlot {
			return
		}
		if b.priorityOf(Slot(parentSlot)) >= b.priorityOf(Slot(child)) {
			return
		}
		if b.cells[parent].CompareAndSwap(parentSlot, child) &&
			b.cells[index].CompareAndSwap(child, parentSlot) {
			index = parent
		} else {
			return
		}
	}
}

// siftDown walks index child-ward, swapping the current cell with its
// larger child while the current cell is not already the larger of the
// two. It stops on the first CAS failure, same relaxation as siftUp.
func (b *PriorityBucket) siftDown(index int) {
	size := int(b.size.Load())
	for {
		current := b.cells[index].Load()
		if current == noSlot {
			return
		}
		largest := index
		largestPriority := b.priorityOf(Slot(current))

		if left := 2*index + 1; left < size {
			if raw := b.cells[left].Load(); raw != noSlot {
				if p := b.priorityOf(Slot(raw)); p > largestPriority {
					largest, largestPriority = left, p
				}
			}
		}
		if right := 2*index + 2; right < size {
			if raw := b.cells[right].Load(); raw != noSlot {
				if p := b.priorityOf(Slot(raw)); p > largestPriority {
					largest = right
				}
			}
		}
		if largest == index {
			return
		}

		largestRaw := b.cells[largest].Load()
		if b.cells[index].CompareAndSwap(current, largestRaw) &&
			b.cells[largest].CompareAndSwap(largestRaw, current) {
			index = largest
		} else {
			return
		}
	}
}
