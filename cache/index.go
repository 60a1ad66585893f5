package cache

import (
	"sync/atomic"

	"github.com/quotecache/priocache/internal/util"
)

// keyIndexShards is the fixed shard count of the key index (SPEC_FULL.md
// §3, "BUCKETS = 64"). It never changes at runtime: Config.HashTableBuckets
// is validated for parity with the original source but does not resize
// this array — resharding a lock-free list-of-lists is out of scope.
const keyIndexShards = 64

// shardNode is one entry of an atomic singly-linked list: an owned
// (key, bucket) pair plus the link to the next-older entry in its shard.
// Shard lists only ever grow — nodes are never unlinked.
type shardNode struct {
	key    string
	bucket *PriorityBucket
	next   atomic.Pointer[shardNode]
}

// keyIndex is a fixed-size array of atomic list heads mapping a key
// (midpoint/symbol) to its PriorityBucket. At most one bucket is ever
// reachable per distinct key (SPEC_FULL.md §4.3).
type keyIndex struct {
	heads          [keyIndexShards]atomic.Pointer[shardNode]
	bucketCapacity int
	priorityOf     func(Slot) int32
}

func newKeyIndex(bucketCapacity int, priorityOf func(Slot) int32) *keyIndex {
	return &keyIndex{bucketCapacity: bucketCapacity, priorityOf: priorityOf}
}

func shardFor(key string) int {
	return int(util.Fnv64aString(key) % keyIndexShards)
}

// Get performs a read-only traversal of key's shard and reports whether
// a bucket already exists for it.
func (idx *keyIndex) Get(key string) (*PriorityBucket, bool) {
	return scanShard(idx.heads[shardFor(key)].Load(), key)
}

// GetOrCreate returns the bucket for key, creating it if this is the
// first time key is seen. The creation race is resolved by a CAS on the
// shard head: the loser of the race discards its freshly built bucket
// and returns the winner's (SPEC_FULL.md §4.3, steps 3–4).
func (idx *keyIndex) GetOrCreate(key string) *PriorityBucket {
	shard := shardFor(key)
	if bucket, ok := scanShard(idx.heads[shard].Load(), key); ok {
		return bucket
	}

	candidate := &shardNode{key: key, bucket: newPriorityBucket(idx.bucketCapacity, idx.priorityOf)}
	for {
		head := idx.heads[shard].Load()
		if bucket, ok := scanShard(head, key); ok {
			return bucket
		}
		candidate.next.Store(head)
		if idx.heads[shard].CompareAndSwap(head, candidate) {
			return candidate.bucket
		}
	}
}

// scanShard walks a shard's list looking for key, starting at head.
func scanShard(head *shardNode, key string) (*PriorityBucket, bool) {
	for n := head; n != nil; n = n.next.Load() {
		if n.key == key {
			return n.bucket, true
		}
	}
	return nil, false
}
