package cache

import (
	"fmt"
	"time"

	"github.com/quotecache/priocache/errs"
)

// Config configures a Cache. Fields left at their zero value receive the
// defaults below — exactly as the original C++ CacheConfig's struct
// member initializers apply a default the first time the field is read,
// unless a caller overrides it (SPEC_FULL.md §6). Explicitly negative
// values are never defaulted; they fail Validate.
type Config struct {
	// MaxNodes is the arena capacity (total slot count).
	MaxNodes uint64
	// CleanupInterval is the background reclamation cadence.
	CleanupInterval time.Duration
	// MaxMemoryMB is an advisory upper bound on arena memory; the core
	// does not enforce it, it is surfaced for the out-of-scope metrics
	// and alerting layers.
	MaxMemoryMB uint64
	// NumWorkerThreads is a recommended parallelism hint for callers
	// driving the cache; the core itself is parallelism-agnostic.
	NumWorkerThreads int
	// BatchSize is the recommended item count per InsertBatch call; the
	// core does not enforce it as a hard limit.
	BatchSize int
	// HashTableBuckets is validated for parity with the original
	// contract but does not resize the key index, which is fixed at 64
	// shards in the core (SPEC_FULL.md §4.3).
	HashTableBuckets int
	// HeapInitialCapacity is the per-bucket heap capacity floor. Zero
	// derives MaxNodes/10.
	HeapInitialCapacity int
	// EnableNUMA and NUMANode are a placement hint only; see
	// cache/numa_linux.go. They have no effect on any contract.
	EnableNUMA bool
	NUMANode   int
	// DefaultExpirySeconds is the TTL Insert/InsertBatch use when a caller
	// leaves ttl at its zero value, mirroring the original's
	// insert(..., double expiry_time = 60.0) default parameter
	// (SPEC_FULL.md §4.4.1, effectiveTTL in cache.go).
	DefaultExpirySeconds float64
	// MaxExpiredPerCleanup caps how many queued expired slots the
	// reclaimer drains per wake.
	MaxExpiredPerCleanup int

	// Metrics receives Hit/Miss/latency/queue-depth signals. Nil uses
	// NoopMetrics.
	Metrics Metrics

	// Demote and RetrieveFromDisk are optional hooks mirroring the
	// unspecified disk tier's try_demote/try_retrieve interface
	// (SPEC_FULL.md §6.1). The core never calls them on its own.
	Demote           DemoteFunc
	RetrieveFromDisk RetrieveFunc
}

// DemoteFunc offers a record to an out-of-scope colder storage tier.
type DemoteFunc func(rec Record, key string) bool

// RetrieveFunc attempts to recover a record from an out-of-scope colder
// storage tier.
type RetrieveFunc func(key string) (Record, bool)

// validatedField names one of the fields that must be strictly positive
// once defaults have been applied.
type validatedField struct {
	name string
	val  int64
}

// withDefaults returns a copy of c with every zero-valued field from the
// table in SPEC_FULL.md §6 filled in. Fields left negative are passed
// through untouched so Validate can reject them.
func (c Config) withDefaults() Config {
	if c.MaxNodes == 0 {
		c.MaxNodes = 10_000
	}
	if c.CleanupInterval == 0 {
		c.CleanupInterval = time.Second
	}
	if c.MaxMemoryMB == 0 {
		c.MaxMemoryMB = 1024
	}
	if c.NumWorkerThreads == 0 {
		c.NumWorkerThreads = 4
	}
	if c.BatchSize == 0 {
		c.BatchSize = 100
	}
	if c.HashTableBuckets == 0 {
		c.HashTableBuckets = keyIndexShards
	}
	if c.HeapInitialCapacity == 0 {
		c.HeapInitialCapacity = int(c.MaxNodes / 10)
	}
	if c.DefaultExpirySeconds == 0 {
		c.DefaultExpirySeconds = 60.0
	}
	if c.MaxExpiredPerCleanup == 0 {
		c.MaxExpiredPerCleanup = 1_000
	}
	if c.Metrics == nil {
		c.Metrics = NoopMetrics{}
	}
	return c
}

// Validate reports an error wrapping errs.ErrInvalidConfig if any of the
// fields the original's validate_config() checks is not positive.
func (c Config) Validate() error {
	fields := []validatedField{
		{"MaxNodes", int64(c.MaxNodes)},
		{"CleanupInterval", int64(c.CleanupInterval)},
		{"MaxMemoryMB", int64(c.MaxMemoryMB)},
		{"NumWorkerThreads", int64(c.NumWorkerThreads)},
		{"BatchSize", int64(c.BatchSize)},
		{"HashTableBuckets", int64(c.HashTableBuckets)},
	}
	for _, f := range fields {
		if f.val <= 0 {
			return fmt.Errorf("%w: field %q", errs.ErrInvalidConfig, f.name)
		}
	}
	return nil
}
