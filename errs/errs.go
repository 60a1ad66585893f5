// Package errs defines the error taxonomy of the priority cache's data
// plane and construction path. Errors are exposed as sentinels so callers
// can match them with errors.Is instead of inspecting strings.
package errs

import "errors"

// ErrCapacityExhausted is returned when the arena has no free slot left
// to satisfy a claim.
var ErrCapacityExhausted = errors.New("priocache: arena capacity exhausted")

// ErrBucketFull names the condition of a priority bucket at its fixed
// capacity that cannot accept another push. The cache does not return it:
// a push into a full bucket makes Insert return false.
var ErrBucketFull = errors.New("priocache: priority bucket full")

// ErrInvalidConfig is returned when a Config fails validation. Wrapped
// with the offending field name via fmt.Errorf("%w: field %q", ...).
var ErrInvalidConfig = errors.New("priocache: invalid config")

// ErrAllocationFailure is returned when the runtime could not satisfy
// the memory required to construct the arena.
var ErrAllocationFailure = errors.New("priocache: allocation failure")
