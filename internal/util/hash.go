// Package util contains internal helpers (hashing, padding) shared by the
// cache's lock-free data structures.
//revive:disable:var-naming  // allow 'util' as an internal helpers package name
package util

// Fnv64aString hashes a key (the midpoint/symbol string) using 64-bit
// FNV-1a over its UTF-8 byte sequence. Used to pick a shard in the key
// index; not a cryptographic hash.
func Fnv64aString(s string) uint64 {
	h := uint64(fnvOffset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime64
	}
	return h
}

const (
	fnvOffset64 = 14695981039346656037
	fnvPrime64  = 1099511628211
)
