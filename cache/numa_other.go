//go:build !linux

package cache

// preferredNUMANode is a no-op off Linux: the hint is advisory only, so
// platforms without NUMA support simply report "no preference."
func preferredNUMANode(cfg Config) int {
	return -1
}
