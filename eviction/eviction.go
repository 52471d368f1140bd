package eviction

/*
This file defines how the store picks a key to drop when a shard is full.
*/

/*
Policy is the interface every eviction strategy follows.

Policies only track key order. The store owns the data and decides which keys
are pinned: a key with live subscribers or a fetch in flight must never be
evicted, so Evict receives a predicate and walks past pinned keys.

Policies are not safe for concurrent use; the owning shard serialises calls.
*/
type Policy interface {

	// OnGet records a read of k.
	OnGet(k string)

	// OnPut records that k was inserted. Re-inserting a tracked key is a no-op.
	OnPut(k string)

	// Remove forgets k after an explicit delete.
	Remove(k string)

	// Evict picks the best victim that is not pinned, stops tracking it and
	// returns it. It returns "" when every tracked key is pinned.
	Evict(pinned func(k string) bool) string

	// Len returns the number of tracked keys.
	Len() int
}

// PolicyType names a supported strategy.
type PolicyType string

const (
	// LRU evicts the key read least recently. Default: list pages the user
	// paged away from long ago go first.
	LRU PolicyType = "LRU"

	// LFU evicts the key read the fewest times; ties go to the oldest insert.
	LFU PolicyType = "LFU"

	// FIFO evicts the key inserted first, ignoring reads.
	FIFO PolicyType = "FIFO"
)

// Valid reports whether t names a known strategy.
func (t PolicyType) Valid() bool {
	switch t {
	case LRU, LFU, FIFO:
		return true
	}
	return false
}

// NewEvictionPolicy returns a fresh policy of the given type, falling back to
// LRU for unknown names.
func NewEvictionPolicy(t PolicyType) Policy {
	switch t {
	case LFU:
		return newLFU()
	case FIFO:
		return newFIFO()
	default:
		return newLRU()
	}
}

// unpinned reports whether k may be evicted. A nil predicate pins nothing.
func unpinned(pinned func(string) bool, k string) bool {
	return pinned == nil || !pinned(k)
}
