package eviction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func pinnedSet(keys ...string) func(string) bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return func(k string) bool { return set[k] }
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	p := NewEvictionPolicy(LRU)
	p.OnPut("a")
	p.OnPut("b")
	p.OnPut("c")
	p.OnGet("a")

	assert.Equal(t, "b", p.Evict(nil))
	assert.Equal(t, "c", p.Evict(nil))
	assert.Equal(t, "a", p.Evict(nil))
	assert.Equal(t, "", p.Evict(nil))
}

func TestLRUSkipsPinned(t *testing.T) {
	p := NewEvictionPolicy(LRU)
	p.OnPut("a")
	p.OnPut("b")
	p.OnPut("c")

	assert.Equal(t, "b", p.Evict(pinnedSet("a")))
	assert.Equal(t, "", p.Evict(pinnedSet("a", "c")))
	assert.Equal(t, 2, p.Len())
}

func TestLRURemove(t *testing.T) {
	p := NewEvictionPolicy(LRU)
	p.OnPut("a")
	p.OnPut("b")
	p.Remove("a")
	p.Remove("missing")

	assert.Equal(t, 1, p.Len())
	assert.Equal(t, "b", p.Evict(nil))
}

func TestFIFOIgnoresReads(t *testing.T) {
	p := NewEvictionPolicy(FIFO)
	p.OnPut("a")
	p.OnPut("b")
	p.OnGet("a")
	p.OnPut("a")

	assert.Equal(t, "a", p.Evict(nil))
	assert.Equal(t, "b", p.Evict(nil))
}

func TestFIFOSkipsPinned(t *testing.T) {
	p := NewEvictionPolicy(FIFO)
	p.OnPut("a")
	p.OnPut("b")
	p.Remove("b")
	p.OnPut("c")

	assert.Equal(t, "c", p.Evict(pinnedSet("a")))
	assert.Equal(t, 1, p.Len())
}

func TestLFUEvictsLeastFrequent(t *testing.T) {
	p := NewEvictionPolicy(LFU)
	p.OnPut("a")
	p.OnPut("b")
	p.OnPut("c")
	p.OnGet("a")
	p.OnGet("a")
	p.OnGet("c")

	assert.Equal(t, "b", p.Evict(nil))
	assert.Equal(t, "a", p.Evict(pinnedSet("c")))
	assert.Equal(t, "c", p.Evict(nil))
}

func TestLFUTieBreaksOnAge(t *testing.T) {
	p := NewEvictionPolicy(LFU)
	p.OnPut("x")
	p.OnPut("y")
	assert.Equal(t, "x", p.Evict(nil))
}

func TestPolicyTypeValid(t *testing.T) {
	assert.True(t, LRU.Valid())
	assert.True(t, PolicyType("FIFO").Valid())
	assert.False(t, PolicyType("RANDOM").Valid())
	assert.IsType(t, &lru{}, NewEvictionPolicy("RANDOM"))
}
