// This file implements LFU eviction.

package eviction

// lfuNode is the bookkeeping for one tracked key.
type lfuNode struct {
	// freq counts reads, starting at 1 on insert
	freq int

	// seq is the insertion order; it breaks frequency ties
	seq uint64
}

/*
lfu is the concrete LFU policy.

It keeps a flat map and scans it on eviction. Shards hold a few hundred keys,
and the scan skips pinned keys without any bucket rebuilding.
*/
type lfu struct {
	nodes map[string]*lfuNode

	// seq is the last insertion number handed out
	seq uint64
}

func newLFU() *lfu {
	return &lfu{nodes: make(map[string]*lfuNode)}
}

// OnGet bumps the read count of a tracked key.
func (l *lfu) OnGet(k string) {
	if n, ok := l.nodes[k]; ok {
		n.freq++
	}
}

// OnPut starts tracking a new key with frequency 1 and the next sequence
// number. Re-inserting a tracked key keeps its count.
func (l *lfu) OnPut(k string) {
	if _, ok := l.nodes[k]; ok {
		return
	}
	l.seq++
	l.nodes[k] = &lfuNode{freq: 1, seq: l.seq}
}

/*
Evict is called when the shard is full.

STEPS:
1. scan every tracked key, skipping pinned ones
2. keep the key with the lowest frequency; on a tie the older insert wins
3. forget the winner and return it

It returns "" when every tracked key is pinned.
*/
func (l *lfu) Evict(pinned func(string) bool) string {
	victim := ""
	var best *lfuNode
	for k, n := range l.nodes {
		if !unpinned(pinned, k) {
			continue
		}
		if best == nil || n.freq < best.freq || (n.freq == best.freq && n.seq < best.seq) {
			victim, best = k, n
		}
	}
	if best != nil {
		delete(l.nodes, victim)
	}
	return victim
}

// Remove forgets k and its count.
func (l *lfu) Remove(k string) {
	delete(l.nodes, k)
}

func (l *lfu) Len() int {
	return len(l.nodes)
}
