// This file implements FIFO eviction.

package eviction

// fifo is the concrete FIFO policy. Reads never change the order.
type fifo struct {
	// queue holds keys in insertion order; index 0 is the oldest.
	queue []string

	// set answers "is k tracked" without scanning the queue.
	set map[string]struct{}
}

func newFIFO() *fifo {
	return &fifo{set: make(map[string]struct{})}
}

// OnGet is ignored: FIFO only cares about insertion order.
func (f *fifo) OnGet(string) {}

// OnPut appends a new key to the back of the queue. Tracked keys keep their
// original position.
func (f *fifo) OnPut(k string) {
	if _, ok := f.set[k]; ok {
		return
	}
	f.queue = append(f.queue, k)
	f.set[k] = struct{}{}
}

/*
Evict is called when the shard is full.

STEPS:
1. walk the queue from the front (oldest insert)
2. skip pinned keys
3. cut the first unpinned key out of the queue and return it

It returns "" when every tracked key is pinned.
*/
func (f *fifo) Evict(pinned func(string) bool) string {
	for i, k := range f.queue {
		if unpinned(pinned, k) {
			f.queue = append(f.queue[:i], f.queue[i+1:]...)
			delete(f.set, k)
			return k
		}
	}
	return ""
}

// Remove drops k from the set and from its place in the queue.
func (f *fifo) Remove(k string) {
	if _, ok := f.set[k]; !ok {
		return
	}
	delete(f.set, k)
	for i, v := range f.queue {
		if v == k {
			f.queue = append(f.queue[:i], f.queue[i+1:]...)
			break
		}
	}
}

func (f *fifo) Len() int {
	return len(f.queue)
}
