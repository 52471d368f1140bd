// This file implements LRU eviction.

package eviction

// lruNode represents ONE key inside the recency list, a doubly-linked list
// ordered from most to least recently read.
type lruNode struct {
	// key is the cache key this node stands for
	key string

	// prev points to the neighbour read more recently
	prev *lruNode

	// next points to the neighbour read less recently
	next *lruNode
}

// lru is the concrete LRU policy.
type lru struct {
	// nodes maps keys to their list nodes so OnGet and Remove find them in O(1).
	nodes map[string]*lruNode

	// head is the most recently used key, tail the least.
	head *lruNode
	tail *lruNode
}

func newLRU() *lru {
	return &lru{nodes: make(map[string]*lruNode)}
}

// OnGet is called on every read of k. A read makes the key "recently used",
// so its node moves to the front of the list. Untracked keys are ignored.
func (l *lru) OnGet(k string) {
	if n, ok := l.nodes[k]; ok {
		l.unlink(n)
		l.pushFront(n)
	}
}

// OnPut is called when a key is inserted.
// - If the key is already tracked, nothing changes (reads are OnGet's job)
// - Otherwise a node is created at the front (most recently used)
func (l *lru) OnPut(k string) {
	if _, ok := l.nodes[k]; ok {
		return
	}
	n := &lruNode{key: k}
	l.nodes[k] = n
	l.pushFront(n)
}

/*
Evict is called when the shard is full.

STEPS:
1. start at the tail (least recently used)
2. walk towards the head, skipping pinned keys
3. unlink the first unpinned node, forget it and return its key

It returns "" when every tracked key is pinned.
*/
func (l *lru) Evict(pinned func(string) bool) string {
	for n := l.tail; n != nil; n = n.prev {
		if unpinned(pinned, n.key) {
			l.unlink(n)
			delete(l.nodes, n.key)
			return n.key
		}
	}
	return ""
}

// Remove unlinks k after the store deleted it outside of eviction.
func (l *lru) Remove(k string) {
	if n, ok := l.nodes[k]; ok {
		l.unlink(n)
		delete(l.nodes, k)
	}
}

func (l *lru) Len() int {
	return len(l.nodes)
}

// pushFront makes n the head. When the list was empty n is the tail too.
func (l *lru) pushFront(n *lruNode) {
	n.prev = nil
	n.next = l.head
	if l.head != nil {
		l.head.prev = n
	}
	l.head = n
	if l.tail == nil {
		l.tail = n
	}
}

// unlink detaches n from its neighbours, fixing head and tail when n was at
// either end.
func (l *lru) unlink(n *lruNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next = nil, nil
}
