package shard

import (
	"sync"

	"github.com/krisalay/swrcache/eviction"
	"github.com/krisalay/swrcache/types"
)

/*
A Shard is one independent slice of the cache store.

Each shard owns:
- a copy-on-write map of entries (lock-free reads)
- its own eviction policy
- the subscribers of the keys that hash to it

Mu serialises every write, eviction bookkeeping and subscriber change.
Reads of entries never take it.
*/
type Shard struct {
	Store    ShardStore
	Eviction eviction.Policy

	// Subscribers maps key -> subscription id -> subscriber.
	Subscribers map[string]map[uint64]types.Subscriber

	Mu sync.Mutex
}

func NewShard(ev eviction.Policy) *Shard {
	return &Shard{
		Store:       NewCOWStore(),
		Eviction:    ev,
		Subscribers: make(map[string]map[uint64]types.Subscriber),
	}
}

// Pinned reports whether k must survive eviction: someone observes it or a
// fetch for it is in flight. Callers hold Mu.
func (s *Shard) Pinned(k string) bool {
	if len(s.Subscribers[k]) > 0 {
		return true
	}
	ent, ok := s.Store.Get(k)
	return ok && ent.Fetching
}

// Listeners copies the subscribers of k. Callers hold Mu.
func (s *Shard) Listeners(k string) []types.Subscriber {
	subs := s.Subscribers[k]
	if len(subs) == 0 {
		return nil
	}
	out := make([]types.Subscriber, 0, len(subs))
	for _, sub := range subs {
		out = append(out, sub)
	}
	return out
}
