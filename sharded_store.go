package cache

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/krisalay/swrcache/engine"
	evict "github.com/krisalay/swrcache/eviction"
	"github.com/krisalay/swrcache/shard"
	"github.com/krisalay/swrcache/types"
)

/*
ShardedStore holds cache entries and their subscribers.

It is the only place entries change. Every committed write:
- replaces the stored entry with a patched copy
- stamps it with a store-wide Version
- notifies the key's subscribers after the shard lock is released

It knows nothing about fetching; the Coordinator drives it.
*/
type ShardedStore struct {
	// shards are independent slices of the key space.
	shards []*shard.Shard

	// engine provides the clock, metrics and logger.
	engine *engine.CacheEngine

	selector shard.Selector
	policy   evict.PolicyType

	// perShard is the entry limit of one shard. Zero means unbounded.
	perShard int64

	version atomic.Uint64
	subID   atomic.Uint64

	log *logrus.Entry
}

func NewShardedStore(
	shards int,
	capacity int,
	eviction evict.PolicyType,
	engine *engine.CacheEngine,
) *ShardedStore {
	if shards < 1 {
		shards = 1
	}

	s := make([]*shard.Shard, shards)
	for i := range s {
		s[i] = shard.NewShard(evict.NewEvictionPolicy(eviction))
	}

	var perShard int64
	if capacity > 0 {
		perShard = int64(capacity / shards)
		if perShard < 1 {
			perShard = 1
		}
	}

	return &ShardedStore{
		shards:   s,
		engine:   engine,
		selector: shard.HashSelector{},
		policy:   eviction,
		perShard: perShard,
		log:      engine.Log.WithField("component", "store"),
	}
}

func (s *ShardedStore) shard(key types.Key) *shard.Shard {
	return s.selector.Select(key.String(), s.shards)
}

// Get reads the entry for key without locking and without touching eviction order.
func (s *ShardedStore) Get(key types.Key) (types.Entry, bool) {
	if key.IsZero() {
		return types.Entry{}, false
	}
	return s.shard(key).Store.Get(key.String())
}

// Touch records a read of key for the eviction policy.
func (s *ShardedStore) Touch(key types.Key) {
	if key.IsZero() {
		return
	}
	sh := s.shard(key)
	sh.Mu.Lock()
	sh.Eviction.OnGet(key.String())
	sh.Mu.Unlock()
}

/*
Set applies patch to a copy of key's entry and commits it.

A missing entry starts empty. If patch returns false nothing is written and
nobody is notified. Set returns the committed entry, or the current one when
the write was discarded.
*/
func (s *ShardedStore) Set(key types.Key, patch types.Patch) (types.Entry, bool) {
	if key.IsZero() {
		return types.Entry{}, false
	}

	sh := s.shard(key)
	k := key.String()

	sh.Mu.Lock()
	cur, exists := sh.Store.Get(k)
	next := cur
	if !exists {
		next = types.Entry{Key: key, CreatedAt: s.engine.Now()}
	}
	if !patch(&next) {
		sh.Mu.Unlock()
		return cur, false
	}
	next.Key = key
	next.Version = s.version.Add(1)

	if !exists {
		s.makeRoom(sh)
	}
	sh.Store.Put(k, next)
	if !exists {
		sh.Eviction.OnPut(k)
	}
	listeners := sh.Listeners(k)
	sh.Mu.Unlock()

	notify(listeners, next.Snapshot())
	return next, true
}

// Invalidate marks an existing entry for refetch. Data stays visible.
func (s *ShardedStore) Invalidate(key types.Key) bool {
	_, ok := s.Set(key, func(e *types.Entry) bool {
		if e.Version == 0 || e.Invalidated {
			return false
		}
		e.Invalidated = true
		return true
	})
	return ok
}

/*
Subscribe registers sub for key and returns the entry's current snapshot.

The entry is created empty when missing, so the key is pinned against
eviction from the moment someone observes it. The returned func is idempotent.
*/
func (s *ShardedStore) Subscribe(key types.Key, sub types.Subscriber) (types.Snapshot, func()) {
	if key.IsZero() {
		return types.Snapshot{}, func() {}
	}

	sh := s.shard(key)
	k := key.String()

	sh.Mu.Lock()
	ent, ok := sh.Store.Get(k)
	if !ok {
		ent = types.Entry{
			Key:       key,
			CreatedAt: s.engine.Now(),
			Version:   s.version.Add(1),
		}
		s.makeRoom(sh)
		sh.Store.Put(k, ent)
		sh.Eviction.OnPut(k)
	}

	id := s.subID.Add(1)
	if sh.Subscribers[k] == nil {
		sh.Subscribers[k] = make(map[uint64]types.Subscriber)
	}
	sh.Subscribers[k][id] = sub
	sh.Mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			sh.Mu.Lock()
			delete(sh.Subscribers[k], id)
			if len(sh.Subscribers[k]) == 0 {
				delete(sh.Subscribers, k)
			}
			sh.Mu.Unlock()
		})
	}
	return ent.Snapshot(), unsubscribe
}

/*
SubscribedKeys lists keys with at least one subscriber accepted by filter.
A nil filter accepts every subscriber.
*/
func (s *ShardedStore) SubscribedKeys(filter func(types.Options) bool) []types.Key {
	var out []types.Key
	for _, sh := range s.shards {
		sh.Mu.Lock()
		for k, subs := range sh.Subscribers {
			ent, ok := sh.Store.Get(k)
			if !ok {
				continue
			}
			for _, sub := range subs {
				if filter == nil || filter(sub.Options) {
					out = append(out, ent.Key)
					break
				}
			}
		}
		sh.Mu.Unlock()
	}
	return out
}

/*
Remove drops key's entry. Subscribers stay registered and receive an empty
snapshot; the next write recreates the entry.
*/
func (s *ShardedStore) Remove(key types.Key) {
	if key.IsZero() {
		return
	}
	sh := s.shard(key)
	k := key.String()

	sh.Mu.Lock()
	if _, ok := sh.Store.Get(k); !ok {
		sh.Mu.Unlock()
		return
	}
	sh.Store.Delete(k)
	sh.Eviction.Remove(k)
	listeners := sh.Listeners(k)
	empty := types.Snapshot{Key: key, Version: s.version.Add(1)}
	sh.Mu.Unlock()

	notify(listeners, empty)
}

/*
Clear drops every entry and resets eviction state.

Subscribers stay registered; each one observing a dropped entry receives an
empty snapshot, as with Remove.
*/
func (s *ShardedStore) Clear() {
	type pending struct {
		listeners []types.Subscriber
		snap      types.Snapshot
	}
	var out []pending

	for _, sh := range s.shards {
		sh.Mu.Lock()
		for _, k := range sh.Store.Keys() {
			ent, _ := sh.Store.Get(k)
			sh.Store.Delete(k)
			if listeners := sh.Listeners(k); len(listeners) > 0 {
				out = append(out, pending{
					listeners: listeners,
					snap:      types.Snapshot{Key: ent.Key, Version: s.version.Add(1)},
				})
			}
		}
		sh.Eviction = evict.NewEvictionPolicy(s.policy)
		sh.Mu.Unlock()
	}

	for _, p := range out {
		notify(p.listeners, p.snap)
	}
}

// Len returns the number of stored entries.
func (s *ShardedStore) Len() int {
	var n int64
	for _, sh := range s.shards {
		n += sh.Store.Size()
	}
	return int(n)
}

/*
makeRoom evicts until the shard can take one more entry.
Pinned keys are skipped; if all are pinned the shard grows past its limit.
Callers hold sh.Mu.
*/
func (s *ShardedStore) makeRoom(sh *shard.Shard) {
	if s.perShard == 0 {
		return
	}
	for sh.Store.Size() >= s.perShard {
		victim := sh.Eviction.Evict(sh.Pinned)
		if victim == "" {
			s.log.WithField("size", sh.Store.Size()).Debug("shard full of pinned keys")
			return
		}
		sh.Store.Delete(victim)
		s.engine.Metrics.Eviction()
		s.log.WithField("key", victim).Debug("evicted")
	}
}

func notify(listeners []types.Subscriber, snap types.Snapshot) {
	for _, sub := range listeners {
		if sub.OnChange != nil {
			sub.OnChange(snap)
		}
	}
}
