package cache

import (
	"context"
	"sync"

	"github.com/krisalay/swrcache/api"
	"github.com/krisalay/swrcache/types"
)

/*
Subscription is one observer bound to at most one key at a time.

It is what a view holds: Bind points it at a key (subscribing and resolving),
rebinding moves it to another key, and onChange fires for every newer
snapshot of the bound key. Notifications for a previously bound key, or
older than the last one delivered, are dropped.
*/
type Subscription struct {
	cache    api.Cache
	opts     types.Options
	onChange func(types.Snapshot)

	mu    sync.Mutex
	key   types.Key
	snap  types.Snapshot
	unsub func()

	// binding is set while a Bind of key is subscribing; seq identifies
	// the latest Bind so an overtaken one gives up its subscription.
	binding bool
	seq     uint64
	closed  bool
}

// NewSubscription creates an unbound subscription. onChange may be nil.
func NewSubscription(c api.Cache, opts types.Options, onChange func(types.Snapshot)) *Subscription {
	return &Subscription{cache: c, opts: opts, onChange: onChange}
}

/*
Bind points the subscription at key and returns its current snapshot.

BEHAVIOR:
---------
- same key as before, or a Bind of it still subscribing: no-op, returns
  the last snapshot
- NoKey: unsubscribes, returns an empty snapshot, no request
- another key: unsubscribes from the old key, subscribes and resolves the new one
*/
func (s *Subscription) Bind(ctx context.Context, key types.Key) types.Snapshot {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return types.Snapshot{}
	}
	if key == s.key && (key.IsZero() || s.unsub != nil || s.binding) {
		snap := s.snap
		s.mu.Unlock()
		return snap
	}
	old := s.unsub
	s.key = key
	s.snap = types.Snapshot{Key: key}
	s.unsub = nil
	s.binding = !key.IsZero()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	if old != nil {
		old()
	}
	if key.IsZero() {
		s.emit(types.Snapshot{})
		return types.Snapshot{}
	}

	first, unsub := s.cache.Subscribe(key, types.Subscriber{
		Options:  s.opts,
		OnChange: func(snap types.Snapshot) { s.deliver(key, snap) },
	})

	s.mu.Lock()
	if s.closed || s.seq != seq {
		// Rebound or closed while subscribing.
		s.mu.Unlock()
		unsub()
		return s.Snapshot()
	}
	s.unsub = unsub
	s.binding = false
	s.mu.Unlock()

	s.deliver(key, first)
	s.deliver(key, s.cache.Resolve(ctx, key, s.opts))
	return s.Snapshot()
}

// Snapshot returns the last snapshot delivered for the bound key.
func (s *Subscription) Snapshot() types.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Key returns the bound key, NoKey when unbound.
func (s *Subscription) Key() types.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key
}

// Mutate revalidates the bound key. It does nothing when unbound.
func (s *Subscription) Mutate(ctx context.Context) {
	key := s.Key()
	if key.IsZero() {
		return
	}
	s.cache.Mutate(ctx, key)
}

// Wait blocks until the bound key has no fetch in flight.
func (s *Subscription) Wait(ctx context.Context) (types.Snapshot, error) {
	key := s.Key()
	if key.IsZero() {
		return types.Snapshot{}, nil
	}
	if _, err := s.cache.Await(ctx, key); err != nil {
		return s.Snapshot(), err
	}
	return s.Snapshot(), nil
}

// Close unsubscribes. Later notifications are ignored.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsub := s.unsub
	s.unsub = nil
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

func (s *Subscription) deliver(key types.Key, snap types.Snapshot) {
	s.mu.Lock()
	if s.closed || s.key != key || snap.Version <= s.snap.Version {
		s.mu.Unlock()
		return
	}
	s.snap = snap
	s.mu.Unlock()
	s.emit(snap)
}

func (s *Subscription) emit(snap types.Snapshot) {
	if s.onChange != nil {
		s.onChange(snap)
	}
}
