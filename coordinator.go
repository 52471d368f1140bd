package cache

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/krisalay/swrcache/api"
	"github.com/krisalay/swrcache/engine"
	evict "github.com/krisalay/swrcache/eviction"
	"github.com/krisalay/swrcache/types"
)

var _ api.Cache = (*Coordinator)(nil)

/*
Coordinator is the revalidating cache.

It connects:
- the ShardedStore (entries and subscribers)
- the CacheEngine (staleness, refresh-ahead, fetching, metrics)
- the flight table (at most one request per key at any time)

Flights run in the background on a context detached from the caller, so a
view that goes away never cancels a request other views are waiting on.
Close cancels them all.
*/
type Coordinator struct {
	store  *ShardedStore
	engine *engine.CacheEngine
	log    *logrus.Entry

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu guards flights, gen and closed.
	mu      sync.Mutex
	flights map[types.Key]*flight
	gen     uint64
	closed  bool
}

/*
flight is one background fetch loop for a key.

rerun is set by Mutate while the request runs; the loop then fetches once
more instead of starting a parallel request. finishing is set once the loop
has decided to stop, after which a Mutate starts a fresh flight.
*/
type flight struct {
	gen       uint64
	done      chan struct{}
	rerun     bool
	finishing bool
}

func NewCoordinator(
	shards int,
	capacity int,
	eviction evict.PolicyType,
	engine *engine.CacheEngine,
) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		store:   NewShardedStore(shards, capacity, eviction, engine),
		engine:  engine,
		log:     engine.Log.WithField("component", "coordinator"),
		ctx:     ctx,
		cancel:  cancel,
		flights: make(map[types.Key]*flight),
	}
}

// Store exposes the underlying entry store.
func (c *Coordinator) Store() *ShardedStore {
	return c.store
}

// Stats returns the counters when the engine records into a *types.Stats.
func (c *Coordinator) Stats() types.StatsSnapshot {
	if s, ok := c.engine.Metrics.(*types.Stats); ok {
		return s.Snapshot()
	}
	return types.StatsSnapshot{}
}

func (c *Coordinator) Resolve(ctx context.Context, key types.Key, _ types.Options) types.Snapshot {
	if key.IsZero() {
		return types.Snapshot{}
	}

	if ent, ok := c.store.Get(key); ok && !ent.Fetching && !c.engine.Due(&ent) {
		c.engine.Metrics.Hit()
		c.store.Touch(key)
		if c.engine.OnRead(&ent) {
			c.revalidate(ctx, key, false)
		}
		return ent.Snapshot()
	}

	if c.revalidate(ctx, key, false) {
		c.engine.Metrics.Miss()
	} else {
		c.engine.Metrics.Dedup()
	}
	c.store.Touch(key)

	snap, _ := c.Peek(key)
	return snap
}

func (c *Coordinator) Await(ctx context.Context, key types.Key) (types.Snapshot, error) {
	for {
		c.mu.Lock()
		fl := c.flights[key]
		c.mu.Unlock()
		if fl == nil {
			break
		}
		select {
		case <-fl.done:
		case <-ctx.Done():
			snap, _ := c.Peek(key)
			return snap, ctx.Err()
		}
	}
	snap, _ := c.Peek(key)
	return snap, nil
}

func (c *Coordinator) Mutate(ctx context.Context, key types.Key) {
	if key.IsZero() {
		return
	}
	c.store.Invalidate(key)
	c.revalidate(ctx, key, true)
	c.log.WithField("key", key.String()).Debug("mutate")
}

func (c *Coordinator) Subscribe(key types.Key, sub types.Subscriber) (types.Snapshot, func()) {
	return c.store.Subscribe(key, sub)
}

func (c *Coordinator) Peek(key types.Key) (types.Snapshot, bool) {
	ent, ok := c.store.Get(key)
	if !ok {
		return types.Snapshot{Key: key}, false
	}
	return ent.Snapshot(), true
}

func (c *Coordinator) Forget(key types.Key) {
	if key.IsZero() {
		return
	}
	c.mu.Lock()
	if fl, ok := c.flights[key]; ok {
		// The loop sees it was detached and discards its result.
		fl.rerun = false
		delete(c.flights, key)
	}
	c.mu.Unlock()
	c.store.Remove(key)
}

// Clear drops every entry and detaches every running fetch; their late
// results are discarded. Subscribers see empty snapshots.
func (c *Coordinator) Clear() {
	c.mu.Lock()
	for key, fl := range c.flights {
		fl.rerun = false
		delete(c.flights, key)
	}
	c.mu.Unlock()
	c.store.Clear()
	c.log.Debug("cleared")
}

func (c *Coordinator) Focus(ctx context.Context) {
	c.revalidateWhere(ctx, "focus", func(o types.Options) bool { return o.RevalidateOnFocus })
}

func (c *Coordinator) Reconnect(ctx context.Context) {
	c.revalidateWhere(ctx, "reconnect", func(o types.Options) bool { return o.RevalidateOnReconnect })
}

func (c *Coordinator) revalidateWhere(ctx context.Context, event string, filter func(types.Options) bool) {
	keys := c.store.SubscribedKeys(filter)
	for _, k := range keys {
		c.revalidate(ctx, k, false)
	}
	c.log.WithFields(logrus.Fields{"event": event, "keys": len(keys)}).Debug("revalidate subscribed")
}

func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	c.log.Debug("closed")
}

/*
revalidate makes sure a fetch for key is in flight.

BEHAVIOR:
---------
- a running flight is joined; with force it is asked to fetch once more
- a finishing flight is joined, or replaced when force is set
- otherwise a new flight starts and the entry is marked Fetching

It reports whether a new flight was started.
*/
func (c *Coordinator) revalidate(ctx context.Context, key types.Key, force bool) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	if fl, ok := c.flights[key]; ok && (!fl.finishing || !force) {
		if force && !fl.finishing {
			fl.rerun = true
		}
		c.mu.Unlock()
		return false
	}

	c.gen++
	fl := &flight{gen: c.gen, done: make(chan struct{})}
	c.flights[key] = fl
	c.wg.Add(1)
	c.mu.Unlock()

	c.store.Set(key, func(e *types.Entry) bool {
		// Forget may have detached the flight already.
		c.mu.Lock()
		owned := c.flights[key] == fl
		c.mu.Unlock()
		if !owned {
			return false
		}
		e.Fetching = true
		e.Invalidated = false
		e.Generation = fl.gen
		return true
	})

	// Caller values (request ids, loggers) flow into the fetch, caller
	// cancellation does not. Close does.
	fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(c.ctx, cancel)

	go func() {
		defer c.wg.Done()
		defer cancel()
		defer stop()
		c.run(fctx, key, fl)
	}()
	return true
}

func (c *Coordinator) run(ctx context.Context, key types.Key, fl *flight) {
	defer close(fl.done)

	for {
		data, err := c.engine.Fetch(ctx, key)

		c.mu.Lock()
		owned := c.flights[key] == fl
		again := owned && fl.rerun && !c.closed
		fl.rerun = false
		if !again {
			fl.finishing = true
		}
		c.mu.Unlock()

		if owned {
			c.store.Set(key, c.complete(fl.gen, data, err, again))
		}

		if again {
			continue
		}

		c.mu.Lock()
		if c.flights[key] == fl {
			delete(c.flights, key)
		}
		c.mu.Unlock()
		return
	}
}

/*
complete builds the patch that records one fetch outcome.

The write is discarded when another flight owns the entry. A fetch cut short
by Close only clears Fetching; the entry keeps its previous outcome.
*/
func (c *Coordinator) complete(gen uint64, data json.RawMessage, err error, fetching bool) types.Patch {
	return func(e *types.Entry) bool {
		if e.Generation != gen || e.Version == 0 {
			return false
		}
		e.Fetching = fetching
		if !fetching {
			e.Invalidated = false
		}
		if c.ctx.Err() != nil {
			return true
		}

		now := c.engine.Now()
		e.LastAttemptAt = now
		if err != nil {
			e.Err = err
			return true
		}
		e.Data = data
		e.Err = nil
		e.LastFetchedAt = now
		return true
	}
}
