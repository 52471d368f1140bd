package cache_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cache "github.com/krisalay/swrcache"
	"github.com/krisalay/swrcache/engine"
	"github.com/krisalay/swrcache/eviction"
	"github.com/krisalay/swrcache/expiration"
	"github.com/krisalay/swrcache/refresh"
	"github.com/krisalay/swrcache/types"
)

//
// ================= TEST REMOTE =================
//

// testRemote answers every key with a counter-stamped body. While gated,
// requests block until release is called.
type testRemote struct {
	calls atomic.Int64

	mu    sync.Mutex
	gate  chan struct{}
	fail  error
	byKey map[string]int
}

func newTestRemote() *testRemote {
	return &testRemote{byKey: make(map[string]int)}
}

func (r *testRemote) hold() {
	r.mu.Lock()
	r.gate = make(chan struct{})
	r.mu.Unlock()
}

func (r *testRemote) release() {
	r.mu.Lock()
	if r.gate != nil {
		close(r.gate)
		r.gate = nil
	}
	r.mu.Unlock()
}

func (r *testRemote) failWith(err error) {
	r.mu.Lock()
	r.fail = err
	r.mu.Unlock()
}

func (r *testRemote) count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byKey[key]
}

func (r *testRemote) Fetch(ctx context.Context, key types.Key) (json.RawMessage, error) {
	n := r.calls.Add(1)

	r.mu.Lock()
	r.byKey[key.String()]++
	gate := r.gate
	fail := r.fail
	r.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail != nil {
		return nil, fail
	}
	return json.RawMessage(fmt.Sprintf(`{"key":%q,"n":%d}`, key.String(), n)), nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

//
// ================= HELPER: CREATE CACHE =================
//

type testCache struct {
	*cache.Coordinator
	remote *testRemote
	stats  *types.Stats
	clock  *fakeClock
}

func newTestCache(t *testing.T, capacity int, staleAfter time.Duration, hook refresh.Hook) *testCache {
	t.Helper()

	remote := newTestRemote()
	stats := &types.Stats{}
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}

	eng := engine.NewCacheEngine(expiration.New(staleAfter), hook, remote, stats, nil)
	eng.Clock = clock

	c := cache.NewCoordinator(2, capacity, eviction.LRU, eng)
	t.Cleanup(c.Close)

	return &testCache{Coordinator: c, remote: remote, stats: stats, clock: clock}
}

func resolveAndWait(t *testing.T, c *testCache, key types.Key) types.Snapshot {
	t.Helper()
	ctx := context.Background()
	c.Resolve(ctx, key, types.StableOptions())
	snap, err := c.Await(ctx, key)
	require.NoError(t, err)
	return snap
}

//
// ================= RESOLVE =================
//

func TestResolveNoKeyNeverFetches(t *testing.T) {
	c := newTestCache(t, 10, 0, nil)

	snap := c.Resolve(context.Background(), types.NoKey, types.DefaultOptions())

	assert.Nil(t, snap.Data)
	assert.False(t, snap.IsLoading)
	assert.Zero(t, c.remote.calls.Load())
}

func TestResolveMissThenHit(t *testing.T) {
	c := newTestCache(t, 10, 0, nil)
	key := types.NewKey("todos/1", nil)

	first := c.Resolve(context.Background(), key, types.StableOptions())
	assert.True(t, first.IsLoading)

	snap, err := c.Await(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, snap.IsLoading)
	assert.False(t, snap.IsValidating)
	assert.JSONEq(t, `{"key":"todos/1","n":1}`, string(snap.Data))

	again := c.Resolve(context.Background(), key, types.StableOptions())
	assert.Equal(t, snap.Version, again.Version)
	assert.Equal(t, int64(1), c.remote.calls.Load())

	stats := c.stats.Snapshot()
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Hits)
}

func TestConcurrentResolveDeduplicates(t *testing.T) {
	c := newTestCache(t, 10, 0, nil)
	key := types.NewKey("products", nil)

	c.remote.hold()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Resolve(context.Background(), key, types.StableOptions())
		}()
	}
	wg.Wait()

	c.remote.release()
	snap, err := c.Await(context.Background(), key)
	require.NoError(t, err)

	assert.Equal(t, int64(1), c.remote.calls.Load())
	assert.NotNil(t, snap.Data)
	assert.Equal(t, int64(49), c.stats.Snapshot().Dedups)
}

func TestFailureKeepsPreviousData(t *testing.T) {
	c := newTestCache(t, 10, 0, nil)
	key := types.NewKey("todos/1", nil)

	ok := resolveAndWait(t, c, key)
	require.NotNil(t, ok.Data)

	c.remote.failWith(errors.New("offline"))
	c.Mutate(context.Background(), key)
	failed, err := c.Await(context.Background(), key)
	require.NoError(t, err)

	assert.EqualError(t, failed.Err, "offline")
	assert.Equal(t, ok.Data, failed.Data)
	assert.Equal(t, ok.LastFetchedAt, failed.LastFetchedAt)

	// An errored entry is not retried on read.
	c.Resolve(context.Background(), key, types.StableOptions())
	assert.Equal(t, int64(2), c.remote.calls.Load())

	c.remote.failWith(nil)
	c.Mutate(context.Background(), key)
	recovered, err := c.Await(context.Background(), key)
	require.NoError(t, err)
	assert.NoError(t, recovered.Err)
	assert.JSONEq(t, `{"key":"todos/1","n":3}`, string(recovered.Data))
}

//
// ================= STALENESS & REFRESH =================
//

func TestStaleEntryIsServedAndRevalidated(t *testing.T) {
	c := newTestCache(t, 10, time.Minute, nil)
	key := types.NewKey("recipes", nil)

	fresh := resolveAndWait(t, c, key)

	c.clock.Advance(30 * time.Second)
	assert.Equal(t, fresh.Version, c.Resolve(context.Background(), key, types.StableOptions()).Version)
	assert.Equal(t, int64(1), c.remote.calls.Load())

	c.clock.Advance(time.Minute)
	stale := c.Resolve(context.Background(), key, types.StableOptions())
	assert.Equal(t, fresh.Data, stale.Data, "stale data stays visible")
	assert.True(t, stale.IsValidating)
	assert.False(t, stale.IsLoading)

	snap, err := c.Await(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.remote.calls.Load())
	assert.NotEqual(t, fresh.Data, snap.Data)
}

func TestRefreshAheadRevalidatesOnHit(t *testing.T) {
	c := newTestCache(t, 10, 0, refresh.New(time.Minute, 10*time.Second))
	key := types.NewKey("todos", nil)

	resolveAndWait(t, c, key)

	c.clock.Advance(55 * time.Second)
	hit := c.Resolve(context.Background(), key, types.StableOptions())
	assert.NotNil(t, hit.Data)

	_, err := c.Await(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.remote.calls.Load())
	assert.Equal(t, int64(1), c.stats.Snapshot().Refreshes)
}

//
// ================= MUTATE =================
//

func TestMutateCoalescesWhileInFlight(t *testing.T) {
	c := newTestCache(t, 10, 0, nil)
	key := types.NewKey("todos", nil)

	resolveAndWait(t, c, key)

	c.remote.hold()
	c.Mutate(context.Background(), key)
	for i := 0; i < 10; i++ {
		c.Mutate(context.Background(), key)
	}
	c.remote.release()

	snap, err := c.Await(context.Background(), key)
	require.NoError(t, err)

	// Initial fetch, the mutate fetch, one coalesced follow-up.
	assert.Equal(t, int64(3), c.remote.calls.Load())
	assert.False(t, snap.IsValidating)
	assert.JSONEq(t, `{"key":"todos","n":3}`, string(snap.Data))
}

func TestMutateOnUnknownKeyFetchesIt(t *testing.T) {
	c := newTestCache(t, 10, 0, nil)
	key := types.NewKey("todos/9", nil)

	c.Mutate(context.Background(), key)
	snap, err := c.Await(context.Background(), key)
	require.NoError(t, err)

	assert.NotNil(t, snap.Data)
	assert.Equal(t, 1, c.remote.count("todos/9"))
}

func TestMutateNoKeyIsNoop(t *testing.T) {
	c := newTestCache(t, 10, 0, nil)
	c.Mutate(context.Background(), types.NoKey)
	assert.Zero(t, c.remote.calls.Load())
}

//
// ================= SUBSCRIBE / FOCUS / RECONNECT =================
//

func TestSubscribersSeeEveryChange(t *testing.T) {
	c := newTestCache(t, 10, 0, nil)
	key := types.NewKey("todos/1", nil)

	var mu sync.Mutex
	var seen []types.Snapshot
	_, unsub := c.Subscribe(key, types.Subscriber{OnChange: func(s types.Snapshot) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	}})
	defer unsub()

	resolveAndWait(t, c, key)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.True(t, seen[0].IsLoading)
	assert.False(t, seen[1].IsValidating)
	assert.Less(t, seen[0].Version, seen[1].Version)
}

func TestFocusRevalidatesOptedInKeys(t *testing.T) {
	c := newTestCache(t, 10, 0, nil)
	focused := types.NewKey("products", nil)
	stable := types.NewKey("products/categories", nil)

	_, u1 := c.Subscribe(focused, types.Subscriber{Options: types.DefaultOptions()})
	defer u1()
	_, u2 := c.Subscribe(stable, types.Subscriber{Options: types.StableOptions()})
	defer u2()

	resolveAndWait(t, c, focused)
	resolveAndWait(t, c, stable)

	c.Focus(context.Background())
	_, err := c.Await(context.Background(), focused)
	require.NoError(t, err)
	assert.Equal(t, 2, c.remote.count("products"))
	assert.Equal(t, 1, c.remote.count("products/categories"))

	c.Reconnect(context.Background())
	_, err = c.Await(context.Background(), focused)
	require.NoError(t, err)
	assert.Equal(t, 3, c.remote.count("products"))
	assert.Equal(t, 1, c.remote.count("products/categories"))
}

//
// ================= FORGET / CLOSE =================
//

func TestForgetDiscardsInFlightResult(t *testing.T) {
	c := newTestCache(t, 10, 0, nil)
	key := types.NewKey("todos", nil)

	c.remote.hold()
	c.Resolve(context.Background(), key, types.StableOptions())
	c.Forget(key)
	c.remote.release()

	_, err := c.Await(context.Background(), key)
	require.NoError(t, err)

	// Give the detached flight time to finish.
	time.Sleep(20 * time.Millisecond)
	_, ok := c.Peek(key)
	assert.False(t, ok)
}

func TestCloseCancelsFlights(t *testing.T) {
	c := newTestCache(t, 10, 0, nil)
	key := types.NewKey("todos", nil)

	c.remote.hold()
	c.Resolve(context.Background(), key, types.StableOptions())
	c.Close()

	snap, ok := c.Peek(key)
	require.True(t, ok)
	assert.False(t, snap.IsValidating)
	assert.NoError(t, snap.Err)

	// Closed caches serve what they have but never fetch.
	c.Resolve(context.Background(), types.NewKey("recipes", nil), types.StableOptions())
	assert.Equal(t, int64(1), c.remote.calls.Load())
}

func TestAwaitHonoursContext(t *testing.T) {
	c := newTestCache(t, 10, 0, nil)
	key := types.NewKey("todos", nil)

	c.remote.hold()
	defer c.remote.release()
	c.Resolve(context.Background(), key, types.StableOptions())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	snap, err := c.Await(ctx, key)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, snap.IsLoading)
}

//
// ================= CAPACITY & EVICTION =================
//

func TestEvictionSkipsSubscribedKeys(t *testing.T) {
	c := newTestCache(t, 2, 0, nil)

	// Capacity 2 over 2 shards: one entry per shard.
	pinned := types.NewKey("todos/pinned", nil)
	_, unsub := c.Subscribe(pinned, types.Subscriber{})
	defer unsub()
	resolveAndWait(t, c, pinned)

	for i := 0; i < 20; i++ {
		resolveAndWait(t, c, types.NewKey(fmt.Sprintf("todos/%d", i), nil))
	}

	snap, ok := c.Peek(pinned)
	require.True(t, ok)
	assert.NotNil(t, snap.Data)
	assert.Positive(t, c.stats.Snapshot().Evictions)
	assert.LessOrEqual(t, c.Store().Len(), 3)
}

//
// ================= SUBSCRIPTION =================
//

func TestSubscriptionBindAndRebind(t *testing.T) {
	c := newTestCache(t, 10, 0, nil)
	ctx := context.Background()

	var mu sync.Mutex
	var seen []types.Snapshot
	sub := cache.NewSubscription(c, types.StableOptions(), func(s types.Snapshot) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})
	defer sub.Close()

	a := types.NewKey("todos/1", nil)
	b := types.NewKey("todos/2", nil)

	c.remote.hold()
	first := sub.Bind(ctx, a)
	assert.True(t, first.IsLoading)

	// Rebind before a resolves; a's result must not reach the view.
	sub.Bind(ctx, b)
	c.remote.release()

	snap, err := sub.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, b, snap.Key)
	assert.Contains(t, string(snap.Data), `"key":"todos/2"`)

	_, err = c.Await(ctx, a)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	for _, s := range seen {
		if s.Key == a {
			assert.Nil(t, s.Data, "no data for the old key after rebind")
		}
	}
	assert.Equal(t, b, seen[len(seen)-1].Key)
}

func TestSubscriptionNoKey(t *testing.T) {
	c := newTestCache(t, 10, 0, nil)
	sub := cache.NewSubscription(c, types.DefaultOptions(), nil)
	defer sub.Close()

	snap := sub.Bind(context.Background(), types.NoKey)
	assert.False(t, snap.IsLoading)
	assert.Nil(t, snap.Data)

	sub.Mutate(context.Background())
	_, err := sub.Wait(context.Background())
	require.NoError(t, err)
	assert.Zero(t, c.remote.calls.Load())
}

func TestSubscriptionMutate(t *testing.T) {
	c := newTestCache(t, 10, 0, nil)
	ctx := context.Background()

	sub := cache.NewSubscription(c, types.StableOptions(), nil)
	defer sub.Close()

	sub.Bind(ctx, types.NewKey("todos", nil))
	before, err := sub.Wait(ctx)
	require.NoError(t, err)

	sub.Mutate(ctx)
	after, err := sub.Wait(ctx)
	require.NoError(t, err)

	assert.Greater(t, after.Version, before.Version)
	assert.NotEqual(t, before.Data, after.Data)
	assert.Equal(t, int64(2), c.remote.calls.Load())
}

// slowSubscribe widens the window between a Bind starting and its
// subscription being installed.
type slowSubscribe struct {
	*testCache
}

func (s slowSubscribe) Subscribe(key types.Key, sub types.Subscriber) (types.Snapshot, func()) {
	time.Sleep(5 * time.Millisecond)
	return s.Coordinator.Subscribe(key, sub)
}

func TestSubscriptionConcurrentBindKeepsOneSubscriber(t *testing.T) {
	c := newTestCache(t, 10, 0, nil)
	ctx := context.Background()
	a := types.NewKey("todos", nil)
	b := types.NewKey("recipes", nil)

	sub := cache.NewSubscription(slowSubscribe{c}, types.DefaultOptions(), nil)

	var wg sync.WaitGroup
	for _, k := range []types.Key{a, a, b, a} {
		k := k
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub.Bind(ctx, k)
		}()
	}
	wg.Wait()

	bound := c.Store().SubscribedKeys(nil)
	require.Len(t, bound, 1)
	assert.Equal(t, sub.Key(), bound[0])

	sub.Close()
	assert.Empty(t, c.Store().SubscribedKeys(nil), "no subscriber outlives Close")
}

//
// ================= STORE =================
//

func TestStoreSetDiscardedPatch(t *testing.T) {
	c := newTestCache(t, 10, 0, nil)
	key := types.NewKey("todos", nil)

	_, ok := c.Store().Set(key, func(*types.Entry) bool { return false })
	assert.False(t, ok)
	assert.Zero(t, c.Store().Len())

	assert.False(t, c.Store().Invalidate(key), "nothing to invalidate")

	ent, ok := c.Store().Set(key, func(e *types.Entry) bool { e.Data = []byte(`[]`); return true })
	require.True(t, ok)
	assert.Positive(t, ent.Version)
	assert.True(t, c.Store().Invalidate(key))

	c.Clear()
	assert.Zero(t, c.Store().Len())
}

func TestClearEmptiesViewsAndDiscardsRunningFetch(t *testing.T) {
	c := newTestCache(t, 10, 0, nil)
	ctx := context.Background()
	a := types.NewKey("todos", nil)
	b := types.NewKey("recipes", nil)

	sub := cache.NewSubscription(c, types.StableOptions(), nil)
	defer sub.Close()
	sub.Bind(ctx, a)
	before, err := sub.Wait(ctx)
	require.NoError(t, err)
	require.NotNil(t, before.Data)

	c.remote.hold()
	c.Resolve(ctx, b, types.StableOptions())

	c.Clear()
	assert.Zero(t, c.Store().Len())
	assert.Nil(t, sub.Snapshot().Data, "bound view sees the entry go")
	assert.Greater(t, sub.Snapshot().Version, before.Version)

	_, ok := c.Peek(b)
	assert.False(t, ok)

	c.remote.release()

	// The detached fetch never writes; a new resolve fetches again.
	c.Resolve(ctx, b, types.StableOptions())
	snap, err := c.Await(ctx, b)
	require.NoError(t, err)
	assert.NotNil(t, snap.Data)
	assert.Equal(t, 2, c.remote.count(b.String()))
}
