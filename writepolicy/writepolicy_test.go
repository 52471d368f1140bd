package writepolicy

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/swrcache/types"
)

type recorder struct {
	mu   sync.Mutex
	keys []types.Key
	at   []time.Time
}

func (r *recorder) Mutate(_ context.Context, key types.Key) {
	r.mu.Lock()
	r.keys = append(r.keys, key)
	r.at = append(r.at, time.Now())
	r.mu.Unlock()
}

func (r *recorder) got() []types.Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.Key(nil), r.keys...)
}

func TestImmediate(t *testing.T) {
	rec := &recorder{}
	p := NewImmediate(rec)
	defer p.Close()

	a, b := types.NewKey("todos", nil), types.NewKey("todos/1", nil)
	p.OnWrite(context.Background(), a, b)
	assert.Equal(t, []types.Key{a, b}, rec.got())
}

func TestDeferredWaitsForDelay(t *testing.T) {
	rec := &recorder{}
	p := NewDeferred(rec, 30*time.Millisecond, 8, nil)
	defer p.Close()

	key := types.NewKey("todos", nil)
	start := time.Now()
	p.OnWrite(context.Background(), key)
	assert.Empty(t, rec.got())

	require.Eventually(t, func() bool { return len(rec.got()) == 1 }, time.Second, 5*time.Millisecond)
	rec.mu.Lock()
	assert.GreaterOrEqual(t, rec.at[0].Sub(start), 30*time.Millisecond)
	rec.mu.Unlock()
}

func TestDeferredCoalescesPendingKey(t *testing.T) {
	rec := &recorder{}
	p := NewDeferred(rec, 50*time.Millisecond, 8, nil)

	key := types.NewKey("todos", nil)
	for i := 0; i < 5; i++ {
		p.OnWrite(context.Background(), key)
	}
	assert.Equal(t, 1, p.Pending())

	p.Close()
	assert.Equal(t, []types.Key{key}, rec.got())
}

func TestDeferredDropsWhenFull(t *testing.T) {
	rec := &recorder{}
	p := NewDeferred(rec, time.Hour, 1, nil)

	// The worker takes the first request off the queue and waits on it,
	// the second fills the buffer, the rest are dropped.
	keys := []types.Key{
		types.NewKey("todos/1", nil),
		types.NewKey("todos/2", nil),
		types.NewKey("todos/3", nil),
		types.NewKey("todos/4", nil),
	}
	p.OnWrite(context.Background(), keys[0])
	require.Eventually(t, func() bool { return len(p.ch) == 0 }, time.Second, time.Millisecond)
	p.OnWrite(context.Background(), keys[1:]...)

	assert.Equal(t, 2, p.Pending())
	p.Close()
	assert.Equal(t, keys[:2], rec.got())
}

func TestDeferredAfterClose(t *testing.T) {
	rec := &recorder{}
	p := NewDeferred(rec, time.Millisecond, 4, nil)
	p.Close()
	p.Close()

	assert.NotPanics(t, func() {
		p.OnWrite(context.Background(), types.NewKey("todos", nil))
	})
	assert.Empty(t, rec.got())
}
