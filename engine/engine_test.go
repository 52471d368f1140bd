package engine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/swrcache/expiration"
	"github.com/krisalay/swrcache/refresh"
	"github.com/krisalay/swrcache/types"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

func TestDue(t *testing.T) {
	clk := &fixedClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	e := NewCacheEngine(expiration.New(time.Minute), nil, nil, nil, nil)
	e.Clock = clk

	assert.True(t, e.Due(&types.Entry{}), "never fetched")

	ent := &types.Entry{LastAttemptAt: clk.now, LastFetchedAt: clk.now}
	assert.False(t, e.Due(ent))

	ent.Invalidated = true
	assert.True(t, e.Due(ent))

	ent.Invalidated = false
	clk.now = clk.now.Add(time.Minute)
	assert.True(t, e.Due(ent), "stale")
}

func TestDueAfterFailureWaitsForMutate(t *testing.T) {
	e := NewCacheEngine(nil, nil, nil, nil, nil)
	ent := &types.Entry{LastAttemptAt: time.Now(), Err: errors.New("offline")}
	assert.False(t, e.Due(ent))
}

func TestOnReadCountsRefresh(t *testing.T) {
	clk := &fixedClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	stats := &types.Stats{}
	e := NewCacheEngine(nil, refresh.New(time.Minute, 10*time.Second), nil, stats, nil)
	e.Clock = clk

	ent := &types.Entry{LastFetchedAt: clk.now}
	assert.False(t, e.OnRead(ent))

	clk.now = clk.now.Add(55 * time.Second)
	assert.True(t, e.OnRead(ent))
	assert.Equal(t, int64(1), stats.Snapshot().Refreshes)
}

func TestFetchRecordsMetrics(t *testing.T) {
	stats := &types.Stats{}
	fail := true
	fetcher := types.FetcherFunc(func(ctx context.Context, key types.Key) (json.RawMessage, error) {
		if fail {
			return nil, errors.New("down")
		}
		return json.RawMessage(`{"ok":true}`), nil
	})
	e := NewCacheEngine(nil, nil, fetcher, stats, nil)

	_, err := e.Fetch(context.Background(), types.NewKey("todos", nil))
	require.Error(t, err)

	fail = false
	data, err := e.Fetch(context.Background(), types.NewKey("todos", nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(data))

	snap := stats.Snapshot()
	assert.Equal(t, int64(2), snap.Fetches)
	assert.Equal(t, int64(1), snap.Errors)
}
