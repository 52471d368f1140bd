package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/krisalay/swrcache/expiration"
	"github.com/krisalay/swrcache/refresh"
	"github.com/krisalay/swrcache/types"
)

/*
CacheEngine is the policy layer of the cache.

It decides:
- when cached data is stale
- when a hit should trigger an early background revalidation
- how data is fetched on a miss
- how events are counted and logged

It does NOT:
- store entries
- deduplicate requests
- notify subscribers
*/
type CacheEngine struct {

	// Staleness decides when data is due for revalidation.
	// Nil behaves like expiration.Never.
	Staleness expiration.Strategy

	// Refresh is the optional refresh-ahead hook. Nil disables it.
	Refresh refresh.Hook

	// Fetcher performs the network read for a key.
	Fetcher types.Fetcher

	Metrics types.Metrics
	Clock   types.Clock
	Log     *logrus.Entry
}

/*
NewCacheEngine creates a CacheEngine, filling the optional collaborators.
*/
func NewCacheEngine(
	staleness expiration.Strategy,
	refresh refresh.Hook,
	fetcher types.Fetcher,
	metrics types.Metrics,
	log *logrus.Entry,
) *CacheEngine {
	if staleness == nil {
		staleness = expiration.Never{}
	}
	if metrics == nil {
		metrics = types.NoopMetrics{}
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &CacheEngine{
		Staleness: staleness,
		Refresh:   refresh,
		Fetcher:   fetcher,
		Metrics:   metrics,
		Clock:     types.RealClock{},
		Log:       log.WithField("component", "engine"),
	}
}

// Now reads the engine clock.
func (e *CacheEngine) Now() time.Time {
	return e.Clock.Now()
}

/*
Due reports whether an entry must be revalidated before it can count as a hit:
- nothing has been fetched yet
- it was invalidated
- the staleness strategy says so
*/
func (e *CacheEngine) Due(ent *types.Entry) bool {
	return !ent.Settled() || ent.Invalidated || e.Staleness.IsStale(ent, e.Now())
}

/*
OnRead is called on every hit. It reports whether refresh-ahead wants a
background revalidation of the entry.
*/
func (e *CacheEngine) OnRead(ent *types.Entry) bool {
	if e.Refresh == nil {
		return false
	}
	if !e.Refresh.Due(ent, e.Now()) {
		return false
	}
	e.Metrics.Refresh()
	return true
}

/*
Fetch performs one network read through the Fetcher.
*/
func (e *CacheEngine) Fetch(ctx context.Context, key types.Key) (json.RawMessage, error) {
	e.Metrics.Fetch()
	start := e.Now()

	data, err := e.Fetcher.Fetch(ctx, key)

	log := e.Log.WithFields(logrus.Fields{
		"key":      key.String(),
		"duration": e.Now().Sub(start),
	})
	if err != nil {
		e.Metrics.Error()
		log.WithError(err).Warn("fetch failed")
		return nil, err
	}
	log.Debug("fetch completed")
	return data, nil
}
