// This file defines the refresh-ahead hook.
// The hook is consulted on every cache hit. When it reports an entry as due,
// the coordinator serves the cached data and revalidates in the background,
// so readers rarely meet a stale entry at all.

package refresh

import (
	"time"

	"github.com/krisalay/swrcache/types"
)

/*
Hook decides whether a fresh entry should be revalidated early.

Due runs on the hit path under no lock. It MUST be fast and must not block.
*/
type Hook interface {
	Due(ent *types.Entry, now time.Time) bool
}

/*
Ahead reports entries that are inside the last Window of their TTL.

With TTL=60s and Window=10s an entry fetched at t=0 is due from t=50s on.
The coordinator deduplicates, so a burst of hits still sends one request.
*/
type Ahead struct {
	TTL    time.Duration
	Window time.Duration
}

// New returns nil (refresh-ahead off) unless both durations are positive and
// the window fits inside the ttl.
func New(ttl, window time.Duration) Hook {
	if ttl <= 0 || window <= 0 || window >= ttl {
		return nil
	}
	return &Ahead{TTL: ttl, Window: window}
}

func (a *Ahead) Due(ent *types.Entry, now time.Time) bool {
	if ent.LastFetchedAt.IsZero() {
		return false
	}
	return now.Sub(ent.LastFetchedAt) >= a.TTL-a.Window
}
