// This file defines when cached data stops being fresh.

package expiration

import (
	"time"

	"github.com/krisalay/swrcache/types"
)

/*
Strategy decides whether an entry is stale at a given moment.

A stale entry is still served: the coordinator returns its data and starts a
revalidation. Staleness never deletes anything.
*/
type Strategy interface {

	// IsStale reports whether the entry is due for revalidation at now.
	IsStale(ent *types.Entry, now time.Time) bool
}

// Never keeps entries fresh until they are explicitly invalidated.
type Never struct{}

func (Never) IsStale(*types.Entry, time.Time) bool { return false }

// New returns StaleAfter for a positive ttl and Never otherwise.
func New(ttl time.Duration) Strategy {
	if ttl <= 0 {
		return Never{}
	}
	return &StaleAfter{TTL: ttl}
}
