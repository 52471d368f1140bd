package expiration

import (
	"time"

	"github.com/krisalay/swrcache/types"
)

/*
StaleAfter marks data stale once TTL has passed since the last successful fetch.
Reads do not extend the lifetime: freshness belongs to the data, not to its readers.
*/
type StaleAfter struct {
	TTL time.Duration
}

// IsStale checks the age of the last successful fetch.
// An entry that never fetched successfully has nothing fresh to protect, but
// its revalidation is driven by the coordinator, not by age.
func (s *StaleAfter) IsStale(ent *types.Entry, now time.Time) bool {
	if ent.LastFetchedAt.IsZero() {
		return false
	}
	return now.Sub(ent.LastFetchedAt) >= s.TTL
}
