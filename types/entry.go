package types

import (
	"encoding/json"
	"time"
)

// Entry is the cached state of one Key.
// Stored values are never modified in place: writers copy, patch and swap,
// so a reader always holds one self-consistent Entry.
type Entry struct {
	Key Key

	// Data is the raw JSON body of the last successful fetch.
	Data json.RawMessage

	// Err is the outcome of the last failed fetch. A failed fetch keeps Data.
	Err error

	LastFetchedAt time.Time // last success
	LastAttemptAt time.Time // last completion, success or failure
	CreatedAt     time.Time

	// Fetching is true while a request for Key is in flight.
	Fetching bool

	// Invalidated marks the entry for refetch without dropping Data.
	Invalidated bool

	// Generation identifies the flight that currently owns the entry.
	Generation uint64

	// Version increases on every committed write, store-wide.
	// Zero means the entry has never been stored.
	Version uint64
}

// Patch mutates a copy of an entry. Returning false discards the write.
type Patch func(e *Entry) bool

// Snapshot is the read-only view handed to subscribers.
type Snapshot struct {
	Key  Key
	Data json.RawMessage
	Err  error

	// IsLoading is true while the first fetch is in flight (no data yet).
	IsLoading bool

	// IsValidating is true while any fetch is in flight.
	IsValidating bool

	LastFetchedAt time.Time
	Version       uint64
}

// Snapshot derives the subscriber view from a single entry value.
func (e *Entry) Snapshot() Snapshot {
	return Snapshot{
		Key:           e.Key,
		Data:          e.Data,
		Err:           e.Err,
		IsLoading:     e.Fetching && e.Data == nil,
		IsValidating:  e.Fetching,
		LastFetchedAt: e.LastFetchedAt,
		Version:       e.Version,
	}
}

// Settled reports whether at least one fetch has completed for the entry.
func (e *Entry) Settled() bool {
	return !e.LastAttemptAt.IsZero()
}
