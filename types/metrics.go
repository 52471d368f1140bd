package types

// This file defines how the cache reports what it is doing.

/*
Metrics is the set of events the coordinator and store emit.
Each method is one event; implementations must be safe for concurrent use.
*/
type Metrics interface {

	// Hit is called when Resolve serves cached data without a request.
	Hit()

	// Miss is called when Resolve finds nothing usable and starts a fetch.
	Miss()

	// Dedup is called when a caller joins a fetch that is already in flight.
	Dedup()

	// Fetch is called for every request sent to the Fetcher.
	Fetch()

	// Error is called when a fetch fails.
	Error()

	// Eviction is called when a key is dropped to make room.
	Eviction()

	// Refresh is called when refresh-ahead schedules a background fetch.
	Refresh()
}

/*
NoopMetrics ignores every event.
The engine substitutes it for a nil Metrics so callers never nil-check.
*/
type NoopMetrics struct{}

func (NoopMetrics) Hit()      {}
func (NoopMetrics) Miss()     {}
func (NoopMetrics) Dedup()    {}
func (NoopMetrics) Fetch()    {}
func (NoopMetrics) Error()    {}
func (NoopMetrics) Eviction() {}
func (NoopMetrics) Refresh()  {}
