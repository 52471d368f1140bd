package types

import "sync/atomic"

// Stats is a Metrics implementation backed by atomic counters.
type Stats struct {
	hits      atomic.Int64
	misses    atomic.Int64
	dedups    atomic.Int64
	fetches   atomic.Int64
	errors    atomic.Int64
	evictions atomic.Int64
	refreshes atomic.Int64
}

func (s *Stats) Hit()      { s.hits.Add(1) }
func (s *Stats) Miss()     { s.misses.Add(1) }
func (s *Stats) Dedup()    { s.dedups.Add(1) }
func (s *Stats) Fetch()    { s.fetches.Add(1) }
func (s *Stats) Error()    { s.errors.Add(1) }
func (s *Stats) Eviction() { s.evictions.Add(1) }
func (s *Stats) Refresh()  { s.refreshes.Add(1) }

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Hits      int64
	Misses    int64
	Dedups    int64
	Fetches   int64
	Errors    int64
	Evictions int64
	Refreshes int64
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s StatsSnapshot) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Snapshot returns a point-in-time copy of the counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Dedups:    s.dedups.Load(),
		Fetches:   s.fetches.Load(),
		Errors:    s.errors.Load(),
		Evictions: s.evictions.Load(),
		Refreshes: s.refreshes.Load(),
	}
}
