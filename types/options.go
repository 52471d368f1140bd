package types

import "time"

// Options control when a subscribed key is revalidated by outside events.
type Options struct {
	// RevalidateOnFocus refetches the key when the host regains focus.
	RevalidateOnFocus bool

	// RevalidateOnReconnect refetches the key when connectivity returns.
	RevalidateOnReconnect bool
}

// DefaultOptions are the generic cache defaults: both revalidations enabled.
func DefaultOptions() Options {
	return Options{RevalidateOnFocus: true, RevalidateOnReconnect: true}
}

// StableOptions disable event-driven revalidation. Data changes only on
// first load, staleness or an explicit mutate.
func StableOptions() Options {
	return Options{}
}

// Subscriber observes one key.
type Subscriber struct {
	OnChange func(Snapshot)
	Options  Options
}

// Clock provides the current time. Tests substitute a fake.
type Clock interface {
	Now() time.Time
}

// RealClock reads the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}
