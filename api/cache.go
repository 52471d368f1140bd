package api

import (
	"context"

	"github.com/krisalay/swrcache/types"
)

/*
Cache defines the PUBLIC contract of the revalidating cache.

Views and resource clients depend on this interface only. Storage, sharding,
eviction, staleness and request deduplication stay behind it.
*/
type Cache interface {

	/*
		Resolve returns the current state of key and starts a fetch when needed.

		BEHAVIOR:
		-------------------
		1. key is NoKey:
		   - no request, returns an empty snapshot with IsLoading=false

		2. key has settled, fresh, non-invalidated data:
		   - returns it immediately (cache hit), no request

		3. a fetch for key is already in flight:
		   - joins it, no second request

		4. otherwise:
		   - starts exactly one fetch and returns the loading snapshot

		Resolve never blocks on the network.
	*/
	Resolve(ctx context.Context, key types.Key, opts types.Options) types.Snapshot

	/*
		Await blocks until no fetch is in flight for key or ctx is done.
		It never starts a fetch.
	*/
	Await(ctx context.Context, key types.Key) (types.Snapshot, error)

	/*
		Mutate invalidates key and revalidates it.

		Previously fetched data stays visible while the refetch runs.
		Calls made while a fetch is in flight coalesce into ONE follow-up fetch.
	*/
	Mutate(ctx context.Context, key types.Key)

	/*
		Subscribe registers sub for every change of key's entry.
		The entry is created if missing. The returned func unsubscribes and is
		safe to call more than once.
	*/
	Subscribe(key types.Key, sub types.Subscriber) (types.Snapshot, func())

	// Peek reads the current snapshot without side effects.
	Peek(key types.Key) (types.Snapshot, bool)

	// Forget drops key's entry. A fetch still running for it is discarded.
	Forget(key types.Key)

	// Focus revalidates subscribed keys that opted into RevalidateOnFocus.
	Focus(ctx context.Context)

	// Reconnect revalidates subscribed keys that opted into RevalidateOnReconnect.
	Reconnect(ctx context.Context)

	/*
		Close stops the cache.

		BEHAVIOR:
		---------
		- cancels fetches in flight; their results are discarded
		- waits for background goroutines to exit
		- later Resolve calls serve cached data but never fetch
	*/
	Close()
}
