package writepolicy

import (
	"context"

	"github.com/krisalay/swrcache/types"
)

/*
This file defines what happens to cached reads after a write.

Writes go straight to the API and are never cached. The lists they touch
are stale afterwards, so something has to revalidate them:
- right away (Immediate)
- after a short delay, letting the API settle (Deferred)
*/

// Mutator revalidates a key. api.Cache satisfies it.
type Mutator interface {
	Mutate(ctx context.Context, key types.Key)
}

/*
Policy is the contract every write policy follows.
*/
type Policy interface {

	/*
		OnWrite is called after a successful write with the keys it made stale.
	*/
	OnWrite(ctx context.Context, keys ...types.Key)

	/*
		Close is called when the application shuts down.
	*/
	Close()
}
