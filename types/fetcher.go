package types

import (
	"context"
	"encoding/json"
)

/*
Fetcher is the contract between the cache and the remote API.

Fetch is called when the cache has no usable data for a key:
  1. Coordinator decides the key is due (missing, invalidated or stale)
  2. Coordinator calls Fetch(key)
  3. Fetcher performs the GET and returns the raw JSON body
  4. Coordinator writes the body (or the error) into the entry
*/
type Fetcher interface {
	Fetch(ctx context.Context, key Key) (json.RawMessage, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, key Key) (json.RawMessage, error)

func (f FetcherFunc) Fetch(ctx context.Context, key Key) (json.RawMessage, error) {
	return f(ctx, key)
}
