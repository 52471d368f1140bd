package shard

import (
	"sync/atomic"

	"github.com/krisalay/swrcache/types"
)

/*
This file defines how entries are held inside a shard.

Entries are read on every Resolve and written once per fetch, so reads must be
cheap and never observe a half-written entry. The store is copy-on-write:
readers load an immutable map snapshot, writers copy it, change the copy and
swap it in atomically. Entries themselves are stored by value.
*/

// ShardStore is the storage used by a shard.
type ShardStore interface {
	Get(string) (types.Entry, bool)
	Put(string, types.Entry)
	Delete(string)
	Keys() []string
	Size() int64
}

type cowStore struct {
	data atomic.Value // map[string]types.Entry
	size atomic.Int64
}

func NewCOWStore() *cowStore {
	s := &cowStore{}
	s.data.Store(make(map[string]types.Entry))
	return s
}

func (s *cowStore) load() map[string]types.Entry {
	return s.data.Load().(map[string]types.Entry)
}

func (s *cowStore) Get(key string) (types.Entry, bool) {
	ent, ok := s.load()[key]
	return ent, ok
}

// Put copies the map, sets key and swaps. Writers are serialised by Shard.Mu.
func (s *cowStore) Put(key string, ent types.Entry) {
	old := s.load()
	n := make(map[string]types.Entry, len(old)+1)
	for k, v := range old {
		n[k] = v
	}
	n[key] = ent
	s.data.Store(n)
	s.size.Store(int64(len(n)))
}

func (s *cowStore) Delete(key string) {
	old := s.load()
	if _, ok := old[key]; !ok {
		return
	}
	n := make(map[string]types.Entry, len(old))
	for k, v := range old {
		if k != key {
			n[k] = v
		}
	}
	s.data.Store(n)
	s.size.Store(int64(len(n)))
}

// Keys lists the keys of the current snapshot in no particular order.
func (s *cowStore) Keys() []string {
	m := s.load()
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func (s *cowStore) Size() int64 {
	return s.size.Load()
}
