package shard

import "hash/fnv"

/*
This file decides WHICH shard owns a cache key.

Every store operation locks one shard, so the mapping must be:
- stable: a key always lands on the same shard
- even: views resolving at once contend on different locks
*/

/*
Selector is the interface that maps a key to its shard.
The store only needs the answer; strategies can be swapped.
*/
type Selector interface {
	Select(string, []*Shard) *Shard
}

// HashSelector picks shards by FNV-1a hash of the key modulo the shard count.
type HashSelector struct{}

// hash turns a key into a number with FNV-1a, a fast non-cryptographic hash.
func hash(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

/*
Select returns the shard for key.

The same key and shard count always give the same shard, so a key's entry,
eviction state and subscribers all live behind one lock.
*/
func (HashSelector) Select(key string, shards []*Shard) *Shard {
	return shards[hash(key)%uint32(len(shards))]
}
