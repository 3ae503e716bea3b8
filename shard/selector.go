package shard

import "hash/fnv"

/*
Selector decides which shard owns an id. Ids are random UUIDs, so a plain hash
spreads them evenly; the interface exists so tests and benchmarks can pin ids
to shards.
*/
type Selector interface {
	Index(key string, shards int) int
}

// FNVSelector maps an id to a shard with 32-bit FNV-1a.
type FNVSelector struct{}

func (FNVSelector) Index(key string, shards int) int {
	if shards <= 1 {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(shards))
}
