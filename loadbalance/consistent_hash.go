package loadbalance

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/WeiJinUp/jg-rpc/directory"
)

// replicas is the number of virtual nodes per endpoint (spec §4.4).
const replicas = 160

// ConsistentHash maps a call key to an endpoint via a hash ring built from
// 160 virtual nodes per endpoint, each keyed as "endpoint#i" and placed at
// the MD5-derived 64-bit position (first 8 bytes of the digest, big-endian).
// The ring is rebuilt per invocation from the passed-in set, but this
// implementation caches the last-built ring and reuses it when the set is
// unchanged (spec §4.4: "implementations may cache if the set is
// unchanged") — the teacher's own ConsistentHashBalancer instead mutated a
// ring held across calls via an explicit Add(); here the ring is always
// derived from the caller's provider set, matching the spec's "pure
// function from (provider set, call key)" contract.
type ConsistentHash struct {
	mu        sync.Mutex
	cachedKey string
	ring      []uint64
	nodes     map[uint64]directory.Endpoint
}

func NewConsistentHash() *ConsistentHash {
	return &ConsistentHash{}
}

func virtualNodeHash(endpoint string, i int) uint64 {
	sum := md5.Sum([]byte(fmt.Sprintf("%s#%d", endpoint, i)))
	return binary.BigEndian.Uint64(sum[:8])
}

func hashKey(key string) uint64 {
	sum := md5.Sum([]byte(key))
	return binary.BigEndian.Uint64(sum[:8])
}

// fingerprint is a cheap, order-independent signature of the endpoint set
// used to decide whether the cached ring can be reused.
func fingerprint(endpoints []directory.Endpoint) string {
	sorted := make([]string, len(endpoints))
	for i, ep := range endpoints {
		sorted[i] = ep.String()
	}
	sort.Strings(sorted)
	out := ""
	for _, s := range sorted {
		out += s + ","
	}
	return out
}

func (b *ConsistentHash) buildRing(endpoints []directory.Endpoint) {
	ring := make([]uint64, 0, len(endpoints)*replicas)
	nodes := make(map[uint64]directory.Endpoint, len(endpoints)*replicas)
	for _, ep := range endpoints {
		for i := 0; i < replicas; i++ {
			h := virtualNodeHash(ep.String(), i)
			ring = append(ring, h)
			nodes[h] = ep
		}
	}
	sort.Slice(ring, func(i, j int) bool { return ring[i] < ring[j] })
	b.ring = ring
	b.nodes = nodes
}

// Pick hashes key to a 64-bit position and returns the endpoint of the first
// virtual node at or clockwise from that position, wrapping to the minimum
// if none is found (spec §4.4).
func (b *ConsistentHash) Pick(endpoints []directory.Endpoint, key string) (directory.Endpoint, error) {
	if len(endpoints) == 0 {
		return directory.Endpoint{}, ErrNoProvider
	}
	if len(endpoints) == 1 {
		return endpoints[0], nil
	}

	fp := fingerprint(endpoints)

	b.mu.Lock()
	if fp != b.cachedKey {
		b.buildRing(endpoints)
		b.cachedKey = fp
	}
	ring := b.ring
	nodes := b.nodes
	b.mu.Unlock()

	hash := hashKey(key)
	idx := sort.Search(len(ring), func(i int) bool { return ring[i] >= hash })
	if idx == len(ring) {
		idx = 0
	}
	return nodes[ring[idx]], nil
}

func (b *ConsistentHash) Name() string { return "ConsistentHash" }
