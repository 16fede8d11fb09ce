package loadbalance

import (
	"sync"
	"sync/atomic"

	"github.com/WeiJinUp/jg-rpc/directory"
)

// RoundRobin distributes requests evenly across all endpoints in order.
// Counters are kept per interface name (the call key) so rotation of
// different services stays independent (spec §4.4), generalizing the
// teacher's single global counter to a per-key atomic counter map.
type RoundRobin struct {
	mu       sync.Mutex
	counters map[string]*int64
}

func NewRoundRobin() *RoundRobin {
	return &RoundRobin{counters: make(map[string]*int64)}
}

func (b *RoundRobin) counterFor(key string) *int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.counters[key]
	if !ok {
		c = new(int64)
		b.counters[key] = c
	}
	return c
}

func (b *RoundRobin) Pick(endpoints []directory.Endpoint, key string) (directory.Endpoint, error) {
	if len(endpoints) == 0 {
		return directory.Endpoint{}, ErrNoProvider
	}
	if len(endpoints) == 1 {
		return endpoints[0], nil
	}
	counter := b.counterFor(key)
	idx := atomic.AddInt64(counter, 1) % int64(len(endpoints))
	return endpoints[idx], nil
}

func (b *RoundRobin) Name() string { return "RoundRobin" }
