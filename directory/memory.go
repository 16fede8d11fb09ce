package directory

import (
	"sort"
	"sync"
)

// MemoryDirectory is a process-local Directory used by tests that exercise
// the client/server/load-balancer stack without a live etcd cluster — the
// same role the teacher's test-only MockRegistry plays in test/bench_test.go.
type MemoryDirectory struct {
	mu        sync.Mutex
	providers map[string]map[Endpoint]struct{} // interface -> set of endpoints
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{providers: make(map[string]map[Endpoint]struct{})}
}

func (d *MemoryDirectory) Register(iface string, endpoint Endpoint) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	set, ok := d.providers[iface]
	if !ok {
		set = make(map[Endpoint]struct{})
		d.providers[iface] = set
	}
	set[endpoint] = struct{}{}
	return nil
}

func (d *MemoryDirectory) Unregister(iface string, endpoint Endpoint) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if set, ok := d.providers[iface]; ok {
		delete(set, endpoint)
	}
	return nil
}

func (d *MemoryDirectory) UnregisterAll(endpoint Endpoint) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, set := range d.providers {
		delete(set, endpoint)
	}
	return nil
}

func (d *MemoryDirectory) DiscoverAll(iface string) ([]Endpoint, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	set := d.providers[iface]
	endpoints := make([]Endpoint, 0, len(set))
	for ep := range set {
		endpoints = append(endpoints, ep)
	}
	// Sort by leaf name so the list has a stable order across calls.
	sort.Slice(endpoints, func(i, j int) bool { return endpoints[i].String() < endpoints[j].String() })
	return endpoints, nil
}

func (d *MemoryDirectory) Discover(iface string) (Endpoint, bool, error) {
	endpoints, _ := d.DiscoverAll(iface)
	if len(endpoints) == 0 {
		return Endpoint{}, false, nil
	}
	return endpoints[0], true, nil
}

func (d *MemoryDirectory) Close() error { return nil }
