// Package directory is the thin adapter over the external coordinator tree
// (spec §4.3). It owns the schema
//
//	/<namespace>/<interface-name>/providers/<host>:<port>
//
// and the five operations (register, unregister, unregister_all,
// discover_all, discover) the rest of the system issues against it. The
// coordinator's own internals are out of scope (spec §1); only the adapter
// contract is specified here, the same separation the teacher's registry
// package draws around its EtcdRegistry.
package directory

import "fmt"

// Endpoint is a single (host, port) pair identifying one provider.
type Endpoint struct {
	Host string
	Port int
}

// String renders the endpoint the way it is stored as a directory leaf name
// and the way ConsistentHash keys its virtual nodes (spec §3, §4.4).
func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// Directory is the interface every component above it (server facade, client
// engine) depends on. EtcdDirectory is the production implementation;
// MemoryDirectory is a process-local stand-in for tests that don't want a
// live etcd cluster.
type Directory interface {
	// Register creates missing parent nodes if absent, then creates the
	// session-scoped leaf for (iface, endpoint). Idempotent if the leaf
	// already exists.
	Register(iface string, endpoint Endpoint) error

	// Unregister deletes the leaf for (iface, endpoint). Silently succeeds
	// if absent; never deletes parent nodes.
	Unregister(iface string, endpoint Endpoint) error

	// UnregisterAll deletes every leaf this adapter instance previously
	// created for endpoint, across every interface. Failures of individual
	// deletes are combined and logged, never fatal.
	UnregisterAll(endpoint Endpoint) error

	// DiscoverAll enumerates leaf names under .../providers for iface,
	// parses each as host:port, and returns a (possibly empty) ordered list.
	// A missing path yields an empty list, not an error.
	DiscoverAll(iface string) ([]Endpoint, error)

	// Discover returns the first entry of DiscoverAll, or false if empty.
	Discover(iface string) (Endpoint, bool, error)

	// Close releases the adapter's session and any background watchers.
	Close() error
}
