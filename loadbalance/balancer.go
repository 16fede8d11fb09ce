// Package loadbalance provides the pure (provider set, call key) -> endpoint
// balancing strategies of spec §4.4: round-robin, random, and consistent
// hash. The interface shape is the teacher's own loadbalance.Balancer
// (Pick/Name), generalized to directory.Endpoint and to the call-key
// parameter the spec's consistent-hash variant requires.
package loadbalance

import (
	"fmt"

	"github.com/WeiJinUp/jg-rpc/directory"
)

// Balancer selects one endpoint from a non-empty provider set for the given
// call key (typically the interface name). On an empty set it returns an
// error — callers translate that into rpcerr.KindNoProvider.
type Balancer interface {
	Pick(endpoints []directory.Endpoint, key string) (directory.Endpoint, error)
	Name() string
}

// ErrNoProvider is returned by every Balancer when the provider set is empty.
var ErrNoProvider = fmt.Errorf("loadbalance: no provider available")
