package loadbalance

import (
	"math/rand/v2"

	"github.com/WeiJinUp/jg-rpc/directory"
)

// Random picks uniformly among the available endpoints. math/rand/v2's
// top-level functions are already safe for concurrent use, so no locking is
// needed here, unlike the teacher's math/rand-based WeightedRandomBalancer
// which relied on the (also safe) global source.
type Random struct{}

func (b *Random) Pick(endpoints []directory.Endpoint, _ string) (directory.Endpoint, error) {
	if len(endpoints) == 0 {
		return directory.Endpoint{}, ErrNoProvider
	}
	if len(endpoints) == 1 {
		return endpoints[0], nil
	}
	return endpoints[rand.IntN(len(endpoints))], nil
}

func (b *Random) Name() string { return "Random" }
