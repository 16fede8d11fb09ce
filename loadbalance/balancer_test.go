package loadbalance

import (
	"fmt"
	"testing"

	"github.com/WeiJinUp/jg-rpc/directory"
)

var testEndpoints = []directory.Endpoint{
	{Host: "10.0.0.1", Port: 8001},
	{Host: "10.0.0.1", Port: 8002},
	{Host: "10.0.0.1", Port: 8003},
}

func TestRoundRobinFairness(t *testing.T) {
	b := NewRoundRobin()
	n := 1000
	counts := map[directory.Endpoint]int{}
	for i := 0; i < n*len(testEndpoints); i++ {
		ep, err := b.Pick(testEndpoints, "demo.Hello")
		if err != nil {
			t.Fatal(err)
		}
		counts[ep]++
	}
	for _, ep := range testEndpoints {
		if counts[ep] != n {
			t.Fatalf("expected exactly %d picks for %v, got %d", n, ep, counts[ep])
		}
	}
}

func TestRoundRobinIndependentPerKey(t *testing.T) {
	b := NewRoundRobin()
	first, _ := b.Pick(testEndpoints, "demo.Hello")
	_, _ = b.Pick(testEndpoints, "demo.Other")
	second, _ := b.Pick(testEndpoints, "demo.Hello")

	// Two picks on the same key should not be the same endpoint twice in a
	// row when the set has more than one member, and must not be disturbed
	// by unrelated-key traffic in between.
	if first == second {
		t.Fatalf("expected round robin to advance for the same key, got %v twice", first)
	}
}

func TestRoundRobinEmpty(t *testing.T) {
	b := NewRoundRobin()
	if _, err := b.Pick(nil, "demo.Hello"); err != ErrNoProvider {
		t.Fatalf("expected ErrNoProvider, got %v", err)
	}
}

func TestRandomDistributesAcrossAll(t *testing.T) {
	b := &Random{}
	seen := map[directory.Endpoint]bool{}
	for i := 0; i < 500; i++ {
		ep, err := b.Pick(testEndpoints, "")
		if err != nil {
			t.Fatal(err)
		}
		seen[ep] = true
	}
	if len(seen) != len(testEndpoints) {
		t.Fatalf("expected to see all %d endpoints, saw %d", len(testEndpoints), len(seen))
	}
}

func TestConsistentHashStableForSameKey(t *testing.T) {
	b := NewConsistentHash()
	first, err := b.Pick(testEndpoints, "user-123")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		got, err := b.Pick(testEndpoints, "user-123")
		if err != nil {
			t.Fatal(err)
		}
		if got != first {
			t.Fatalf("consistent hash returned different endpoint across calls: %v vs %v", got, first)
		}
	}
}

func TestConsistentHashSpreadsKeys(t *testing.T) {
	b := NewConsistentHash()
	seen := map[directory.Endpoint]bool{}
	for i := 0; i < 200; i++ {
		ep, err := b.Pick(testEndpoints, fmt.Sprintf("key-%d", i))
		if err != nil {
			t.Fatal(err)
		}
		seen[ep] = true
	}
	if len(seen) < 2 {
		t.Fatalf("expected keys to spread across at least 2 endpoints, got %d", len(seen))
	}
}

func TestConsistentHashRemovalRedirectsFewKeys(t *testing.T) {
	b := NewConsistentHash()
	keys := make([]string, 500)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%d", i)
	}

	before := make(map[string]directory.Endpoint, len(keys))
	for _, k := range keys {
		ep, _ := b.Pick(testEndpoints, k)
		before[k] = ep
	}

	reduced := testEndpoints[:len(testEndpoints)-1]
	moved := 0
	for _, k := range keys {
		ep, _ := b.Pick(reduced, k)
		if ep != before[k] {
			moved++
		}
	}

	// Virtual-node property: removing 1 of 3 endpoints should redirect
	// roughly 1/3 of keys, well under all of them.
	if moved > len(keys)*2/3 {
		t.Fatalf("expected at most 2/3 of keys to move, got %d/%d", moved, len(keys))
	}
}

func TestConsistentHashSingleEndpoint(t *testing.T) {
	b := NewConsistentHash()
	single := testEndpoints[:1]
	ep, err := b.Pick(single, "anything")
	if err != nil {
		t.Fatal(err)
	}
	if ep != single[0] {
		t.Fatalf("expected sole element %v, got %v", single[0], ep)
	}
}

func TestConsistentHashEmpty(t *testing.T) {
	b := NewConsistentHash()
	if _, err := b.Pick(nil, "x"); err != ErrNoProvider {
		t.Fatalf("expected ErrNoProvider, got %v", err)
	}
}
