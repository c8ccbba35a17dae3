// Package loadbalance provides strategies for picking one live instance of
// a named bridge peer out of the set registry.Registry.Discover returns.
//
// Three strategies are implemented:
//   - RoundRobin:      stateless peers, equal-capacity instances
//   - WeightedRandom:  heterogeneous instances (different CPU/memory)
//   - ConsistentHash:  stateful peers requiring affinity to the same instance
package loadbalance

import "github.com/BX-D/bridge/registry"

// Balancer is the interface for load balancing strategies.
// The caller calls Pick() before each Dial to select a target instance.
type Balancer interface {
	// Pick selects one instance from the available list.
	// Called on every dial — must be goroutine-safe.
	Pick(instances []registry.PeerInstance) (*registry.PeerInstance, error)

	// Name returns the strategy name (for logging/debugging).
	Name() string
}
