// Package registry is the bridge's peer directory: a named bridge
// service (a process exposing one root value over NetEndpoint) publishes
// where it can be dialed, and callers discover its live instances to
// hand to a loadbalance.Balancer.
package registry

// PeerInstance is one dialable instance of a named bridge peer.
type PeerInstance struct {
	Addr    string
	Weight  int // used by loadbalance.WeightedRandomBalancer
	Version string
}

// Registry is the directory contract: register/deregister an instance
// under a peer name, list the currently live instances, and watch for
// changes.
type Registry interface {
	Register(name string, instance PeerInstance, ttl int64) error
	Deregister(name string, addr string) error
	Discover(name string) ([]PeerInstance, error)
	Watch(name string) <-chan []PeerInstance
}
