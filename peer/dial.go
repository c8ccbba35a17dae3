package peer

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/BX-D/bridge/bridge"
	"github.com/BX-D/bridge/codec"
	"github.com/BX-D/bridge/endpoint"
	"github.com/BX-D/bridge/loadbalance"
	"github.com/BX-D/bridge/proxy"
	"github.com/BX-D/bridge/registry"
)

// Dial discovers live instances of the bridge peer named name, picks one
// with bal, and dials it as a framed NetEndpoint using codecType. It does
// not pool — callers that dial the same name repeatedly should keep an
// EndpointPool themselves.
func Dial(ctx context.Context, reg registry.Registry, bal loadbalance.Balancer, name string, codecType codec.Type) (endpoint.Endpoint, error) {
	instances, err := reg.Discover(name)
	if err != nil {
		return nil, fmt.Errorf("peer: discover %q: %w", name, err)
	}
	instance, err := bal.Pick(instances)
	if err != nil {
		return nil, fmt.Errorf("peer: pick instance of %q: %w", name, err)
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", instance.Addr)
	if err != nil {
		return nil, fmt.Errorf("peer: dial %q at %s: %w", name, instance.Addr, err)
	}
	return endpoint.NewNetEndpoint(conn, codecType), nil
}

// DialWrapped is Dial followed by bridge.Wrap on the default session,
// returning the client proxy for name's root directly — the common case
// of "give me a proxy for whatever bridge peer X is exposing".
func DialWrapped(ctx context.Context, reg registry.Registry, bal loadbalance.Balancer, name string, codecType codec.Type) (*proxy.Node, error) {
	e, err := Dial(ctx, reg, bal, name, codecType)
	if err != nil {
		return nil, err
	}
	return bridge.Wrap(e), nil
}

// DialConfig dials name using a BridgeConfig's etcd endpoints, pool size
// and codec choice instead of caller-supplied registry/balancer/codec
// values — the config-driven entry point named in the config section.
//
// When cfg.PoolSize is greater than 1, the dialed instance's connection
// comes from a process-wide EndpointPool for that address (one pool per
// address, sized to PoolSize, created lazily and reused across calls)
// instead of a fresh dial per call; a pooled endpoint returned to the
// caller behaves like any other endpoint.Endpoint except that closing
// it returns it to the pool rather than tearing down the connection.
func DialConfig(ctx context.Context, cfg *bridge.BridgeConfig, bal loadbalance.Balancer, name string) (endpoint.Endpoint, error) {
	reg, err := registry.NewEtcdRegistry(cfg.EtcdEndpoints)
	if err != nil {
		return nil, fmt.Errorf("peer: connect etcd: %w", err)
	}
	codecType := codecFromName(cfg.Codec)

	if cfg.PoolSize <= 1 {
		return Dial(ctx, reg, bal, name, codecType)
	}

	instances, err := reg.Discover(name)
	if err != nil {
		return nil, fmt.Errorf("peer: discover %q: %w", name, err)
	}
	instance, err := bal.Pick(instances)
	if err != nil {
		return nil, fmt.Errorf("peer: pick instance of %q: %w", name, err)
	}

	heartbeat := time.Duration(cfg.HeartbeatSeconds) * time.Second
	if heartbeat <= 0 {
		heartbeat = endpoint.DefaultHeartbeatInterval
	}
	pool := poolFor(instance.Addr, cfg.PoolSize, codecType, heartbeat)
	pe, err := pool.Get()
	if err != nil {
		return nil, fmt.Errorf("peer: pooled dial %q at %s: %w", name, instance.Addr, err)
	}
	return &returnToPool{pooledEndpoint: pe, pool: pool}, nil
}

var (
	poolsMu sync.Mutex
	pools   = make(map[string]*EndpointPool)
)

// poolFor returns the process-wide EndpointPool for addr, creating it on
// first use. maxConns, codecType and heartbeat are only honored the
// first time a pool for addr is created; later callers reuse the
// existing pool as-is.
func poolFor(addr string, maxConns int, codecType codec.Type, heartbeat time.Duration) *EndpointPool {
	poolsMu.Lock()
	defer poolsMu.Unlock()
	if p, ok := pools[addr]; ok {
		return p
	}
	p := NewEndpointPoolHeartbeat(addr, maxConns, codecType, heartbeat)
	pools[addr] = p
	return p
}

// returnToPool adapts a pooledEndpoint into an endpoint.Endpoint whose
// Close returns it to its pool instead of closing the underlying
// connection, so a caller that treats the result like any other dialed
// endpoint still gets pooling behavior.
type returnToPool struct {
	*pooledEndpoint
	pool *EndpointPool
}

func (r *returnToPool) Close() error {
	r.pool.Put(r.pooledEndpoint)
	return nil
}

func codecFromName(name string) codec.Type {
	if name == "json" {
		return codec.TypeJSON
	}
	return codec.TypeBinary
}
