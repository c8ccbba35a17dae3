// Package peer is the optional discovery-and-dial layer on top of the
// bridge core: given a registry.Registry and a loadbalance.Balancer, it
// turns a bridge name into a live endpoint.Endpoint, and turns a
// net.Listener into an accept loop that exposes a root value to every
// connecting peer while keeping the registry's address entry alive.
package peer

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/BX-D/bridge/codec"
	"github.com/BX-D/bridge/endpoint"
)

// EndpointPool manages a pool of reusable endpoints to a single address:
// connections used exclusively (one request in flight at a time per
// endpoint) benefit from borrow/return pooling instead of a single
// multiplexed connection. Each pooled endpoint wraps a net.Conn framed
// by codecType, and is handed to exactly one caller's bridge.Wrap at a
// time.
type EndpointPool struct {
	mu        sync.Mutex
	conns     chan *pooledEndpoint
	addr      string
	maxConns  int
	curConns  int
	codec     codec.Type
	heartbeat time.Duration
}

type pooledEndpoint struct {
	*endpoint.NetEndpoint
	pool     *EndpointPool
	unusable bool
}

// NewEndpointPool creates a pool dialing addr on demand, up to maxConns
// endpoints, using codecType to frame each one and endpoint's default
// heartbeat interval. Use NewEndpointPoolHeartbeat to drive the interval
// from a BridgeConfig's HeartbeatSeconds instead.
func NewEndpointPool(addr string, maxConns int, codecType codec.Type) *EndpointPool {
	return NewEndpointPoolHeartbeat(addr, maxConns, codecType, endpoint.DefaultHeartbeatInterval)
}

// NewEndpointPoolHeartbeat is NewEndpointPool with an explicit heartbeat
// interval for every endpoint the pool dials.
func NewEndpointPoolHeartbeat(addr string, maxConns int, codecType codec.Type, heartbeat time.Duration) *EndpointPool {
	return &EndpointPool{
		conns:     make(chan *pooledEndpoint, maxConns),
		addr:      addr,
		maxConns:  maxConns,
		codec:     codecType,
		heartbeat: heartbeat,
	}
}

// Get retrieves an endpoint from the pool, dialing a new one if the pool
// is below capacity, or blocking until one is returned if at capacity.
func (p *EndpointPool) Get() (*pooledEndpoint, error) {
	select {
	case e := <-p.conns:
		if e.unusable {
			return p.createNew()
		}
		return e, nil
	default:
		p.mu.Lock()
		below := p.curConns < p.maxConns
		p.mu.Unlock()
		if below {
			return p.createNew()
		}
		e := <-p.conns
		return e, nil
	}
}

// Put returns an endpoint to the pool, or discards it if it was marked
// unusable by the caller after a failed Send.
func (p *EndpointPool) Put(e *pooledEndpoint) {
	if e.unusable {
		e.Close()
		p.mu.Lock()
		p.curConns--
		p.mu.Unlock()
		return
	}
	p.conns <- e
}

// MarkUnusable flags e so the next Put discards rather than recycles it
// — callers set this after observing a Send/decode error on e.
func (e *pooledEndpoint) MarkUnusable() {
	e.unusable = true
}

// Close shuts down the pool and closes every pooled endpoint.
func (p *EndpointPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	close(p.conns)
	for e := range p.conns {
		e.Close()
		p.curConns--
	}
	return nil
}

func (p *EndpointPool) createNew() (*pooledEndpoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.curConns >= p.maxConns {
		return nil, fmt.Errorf("peer: endpoint pool exhausted for %s", p.addr)
	}

	conn, err := net.Dial("tcp", p.addr)
	if err != nil {
		return nil, err
	}

	p.curConns++
	return &pooledEndpoint{
		NetEndpoint: endpoint.NewNetEndpointHeartbeat(conn, p.codec, p.heartbeat),
		pool:        p,
	}, nil
}
