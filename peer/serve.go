package peer

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BX-D/bridge/bridge"
	"github.com/BX-D/bridge/codec"
	"github.com/BX-D/bridge/endpoint"
	"github.com/BX-D/bridge/registry"
)

// Peer runs an accept loop exposing one root value to every connection,
// registered under name in a registry.Registry for as long as it runs,
// with a graceful Shutdown that deregisters before draining in-flight
// connections.
type Peer struct {
	name          string
	advertiseAddr string
	listener      net.Listener
	reg           registry.Registry
	codec         codec.Type
	heartbeat     time.Duration

	wg       sync.WaitGroup
	shutdown atomic.Bool
}

// Serve starts accepting connections on ln, exposing root on each one
// (via bridge.Expose on the default session), and registers advertiseAddr
// under name in reg with the given lease ttl (seconds). It blocks until
// the listener closes or ctx is cancelled. Each accepted connection's
// heartbeat runs at endpoint.NewNetEndpoint's default interval; use
// ServeConfig to drive it from a BridgeConfig's HeartbeatSeconds instead.
func Serve(ctx context.Context, reg registry.Registry, name, advertiseAddr string, ttl int64, codecType codec.Type, ln net.Listener, root any) error {
	return serveHeartbeat(ctx, reg, name, advertiseAddr, ttl, codecType, endpoint.DefaultHeartbeatInterval, ln, root)
}

func serveHeartbeat(ctx context.Context, reg registry.Registry, name, advertiseAddr string, ttl int64, codecType codec.Type, heartbeat time.Duration, ln net.Listener, root any) error {
	p := &Peer{
		name:          name,
		advertiseAddr: advertiseAddr,
		listener:      ln,
		reg:           reg,
		codec:         codecType,
		heartbeat:     heartbeat,
	}

	if reg != nil {
		if err := reg.Register(name, registry.PeerInstance{Addr: advertiseAddr}, ttl); err != nil {
			return fmt.Errorf("peer: register %q: %w", name, err)
		}
	}

	go func() {
		<-ctx.Done()
		p.Shutdown(5 * time.Second)
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if p.shutdown.Load() {
				return nil
			}
			return err
		}
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			e := endpoint.NewNetEndpointHeartbeat(conn, p.codec, p.heartbeat)
			defer e.Close()
			unsubscribe := bridge.Expose(root, e)
			defer unsubscribe()
			<-e.Done()
		}()
	}
}

// Shutdown deregisters advertiseAddr from the registry first (so callers
// stop discovering it), then closes the listener and waits up to timeout
// for in-flight connections to finish.
func (p *Peer) Shutdown(timeout time.Duration) error {
	if p.reg != nil {
		p.reg.Deregister(p.name, p.advertiseAddr)
	}
	p.shutdown.Store(true)
	p.listener.Close()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("peer: timeout waiting for connections to close")
	}
}

// ServeConfig is Serve driven by a BridgeConfig's etcd endpoints, codec
// choice, registry TTL and heartbeat interval instead of caller-supplied
// values.
func ServeConfig(ctx context.Context, cfg *bridge.BridgeConfig, name, advertiseAddr string, ln net.Listener, root any) error {
	reg, err := registry.NewEtcdRegistry(cfg.EtcdEndpoints)
	if err != nil {
		return fmt.Errorf("peer: connect etcd: %w", err)
	}
	heartbeat := time.Duration(cfg.HeartbeatSeconds) * time.Second
	if heartbeat <= 0 {
		heartbeat = endpoint.DefaultHeartbeatInterval
	}
	return serveHeartbeat(ctx, reg, name, advertiseAddr, cfg.RegistryTTL, codecFromName(cfg.Codec), heartbeat, ln, root)
}
