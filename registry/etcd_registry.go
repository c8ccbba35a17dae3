// Package registry's etcd-backed implementation stores each peer
// instance under a lease so a crashed process's entry expires on its own
// rather than lingering as a ghost route.
//
//	Key:   /bridge/{peerName}/{Addr}
//	Value: JSON-encoded PeerInstance
package registry

import (
	"context"
	"encoding/json"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdRegistry implements Registry using etcd v3.
type EtcdRegistry struct {
	client *clientv3.Client
}

// NewEtcdRegistry connects to the given etcd endpoints.
func NewEtcdRegistry(endpoints []string) (*EtcdRegistry, error) {
	c, err := clientv3.New(clientv3.Config{
		Endpoints: endpoints,
	})
	if err != nil {
		return nil, err
	}
	return &EtcdRegistry{client: c}, nil
}

// Register grants a TTL lease, stores instance under it, and starts a
// background KeepAlive to renew the lease for as long as this process
// runs. leaseID is deliberately kept local rather than stored on the
// struct, so multiple peers registered concurrently through one
// EtcdRegistry never race over it.
func (r *EtcdRegistry) Register(name string, instance PeerInstance, ttl int64) error {
	ctx := context.TODO()

	lease, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return err
	}

	val, err := json.Marshal(instance)
	if err != nil {
		return err
	}

	if _, err := r.client.Put(ctx, "/bridge/"+name+"/"+instance.Addr, string(val), clientv3.WithLease(lease.ID)); err != nil {
		return err
	}

	ch, err := r.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return err
	}
	go func() {
		for range ch {
		}
	}()
	return nil
}

// Deregister removes a peer instance immediately, ahead of its lease
// expiring — called during graceful shutdown so in-flight discoveries
// stop routing to it right away.
func (r *EtcdRegistry) Deregister(name string, addr string) error {
	_, err := r.client.Delete(context.TODO(), "/bridge/"+name+"/"+addr)
	return err
}

// Watch monitors a peer name's key prefix and re-fetches the full
// instance list on any change (registration, deregistration, or lease
// expiry), pushing it to the returned channel.
func (r *EtcdRegistry) Watch(name string) <-chan []PeerInstance {
	ctx := context.TODO()
	ch := make(chan []PeerInstance, 1)
	prefix := "/bridge/" + name + "/"

	go func() {
		watchChan := r.client.Watch(ctx, prefix, clientv3.WithPrefix())
		for range watchChan {
			instances, _ := r.Discover(name)
			ch <- instances
		}
	}()

	return ch
}

// Discover lists every currently live instance of name.
func (r *EtcdRegistry) Discover(name string) ([]PeerInstance, error) {
	prefix := "/bridge/" + name + "/"
	resp, err := r.client.Get(context.TODO(), prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	instances := make([]PeerInstance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var instance PeerInstance
		if err := json.Unmarshal(kv.Value, &instance); err != nil {
			continue
		}
		instances = append(instances, instance)
	}
	return instances, nil
}
