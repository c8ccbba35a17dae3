// Package proxy is the client side of the bridge: a lazy property-chain
// proxy standing in for a remote value. Go has no Proxy get/apply/construct
// traps, so where the original model intercepts property access implicitly,
// Node exposes it as explicit methods (Get, Call, Construct, Await) per the
// session's own resolution of that open question — chaining with Get
// costs nothing on the wire until Call, Construct or Await is invoked.
package proxy

import (
	"context"
	"sync"
	"time"

	"github.com/BX-D/bridge/endpoint"
	"github.com/BX-D/bridge/idgen"
	"github.com/BX-D/bridge/message"
	"github.com/BX-D/bridge/validate"
	"github.com/BX-D/bridge/wireval"
)

// remoteCallTimeout bounds a synchronous CallRemote — the adapter the
// dispatcher reaches for when an exposed method's parameter type is a
// plain Go func and the decoded argument is a wrapped callback. Ordinary
// Call/Construct/Await have no such bound (a caller supplies its own
// context), but a func value has no way to carry one.
const remoteCallTimeout = 30 * time.Second

// Node is one point in a lazily-built property chain bound to a remote
// value. Get never touches the wire; Call, Construct, and Await do.
type Node struct {
	e       endpoint.Endpoint
	codec   *wireval.Codec
	ids     *idgen.Allocator
	pending *pendingTable

	keyChain []string

	mu       sync.Mutex
	children map[string]*Node
}

// New builds the root Node for endpoint e and subscribes a response
// router on it: every response/error envelope e delivers that passes
// validate.Response is matched against this Node's pending table by id. Request ids are allocated
// from a fresh Allocator distinct from codec.ObjectIDs, so a client's
// outstanding requests can never collide with the object ids the same
// session's wireval.Codec hands out for wrapped values.
func New(e endpoint.Endpoint, codec *wireval.Codec) *Node {
	n := &Node{
		e:        e,
		codec:    codec,
		ids:      idgen.New(),
		pending:  newPendingTable(),
		children: make(map[string]*Node),
	}
	e.On(func(m *message.Envelope) {
		switch m.Classify() {
		case message.KindResponse, message.KindError:
			if validate.Response(m) != nil {
				return
			}
			n.pending.resolve(m.ID, m)
		}
	})
	return n
}

// Get returns the child Node for property key, appending it to the key
// chain. Repeated Get calls for the same key on the same Node return the
// identical *Node — property access is referentially stable — which
// matters because a caller may stash the proxy for a nested property and
// expect later sibling accesses to resolve to the same remote identity.
func (n *Node) Get(key string) *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	if child, ok := n.children[key]; ok {
		return child
	}
	chain := make([]string, len(n.keyChain)+1)
	copy(chain, n.keyChain)
	chain[len(n.keyChain)] = key
	child := &Node{
		e:        n.e,
		codec:    n.codec,
		ids:      n.ids,
		pending:  n.pending,
		keyChain: chain,
		children: make(map[string]*Node),
	}
	n.children[key] = child
	return child
}

// Call sends a call request for this Node's key chain with args and
// returns a Future for the result.
func (n *Node) Call(args ...any) *Future {
	return n.send(message.TypeCall, args)
}

// Construct sends a construct request for this Node's key chain with
// args and returns a Future for the result. The result always decodes to
// a wrapped *Node, never an inline value, regardless of what the
// constructor actually returned.
func (n *Node) Construct(args ...any) *Future {
	return n.send(message.TypeConstruct, args)
}

// Await sends an await request resolving this Node's key chain to its
// current value and returns a Future for it.
func (n *Node) Await() *Future {
	return n.send(message.TypeAwait, nil)
}

func (n *Node) send(typ message.Type, args []any) *Future {
	for _, key := range n.keyChain {
		if err := validate.Key(key); err != nil {
			ch := make(chan *message.Envelope, 1)
			ch <- message.NewError("", err.Error())
			return &Future{ch: ch, codec: n.codec, e: n.e}
		}
	}

	id := message.ID(n.ids.Next())
	encodedArgs := n.codec.EncodeArgs(args, n.e)
	req := message.NewRequest(id, typ, n.keyChain, encodedArgs)

	ch := n.pending.register(id)
	if err := n.e.Send(req); err != nil {
		// A failed Send is logged, not propagated into the pending
		// request's resolution: the entry stays registered and the
		// returned Future blocks, same as a request that is still in
		// flight. Resolving it here would let a transient transport
		// error masquerade as an answer from the remote side.
		logger.Errorw("send failed for pending request", "id", id, "error", err)
	}
	return &Future{ch: ch, codec: n.codec, e: n.e}
}

// CallRemote implements wireval.Callable: it lets the dispatcher invoke
// a wrapped callback argument as though it were a plain Go function,
// synchronously, without either package needing to import the other's
// concrete type.
func (n *Node) CallRemote(args []any) (any, error) {
	ctx, cancel := context.WithTimeout(context.Background(), remoteCallTimeout)
	defer cancel()
	return n.Call(args...).Result(ctx)
}

// Close tears down this proxy's pending table, failing any in-flight
// Future, and closes the underlying endpoint if it supports it.
func (n *Node) Close(reason error) {
	n.pending.closeAll(reason)
	if closer, ok := n.e.(interface{ Close() error }); ok {
		closer.Close()
	}
}
