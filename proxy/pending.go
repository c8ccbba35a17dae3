package proxy

import (
	"sync"

	"github.com/BX-D/bridge/message"
)

// pendingTable maps an in-flight request id to the channel its caller is
// blocked on. resolve captures and deletes the entry atomically under
// one lock so a response can never be delivered twice and a retry can
// never find a stale entry.
type pendingTable struct {
	mu sync.Mutex
	m  map[message.ID]chan *message.Envelope
}

func newPendingTable() *pendingTable {
	return &pendingTable{m: make(map[message.ID]chan *message.Envelope)}
}

// register must be called before the request that owns id is sent, so
// the response can never race ahead of the registration.
func (p *pendingTable) register(id message.ID) chan *message.Envelope {
	ch := make(chan *message.Envelope, 1)
	p.mu.Lock()
	p.m[id] = ch
	p.mu.Unlock()
	return ch
}

// resolve delivers resp to the waiter registered for id, if any, and
// reports whether one was found. A response for an id nobody is waiting
// on (already resolved, or never requested) is silently dropped.
func (p *pendingTable) resolve(id message.ID, resp *message.Envelope) bool {
	p.mu.Lock()
	ch, ok := p.m[id]
	if ok {
		delete(p.m, id)
	}
	p.mu.Unlock()
	if ok {
		ch <- resp
	}
	return ok
}

// closeAll delivers err to every still-pending waiter. Node.Close calls
// it so no caller blocks forever on a torn-down proxy.
func (p *pendingTable) closeAll(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, ch := range p.m {
		ch <- message.NewError(id, err.Error())
		delete(p.m, id)
	}
}
