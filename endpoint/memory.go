package endpoint

import (
	"sync"

	"github.com/BX-D/bridge/message"
)

// MemoryEndpoint is a same-process duplex Endpoint. A pair of
// MemoryEndpoints, created with NewMemoryPair, behave like the two ends of
// an in-memory pipe — the Go analogue of a Web Streams duplex pair, for
// same-process bridging and tests.
//
// Delivery runs synchronously on the sender's goroutine by default, which
// is the cheapest faithful rendition of single-threaded cooperative
// scheduling for same-process peers; handlers that need to avoid
// re-entrant call stacks should dispatch their own work onto a goroutine.
type MemoryEndpoint struct {
	mu       sync.Mutex
	handlers []registeredHandler
	peer     *MemoryEndpoint
}

type registeredHandler struct {
	id uint64
	h  Handler
}

// NewMemoryPair returns two endpoints wired to each other: sending on a
// is observed by b's handlers and vice versa.
func NewMemoryPair() (a, b *MemoryEndpoint) {
	a = &MemoryEndpoint{}
	b = &MemoryEndpoint{}
	a.peer = b
	b.peer = a
	return a, b
}

// Send delivers m to every handler registered on the peer endpoint, after
// cloning it to approximate structured-clone copy semantics.
func (e *MemoryEndpoint) Send(m *message.Envelope) error {
	clone := m.Clone()
	e.peer.mu.Lock()
	handlers := make([]registeredHandler, len(e.peer.handlers))
	copy(handlers, e.peer.handlers)
	e.peer.mu.Unlock()

	for _, rh := range handlers {
		rh.h(clone.Clone())
	}
	return nil
}

var nextHandlerID uint64
var nextHandlerIDMu sync.Mutex

func (e *MemoryEndpoint) On(h Handler) func() {
	nextHandlerIDMu.Lock()
	nextHandlerID++
	id := nextHandlerID
	nextHandlerIDMu.Unlock()

	e.mu.Lock()
	e.handlers = append(e.handlers, registeredHandler{id: id, h: h})
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, rh := range e.handlers {
			if rh.id == id {
				e.handlers = append(e.handlers[:i], e.handlers[i+1:]...)
				return
			}
		}
	}
}
