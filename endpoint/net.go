package endpoint

import (
	"net"
	"sync"
	"time"

	"github.com/BX-D/bridge/codec"
	"github.com/BX-D/bridge/message"
	"github.com/BX-D/bridge/protocol"
)

// NetEndpoint is a cross-process Endpoint backed by one net.Conn. A
// bridge endpoint is symmetric: either side can post an Envelope at any
// time (a call, a response, or sub-channel traffic), so NetEndpoint has
// no notion of "the" response to "a" request; that matching is the proxy
// package's job (the pending-request table), one layer up.
//
// A single background goroutine (recvLoop) owns all reads from conn —
// reads must be sequential to parse frame boundaries — and fans each
// decoded Envelope out to every registered Handler. Writes are
// serialized by sendMu so concurrent Send calls never interleave bytes
// from two frames.
type NetEndpoint struct {
	conn      net.Conn
	codecType codec.Type

	sendMu sync.Mutex
	seq    uint32

	mu       sync.Mutex
	handlers []registeredHandler

	closeOnce sync.Once
	closed    chan struct{}

	doneOnce sync.Once
	done     chan struct{}
}

// DefaultHeartbeatInterval is what NewNetEndpoint uses when a caller has
// no configured preference.
const DefaultHeartbeatInterval = 30 * time.Second

// NewNetEndpoint wraps conn as an Endpoint, using codecType to serialize
// each Envelope into a protocol frame. It starts the background receive
// loop and a heartbeat loop, at DefaultHeartbeatInterval, immediately.
func NewNetEndpoint(conn net.Conn, codecType codec.Type) *NetEndpoint {
	return NewNetEndpointHeartbeat(conn, codecType, DefaultHeartbeatInterval)
}

// NewNetEndpointHeartbeat is NewNetEndpoint with an explicit heartbeat
// interval, for callers driven by a BridgeConfig's HeartbeatSeconds.
func NewNetEndpointHeartbeat(conn net.Conn, codecType codec.Type, heartbeat time.Duration) *NetEndpoint {
	e := &NetEndpoint{
		conn:      conn,
		codecType: codecType,
		closed:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	go e.recvLoop()
	go e.heartbeatLoop(heartbeat)
	return e
}

// Send serializes m with this endpoint's codec and writes one frame.
func (e *NetEndpoint) Send(m *message.Envelope) error {
	e.sendMu.Lock()
	defer e.sendMu.Unlock()

	e.seq++
	c := codec.Get(e.codecType)
	body, err := c.Encode(m)
	if err != nil {
		return err
	}

	header := protocol.Header{
		CodecType: byte(e.codecType),
		MsgType:   protocol.MsgTypeEnvelope,
		Seq:       e.seq,
		BodyLen:   uint32(len(body)),
	}
	return protocol.Encode(e.conn, &header, body)
}

// On registers h for every Envelope this endpoint receives.
func (e *NetEndpoint) On(h Handler) func() {
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

// Close closes the underlying connection. recvLoop observes the resulting
// read error and exits; Send calls made after Close return that error.
func (e *NetEndpoint) Close() error {
	var err error
	e.closeOnce.Do(func() {
		close(e.closed)
		err = e.conn.Close()
	})
	return err
}

// Done returns a channel that closes once this endpoint's connection has
// gone away, whether via an explicit Close or the peer hanging up —
// letting a caller (e.g. package peer's accept loop) wait for connection
// end without a second goroutine reading the same net.Conn.
func (e *NetEndpoint) Done() <-chan struct{} {
	return e.done
}

func (e *NetEndpoint) markDone() {
	e.doneOnce.Do(func() { close(e.done) })
}

// recvLoop is the sole reader of conn. Malformed frames and codec
// failures are not forwarded to handlers — parse failures are swallowed
// rather than thrown into the core. A frame that fails to parse ends the
// loop (and closes Done), since a framing desync cannot be recovered
// from mid-stream; a well-framed body the codec cannot decode is dropped
// and the loop reads on.
func (e *NetEndpoint) recvLoop() {
	defer e.markDone()
	for {
		header, body, err := protocol.Decode(e.conn)
		if err != nil {
			return
		}
		if header.MsgType == protocol.MsgTypeHeartbeat {
			continue
		}

		c := codec.Get(codec.Type(header.CodecType))
		env, err := c.Decode(body)
		if err != nil {
			continue
		}

		e.mu.Lock()
		handlers := make([]registeredHandler, len(e.handlers))
		copy(handlers, e.handlers)
		e.mu.Unlock()

		for _, rh := range handlers {
			rh.h(env)
		}
	}
}

// heartbeatLoop sends periodic empty frames so a dead peer is detected
// before the OS-level keepalive would notice.
func (e *NetEndpoint) heartbeatLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-e.closed:
			return
		case <-ticker.C:
			header := &protocol.Header{
				CodecType: byte(e.codecType),
				MsgType:   protocol.MsgTypeHeartbeat,
			}
			e.sendMu.Lock()
			err := protocol.Encode(e.conn, header, nil)
			e.sendMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
