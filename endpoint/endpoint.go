// Package endpoint defines the abstract duplex message transport the
// bridge core is built against, plus two reference adapters:
// MemoryEndpoint for same-process bridging and tests, and NetEndpoint
// for a framed net.Conn.
package endpoint

import "github.com/BX-D/bridge/message"

// Handler receives one incoming Envelope. Endpoint implementations must
// deliver each posted message at most once to each registered Handler, in
// FIFO order per Endpoint; ordering across different Endpoints is
// unspecified.
type Handler func(*message.Envelope)

// Endpoint is the transport contract the whole bridge core is written
// against: post one message, and subscribe/unsubscribe a Handler for
// incoming ones. Everything else — framing, retries, backpressure — is the
// concrete adapter's concern.
type Endpoint interface {
	// Send delivers m to the peer. An error here (e.g. a closed
	// transport) is the caller's to handle; the core never lets a Send
	// failure propagate into a pending request's resolution — it only
	// logs and leaves the request pending.
	Send(m *message.Envelope) error

	// On registers h to receive every incoming Envelope and returns an
	// unsubscribe function. Multiple handlers may be registered; each
	// receives every incoming Envelope. MemoryEndpoint hands each handler
	// its own clone; NetEndpoint hands all handlers the same decoded
	// Envelope.
	On(h Handler) (unsubscribe func())
}
