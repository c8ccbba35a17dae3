// Package codec serializes a message.Envelope to and from bytes for
// transports that need a byte-oriented wire. NetEndpoint picks one Codec
// per connection and frames its output with package protocol.
package codec

import "github.com/BX-D/bridge/message"

// Type selects the wire serialization, carried as a byte tag in the
// frame header.
type Type byte

const (
	TypeJSON   Type = 0
	TypeBinary Type = 1
)

// Codec encodes/decodes one Envelope per call.
type Codec interface {
	Encode(e *message.Envelope) ([]byte, error)
	Decode(data []byte) (*message.Envelope, error)
	Type() Type
}

// Get returns the Codec implementation for t, defaulting to Binary for
// any unrecognized value.
func Get(t Type) Codec {
	if t == TypeJSON {
		return &JSONCodec{}
	}
	return &BinaryCodec{}
}
