// Package message defines the wire envelope exchanged between bridge peers.
//
// Every value that crosses an endpoint — the bare RPC stream or a
// sub-channel's multiplexed stream — is exactly one Envelope. Which of the
// five shapes an Envelope represents is decided by its Channel and Type
// fields (see Kind), not by separate Go types, because a sub-channel
// envelope's Payload is itself a full recursive Envelope: the same
// call/construct/await/response/error protocol runs inside it again.
package message

import "encoding/json"

// ID identifies a request or a wrapped object. It is the decimal string of
// a monotonic counter in the common case, or a random UUID string once the
// counter crosses its safe-integer threshold (see package idgen).
type ID string

// Type tags the five request/response/error shapes on the bare stream.
type Type string

const (
	TypeCall      Type = "call"
	TypeConstruct Type = "construct"
	TypeAwait     Type = "await"
	TypeResponse  Type = "response"
	TypeError     Type = "error"
)

// Reserved key-chain substrings. A key chain containing any of these as a
// substring (not just an exact match) must never reach the chain walker.
const (
	ReservedProto       = "__proto__"
	ReservedPrototype   = "prototype"
	ReservedConstructor = "constructor"
)

// EncodedValue is the tagged union of §3/§4.D: either the value travels
// inline (copied by the endpoint as-is) or it has been wrapped and exposed
// on a sub-channel of the sender's choosing.
type EncodedValue struct {
	Kind EncodedKind `json:"type"`
	Data any         `json:"data,omitempty"`
	ID   ID          `json:"id,omitempty"`
}

// EncodedKind is the "any" vs "wraped" tag of an EncodedValue. The
// misspelling "wraped" is intentional: it is part of the wire contract.
type EncodedKind string

const (
	EncodedAny    EncodedKind = "any"
	EncodedWraped EncodedKind = "wraped"
)

// Inline wraps data for the common not-a-function case.
func Inline(data any) EncodedValue { return EncodedValue{Kind: EncodedAny, Data: data} }

// Wraped wraps an object id for the must-wrap case.
func Wraped(id ID) EncodedValue { return EncodedValue{Kind: EncodedWraped, ID: id} }

// Envelope is the single wire shape carried by an endpoint. Only the
// fields relevant to its Kind are populated; the rest are zero/omitted.
type Envelope struct {
	// Bare-stream request/response/error fields.
	ID       ID             `json:"id,omitempty"`
	Type     Type           `json:"type,omitempty"`
	KeyChain []string       `json:"keyChain,omitempty"`
	Args     []EncodedValue `json:"args,omitempty"`
	Data     *EncodedValue  `json:"data,omitempty"`
	Error    string         `json:"error,omitempty"`

	// Sub-channel envelope fields. Channel non-nil marks this Envelope as
	// multiplexed traffic; Payload is itself a full Envelope (§4.B: "the
	// same wrap/expose protocol runs inside it recursively").
	Channel *string   `json:"channel,omitempty"`
	Payload *Envelope `json:"payload,omitempty"`
}

// Kind classifies an Envelope for dispatch purposes.
type Kind int

const (
	KindUnknown Kind = iota
	KindRequest
	KindResponse
	KindError
	KindChannel
)

// Classify returns which of the wire shapes e represents. It never panics;
// a malformed Envelope classifies as KindUnknown and is the caller's
// responsibility to report as a ProtocolError.
func (e *Envelope) Classify() Kind {
	if e == nil {
		return KindUnknown
	}
	if e.Channel != nil {
		return KindChannel
	}
	switch e.Type {
	case TypeCall, TypeConstruct, TypeAwait:
		return KindRequest
	case TypeResponse:
		return KindResponse
	case TypeError:
		return KindError
	default:
		return KindUnknown
	}
}

// MarshalJSON encodes e by its struct tags, except that a call or
// construct request whose Args is non-nil but empty keeps "args":[] on
// the wire instead of losing it to omitempty, so a zero-argument call is
// not mistaken for one missing its args array.
func (e Envelope) MarshalJSON() ([]byte, error) {
	type plain Envelope
	if e.Args != nil && len(e.Args) == 0 && (e.Type == TypeCall || e.Type == TypeConstruct) {
		return json.Marshal(struct {
			plain
			Args []EncodedValue `json:"args"`
		}{plain(e), e.Args})
	}
	return json.Marshal(plain(e))
}

// NewRequest builds a call/construct/await request envelope.
func NewRequest(id ID, typ Type, keyChain []string, args []EncodedValue) *Envelope {
	return &Envelope{ID: id, Type: typ, KeyChain: keyChain, Args: args}
}

// NewResponse builds a response envelope.
func NewResponse(id ID, data EncodedValue) *Envelope {
	return &Envelope{ID: id, Type: TypeResponse, Data: &data}
}

// NewError builds an error envelope.
func NewError(id ID, err string) *Envelope {
	return &Envelope{ID: id, Type: TypeError, Error: err}
}

// NewChannelEnvelope wraps payload for transmission on sub-channel tag.
func NewChannelEnvelope(tag string, payload *Envelope) *Envelope {
	return &Envelope{Channel: &tag, Payload: payload}
}

// Clone deep-copies e via a JSON round trip. Endpoints that share process
// memory (e.g. MemoryEndpoint) use Clone to approximate the
// structured-clone-equivalent copy semantics real transports provide, so
// that mutating a sent Envelope after Send never affects the receiver.
func (e *Envelope) Clone() *Envelope {
	if e == nil {
		return nil
	}
	b, err := json.Marshal(e)
	if err != nil {
		// Envelope is built entirely of JSON-marshalable fields; a
		// marshal failure here means a caller stuffed a non-cloneable
		// value into Data, which is a programmer error, not a wire error.
		panic("message: envelope not structured-clonable: " + err.Error())
	}
	var clone Envelope
	if err := json.Unmarshal(b, &clone); err != nil {
		panic("message: envelope clone round-trip failed: " + err.Error())
	}
	return &clone
}
