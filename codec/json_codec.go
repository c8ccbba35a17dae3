package codec

import (
	"encoding/json"

	"github.com/BX-D/bridge/message"
)

// JSONCodec serializes an Envelope with the standard library's
// encoding/json. Human-readable, cross-language, easy to debug over the
// wire; slower and larger on the wire than BinaryCodec.
type JSONCodec struct{}

func (c *JSONCodec) Encode(e *message.Envelope) ([]byte, error) {
	return json.Marshal(e)
}

func (c *JSONCodec) Decode(data []byte) (*message.Envelope, error) {
	var e message.Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *JSONCodec) Type() Type {
	return TypeJSON
}
