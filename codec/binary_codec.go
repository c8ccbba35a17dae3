package codec

import (
	"encoding/binary"
	"encoding/json"
	"errors"

	"github.com/BX-D/bridge/message"
)

// BinaryCodec hand-encodes the fixed-shape fields of an Envelope
// (id, type, error, channel tag) as length-prefixed byte runs. The
// variable-shape fields (keyChain, args, data) are
// JSON-encoded blobs nested inside the binary frame — hand-rolling a
// binary encoding for an arbitrarily nested "any" payload buys nothing
// over JSON there, so this codec only pays the manual-encoding cost where
// it saves something (short, fixed-role strings). Payload, when the
// envelope is a sub-channel wrapper, recurses: it is itself a complete
// binary-encoded Envelope.
type BinaryCodec struct{}

func (c *BinaryCodec) Encode(e *message.Envelope) ([]byte, error) {
	if e == nil {
		return nil, errors.New("codec: cannot encode nil envelope")
	}

	idBytes := []byte(e.ID)
	typeBytes := []byte(e.Type)
	errBytes := []byte(e.Error)

	keyChainJSON, err := json.Marshal(e.KeyChain)
	if err != nil {
		return nil, err
	}
	argsJSON, err := json.Marshal(e.Args)
	if err != nil {
		return nil, err
	}
	dataJSON, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}

	var hasChannel byte
	var channelBytes, payloadBytes []byte
	if e.Channel != nil {
		hasChannel = 1
		channelBytes = []byte(*e.Channel)
		if e.Payload != nil {
			payloadBytes, err = c.Encode(e.Payload)
			if err != nil {
				return nil, err
			}
		}
	}

	total := 1 +
		2 + len(idBytes) +
		2 + len(typeBytes) +
		4 + len(keyChainJSON) +
		4 + len(argsJSON) +
		4 + len(dataJSON) +
		2 + len(errBytes) +
		2 + len(channelBytes) +
		4 + len(payloadBytes)

	buf := make([]byte, total)
	offset := 0

	buf[offset] = hasChannel
	offset++

	offset = putBytes16(buf, offset, idBytes)
	offset = putBytes16(buf, offset, typeBytes)
	offset = putBytes32(buf, offset, keyChainJSON)
	offset = putBytes32(buf, offset, argsJSON)
	offset = putBytes32(buf, offset, dataJSON)
	offset = putBytes16(buf, offset, errBytes)
	offset = putBytes16(buf, offset, channelBytes)
	putBytes32(buf, offset, payloadBytes)

	return buf, nil
}

func (c *BinaryCodec) Decode(data []byte) (*message.Envelope, error) {
	if len(data) < 1 {
		return nil, errors.New("codec: binary envelope truncated")
	}
	var e message.Envelope

	hasChannel := data[0]
	offset := 1

	idBytes, offset, err := getBytes16(data, offset)
	if err != nil {
		return nil, err
	}
	e.ID = message.ID(idBytes)

	typeBytes, offset, err := getBytes16(data, offset)
	if err != nil {
		return nil, err
	}
	e.Type = message.Type(typeBytes)

	keyChainJSON, offset, err := getBytes32(data, offset)
	if err != nil {
		return nil, err
	}
	if len(keyChainJSON) > 0 && string(keyChainJSON) != "null" {
		if err := json.Unmarshal(keyChainJSON, &e.KeyChain); err != nil {
			return nil, err
		}
	}

	argsJSON, offset, err := getBytes32(data, offset)
	if err != nil {
		return nil, err
	}
	if len(argsJSON) > 0 && string(argsJSON) != "null" {
		if err := json.Unmarshal(argsJSON, &e.Args); err != nil {
			return nil, err
		}
	}

	dataJSON, offset, err := getBytes32(data, offset)
	if err != nil {
		return nil, err
	}
	if len(dataJSON) > 0 && string(dataJSON) != "null" {
		var ev message.EncodedValue
		if err := json.Unmarshal(dataJSON, &ev); err != nil {
			return nil, err
		}
		e.Data = &ev
	}

	errBytes, offset, err := getBytes16(data, offset)
	if err != nil {
		return nil, err
	}
	e.Error = string(errBytes)

	channelBytes, offset, err := getBytes16(data, offset)
	if err != nil {
		return nil, err
	}
	payloadBytes, _, err := getBytes32(data, offset)
	if err != nil {
		return nil, err
	}

	if hasChannel == 1 {
		tag := string(channelBytes)
		e.Channel = &tag
		if len(payloadBytes) > 0 {
			payload, err := c.Decode(payloadBytes)
			if err != nil {
				return nil, err
			}
			e.Payload = payload
		}
	}

	return &e, nil
}

func (c *BinaryCodec) Type() Type {
	return TypeBinary
}

func putBytes16(buf []byte, offset int, b []byte) int {
	binary.BigEndian.PutUint16(buf[offset:offset+2], uint16(len(b)))
	offset += 2
	copy(buf[offset:offset+len(b)], b)
	return offset + len(b)
}

func putBytes32(buf []byte, offset int, b []byte) int {
	binary.BigEndian.PutUint32(buf[offset:offset+4], uint32(len(b)))
	offset += 4
	copy(buf[offset:offset+len(b)], b)
	return offset + len(b)
}

func getBytes16(data []byte, offset int) ([]byte, int, error) {
	if offset+2 > len(data) {
		return nil, 0, errors.New("codec: binary envelope truncated reading length")
	}
	n := int(binary.BigEndian.Uint16(data[offset : offset+2]))
	offset += 2
	if offset+n > len(data) {
		return nil, 0, errors.New("codec: binary envelope truncated reading field")
	}
	return data[offset : offset+n], offset + n, nil
}

func getBytes32(data []byte, offset int) ([]byte, int, error) {
	if offset+4 > len(data) {
		return nil, 0, errors.New("codec: binary envelope truncated reading length")
	}
	n := int(binary.BigEndian.Uint32(data[offset : offset+4]))
	offset += 4
	if offset+n > len(data) {
		return nil, 0, errors.New("codec: binary envelope truncated reading field")
	}
	return data[offset : offset+n], offset + n, nil
}
