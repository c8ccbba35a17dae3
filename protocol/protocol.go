// Package protocol implements the framing used by endpoint.NetEndpoint to
// carry one codec-serialized Envelope per TCP frame.
//
// It solves TCP's sticky-packet problem with a fixed 14-byte header
// followed by a variable-length body: the receiver reads the header,
// learns the body length, then reads exactly that many bytes.
//
// Frame format:
//
//	0      3  4  5  6         10        14
//	┌──────┬──┬──┬──┬─────────┬─────────┬───────────────┐
//	│magic │v │ct│mt│   seq   │ bodyLen │    body ...    │
//	│ brg  │01│  │  │ uint32  │ uint32  │ bodyLen bytes  │
//	└──────┴──┴──┴──┴─────────┴─────────┴───────────────┘
package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Magic number bytes: "brg" (bridge). Used to reject non-protocol
// connections (e.g. an HTTP client hitting the wrong port) quickly.
const (
	MagicByte1 byte = 0x62 // 'b'
	MagicByte2 byte = 0x72 // 'r'
	MagicByte3 byte = 0x67 // 'g'
	Version    byte = 0x01
	HeaderSize int  = 14
)

// MsgType distinguishes a framed Envelope from a bare keepalive probe.
type MsgType byte

const (
	MsgTypeEnvelope  MsgType = 0 // body carries one codec-encoded Envelope
	MsgTypeHeartbeat MsgType = 1 // no body; keeps the connection alive
)

// Codec type constants, mirrored from package codec to avoid a circular
// import (protocol is the lower layer; codec does not depend on it).
const (
	CodecTypeJSON   byte = 0
	CodecTypeBinary byte = 1
)

// Header is the fixed 14-byte frame header.
type Header struct {
	CodecType byte
	MsgType   MsgType
	Seq       uint32 // sender's per-connection frame counter, for debugging; not used for routing
	BodyLen   uint32
}

// Encode writes a complete frame (header + body) to w. The caller must
// hold a write lock if multiple goroutines share w, otherwise frames from
// different sends will interleave and corrupt the stream.
func Encode(w io.Writer, h *Header, body []byte) error {
	buf := make([]byte, HeaderSize)

	copy(buf[0:3], []byte{MagicByte1, MagicByte2, MagicByte3})
	buf[3] = Version
	buf[4] = h.CodecType
	buf[5] = byte(h.MsgType)
	binary.BigEndian.PutUint32(buf[6:10], h.Seq)
	binary.BigEndian.PutUint32(buf[10:14], h.BodyLen)

	if _, err := w.Write(buf); err != nil {
		return err
	}
	if len(body) > 0 {
		if _, err := w.Write(body); err != nil {
			return err
		}
	}
	return nil
}

// Decode reads one complete frame from r, validating magic, version,
// codec type and message type. io.ReadFull guarantees exactly N bytes are
// read, so a frame is never partially parsed.
func Decode(r io.Reader) (*Header, []byte, error) {
	headerBuf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, headerBuf); err != nil {
		return nil, nil, err
	}

	if headerBuf[0] != MagicByte1 || headerBuf[1] != MagicByte2 || headerBuf[2] != MagicByte3 {
		return nil, nil, fmt.Errorf("protocol: invalid magic number: %x", headerBuf[0:3])
	}
	if headerBuf[3] != Version {
		return nil, nil, fmt.Errorf("protocol: unsupported version: %d", headerBuf[3])
	}
	if headerBuf[4] != CodecTypeJSON && headerBuf[4] != CodecTypeBinary {
		return nil, nil, fmt.Errorf("protocol: unsupported codec type: %d", headerBuf[4])
	}
	msgType := headerBuf[5]
	if msgType != byte(MsgTypeEnvelope) && msgType != byte(MsgTypeHeartbeat) {
		return nil, nil, fmt.Errorf("protocol: unsupported message type: %d", msgType)
	}

	seq := binary.BigEndian.Uint32(headerBuf[6:10])
	bodyLen := binary.BigEndian.Uint32(headerBuf[10:14])

	var body []byte
	if bodyLen > 0 {
		body = make([]byte, bodyLen)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, nil, err
		}
	}

	return &Header{
		CodecType: headerBuf[4],
		MsgType:   MsgType(msgType),
		Seq:       seq,
		BodyLen:   bodyLen,
	}, body, nil
}
