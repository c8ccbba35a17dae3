package codec

import (
	"testing"

	"github.com/BX-D/bridge/message"
)

func roundTrip(t *testing.T, c Codec, original *message.Envelope) *message.Envelope {
	t.Helper()
	data, err := c.Encode(original)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	decoded, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	return decoded
}

func TestJSONCodecRequest(t *testing.T) {
	original := message.NewRequest("1", message.TypeCall, []string{"add"}, []message.EncodedValue{message.Inline(2), message.Inline(3)})
	decoded := roundTrip(t, &JSONCodec{}, original)

	if decoded.ID != original.ID || decoded.Type != original.Type {
		t.Errorf("id/type mismatch: got %+v, want %+v", decoded, original)
	}
	if len(decoded.KeyChain) != 1 || decoded.KeyChain[0] != "add" {
		t.Errorf("keyChain mismatch: got %v", decoded.KeyChain)
	}
}

func TestBinaryCodecRequest(t *testing.T) {
	original := message.NewRequest("1", message.TypeCall, []string{"add"}, []message.EncodedValue{message.Inline(2), message.Inline(3)})
	decoded := roundTrip(t, &BinaryCodec{}, original)

	if decoded.ID != original.ID || decoded.Type != original.Type {
		t.Errorf("id/type mismatch: got %+v, want %+v", decoded, original)
	}
	if len(decoded.Args) != 2 {
		t.Fatalf("args mismatch: got %+v", decoded.Args)
	}
}

func TestBinaryCodecChannelEnvelope(t *testing.T) {
	inner := message.NewResponse("7", message.Inline(42))
	original := message.NewChannelEnvelope("obj-1", inner)

	decoded := roundTrip(t, &BinaryCodec{}, original)
	if decoded.Channel == nil || *decoded.Channel != "obj-1" {
		t.Fatalf("channel tag lost: %+v", decoded)
	}
	if decoded.Payload == nil || decoded.Payload.ID != "7" {
		t.Fatalf("nested payload lost: %+v", decoded.Payload)
	}
}

func TestBinaryCodecErrorEnvelope(t *testing.T) {
	original := message.NewError("9", "unsafe property names")
	decoded := roundTrip(t, &BinaryCodec{}, original)
	if decoded.Error != "unsafe property names" {
		t.Errorf("error mismatch: got %q", decoded.Error)
	}
}

func TestGetCodecDefaultsToBinary(t *testing.T) {
	if Get(TypeJSON).Type() != TypeJSON {
		t.Errorf("Get(TypeJSON) did not return JSON codec")
	}
	if Get(TypeBinary).Type() != TypeBinary {
		t.Errorf("Get(TypeBinary) did not return Binary codec")
	}
	if Get(Type(99)).Type() != TypeBinary {
		t.Errorf("Get(unknown) should default to Binary")
	}
}
