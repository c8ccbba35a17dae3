package channel

import (
	"testing"

	"github.com/BX-D/bridge/endpoint"
	"github.com/BX-D/bridge/message"
)

func TestSubChannelIsolation(t *testing.T) {
	a, b := endpoint.NewMemoryPair()

	chA := New(a, "obj-1")
	chB := New(b, "obj-1")
	otherB := New(b, "obj-2")

	var gotOnTag, gotOnOther, gotOnBare int
	chB.On(func(m *message.Envelope) { gotOnTag++ })
	otherB.On(func(m *message.Envelope) { gotOnOther++ })
	b.On(func(m *message.Envelope) { gotOnBare++ })

	if err := chA.Send(message.NewRequest("1", message.TypeAwait, []string{"x"}, nil)); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if gotOnTag != 1 {
		t.Errorf("expected the matching-tag sub-channel to observe the message, got %d", gotOnTag)
	}
	if gotOnOther != 0 {
		t.Errorf("sibling tag must not observe another tag's traffic, got %d", gotOnOther)
	}
	if gotOnBare != 1 {
		t.Errorf("base endpoint handlers still see the raw channel envelope, got %d", gotOnBare)
	}
}

func TestBareStreamIgnoredBySubChannel(t *testing.T) {
	a, b := endpoint.NewMemoryPair()
	chB := New(b, "obj-1")

	var calls int
	chB.On(func(m *message.Envelope) { calls++ })

	// A bare request, with no channel field at all.
	a.Send(message.NewRequest("1", message.TypeCall, []string{"f"}, nil))

	if calls != 0 {
		t.Errorf("sub-channel observed bare-stream traffic, got %d calls", calls)
	}
}

func TestSubChannelBroadcastFanOut(t *testing.T) {
	a, b := endpoint.NewMemoryPair()

	var count int
	for i := 0; i < 3; i++ {
		ch := New(b, "obj-1")
		ch.On(func(m *message.Envelope) { count++ })
	}

	New(a, "obj-1").Send(message.NewRequest("1", message.TypeAwait, nil, nil))
	if count != 3 {
		t.Errorf("expected 3 independent sub-channels with the same tag to each receive the message, got %d", count)
	}
}

func TestSubChannelRecursesTheProtocol(t *testing.T) {
	a, b := endpoint.NewMemoryPair()
	subA := New(a, "obj-1")
	subB := New(b, "obj-1")

	// A sub-channel can itself host a nested sub-channel (recursion per
	// §3: "the same wrap/expose protocol runs inside it recursively").
	nestedA := New(subA, "obj-1-method")
	nestedB := New(subB, "obj-1-method")

	received := make(chan *message.Envelope, 1)
	nestedB.On(func(m *message.Envelope) { received <- m })

	nestedA.Send(message.NewRequest("5", message.TypeCall, []string{}, nil))
	got := <-received
	if got.ID != "5" {
		t.Fatalf("nested sub-channel round trip failed: %+v", got)
	}
}
