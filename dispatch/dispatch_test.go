package dispatch

import (
	"strings"
	"testing"
	"time"

	"github.com/BX-D/bridge/endpoint"
	"github.com/BX-D/bridge/idgen"
	"github.com/BX-D/bridge/message"
	"github.com/BX-D/bridge/wireval"
)

type addArgs struct {
	A, B int
}

type arith struct {
	Name string
}

func (a *arith) Add(args addArgs) (int, error) {
	return args.A + args.B, nil
}

func (a *arith) Boom() (int, error) {
	panic("kaboom")
}

func newTestCodec() *wireval.Codec {
	c := &wireval.Codec{ObjectIDs: idgen.New()}
	c.Expose = func(v any, e endpoint.Endpoint) {
		Expose(v, e, c)
	}
	c.Wrap = func(e endpoint.Endpoint) any { return e }
	return c
}

func recv(t *testing.T, client *endpoint.MemoryEndpoint) *message.Envelope {
	t.Helper()
	ch := make(chan *message.Envelope, 1)
	unsub := client.On(func(m *message.Envelope) { ch <- m })
	defer unsub()
	select {
	case m := <-ch:
		return m
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for response")
		return nil
	}
}

func TestAwaitResolvesExportedField(t *testing.T) {
	client, server := endpoint.NewMemoryPair()
	codec := newTestCodec()
	defer Expose(&arith{Name: "calc"}, server, codec)()

	req := message.NewRequest("1", message.TypeAwait, []string{"Name"}, nil)
	go client.Send(req)
	resp := recv(t, client)

	if resp.Error != "" {
		t.Fatalf("unexpected error: %s", resp.Error)
	}
	if resp.Data.Data != "calc" {
		t.Fatalf("expected 'calc', got %v", resp.Data.Data)
	}
}

func TestCallInvokesMethod(t *testing.T) {
	client, server := endpoint.NewMemoryPair()
	codec := newTestCodec()
	defer Expose(&arith{}, server, codec)()

	args := codec.EncodeArgs([]any{map[string]any{"A": float64(2), "B": float64(3)}}, client)
	req := message.NewRequest("1", message.TypeCall, []string{"Add"}, args)
	go client.Send(req)
	resp := recv(t, client)

	if resp.Error != "" {
		t.Fatalf("unexpected error: %s", resp.Error)
	}
	if resp.Data.Data.(float64) != 5 {
		t.Fatalf("expected 5, got %v", resp.Data.Data)
	}
}

func TestCallRejectsUnsafeKeyChain(t *testing.T) {
	client, server := endpoint.NewMemoryPair()
	codec := newTestCodec()
	defer Expose(&arith{}, server, codec)()

	req := message.NewRequest("1", message.TypeAwait, []string{"__proto__"}, nil)
	go client.Send(req)
	resp := recv(t, client)

	if resp.Error == "" {
		t.Fatal("expected an error for a reserved key chain segment")
	}
}

func TestCallOnUnknownMethodReturnsMissingPropertyError(t *testing.T) {
	client, server := endpoint.NewMemoryPair()
	codec := newTestCodec()
	defer Expose(&arith{}, server, codec)()

	req := message.NewRequest("1", message.TypeCall, []string{"Subtract"}, []message.EncodedValue{})
	go client.Send(req)
	resp := recv(t, client)

	if !strings.Contains(resp.Error, `no method "Subtract"`) {
		t.Fatalf("expected a missing-property error, got %q", resp.Error)
	}
}

func TestCallRecoversFromPanic(t *testing.T) {
	client, server := endpoint.NewMemoryPair()
	codec := newTestCodec()
	defer Expose(&arith{}, server, codec)()

	req := message.NewRequest("1", message.TypeCall, []string{"Boom"}, []message.EncodedValue{})
	go client.Send(req)
	resp := recv(t, client)

	if !strings.Contains(resp.Error, "kaboom") {
		t.Fatalf("expected the panic to surface as a UserError, not crash the dispatcher, got %q", resp.Error)
	}
}

func TestConstructAlwaysWrapsResult(t *testing.T) {
	client, server := endpoint.NewMemoryPair()
	codec := newTestCodec()

	root := struct {
		New func(name string) *arith
	}{
		New: func(name string) *arith { return &arith{Name: name} },
	}
	defer Expose(&root, server, codec)()

	args := codec.EncodeArgs([]any{"widget"}, client)
	req := message.NewRequest("1", message.TypeConstruct, []string{"New"}, args)
	go client.Send(req)
	resp := recv(t, client)

	if resp.Error != "" {
		t.Fatalf("unexpected error: %s", resp.Error)
	}
	if resp.Data.Kind != message.EncodedWraped {
		t.Fatalf("expected construct result to be wrapped, got kind %q", resp.Data.Kind)
	}
}
