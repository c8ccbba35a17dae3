package wireval

import (
	"testing"

	"github.com/BX-D/bridge/endpoint"
	"github.com/BX-D/bridge/idgen"
	"github.com/BX-D/bridge/message"
)

// testCodec builds a Codec whose Expose/Wrap callbacks just record what
// they were asked to do, so classification can be tested without
// pulling in package proxy or dispatch (which would cycle back here).
func testCodec(t *testing.T) (*Codec, *[]string) {
	t.Helper()
	var exposedOn []string
	c := &Codec{
		ObjectIDs: idgen.New(),
		Expose: func(v any, e endpoint.Endpoint) {
			exposedOn = append(exposedOn, "exposed")
		},
		Wrap: func(e endpoint.Endpoint) any {
			return "proxy-stand-in"
		},
	}
	return c, &exposedOn
}

func TestEncodePlainValueIsInline(t *testing.T) {
	c, _ := testCodec(t)
	a, _ := endpoint.NewMemoryPair()

	ev := c.Encode(42, a, false)
	if ev.Kind != message.EncodedAny || ev.Data != 42 {
		t.Fatalf("expected inline encoding of a plain int, got %+v", ev)
	}
}

func TestEncodeFunctionIsWrapped(t *testing.T) {
	c, exposed := testCodec(t)
	a, _ := endpoint.NewMemoryPair()

	fn := func(x int) int { return x * 2 }
	ev := c.Encode(fn, a, false)
	if ev.Kind != message.EncodedWraped {
		t.Fatalf("expected a function value to be wrapped, got %+v", ev)
	}
	if len(*exposed) != 1 {
		t.Fatalf("expected Expose to be called once, got %d", len(*exposed))
	}
}

type withFuncField struct {
	Handler func()
}

func TestEncodeStructWithFuncFieldIsWrapped(t *testing.T) {
	c, _ := testCodec(t)
	a, _ := endpoint.NewMemoryPair()

	ev := c.Encode(&withFuncField{Handler: func() {}}, a, false)
	if ev.Kind != message.EncodedWraped {
		t.Fatalf("expected struct with func field to be wrapped, got %+v", ev)
	}
}

type plainData struct {
	A, B int
}

func TestEncodePlainStructIsInline(t *testing.T) {
	c, _ := testCodec(t)
	a, _ := endpoint.NewMemoryPair()

	ev := c.Encode(plainData{A: 1, B: 2}, a, false)
	if ev.Kind != message.EncodedAny {
		t.Fatalf("expected plain data struct to be inline, got %+v", ev)
	}
}

type counter struct{ n int }

func (c *counter) Inc() int { c.n++; return c.n }

func TestEncodeStructWithMethodIsWrapped(t *testing.T) {
	c, _ := testCodec(t)
	a, _ := endpoint.NewMemoryPair()

	ev := c.Encode(&counter{}, a, false)
	if ev.Kind != message.EncodedWraped {
		t.Fatalf("expected a struct with exported methods to be wrapped, got %+v", ev)
	}
}

func TestEncodeForceWrapsPlainValue(t *testing.T) {
	c, _ := testCodec(t)
	a, _ := endpoint.NewMemoryPair()

	ev := c.Encode(plainData{A: 1, B: 2}, a, true)
	if ev.Kind != message.EncodedWraped {
		t.Fatalf("force=true must always wrap, even for plain data, got %+v", ev)
	}
}

func TestEncodeArraysAreNeverWrappedAsAWhole(t *testing.T) {
	c, _ := testCodec(t)
	a, _ := endpoint.NewMemoryPair()

	// A slice is classified as a whole and never treated as "contains a
	// function"; Encode does not look at its elements.
	ev := c.Encode([]int{1, 2, 3}, a, false)
	if ev.Kind != message.EncodedAny {
		t.Fatalf("expected a plain slice to be inline, got %+v", ev)
	}
}

func TestDecodeInlineReturnsData(t *testing.T) {
	c, _ := testCodec(t)
	a, _ := endpoint.NewMemoryPair()

	got := c.Decode(message.Inline(7), a)
	if got != 7 {
		t.Fatalf("Decode(inline) = %v, want 7", got)
	}
}

func TestDecodeWrapedCallsWrap(t *testing.T) {
	c, _ := testCodec(t)
	a, _ := endpoint.NewMemoryPair()

	got := c.Decode(message.Wraped("obj-1"), a)
	if got != "proxy-stand-in" {
		t.Fatalf("Decode(wraped) did not invoke Wrap callback, got %v", got)
	}
}

func TestMarkedValueAlwaysWraps(t *testing.T) {
	a, _ := endpoint.NewMemoryPair()
	marked := map[any]bool{}
	c := &Codec{
		ObjectIDs: idgen.New(),
		IsMarked:  func(v any) bool { return marked[v] },
		Expose:    func(v any, e endpoint.Endpoint) {},
		Wrap:      func(e endpoint.Endpoint) any { return nil },
	}

	plain := 123
	marked[plain] = true
	ev := c.Encode(plain, a, false)
	if ev.Kind != message.EncodedWraped {
		t.Fatalf("expected marked value to wrap, got %+v", ev)
	}
}
