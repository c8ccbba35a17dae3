// Package wireval implements the wire codec: classifying a host value as
// inline or wrapped, allocating a sub-channel and exposing the value
// there when wrapped, and reversing the process on decode.
//
// wireval does not itself know how to "expose" a value on an endpoint or
// "wrap" an endpoint into a proxy — those are the server dispatcher's and
// client proxy's jobs respectively, and importing either from here would
// cycle (both of them import wireval to encode/decode their payloads).
// Instead Codec takes two callbacks, supplied by the session bootstrap
// (package bridge) once at construction: Expose installs a dispatcher on
// a sub-channel, Wrap builds a sub-proxy for one.
package wireval

import (
	"reflect"

	"github.com/BX-D/bridge/channel"
	"github.com/BX-D/bridge/endpoint"
	"github.com/BX-D/bridge/idgen"
	"github.com/BX-D/bridge/message"
)

// Callable is implemented by whatever a Codec's Wrap callback returns
// (concretely, *proxy.Node — but this package can't import proxy without
// cycling back through dispatch). It lets the dispatcher turn a decoded
// wrapped argument back into a Go func value via reflect.MakeFunc when
// an exposed method's parameter type demands one, without either side
// importing the other's concrete type.
type Callable interface {
	CallRemote(args []any) (any, error)
}

// Codec is the shared encode/decode engine used by both the client proxy
// and the server dispatcher so a single object-id allocator and a single
// "marked for wrap" set back every encode/decode in one session, which
// matters once multiple bridges share a realm.
type Codec struct {
	// ObjectIDs allocates the sub-channel tag used whenever a value is
	// wrapped. Request ids and object-wrap ids share the same allocator
	// family but get their own instance per session, so client-wrapped
	// and server-wrapped ids never collide with request ids.
	ObjectIDs *idgen.Allocator

	// IsMarked reports whether v was explicitly marked for wrapping via
	// the session's MarkForWrap, regardless of what reflection would
	// otherwise conclude.
	IsMarked func(v any) bool

	// Expose installs a dispatcher for v on e. Supplied by package
	// bridge; see Session.exposeOn.
	Expose func(v any, e endpoint.Endpoint)

	// Wrap builds a client proxy bound to e. Supplied by package
	// bridge; see Session.wrapOn. The returned value is typed any here
	// to avoid an import cycle with package proxy; callers that need the
	// concrete *proxy.Node type assert it (the concrete type is always
	// what Session.wrapOn returns).
	Wrap func(e endpoint.Endpoint) any
}

// Encode classifies v and returns its EncodedValue. force skips
// classification and always wraps — used by the dispatcher for
// construct results: every construct response is wrapped, never inlined.
func (c *Codec) Encode(v any, e endpoint.Endpoint, force bool) message.EncodedValue {
	if !force && !c.mustWrap(v) {
		return message.Inline(v)
	}
	oid := message.ID(c.ObjectIDs.Next())
	sub := channel.New(e, string(oid))
	c.Expose(v, sub)
	return message.Wraped(oid)
}

// Decode reverses Encode: inline data is returned as-is, a wrapped id
// becomes a sub-proxy bound to the matching sub-channel.
func (c *Codec) Decode(ev message.EncodedValue, e endpoint.Endpoint) any {
	if ev.Kind == message.EncodedWraped {
		sub := channel.New(e, string(ev.ID))
		return c.Wrap(sub)
	}
	return ev.Data
}

// EncodeArgs/DecodeArgs apply Encode/Decode element-wise across an
// argument list: arrays of values are encoded/decoded element by
// element, not as a single unit.
func (c *Codec) EncodeArgs(args []any, e endpoint.Endpoint) []message.EncodedValue {
	out := make([]message.EncodedValue, len(args))
	for i, a := range args {
		out[i] = c.Encode(a, e, false)
	}
	return out
}

func (c *Codec) DecodeArgs(evs []message.EncodedValue, e endpoint.Endpoint) []any {
	out := make([]any, len(evs))
	for i, ev := range evs {
		out[i] = c.Decode(ev, e)
	}
	return out
}

// mustWrap implements the classification rule: wrap if v is a function
// or channel (neither survives a JSON round trip, so inlining one would
// panic message.Envelope.Clone on same-process endpoints); v is a
// non-null, non-array object with at least one function or channel
// among its enumerable own values (which in Go means an exported
// struct/map field of function or channel kind, or an exported method —
// Go's only way to give a value remote-callable behavior without a bare
// func field); or v was explicitly marked.
func (c *Codec) mustWrap(v any) bool {
	if v == nil {
		return false
	}
	if c.IsMarked != nil && c.IsMarked(v) {
		return true
	}

	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return false
	}
	if rv.Kind() == reflect.Func || rv.Kind() == reflect.Chan {
		return true
	}
	if typeHasCallableSurface(rv.Type()) {
		return true
	}

	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return false
		}
		elem := rv.Elem()
		if elem.Kind() == reflect.Struct {
			return structNeedsWrap(elem)
		}
		return false
	case reflect.Struct:
		return structNeedsWrap(rv)
	case reflect.Map:
		return mapNeedsWrap(rv)
	default:
		// Arrays and slices are never treated as "containing functions":
		// Encode inlines them as one value without looking at their
		// elements. Only EncodeArgs classifies each top-level argument
		// on its own.
		return false
	}
}

// typeHasCallableSurface reports whether t (or *t, for a value type) has
// at least one exported method — reflect only ever enumerates exported
// methods, so this needs no further filtering.
func typeHasCallableSurface(t reflect.Type) bool {
	if t.NumMethod() > 0 {
		return true
	}
	if t.Kind() != reflect.Ptr {
		if reflect.PointerTo(t).NumMethod() > 0 {
			return true
		}
	}
	return false
}

// structNeedsWrap probes a struct's exported fields for a function or
// channel value — either would panic message.Envelope.Clone if left
// inline. Probing is wrapped in failure-silencing: an object that
// refuses enumeration is treated as not containing functions — reflect
// over an ordinary Go struct cannot actually panic
// here, but the recover keeps this helper safe to extend with types that
// might (e.g. via custom Value-like wrappers) without re-auditing callers.
func structNeedsWrap(rv reflect.Value) (result bool) {
	defer func() {
		if recover() != nil {
			result = false
		}
	}()
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue // unexported: not "own" from outside this package
		}
		if f.Type.Kind() == reflect.Func || f.Type.Kind() == reflect.Chan {
			return true
		}
	}
	return false
}

func mapNeedsWrap(rv reflect.Value) (result bool) {
	defer func() {
		if recover() != nil {
			result = false
		}
	}()
	elemKind := rv.Type().Elem().Kind()
	if elemKind != reflect.Func && elemKind != reflect.Chan && elemKind != reflect.Interface {
		return false
	}
	iter := rv.MapRange()
	for iter.Next() {
		val := iter.Value()
		if val.Kind() == reflect.Interface {
			val = val.Elem()
		}
		if val.IsValid() && (val.Kind() == reflect.Func || val.Kind() == reflect.Chan) {
			return true
		}
	}
	return false
}
