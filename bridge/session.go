// Package bridge is the session bootstrap: it wires the wire codec, the
// server dispatcher, and the client proxy into one
// object-id-allocator-sharing realm, and exposes the library's two
// top-level operations, Wrap and Expose, the way a caller actually uses
// this module.
package bridge

import (
	"context"
	"reflect"
	"sync"

	"github.com/BX-D/bridge/channel"
	"github.com/BX-D/bridge/dispatch"
	"github.com/BX-D/bridge/endpoint"
	"github.com/BX-D/bridge/idgen"
	"github.com/BX-D/bridge/message"
	"github.com/BX-D/bridge/middleware"
	"github.com/BX-D/bridge/proxy"
	"github.com/BX-D/bridge/wireval"
)

// Session backs every Wrap/Expose pair that needs to share one object-id
// allocator and one "marked for wrap" set — multiple bridges sharing a
// realm must not collide on ids for values crossing between them. A
// zero-value Session is not usable; build one with NewSession.
type Session struct {
	codec *wireval.Codec
	mws   []middleware.Middleware

	mu     sync.Mutex
	marked map[uintptr]bool
}

// NewSession builds a Session whose dispatcher runs mws around every
// exposed value's business handler, in the order given (outermost
// first), matching middleware.Chain's semantics.
func NewSession(mws ...middleware.Middleware) *Session {
	s := &Session{
		mws:    mws,
		marked: make(map[uintptr]bool),
	}
	s.codec = &wireval.Codec{
		ObjectIDs: idgen.New(),
		IsMarked:  s.isMarked,
		Expose:    s.exposeOn,
		Wrap:      s.wrapOn,
	}
	return s
}

// MarkForWrap forces v to always be treated as must-wrap, regardless of
// what reflection would otherwise conclude — an escape hatch for a
// value that needs remote identity but happens to carry no
// exported func field or method (e.g. a plain data value the caller
// wants the other side to hold by reference rather than receive a copy
// of). v must be a pointer, map, channel, or function; any other kind is
// silently ignored, since Go has no other way to compare it for marking
// across repeated calls without risking a hash of the actual contents.
func (s *Session) MarkForWrap(v any) {
	ptr, ok := identityOf(v)
	if !ok {
		return
	}
	s.mu.Lock()
	s.marked[ptr] = true
	s.mu.Unlock()
}

func (s *Session) isMarked(v any) bool {
	ptr, ok := identityOf(v)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.marked[ptr]
}

func identityOf(v any) (uintptr, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		if rv.IsNil() {
			return 0, false
		}
		return rv.Pointer(), true
	default:
		return 0, false
	}
}

func (s *Session) exposeOn(v any, e endpoint.Endpoint) {
	dispatch.Expose(v, e, s.codec, s.mws...)
}

func (s *Session) wrapOn(e endpoint.Endpoint) any {
	return proxy.New(e, s.codec)
}

// Expose installs a dispatcher for root on e: every call/construct/await
// envelope e delivers is answered against root's key-chain-resolved
// members. The returned func unsubscribes the dispatcher from e.
func (s *Session) Expose(root any, e endpoint.Endpoint) func() {
	return dispatch.Expose(root, e, s.codec, s.mws...)
}

// Wrap builds a client proxy for the value exposed on the far end of e.
func (s *Session) Wrap(e endpoint.Endpoint) *proxy.Node {
	return proxy.New(e, s.codec)
}

// CreateChannel opens sub-channel tag of e, for callers that want a
// second logical stream over the same physical endpoint without going
// through a wrap — sub-channels exist independently of the must-wrap
// machinery that usually allocates their tags.
func CreateChannel(e endpoint.Endpoint, tag string) endpoint.Endpoint {
	return channel.New(e, tag)
}

// defaultSession backs the package-level Wrap/Expose/MarkForWrap
// functions, for callers who don't need more than one realm. Its Logging
// middleware reads the package logger on every request, so SetLogger
// also reaches dispatchers exposed before it was called.
var defaultSession = NewSession(func(next middleware.HandlerFunc) middleware.HandlerFunc {
	return func(ctx context.Context, req *message.Envelope) *message.Envelope {
		return middleware.Logging(logger)(next)(ctx, req)
	}
})

// Expose installs a dispatcher for root on e using the default session.
func Expose(root any, e endpoint.Endpoint) func() {
	return defaultSession.Expose(root, e)
}

// Wrap builds a client proxy for e using the default session.
func Wrap(e endpoint.Endpoint) *proxy.Node {
	return defaultSession.Wrap(e)
}

// MarkForWrap forces v to always be treated as must-wrap in the default
// session. See Session.MarkForWrap.
func MarkForWrap(v any) {
	defaultSession.MarkForWrap(v)
}
