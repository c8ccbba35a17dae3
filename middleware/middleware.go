// Package middleware wraps the server dispatcher's per-request handler
// with cross-cutting concerns (logging, rate limiting, timeouts),
// composed in an onion model: Chain(A, B, C)(handler) runs A.before,
// B.before, C.before, handler, C.after, B.after, A.after.
package middleware

import (
	"context"

	"github.com/BX-D/bridge/message"
)

// HandlerFunc processes one request envelope (call/construct/await) and
// returns its response or error envelope. This is the dispatcher's
// businessHandler signature, and every Middleware wraps one of these.
type HandlerFunc func(ctx context.Context, req *message.Envelope) *message.Envelope

// Middleware wraps a HandlerFunc to add behavior around it.
type Middleware func(next HandlerFunc) HandlerFunc

// Chain composes middlewares into one, applied in the order given.
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
