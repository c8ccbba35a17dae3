package middleware

import (
	"context"
	"time"

	"github.com/BX-D/bridge/message"
)

// Timeout bounds how long the rest of the chain may take to produce a
// response; past the deadline it synthesizes an error reply rather than
// leaving the caller to block forever. Note this only protects the
// in-process handler chain — a pending request with no matching response
// still stays pending forever at the protocol level.
func Timeout(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Envelope) *message.Envelope {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			done := make(chan *message.Envelope, 1)
			go func() {
				done <- next(ctx, req)
			}()

			select {
			case resp := <-done:
				return resp
			case <-ctx.Done():
				return message.NewError(req.ID, "request timed out")
			}
		}
	}
}
