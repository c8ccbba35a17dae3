package middleware

import (
	"context"

	"github.com/BX-D/bridge/message"
	"golang.org/x/time/rate"
)

// RateLimit caps inbound call/construct/await throughput on one
// dispatcher using a token-bucket limiter, r tokens/sec with the given
// burst.
func RateLimit(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Envelope) *message.Envelope {
			if !limiter.Allow() {
				return message.NewError(req.ID, "rate limit exceeded")
			}
			return next(ctx, req)
		}
	}
}
