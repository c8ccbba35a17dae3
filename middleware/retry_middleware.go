package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/BX-D/bridge/message"
	"go.uber.org/zap"
)

// Retry re-runs the rest of the chain when it fails with a
// transient-looking error (a timeout or a connection refusal surfaced by
// whatever the exposed function itself called out to), with exponential
// backoff. Non-transient failures — an exposed function's own UserError —
// are returned immediately.
func Retry(maxRetries int, baseDelay time.Duration, logger *zap.SugaredLogger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Envelope) *message.Envelope {
			resp := next(ctx, req)
			for i := 0; i < maxRetries; i++ {
				if resp.Error == "" {
					return resp
				}
				if !strings.Contains(resp.Error, "timeout") && !strings.Contains(resp.Error, "connection refused") {
					return resp
				}
				logger.Infow("retrying request", "attempt", i+1, "id", req.ID, "error", resp.Error)
				time.Sleep(baseDelay * time.Duration(1<<i))
				resp = next(ctx, req)
			}
			return resp
		}
	}
}
