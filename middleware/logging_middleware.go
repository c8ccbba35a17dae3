package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/BX-D/bridge/message"
	"go.uber.org/zap"
)

// Logging logs every dispatched request: its key chain, type, and
// duration, and the error string if the handler produced one.
func Logging(logger *zap.SugaredLogger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Envelope) *message.Envelope {
			start := time.Now()
			resp := next(ctx, req)
			logger.Infow("dispatched request",
				"type", req.Type,
				"keyChain", strings.Join(req.KeyChain, "."),
				"duration", time.Since(start),
			)
			if resp.Error != "" {
				logger.Warnw("request failed", "id", req.ID, "error", resp.Error)
			}
			return resp
		}
	}
}
