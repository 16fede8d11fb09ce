package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/WeiJinUp/jg-rpc/message"
)

// Logging records the interface, method, duration, and any error for each
// call, the same before/after shape as the teacher's LoggingMiddleware but
// through the shared zap logger (internal/jlog) instead of the standard
// library's log package.
func Logging(logger *zap.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) *message.Response {
			start := time.Now()
			resp := next(ctx, req)
			fields := []zap.Field{
				zap.String("interface", req.Interface),
				zap.String("method", req.Method),
				zap.Duration("duration", time.Since(start)),
			}
			if resp.Error != "" {
				logger.Warn("rpc call failed", append(fields, zap.String("error", resp.Error))...)
			} else {
				logger.Debug("rpc call completed", fields...)
			}
			return resp
		}
	}
}
