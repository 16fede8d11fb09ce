package middleware

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/WeiJinUp/jg-rpc/message"
)

// Retry re-invokes the handler on a transient-looking failure, with
// exponential backoff. Kept from the teacher as an opt-in middleware — the
// core call path never installs it by default, since spec §1 lists "retries
// on call failure" as an explicit non-goal; a server operator who wants
// handler-level retries (distinct from the client's own lack of retry) can
// still install this in their own middleware chain.
func Retry(maxRetries int, baseDelay time.Duration, logger *zap.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) *message.Response {
			resp := next(ctx, req)
			for i := 0; i < maxRetries; i++ {
				if resp.Error == "" {
					return resp
				}
				if !strings.Contains(resp.Error, "timeout") && !strings.Contains(resp.Error, "connection refused") {
					return resp
				}
				logger.Info("retrying rpc call",
					zap.String("interface", req.Interface), zap.String("method", req.Method),
					zap.Int("attempt", i+1), zap.String("error", resp.Error))
				time.Sleep(baseDelay * time.Duration(int64(1)<<uint(i)))
				resp = next(ctx, req)
			}
			return resp
		}
	}
}
