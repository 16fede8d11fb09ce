package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/WeiJinUp/jg-rpc/message"
)

// RateLimit short-circuits the chain once the shared token bucket is empty,
// unchanged from the teacher's rate_limit_middleware.go: the limiter is
// built once in the outer closure (shared across all requests), not per
// call, or every request would see a fresh full bucket.
func RateLimit(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) *message.Response {
			if !limiter.Allow() {
				return &message.Response{Error: "rate limit exceeded", CorrelationID: req.CorrelationID}
			}
			return next(ctx, req)
		}
	}
}
