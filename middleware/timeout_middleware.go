package middleware

import (
	"context"
	"time"

	"github.com/WeiJinUp/jg-rpc/message"
)

// Timeout enforces a maximum duration for the wrapped handler. The handler
// runs in its own goroutine raced against ctx's deadline; if the deadline
// wins, the goroutine is not cancelled (only its result is discarded),
// unchanged from the teacher's TimeOutMiddleware.
func Timeout(d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) *message.Response {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			done := make(chan *message.Response, 1)
			go func() {
				done <- next(ctx, req)
			}()

			select {
			case resp := <-done:
				return resp
			case <-ctx.Done():
				return &message.Response{Error: "request timed out", CorrelationID: req.CorrelationID}
			}
		}
	}
}
