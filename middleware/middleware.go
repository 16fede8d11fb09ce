// Package middleware implements the onion-model middleware chain wrapping
// the server's business dispatch (spec §4.5's handler), unchanged in shape
// from the teacher's own middleware package — only the payload type moves
// from the teacher's single RPCMessage to message.Request/message.Response.
//
//	Chain(A, B, C)(handler)  ->  A(B(C(handler)))
//	Request:   A.before -> B.before -> C.before -> handler
//	Response:  handler -> C.after -> B.after -> A.after
package middleware

import (
	"context"

	"github.com/WeiJinUp/jg-rpc/message"
)

// HandlerFunc is the function signature for request handlers. Both the
// business handler and every middleware-wrapped handler share this shape.
type HandlerFunc func(ctx context.Context, req *message.Request) *message.Response

// Middleware takes a handler and returns a new handler wrapping it.
type Middleware func(next HandlerFunc) HandlerFunc

// Chain composes middlewares so the first in the list is the outermost
// layer: executed first on the way in, last on the way out.
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
