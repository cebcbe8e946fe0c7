// Package middleware implements the onion-model chain the teacher's
// RPC server used for handler cross-cutting concerns, re-pointed at the
// client side: here each layer wraps a single outbound call on a
// transport.Connection instead of a server handler, since spec §5
// ("Timeouts are not imposed by the core; callers may wrap calls
// externally") pushes concerns like logging, timeouts, and rate limiting
// out of transport.Connection and into an optional layer callers opt
// into.
//
// Onion model execution order:
//
//	Chain(A, B, C)(handler)  →  A(B(C(handler)))
//
//	Call:     A.before → B.before → C.before → handler
//	Return:   handler → C.after → B.after → A.after
package middleware

import "context"

// HandlerFunc performs one outbound call, typically a closure over a
// transport.Call[Req, Resp] invocation. It is untyped in the request/
// response payload because a chain must wrap calls of any shape; callers
// keep the typed request/response at the call site and only hand the
// invocation's execution — not its data — to the chain.
type HandlerFunc func(ctx context.Context) error

// Middleware wraps a HandlerFunc with additional behavior.
type Middleware func(next HandlerFunc) HandlerFunc

// Chain composes middlewares so the first one listed is outermost: it
// runs first on the way in and last on the way out.
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
