package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/aws-greengrass/nucleus-ipc/ipcerr"
)

// RateLimitMiddleware bounds how often the wrapped call may run, using a
// token bucket shared across every invocation of the chain it's built
// into. When the bucket is empty it returns a KindProtocol error without
// calling next. Nothing in this module wires it in; the pause supervisor
// issues its defers without a limiter.
func RateLimitMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context) error {
			if !limiter.Allow() {
				return ipcerr.New(ipcerr.KindProtocol, "rate limit exceeded")
			}
			return next(ctx)
		}
	}
}
