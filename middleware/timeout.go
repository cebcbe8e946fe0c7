package middleware

import (
	"context"
	"time"

	"github.com/aws-greengrass/nucleus-ipc/ipcerr"
)

// TimeoutMiddleware bounds a call to timeout. Per spec §5, the core
// Connection imposes no timeout of its own; this is the opt-in wrapper
// callers reach for instead. The wrapped call keeps running in its
// goroutine after a timeout fires — it is not cancelled, only abandoned
// — so a timed-out call still corrupts the Connection for subsequent use
// exactly as an uncancelled one would (spec §5, "cancelling a call on
// the primary Connection mid-write corrupts the stream"); the caller
// must drop the Connection afterward either way.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- next(ctx)
			}()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				return ipcerr.Wrap(ipcerr.KindIo, "call timed out", ctx.Err())
			}
		}
	}
}
