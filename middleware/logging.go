package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// LoggingMiddleware logs the named call's outcome and duration at info
// level on success and error level on failure.
func LoggingMiddleware(logger *zap.Logger, callName string) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context) error {
			start := time.Now()
			err := next(ctx)
			fields := []zap.Field{
				zap.String("call", callName),
				zap.Duration("duration", time.Since(start)),
			}
			if err != nil {
				logger.Error("ipc call failed", append(fields, zap.Error(err))...)
			} else {
				logger.Info("ipc call completed", fields...)
			}
			return err
		}
	}
}
