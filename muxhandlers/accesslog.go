package muxhandlers

import (
	"bufio"
	"context"
	"time"

	"github.com/vitalvas/wsecho/httpmsg"
	"github.com/vitalvas/wsecho/mux"
	"go.uber.org/zap"
)

// AccessLogConfig configures the access log middleware.
type AccessLogConfig struct {
	// Logger receives one entry per connection. When nil, the connection
	// logger from the context is used.
	Logger *zap.Logger

	// Message is the log message. Defaults to "request".
	Message string
}

// AccessLogMiddleware returns a middleware that writes one log entry per
// dispatched request once its handler returns. For upgraded connections
// the entry is written when the WebSocket session ends, so the duration
// covers the whole session.
func AccessLogMiddleware(cfg AccessLogConfig) mux.MiddlewareFunc {
	message := cfg.Message
	if message == "" {
		message = "request"
	}

	return func(next mux.Handler) mux.Handler {
		return mux.HandlerFunc(func(ctx context.Context, rw *bufio.ReadWriter, req *httpmsg.Request) error {
			start := time.Now()
			err := next.ServeConn(ctx, rw, req)

			logger := cfg.Logger
			if logger == nil {
				logger = mux.LoggerFromContext(ctx)
			}

			fields := []zap.Field{
				zap.String("method", string(req.Method)),
				zap.String("target", req.Target),
				zap.Bool("upgrade", req.IsUpgrade()),
				zap.Duration("duration", time.Since(start)),
			}
			if route := mux.CurrentRoute(ctx); route != nil && route.GetName() != "" {
				fields = append(fields, zap.String("route", route.GetName()))
			}
			if id := ConnIDFromContext(ctx); id != "" && cfg.Logger != nil {
				fields = append(fields, zap.String("conn_id", id))
			}
			if conn, ok := mux.NetConnFromContext(ctx); ok {
				fields = append(fields, zap.Stringer("remote_addr", conn.RemoteAddr()))
			}

			if err != nil {
				logger.Warn(message, append(fields, zap.Error(err))...)
			} else {
				logger.Info(message, fields...)
			}

			return err
		})
	}
}
