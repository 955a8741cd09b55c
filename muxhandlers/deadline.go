package muxhandlers

import (
	"bufio"
	"context"
	"errors"
	"time"

	"github.com/vitalvas/wsecho/httpmsg"
	"github.com/vitalvas/wsecho/mux"
	"go.uber.org/zap"
)

// ErrInvalidDeadline is returned when DeadlineConfig.Duration is not greater
// than zero.
var ErrInvalidDeadline = errors.New("deadline: duration must be greater than zero")

// DeadlineConfig configures the Deadline middleware behaviour.
type DeadlineConfig struct {
	// Duration is the time allowed from dispatch until the handler stops
	// using the connection. Must be greater than zero.
	Duration time.Duration
}

// DeadlineMiddleware returns a middleware that sets an absolute read and
// write deadline on the underlying network connection before calling the
// handler. Handlers that take over the connection, such as a WebSocket
// upgrade, clear the deadline once the handshake completes. Connections
// without a net.Conn in the context are passed through unchanged.
//
// It returns ErrInvalidDeadline if Duration is not greater than zero.
func DeadlineMiddleware(cfg DeadlineConfig) (mux.MiddlewareFunc, error) {
	if cfg.Duration <= 0 {
		return nil, ErrInvalidDeadline
	}

	duration := cfg.Duration

	return func(next mux.Handler) mux.Handler {
		return mux.HandlerFunc(func(ctx context.Context, rw *bufio.ReadWriter, req *httpmsg.Request) error {
			if conn, ok := mux.NetConnFromContext(ctx); ok {
				if err := conn.SetDeadline(time.Now().Add(duration)); err != nil {
					mux.LoggerFromContext(ctx).Debug("set deadline failed", zap.Error(err))
				}
			}

			return next.ServeConn(ctx, rw, req)
		})
	}, nil
}
