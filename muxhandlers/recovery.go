package muxhandlers

import (
	"bufio"
	"context"
	"errors"
	"fmt"

	"github.com/vitalvas/wsecho/httpmsg"
	"github.com/vitalvas/wsecho/mux"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrPanicRecovered is returned by handlers wrapped with RecoveryMiddleware
// when the handler panicked.
var ErrPanicRecovered = errors.New("recovery: handler panicked")

// RecoveryConfig configures the Recovery middleware behaviour.
type RecoveryConfig struct {
	// LogFunc is an optional callback invoked with the request and the
	// recovered value when a panic occurs. When nil, the panic is logged
	// with the connection logger.
	LogFunc func(req *httpmsg.Request, err any)
}

// RecoveryMiddleware returns a middleware that recovers from panics in
// downstream handlers. The panic is turned into an error wrapping
// ErrPanicRecovered. Plain requests are also answered with 500 Internal
// Server Error; upgrade requests are not, since the connection may already
// carry WebSocket frames.
func RecoveryMiddleware(cfg RecoveryConfig) mux.MiddlewareFunc {
	return func(next mux.Handler) mux.Handler {
		return mux.HandlerFunc(func(ctx context.Context, rw *bufio.ReadWriter, req *httpmsg.Request) (err error) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}

				if cfg.LogFunc != nil {
					cfg.LogFunc(req, v)
				} else {
					mux.LoggerFromContext(ctx).Error("handler panicked",
						zap.String("target", req.Target),
						zap.Any("panic", v),
						zap.StackSkip("stack", 2))
				}

				err = fmt.Errorf("%w: %v", ErrPanicRecovered, v)

				if !req.IsUpgrade() {
					resp := httpmsg.NewResponse(500, "Internal Server Error")
					resp.Set("Content-Type", "text/plain; charset=utf-8")
					resp.Body = []byte("Internal Server Error\n")
					if writeErr := mux.WriteResponse(rw, resp); writeErr != nil {
						err = multierr.Append(err, writeErr)
					}
				}
			}()

			return next.ServeConn(ctx, rw, req)
		})
	}
}
