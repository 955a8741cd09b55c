package websocket

import (
	"bufio"
	"context"
	"errors"
	"io"

	"github.com/vitalvas/wsecho/httpmsg"
	"github.com/vitalvas/wsecho/mux"
	"go.uber.org/zap"
)

// MessageHandler handles one decoded message. When send is true, reply is
// written back to the peer.
type MessageHandler[T any] func(ctx context.Context, msg T) (reply T, send bool, err error)

// Echo returns a MessageHandler that sends every message straight back.
func Echo[T any]() MessageHandler[T] {
	return func(_ context.Context, msg T) (T, bool, error) {
		return msg, true, nil
	}
}

// Serve negotiates the connection for comm's subprotocol and then runs the
// read, handle, respond loop until the peer closes (nil is returned) or an
// error occurs (the error is returned). ctx is checked between messages;
// a blocked read is only interrupted by the connection's read deadline.
func Serve[T any](ctx context.Context, c *Conn, req *httpmsg.Request, comm Communicator[T], handle MessageHandler[T]) error {
	if err := c.Negotiate(req, comm.Protocol()); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			if closeErr := c.CloseWithCode(CloseGoingAway); closeErr != nil {
				c.logger.Debug("close on cancel failed", zap.Error(closeErr))
			}
			return err
		}

		msg, err := comm.Read(c)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			var decErr *DecodeError
			if errors.As(err, &decErr) {
				if c.onDecodeError != nil {
					if err = c.onDecodeError(ctx, decErr); err == nil {
						continue
					}
				}
				return c.failWithCode(CloseInvalidFramePayloadData, err)
			}

			return err
		}

		reply, send, err := handle(ctx, msg)
		if err != nil {
			if closeErr := c.CloseWithCode(CloseInternalServerErr); closeErr != nil {
				c.logger.Debug("close after handler error failed", zap.Error(closeErr))
			}
			return err
		}

		if send {
			if err := comm.Write(c, reply); err != nil {
				return err
			}
		}
	}
}

// NewHandler returns a mux.Handler that upgrades matching requests and
// serves them with comm and handle. The connection's logger and network
// connection are taken from the handler context.
func NewHandler[T any](comm Communicator[T], handle MessageHandler[T], cfg Config) mux.Handler {
	return mux.HandlerFunc(func(ctx context.Context, rw *bufio.ReadWriter, req *httpmsg.Request) error {
		connCfg := cfg
		if connCfg.Logger == nil {
			connCfg.Logger = mux.LoggerFromContext(ctx)
		}
		netConn, _ := mux.NetConnFromContext(ctx)

		c := NewConn(rw, netConn, connCfg)
		return Serve(ctx, c, req, comm, handle)
	})
}
