package mux

import (
	"bufio"
	"context"

	"github.com/vitalvas/wsecho/httpmsg"
)

// Handler serves one connection after its request has been parsed.
//
// The handler owns rw for the rest of the connection's life. Any response
// bytes must be flushed through rw.Writer before returning; the transport
// closes the socket once ServeConn returns.
type Handler interface {
	ServeConn(ctx context.Context, rw *bufio.ReadWriter, req *httpmsg.Request) error
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(ctx context.Context, rw *bufio.ReadWriter, req *httpmsg.Request) error

// ServeConn calls f(ctx, rw, req).
func (f HandlerFunc) ServeConn(ctx context.Context, rw *bufio.ReadWriter, req *httpmsg.Request) error {
	return f(ctx, rw, req)
}

// MiddlewareFunc wraps a Handler with additional behaviour.
type MiddlewareFunc func(Handler) Handler

// Middleware allows MiddlewareFunc to be used where a middleware value is
// expected.
func (mw MiddlewareFunc) Middleware(handler Handler) Handler {
	return mw(handler)
}
