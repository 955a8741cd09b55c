package mux

import (
	"context"
	"net"

	"go.uber.org/zap"
)

type routeContextKey struct{}

type netConnContextKey struct{}

type loggerContextKey struct{}

// CurrentRoute returns the route matched for the connection, if any.
func CurrentRoute(ctx context.Context) *Route {
	if route, ok := ctx.Value(routeContextKey{}).(*Route); ok {
		return route
	}
	return nil
}

func withRoute(ctx context.Context, route *Route) context.Context {
	return context.WithValue(ctx, routeContextKey{}, route)
}

// WithNetConn returns a copy of ctx carrying the accepted network
// connection. The transport attaches it so that handlers and middleware can
// set deadlines or read peer addresses.
func WithNetConn(ctx context.Context, conn net.Conn) context.Context {
	return context.WithValue(ctx, netConnContextKey{}, conn)
}

// NetConnFromContext returns the network connection stored by WithNetConn.
func NetConnFromContext(ctx context.Context) (net.Conn, bool) {
	conn, ok := ctx.Value(netConnContextKey{}).(net.Conn)
	return conn, ok && conn != nil
}

// WithLogger returns a copy of ctx carrying a connection-scoped logger.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, logger)
}

// LoggerFromContext returns the logger stored by WithLogger, or a no-op
// logger.
func LoggerFromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerContextKey{}).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return zap.NewNop()
}
