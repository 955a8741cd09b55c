package muxhandlers

import (
	"bufio"
	"context"

	"github.com/google/uuid"
	"github.com/vitalvas/wsecho/httpmsg"
	"github.com/vitalvas/wsecho/mux"
	"go.uber.org/zap"
)

type connIDKey struct{}

// ConnIDFromContext returns the connection ID stored in the context by
// ConnIDMiddleware. Returns an empty string if no ID is present.
func ConnIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(connIDKey{}).(string); ok {
		return id
	}

	return ""
}

// ConnIDConfig configures the connection ID middleware behaviour.
type ConnIDConfig struct {
	// HeaderName is the request header consulted when TrustIncoming is set.
	// Defaults to "X-Request-ID" when empty.
	HeaderName string

	// GenerateFunc is an optional callback that returns a new unique ID.
	// It receives the handshake request. Defaults to GenerateUUIDv4.
	GenerateFunc func(req *httpmsg.Request) string

	// TrustIncoming, when true, reuses an ID supplied by the client in
	// HeaderName instead of generating a new one.
	TrustIncoming bool
}

// ConnIDMiddleware returns a middleware that assigns every connection an
// ID. The ID is stored in the context and added to the connection logger
// as the "conn_id" field, so every later log entry for the connection
// carries it.
func ConnIDMiddleware(cfg ConnIDConfig) mux.MiddlewareFunc {
	headerName := cfg.HeaderName
	if headerName == "" {
		headerName = "X-Request-ID"
	}

	generate := cfg.GenerateFunc
	if generate == nil {
		generate = GenerateUUIDv4
	}

	trustIncoming := cfg.TrustIncoming

	return func(next mux.Handler) mux.Handler {
		return mux.HandlerFunc(func(ctx context.Context, rw *bufio.ReadWriter, req *httpmsg.Request) error {
			id := ""
			if trustIncoming {
				id = req.Get(headerName)
			}

			if id == "" {
				id = generate(req)
			}

			if id != "" {
				ctx = context.WithValue(ctx, connIDKey{}, id)
				ctx = mux.WithLogger(ctx, mux.LoggerFromContext(ctx).With(zap.String("conn_id", id)))
			}

			return next.ServeConn(ctx, rw, req)
		})
	}
}

// GenerateUUIDv4 returns a new UUID v4 string.
//
// See https://www.rfc-editor.org/rfc/rfc9562#section-5.4
func GenerateUUIDv4(_ *httpmsg.Request) string {
	return uuid.New().String()
}

// GenerateUUIDv7 returns a new UUID v7 string. UUIDs are time-ordered:
// IDs generated later sort lexicographically after earlier ones.
//
// See https://www.rfc-editor.org/rfc/rfc9562#section-5.7
func GenerateUUIDv7(_ *httpmsg.Request) string {
	return uuid.Must(uuid.NewV7()).String()
}
