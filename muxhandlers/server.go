package muxhandlers

import (
	"bufio"
	"context"
	"os"

	"github.com/vitalvas/wsecho/httpmsg"
	"github.com/vitalvas/wsecho/mux"
	"go.uber.org/zap"
)

// ServerConfig configures the Server middleware behaviour.
type ServerConfig struct {
	// Hostname is the value attached to the connection logger as the
	// "server_hostname" field. Resolution order: Hostname field, then
	// HostnameEnv environment variable, then os.Hostname.
	Hostname string

	// HostnameEnv is a list of environment variable names checked in
	// order (e.g. ["POD_NAME", "HOSTNAME"]). The first non-empty
	// value is used. Only consulted when Hostname is empty. When all
	// variables are unset or empty, os.Hostname is used as a fallback.
	HostnameEnv []string
}

// ServerMiddleware returns a middleware that tags every log entry of a
// connection with the server hostname. The hostname is resolved once when
// the middleware is created. It returns an error if the hostname cannot be
// determined.
func ServerMiddleware(cfg ServerConfig) (mux.MiddlewareFunc, error) {
	hostname := cfg.Hostname

	if hostname == "" {
		for _, env := range cfg.HostnameEnv {
			if v, ok := os.LookupEnv(env); ok && v != "" {
				hostname = v
				break
			}
		}
	}

	if hostname == "" {
		h, err := os.Hostname()
		if err != nil {
			return nil, err
		}

		hostname = h
	}

	field := zap.String("server_hostname", hostname)

	return func(next mux.Handler) mux.Handler {
		return mux.HandlerFunc(func(ctx context.Context, rw *bufio.ReadWriter, req *httpmsg.Request) error {
			ctx = mux.WithLogger(ctx, mux.LoggerFromContext(ctx).With(field))
			return next.ServeConn(ctx, rw, req)
		})
	}, nil
}
