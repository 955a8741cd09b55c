package server

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/vitalvas/wsecho/httpmsg"
	"github.com/vitalvas/wsecho/mux"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrServerClosed is returned by Serve and ListenAndServe after Shutdown.
var ErrServerClosed = errors.New("server: Server closed")

const (
	acceptBackoffMin = 5 * time.Millisecond
	acceptBackoffMax = time.Second
)

// Server accepts TCP connections and hands each one, once its request has
// been parsed, to Handler on its own goroutine. Connections share no state
// and are not capped in number.
type Server struct {
	// Addr is the TCP address to listen on. Defaults to "0.0.0.0:8080".
	Addr string

	// Handler serves parsed requests. When nil every request is answered
	// with 404 Not Found.
	Handler mux.Handler

	// Logger receives server events. Each connection gets a child logger
	// with its remote address, available to handlers through
	// mux.LoggerFromContext. Defaults to a no-op logger.
	Logger *zap.Logger

	// BaseContext optionally returns the base context for connections
	// accepted on a listener. It is cancelled by Shutdown.
	BaseContext func(net.Listener) context.Context

	// ReadHeaderTimeout, when positive, bounds reading the request line
	// and headers.
	ReadHeaderTimeout time.Duration

	mu         sync.Mutex
	wg         sync.WaitGroup
	inShutdown bool
	listeners  map[net.Listener]struct{}
	conns      map[net.Conn]struct{}
	cancels    []context.CancelFunc
}

// ListenAndServe listens on Addr and calls Serve. It always returns a
// non-nil error; after Shutdown the error is ErrServerClosed.
func (s *Server) ListenAndServe() error {
	if s.shuttingDown() {
		return ErrServerClosed
	}

	addr := s.Addr
	if addr == "" {
		addr = DefaultConfig().Address()
	}

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	return s.Serve(l)
}

// Serve accepts connections on l until it fails or Shutdown is called.
// Temporary accept failures are retried with a backoff that starts at 5ms
// and doubles up to one second. Serve closes l before returning.
func (s *Server) Serve(l net.Listener) error {
	ctx, ok := s.trackListener(l)
	if !ok {
		l.Close()
		return ErrServerClosed
	}
	defer s.untrackListener(l)

	logger := s.logger()
	logger.Info("listening", zap.Stringer("addr", l.Addr()))

	var delay time.Duration
	for {
		conn, err := l.Accept()
		if err != nil {
			if s.shuttingDown() {
				return ErrServerClosed
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}

			if delay == 0 {
				delay = acceptBackoffMin
			} else {
				delay = min(delay*2, acceptBackoffMax)
			}
			logger.Warn("accept failed, retrying", zap.Error(err), zap.Duration("delay", delay))

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ErrServerClosed
			}
			continue
		}
		delay = 0

		if !s.trackConn(conn) {
			conn.Close()
			return ErrServerClosed
		}

		go s.serveConn(ctx, conn)
	}
}

// Shutdown stops accepting connections, cancels the connection contexts
// and waits for active connections to finish. WebSocket sessions observe
// the cancellation between messages and close with status 1001. If ctx
// expires first, the remaining connections are closed and ctx's error is
// returned.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.inShutdown = true

	var err error
	for l := range s.listeners {
		if closeErr := l.Close(); closeErr != nil && !errors.Is(closeErr, net.ErrClosed) {
			err = multierr.Append(err, closeErr)
		}
	}
	for _, cancel := range s.cancels {
		cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return err
	case <-ctx.Done():
		s.mu.Lock()
		for conn := range s.conns {
			conn.Close()
		}
		s.mu.Unlock()
		return multierr.Append(err, ctx.Err())
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	logger := s.logger().With(zap.Stringer("remote_addr", conn.RemoteAddr()))

	defer s.wg.Done()
	defer s.untrackConn(conn)
	defer func() {
		if v := recover(); v != nil {
			logger.Error("connection worker panicked", zap.Any("panic", v), zap.Stack("stack"))
		}
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logger.Debug("close connection", zap.Error(err))
		}
	}()

	rw := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))

	if s.ReadHeaderTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.ReadHeaderTimeout))
	}

	req, err := httpmsg.ReadRequest(rw.Reader)
	if err != nil {
		if errors.Is(err, httpmsg.ErrEmptyRequest) {
			logger.Debug("empty request")
			return
		}

		logger.Debug("malformed request", zap.Error(err))
		if err := mux.WriteResponse(rw, httpmsg.BadRequest()); err != nil {
			logger.Debug("write bad request response", zap.Error(err))
		}
		return
	}

	if s.ReadHeaderTimeout > 0 {
		_ = conn.SetReadDeadline(time.Time{})
	}

	ctx = mux.WithNetConn(ctx, conn)
	ctx = mux.WithLogger(ctx, logger)

	if err := s.handler().ServeConn(ctx, rw, req); err != nil {
		logger.Debug("connection ended with error", zap.String("target", req.Target), zap.Error(err))
	}

	if err := rw.Flush(); err != nil {
		logger.Debug("flush connection", zap.Error(err))
	}
}

func (s *Server) handler() mux.Handler {
	if s.Handler != nil {
		return s.Handler
	}
	return mux.NewRouter()
}

func (s *Server) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}

func (s *Server) shuttingDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inShutdown
}

// trackListener registers l and returns the base context for its
// connections. It reports false once Shutdown has been called.
func (s *Server) trackListener(l net.Listener) (context.Context, bool) {
	base := context.Background()
	if s.BaseContext != nil {
		base = s.BaseContext(l)
		if base == nil {
			panic("server: BaseContext returned a nil context")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inShutdown {
		return nil, false
	}

	if s.listeners == nil {
		s.listeners = make(map[net.Listener]struct{})
	}
	s.listeners[l] = struct{}{}

	ctx, cancel := context.WithCancel(base)
	s.cancels = append(s.cancels, cancel)

	return ctx, true
}

func (s *Server) untrackListener(l net.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.listeners[l]; ok {
		delete(s.listeners, l)
		l.Close()
	}
}

// trackConn registers conn with the wait group. It reports false once
// Shutdown has been called, so no connection starts after Shutdown waits.
func (s *Server) trackConn(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inShutdown {
		return false
	}

	if s.conns == nil {
		s.conns = make(map[net.Conn]struct{})
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)

	return true
}

func (s *Server) untrackConn(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}
