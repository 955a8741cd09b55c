package muxhandlers

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/vitalvas/wsecho/httpmsg"
	"github.com/vitalvas/wsecho/mux"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestRW() (*bufio.ReadWriter, *bytes.Buffer) {
	out := new(bytes.Buffer)
	return bufio.NewReadWriter(bufio.NewReader(strings.NewReader("")), bufio.NewWriter(out)), out
}

func newTestRequest(target string, upgrade bool) *httpmsg.Request {
	req := &httpmsg.Request{
		Method: httpmsg.MethodGet,
		Target: target,
		Proto:  "HTTP/1.1",
		Header: map[string]string{"host": "localhost"},
	}
	if upgrade {
		req.Header["connection"] = "Upgrade"
		req.Header["upgrade"] = "websocket"
	}
	return req
}

// observedContext returns a context carrying a logger that records every
// entry at debug level and above.
func observedContext(t *testing.T) (context.Context, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	return mux.WithLogger(context.Background(), zap.New(core)), logs
}

// logEntryHandler writes a single "handled" entry with the connection logger.
var logEntryHandler = mux.HandlerFunc(func(ctx context.Context, _ *bufio.ReadWriter, _ *httpmsg.Request) error {
	mux.LoggerFromContext(ctx).Info("handled")
	return nil
})

type deadlineConn struct {
	net.Conn
	deadlines []time.Time
	err       error
}

func (c *deadlineConn) SetDeadline(t time.Time) error {
	c.deadlines = append(c.deadlines, t)
	return c.err
}

func (c *deadlineConn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(192, 0, 2, 1), Port: 50000}
}
