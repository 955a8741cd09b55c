package websocket

import (
	"bufio"
	"errors"
	"io"
	"net"
	"time"

	"github.com/vitalvas/wsecho/httpmsg"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DefaultReadLimit is the largest inbound frame payload accepted when
// Config.ReadLimit is zero.
const DefaultReadLimit = 16 << 20

// Connection errors.
var (
	ErrNotOpen           = errors.New("websocket: connection is not open")
	ErrFragmentedMessage = errors.New("websocket: fragmented messages are not supported")
)

// State is the lifecycle state of a Conn.
type State int

const (
	StateNegotiating State = iota
	StateOpen
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateNegotiating:
		return "negotiating"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Config holds the per-connection settings.
type Config struct {
	// ReadLimit bounds the payload size of one inbound frame. Zero selects
	// DefaultReadLimit; a negative value disables the limit.
	ReadLimit int64

	// ReadTimeout, when positive, is the longest the connection waits for
	// the next frame. Without it a silent peer blocks the reader forever.
	ReadTimeout time.Duration

	// WriteTimeout, when positive, bounds each frame write.
	WriteTimeout time.Duration

	// Logger receives connection events. When nil the logger carried by the
	// handler context is used.
	Logger *zap.Logger

	// DecodeErrorHandler is called with every *DecodeError a communicator
	// reports. Returning nil keeps the connection open; returning an error
	// ends it. When nil, decode errors end the connection.
	DecodeErrorHandler DecodeErrorHandler
}

func (cfg Config) readLimit() int64 {
	switch {
	case cfg.ReadLimit == 0:
		return DefaultReadLimit
	case cfg.ReadLimit < 0:
		return 0
	default:
		return cfg.ReadLimit
	}
}

// Conn is one server-side WebSocket connection. It is owned by a single
// goroutine and is not safe for concurrent use.
type Conn struct {
	rw      *bufio.ReadWriter
	netConn net.Conn // optional, for deadlines

	state         State
	subprotocol   string
	closeSent     bool
	peerCloseCode int

	readLimit     int64
	readTimeout   time.Duration
	writeTimeout  time.Duration
	logger        *zap.Logger
	onDecodeError DecodeErrorHandler
}

// NewConn returns a connection in StateNegotiating. rw.Reader must be the
// reader the request was parsed from so that no buffered bytes are lost.
// netConn may be nil; it is only used for deadlines.
func NewConn(rw *bufio.ReadWriter, netConn net.Conn, cfg Config) *Conn {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Conn{
		rw:            rw,
		netConn:       netConn,
		state:         StateNegotiating,
		readLimit:     cfg.readLimit(),
		readTimeout:   cfg.ReadTimeout,
		writeTimeout:  cfg.WriteTimeout,
		logger:        logger,
		onDecodeError: cfg.DecodeErrorHandler,
	}
}

// State returns the current lifecycle state.
func (c *Conn) State() State {
	return c.state
}

// Subprotocol returns the negotiated subprotocol.
func (c *Conn) Subprotocol() string {
	return c.subprotocol
}

// PeerCloseCode returns the status code of the close frame received from
// the peer, or zero if none was received.
func (c *Conn) PeerCloseCode() int {
	return c.peerCloseCode
}

// Negotiate performs the opening handshake for req. On success the 101
// response has been written and the connection is open. On failure nothing
// is written, the connection is closed and the error wraps
// ErrHandshakeAborted; the caller must close the socket.
func (c *Conn) Negotiate(req *httpmsg.Request, protocol string) error {
	if c.state != StateNegotiating {
		return ErrNotOpen
	}

	resp, err := Negotiate(req, protocol)
	if err != nil {
		c.state = StateClosed
		c.logger.Debug("handshake rejected", zap.String("target", req.Target), zap.Error(err))
		return err
	}

	c.armWriteDeadline()
	if _, err := resp.WriteTo(c.rw.Writer); err != nil {
		c.state = StateClosed
		return err
	}
	if err := c.rw.Flush(); err != nil {
		c.state = StateClosed
		return err
	}

	// Deadlines set for the handshake must not outlive it.
	if c.netConn != nil {
		_ = c.netConn.SetDeadline(time.Time{})
	}

	c.state = StateOpen
	c.subprotocol = protocol
	c.logger.Debug("connection upgraded", zap.String("target", req.Target), zap.String("subprotocol", protocol))

	return nil
}

// NextMessage reads the next frame and returns its text payload.
//
// A close frame from the peer, or the stream ending between frames, returns
// io.EOF and moves the connection to StateClosed. Any other error also
// closes the connection; protocol violations are reported to the peer with
// a close frame before returning.
func (c *Conn) NextMessage() ([]byte, error) {
	if c.state != StateOpen {
		return nil, ErrNotOpen
	}

	c.armReadDeadline()
	f, err := ReadFrame(c.rw.Reader, c.readLimit)
	if err != nil {
		if errors.Is(err, io.EOF) {
			c.state = StateClosed
			c.logger.Debug("peer closed stream")
			return nil, io.EOF
		}
		return nil, c.fail(err)
	}

	c.logger.Debug("frame received",
		zap.Stringer("opcode", f.Opcode),
		zap.Uint64("length", f.Length),
		zap.Bool("masked", f.Masked))

	switch f.Opcode {
	case OpClose:
		c.peerCloseCode = parseCloseCode(f.Payload)
		code := c.peerCloseCode
		if code == CloseNoStatusReceived {
			code = CloseNormalClosure
		}
		if err := c.sendClose(code); err != nil {
			c.logger.Debug("close reply failed", zap.Error(err))
		}
		c.state = StateClosed
		return nil, io.EOF
	default:
		if !f.Final {
			return nil, c.fail(ErrFragmentedMessage)
		}
		return f.Payload, nil
	}
}

// WriteMessage writes payload as a single unmasked frame and flushes it.
func (c *Conn) WriteMessage(op Opcode, payload []byte) error {
	if c.state != StateOpen {
		return ErrNotOpen
	}
	if err := c.writeFrame(op, payload); err != nil {
		c.state = StateClosed
		return err
	}
	return nil
}

// Close sends a normal close frame if the connection is open and moves it
// to StateClosed. It does not close the underlying socket.
func (c *Conn) Close() error {
	return c.CloseWithCode(CloseNormalClosure)
}

// CloseWithCode is Close with an explicit status code.
func (c *Conn) CloseWithCode(code int) error {
	if c.state != StateOpen {
		c.state = StateClosed
		return nil
	}
	err := c.sendClose(code)
	c.state = StateClosed
	return err
}

// fail closes the connection after a read or application error, telling
// the peer why when the error is not a transport failure.
func (c *Conn) fail(err error) error {
	return c.failWithCode(closeCodeFor(err), err)
}

// failWithCode is fail with an explicit status code; zero sends no close
// frame.
func (c *Conn) failWithCode(code int, err error) error {
	if code != 0 && c.state == StateOpen {
		if closeErr := c.sendClose(code); closeErr != nil {
			err = multierr.Append(err, closeErr)
		}
	}
	c.state = StateClosed
	c.logger.Debug("connection failed", zap.Error(err))
	return err
}

func (c *Conn) sendClose(code int) error {
	if c.closeSent {
		return nil
	}
	c.closeSent = true
	return c.writeFrame(OpClose, FormatCloseMessage(code, ""))
}

func (c *Conn) writeFrame(op Opcode, payload []byte) error {
	c.armWriteDeadline()
	if err := WriteFrame(c.rw.Writer, payload, op); err != nil {
		return err
	}
	return c.rw.Flush()
}

func (c *Conn) armReadDeadline() {
	if c.netConn != nil && c.readTimeout > 0 {
		_ = c.netConn.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
}

func (c *Conn) armWriteDeadline() {
	if c.netConn != nil && c.writeTimeout > 0 {
		_ = c.netConn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
}
