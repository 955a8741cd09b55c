package websocket

import (
	"context"
	"errors"
	"unicode/utf8"
)

// ErrInvalidUTF8 is reported when a text payload is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("websocket: invalid UTF-8 in text message")

// Communicator reads and writes application messages of type T over an
// open connection. Each implementation handles one message format, named
// by the subprotocol it negotiates.
type Communicator[T any] interface {
	// Protocol returns the subprotocol name negotiated for this format.
	Protocol() string

	// Read receives and decodes the next message. It returns io.EOF when
	// the peer has closed the connection, and a *DecodeError when the
	// frame arrived intact but its payload could not be decoded.
	Read(c *Conn) (T, error)

	// Write encodes msg and sends it as one frame.
	Write(c *Conn, msg T) error
}

// DecodeError reports a payload that could not be decoded into an
// application message. The connection itself is still intact.
type DecodeError struct {
	Protocol string
	Payload  []byte
	Err      error
}

func (e *DecodeError) Error() string {
	return "websocket: decode " + e.Protocol + " message: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DecodeErrorHandler decides whether a connection survives a payload that
// failed to decode.
type DecodeErrorHandler func(ctx context.Context, err *DecodeError) error

// Text exchanges raw UTF-8 strings.
type Text struct {
	// Name is the negotiated subprotocol. Defaults to "text".
	Name string
}

// Protocol implements Communicator.
func (t Text) Protocol() string {
	if t.Name == "" {
		return "text"
	}
	return t.Name
}

// Read implements Communicator.
func (t Text) Read(c *Conn) (string, error) {
	payload, err := c.NextMessage()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(payload) {
		return "", &DecodeError{Protocol: t.Protocol(), Payload: payload, Err: ErrInvalidUTF8}
	}
	return string(payload), nil
}

// Write implements Communicator.
func (t Text) Write(c *Conn, msg string) error {
	return c.WriteMessage(OpText, []byte(msg))
}
