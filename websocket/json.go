package websocket

import (
	"fmt"
	"unicode/utf8"

	"github.com/sugawarayuuta/sonnet"
)

// JSONProtocol is the subprotocol negotiated by JSON.
const JSONProtocol = "json"

// WriteJSON writes the JSON encoding of v as a text message.
func (c *Conn) WriteJSON(v any) error {
	data, err := sonnet.Marshal(v)
	if err != nil {
		return fmt.Errorf("websocket: encode json message: %w", err)
	}
	return c.WriteMessage(OpText, data)
}

// ReadJSON reads the next text message and stores its JSON decoding in the
// value pointed to by v. Payloads that are not valid UTF-8 or not valid JSON
// yield a *DecodeError.
func (c *Conn) ReadJSON(v any) error {
	payload, err := c.NextMessage()
	if err != nil {
		return err
	}
	if !utf8.Valid(payload) {
		return &DecodeError{Protocol: JSONProtocol, Payload: payload, Err: ErrInvalidUTF8}
	}
	if err := sonnet.Unmarshal(payload, v); err != nil {
		return &DecodeError{Protocol: JSONProtocol, Payload: payload, Err: err}
	}
	return nil
}

// JSON exchanges arbitrary JSON values under the "json" subprotocol.
type JSON struct{}

// Protocol implements Communicator.
func (JSON) Protocol() string {
	return JSONProtocol
}

// Read implements Communicator.
func (JSON) Read(c *Conn) (any, error) {
	var v any
	if err := c.ReadJSON(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// Write implements Communicator.
func (JSON) Write(c *Conn, msg any) error {
	return c.WriteJSON(msg)
}
