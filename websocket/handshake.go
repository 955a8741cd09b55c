package websocket

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/vitalvas/wsecho/httpmsg"
)

// Handshake errors. Every negotiation failure wraps ErrHandshakeAborted
// together with the specific reason.
var (
	ErrHandshakeAborted = errors.New("websocket: handshake aborted")
	ErrNotUpgrade       = errors.New("websocket: not an upgrade request")
	ErrProtocolMismatch = errors.New("websocket: subprotocol not offered by client")
	ErrMissingKey       = errors.New("websocket: missing Sec-WebSocket-Key")
)

// handshakeStatus is the reason phrase of the 101 response.
const handshakeStatus = "Web Socket Protocol Handshake"

// IsUpgrade reports whether req asks to switch to the WebSocket protocol,
// per RFC 6455, section 4.2.1, items 3 and 4.
func IsUpgrade(req *httpmsg.Request) bool {
	return req.IsUpgrade()
}

// Subprotocols returns the subprotocols requested by the client in the
// Sec-WebSocket-Protocol header per RFC 6455, section 11.3.4.
func Subprotocols(req *httpmsg.Request) []string {
	h, ok := req.Lookup("sec-websocket-protocol")
	if !ok {
		return nil
	}
	var protocols []string
	for _, p := range strings.Split(h, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			protocols = append(protocols, p)
		}
	}
	return protocols
}

// Negotiate checks req against the server's single supported subprotocol
// and returns the 101 response to send. A request without a
// Sec-WebSocket-Protocol header is accepted with protocol.
func Negotiate(req *httpmsg.Request, protocol string) (*httpmsg.Response, error) {
	if !IsUpgrade(req) {
		return nil, abort(ErrNotUpgrade)
	}

	if _, offered := req.Lookup("sec-websocket-protocol"); offered {
		if !slices.Contains(Subprotocols(req), protocol) {
			return nil, abort(fmt.Errorf("%w: want %q", ErrProtocolMismatch, protocol))
		}
	}

	accept, ok := AcceptKey(req)
	if !ok {
		return nil, abort(ErrMissingKey)
	}

	resp := httpmsg.NewResponse(101, handshakeStatus)
	resp.Set("Connection", "Upgrade")
	resp.Set("Upgrade", "websocket")
	resp.Set("Sec-WebSocket-Accept", accept)
	resp.Set("Sec-WebSocket-Protocol", protocol)

	return resp, nil
}

func abort(reason error) error {
	return fmt.Errorf("%w: %w", ErrHandshakeAborted, reason)
}
