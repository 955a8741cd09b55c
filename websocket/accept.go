package websocket

import (
	"crypto/sha1"
	"encoding/base64"

	"github.com/vitalvas/wsecho/httpmsg"
)

// websocketGUID is the globally unique identifier for WebSocket handshake
// per RFC 6455, section 4.2.2, item 5.4.
const websocketGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// ComputeAcceptKey computes the Sec-WebSocket-Accept value per RFC 6455,
// section 4.2.2, item 5.4: the base64-encoded SHA-1 hash of the challenge key
// concatenated with the GUID.
func ComputeAcceptKey(challengeKey string) string {
	h := sha1.New()
	h.Write([]byte(challengeKey))
	h.Write([]byte(websocketGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// AcceptKey returns the accept value for the request's Sec-WebSocket-Key.
// It reports false when the request carries no key header.
func AcceptKey(req *httpmsg.Request) (string, bool) {
	key, ok := req.Lookup("sec-websocket-key")
	if !ok {
		return "", false
	}
	return ComputeAcceptKey(key), true
}
