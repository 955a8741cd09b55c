package websocket

import (
	"encoding/binary"
	"errors"
)

// Close codes defined in RFC 6455, section 7.4.1.
const (
	CloseNormalClosure           = 1000
	CloseGoingAway               = 1001
	CloseProtocolError           = 1002
	CloseNoStatusReceived        = 1005
	CloseInvalidFramePayloadData = 1007
	CloseMessageTooBig           = 1009
	CloseInternalServerErr       = 1011
)

// FormatCloseMessage formats closeCode and text as a WebSocket close message
// per RFC 6455, section 5.5.1. The close frame body consists of a 2-byte
// status code followed by optional UTF-8 encoded reason text.
func FormatCloseMessage(closeCode int, text string) []byte {
	if closeCode == CloseNoStatusReceived {
		return []byte{}
	}
	buf := make([]byte, 2+len(text))
	binary.BigEndian.PutUint16(buf, uint16(closeCode))
	copy(buf[2:], text)
	return buf
}

// parseCloseCode returns the status code of a close frame body, or
// CloseNoStatusReceived when the body is shorter than two bytes.
func parseCloseCode(payload []byte) int {
	if len(payload) < 2 {
		return CloseNoStatusReceived
	}
	return int(binary.BigEndian.Uint16(payload))
}

// closeCodeFor maps a read error to the status code sent to the peer.
// Zero means the error came from the transport and no close frame is sent.
func closeCodeFor(err error) int {
	switch {
	case errors.Is(err, ErrReadLimit):
		return CloseMessageTooBig
	case errors.Is(err, ErrBadOpcode),
		errors.Is(err, ErrReservedBits),
		errors.Is(err, ErrInvalidPayloadLength),
		errors.Is(err, ErrControlFramePayloadTooBig),
		errors.Is(err, ErrFragmentedMessage):
		return CloseProtocolError
	default:
		return 0
	}
}
