package websocket

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// Opcode identifies the purpose of a frame (RFC 6455, section 5.2).
// Only text and close frames are supported.
type Opcode byte

const (
	OpText  Opcode = 1
	OpClose Opcode = 8
)

// String returns the opcode name.
func (o Opcode) String() string {
	switch o {
	case OpText:
		return "text"
	case OpClose:
		return "close"
	default:
		return fmt.Sprintf("opcode(%d)", byte(o))
	}
}

// ParseOpcode validates the low four bits of a frame's first byte.
func ParseOpcode(b byte) (Opcode, error) {
	switch op := Opcode(b & opcodeMask); op {
	case OpText, OpClose:
		return op, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrBadOpcode, byte(op))
	}
}

// Frame header constants per RFC 6455, section 5.2.
const (
	maxFrameHeaderSize         = 14  // 2 bytes base + 8 bytes extended length + 4 bytes mask
	maxControlFramePayloadSize = 125 // RFC 6455, section 5.5

	finalBit = 1 << 7
	rsvBits  = 0x70
	maskBit  = 1 << 7

	opcodeMask     = 0x0f
	payloadLenMask = 0x7f
	payloadLen16   = 126 // 16-bit extended payload length follows
	payloadLen64   = 127 // 64-bit extended payload length follows

	payloadChunkSize = 64 << 10 // initial payload buffer for large frames
)

// Frame codec errors.
var (
	ErrBadOpcode                 = errors.New("websocket: bad opcode")
	ErrInvalidPayloadLength      = errors.New("websocket: invalid payload length")
	ErrReservedBits              = errors.New("websocket: reserved bits set")
	ErrControlFramePayloadTooBig = errors.New("websocket: control frame payload too big")
	ErrReadLimit                 = errors.New("websocket: read limit exceeded")
)

// FrameHeader is the decoded fixed part of a frame.
type FrameHeader struct {
	Final   bool
	Opcode  Opcode
	Masked  bool
	Length  uint64
	MaskKey [4]byte
}

// Frame is a decoded frame. Payload is always unmasked.
type Frame struct {
	FrameHeader
	Payload []byte
}

// AppendFrame appends an unmasked final frame carrying payload to dst.
// Server-to-client frames are never masked (RFC 6455, section 5.1).
func AppendFrame(dst, payload []byte, op Opcode) []byte {
	dst = append(dst, finalBit|byte(op))

	n := len(payload)
	switch {
	case n < payloadLen16:
		dst = append(dst, byte(n))
	case n <= math.MaxUint16:
		dst = append(dst, payloadLen16)
		dst = binary.BigEndian.AppendUint16(dst, uint16(n))
	default:
		dst = append(dst, payloadLen64)
		dst = binary.BigEndian.AppendUint64(dst, uint64(n))
	}

	return append(dst, payload...)
}

// EncodeFrame returns payload encoded as a single unmasked final frame.
func EncodeFrame(payload []byte, op Opcode) []byte {
	return AppendFrame(make([]byte, 0, maxFrameHeaderSize+len(payload)), payload, op)
}

// WriteFrame encodes payload as a frame and writes it to w.
func WriteFrame(w io.Writer, payload []byte, op Opcode) error {
	_, err := w.Write(EncodeFrame(payload, op))
	return err
}

// ReadFrameHeader reads a frame header, including the extended payload
// length and masking key, from r.
//
// io.EOF is returned only when r ends before the first header byte; a
// stream that ends anywhere inside the header yields io.ErrUnexpectedEOF.
func ReadFrameHeader(r io.Reader) (FrameHeader, error) {
	var h FrameHeader
	var buf [8]byte

	if _, err := io.ReadFull(r, buf[:2]); err != nil {
		return h, err
	}

	if buf[0]&rsvBits != 0 {
		return h, ErrReservedBits
	}

	op, err := ParseOpcode(buf[0])
	if err != nil {
		return h, err
	}

	h.Final = buf[0]&finalBit != 0
	h.Opcode = op
	h.Masked = buf[1]&maskBit != 0

	switch raw := buf[1] & payloadLenMask; {
	case raw < payloadLen16:
		h.Length = uint64(raw)
	case raw == payloadLen16:
		if err := readFull(r, buf[:2]); err != nil {
			return h, err
		}
		h.Length = uint64(binary.BigEndian.Uint16(buf[:2]))
	case raw == payloadLen64:
		if err := readFull(r, buf[:8]); err != nil {
			return h, err
		}
		h.Length = binary.BigEndian.Uint64(buf[:8])
		// The most significant bit must be 0 (RFC 6455, section 5.2).
		if h.Length > math.MaxInt64 {
			return h, fmt.Errorf("%w: %d", ErrInvalidPayloadLength, h.Length)
		}
	default:
		return h, fmt.Errorf("%w: length field %d", ErrInvalidPayloadLength, raw)
	}

	if h.Opcode == OpClose && h.Length > maxControlFramePayloadSize {
		return h, ErrControlFramePayloadTooBig
	}

	if h.Masked {
		if err := readFull(r, h.MaskKey[:]); err != nil {
			return h, err
		}
	}

	return h, nil
}

// ReadFrame reads one frame from r and unmasks its payload. When limit is
// greater than zero, frames declaring a longer payload fail with
// ErrReadLimit before any payload is read.
func ReadFrame(r io.Reader, limit int64) (*Frame, error) {
	h, err := ReadFrameHeader(r)
	if err != nil {
		return nil, err
	}

	if limit > 0 && h.Length > uint64(limit) {
		return nil, fmt.Errorf("%w: %d > %d", ErrReadLimit, h.Length, limit)
	}

	if h.Length > math.MaxInt {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPayloadLength, h.Length)
	}

	// The buffer grows with the bytes that arrive, never ahead of them, and
	// ends up holding exactly the declared payload.
	var buf bytes.Buffer
	buf.Grow(int(min(h.Length, payloadChunkSize)))
	if n, err := io.CopyN(&buf, r, int64(h.Length)); err != nil {
		if errors.Is(err, io.EOF) && uint64(n) < h.Length {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	payload := buf.Bytes()

	if h.Masked {
		MaskBytes(h.MaskKey, 0, payload)
	}

	return &Frame{FrameHeader: h, Payload: payload}, nil
}

// DecodeFrame reads one frame from r without a size limit.
func DecodeFrame(r io.Reader) (*Frame, error) {
	return ReadFrame(r, 0)
}

// MaskBytes applies XOR masking to data per RFC 6455, section 5.3, starting
// at key offset pos, and returns the offset for the next call. Masking is
// its own inverse.
func MaskBytes(key [4]byte, pos int, data []byte) int {
	for i := range data {
		data[i] ^= key[(pos+i)%4]
	}
	return (pos + len(data)) % 4
}

// readFull is io.ReadFull for fields that follow the first header byte,
// where running out of input is always a truncated frame.
func readFull(r io.Reader, buf []byte) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	return nil
}
