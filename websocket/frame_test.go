package websocket

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clientFrame builds a frame the way a browser sends it: final, masked with
// key, using the shortest length encoding.
func clientFrame(op byte, payload []byte, key [4]byte) []byte {
	frame := []byte{finalBit | op}

	n := len(payload)
	switch {
	case n < payloadLen16:
		frame = append(frame, maskBit|byte(n))
	case n <= 0xffff:
		frame = append(frame, maskBit|payloadLen16)
		frame = binary.BigEndian.AppendUint16(frame, uint16(n))
	default:
		frame = append(frame, maskBit|payloadLen64)
		frame = binary.BigEndian.AppendUint64(frame, uint64(n))
	}

	frame = append(frame, key[:]...)
	masked := bytes.Clone(payload)
	MaskBytes(key, 0, masked)
	return append(frame, masked...)
}

var testMaskKey = [4]byte{0x37, 0xfa, 0x21, 0x3d}

func patternPayload(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i % 251)
	}
	return p
}

func TestOpcode(t *testing.T) {
	tests := []struct {
		b       byte
		want    Opcode
		wantErr bool
	}{
		{0x1, OpText, false},
		{0x8, OpClose, false},
		{0x81, OpText, false},
		{0x0, 0, true},
		{0x2, 0, true},
		{0x9, 0, true},
		{0xa, 0, true},
		{0xf, 0, true},
	}

	for _, tt := range tests {
		op, err := ParseOpcode(tt.b)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrBadOpcode, "byte %#x", tt.b)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, op)
	}

	assert.Equal(t, "text", OpText.String())
	assert.Equal(t, "close", OpClose.String())
	assert.Equal(t, "opcode(2)", Opcode(2).String())
}

func TestEncodeFrame(t *testing.T) {
	tests := []struct {
		name   string
		length int
		header []byte
	}{
		{"Empty", 0, []byte{0x81, 0x00}},
		{"One byte", 1, []byte{0x81, 0x01}},
		{"Largest 7-bit", 125, []byte{0x81, 125}},
		{"Smallest 16-bit", 126, []byte{0x81, 126, 0x00, 126}},
		{"Largest 16-bit", 65535, []byte{0x81, 126, 0xff, 0xff}},
		{"Smallest 64-bit", 65536, []byte{0x81, 127, 0, 0, 0, 0, 0, 0x01, 0x00, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := patternPayload(tt.length)
			frame := EncodeFrame(payload, OpText)

			require.Len(t, frame, len(tt.header)+tt.length)
			assert.Equal(t, tt.header, frame[:len(tt.header)])
			assert.Equal(t, payload, frame[len(tt.header):])
		})
	}

	t.Run("Close frame", func(t *testing.T) {
		frame := EncodeFrame(FormatCloseMessage(CloseNormalClosure, ""), OpClose)
		assert.Equal(t, []byte{0x88, 0x02, 0x03, 0xe8}, frame)
	})

	t.Run("Server frames are never masked", func(t *testing.T) {
		frame := EncodeFrame([]byte("hello"), OpText)
		assert.Zero(t, frame[1]&maskBit)
	})
}

func TestWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("World"), OpText))
	assert.Equal(t, []byte{0x81, 0x05, 'W', 'o', 'r', 'l', 'd'}, buf.Bytes())
}

func TestFrameRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 125, 126, 65535, 65536} {
		payload := patternPayload(n)

		f, err := DecodeFrame(bytes.NewReader(EncodeFrame(payload, OpText)))
		require.NoError(t, err, "length %d", n)

		assert.True(t, f.Final)
		assert.Equal(t, OpText, f.Opcode)
		assert.False(t, f.Masked)
		assert.Equal(t, uint64(n), f.Length)
		assert.Equal(t, payload, f.Payload, "length %d", n)
	}
}

func TestReadFrame(t *testing.T) {
	t.Run("RFC masked Hello", func(t *testing.T) {
		data := []byte{0x81, 0x85, 0x37, 0xfa, 0x21, 0x3d, 0x7f, 0x9f, 0x4d, 0x51, 0x58}

		f, err := DecodeFrame(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, OpText, f.Opcode)
		assert.True(t, f.Masked)
		assert.Equal(t, testMaskKey, f.MaskKey)
		assert.Equal(t, []byte("Hello"), f.Payload)
	})

	t.Run("RFC unmasked Hello", func(t *testing.T) {
		data := []byte{0x81, 0x05, 0x48, 0x65, 0x6c, 0x6c, 0x6f}

		f, err := DecodeFrame(bytes.NewReader(data))
		require.NoError(t, err)
		assert.False(t, f.Masked)
		assert.Equal(t, []byte("Hello"), f.Payload)
	})

	t.Run("Masked boundary lengths", func(t *testing.T) {
		for _, n := range []int{0, 1, 125, 126, 65535, 65536} {
			payload := patternPayload(n)

			f, err := DecodeFrame(bytes.NewReader(clientFrame(byte(OpText), payload, testMaskKey)))
			require.NoError(t, err, "length %d", n)
			assert.Equal(t, payload, f.Payload, "length %d", n)
			assert.Len(t, f.Payload, n)
		}
	})

	t.Run("Close frame", func(t *testing.T) {
		data := clientFrame(byte(OpClose), FormatCloseMessage(CloseGoingAway, "bye"), testMaskKey)

		f, err := DecodeFrame(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, OpClose, f.Opcode)
		assert.Equal(t, CloseGoingAway, parseCloseCode(f.Payload))
	})

	t.Run("Non-final frame keeps flag", func(t *testing.T) {
		f, err := DecodeFrame(bytes.NewReader([]byte{0x01, 0x01, 'a'}))
		require.NoError(t, err)
		assert.False(t, f.Final)
	})

	t.Run("Consumes exactly one frame", func(t *testing.T) {
		var stream bytes.Buffer
		stream.Write(clientFrame(byte(OpText), []byte("first"), testMaskKey))
		stream.Write(clientFrame(byte(OpText), patternPayload(300), [4]byte{1, 2, 3, 4}))
		stream.Write(clientFrame(byte(OpClose), nil, testMaskKey))

		f, err := DecodeFrame(&stream)
		require.NoError(t, err)
		assert.Equal(t, []byte("first"), f.Payload)

		f, err = DecodeFrame(&stream)
		require.NoError(t, err)
		assert.Equal(t, patternPayload(300), f.Payload)

		f, err = DecodeFrame(&stream)
		require.NoError(t, err)
		assert.Equal(t, OpClose, f.Opcode)
		assert.Empty(t, f.Payload)

		_, err = DecodeFrame(&stream)
		assert.ErrorIs(t, err, io.EOF)
	})
}

func TestReadFrameErrors(t *testing.T) {
	tooLong := []byte{0x81, payloadLen64, 0x80, 0, 0, 0, 0, 0, 0, 0}
	// Declares 1<<62 masked payload bytes and then ends.
	hugeFrame := []byte{0x81, maskBit | payloadLen64, 0x40, 0, 0, 0, 0, 0, 0, 0, 1, 2, 3, 4}

	tests := []struct {
		name  string
		data  []byte
		limit int64
		err   error
	}{
		{"Binary opcode", clientFrame(0x2, []byte("x"), testMaskKey), 0, ErrBadOpcode},
		{"Continuation opcode", clientFrame(0x0, []byte("x"), testMaskKey), 0, ErrBadOpcode},
		{"Ping opcode", clientFrame(0x9, nil, testMaskKey), 0, ErrBadOpcode},
		{"Pong opcode", clientFrame(0xa, nil, testMaskKey), 0, ErrBadOpcode},
		{"Reserved bit", []byte{0x81 | 0x40, 0x00}, 0, ErrReservedBits},
		{"Length with high bit", tooLong, 0, ErrInvalidPayloadLength},
		{"Close payload too big", []byte{0x88, payloadLen16, 0x00, 126}, 0, ErrControlFramePayloadTooBig},
		{"Read limit", clientFrame(byte(OpText), patternPayload(100), testMaskKey), 50, ErrReadLimit},
		{"Empty stream", nil, 0, io.EOF},
		{"Half header", []byte{0x81}, 0, io.ErrUnexpectedEOF},
		{"Truncated 16-bit length", []byte{0x81, payloadLen16, 0x01}, 0, io.ErrUnexpectedEOF},
		{"Truncated 64-bit length", []byte{0x81, payloadLen64, 0, 0, 0}, 0, io.ErrUnexpectedEOF},
		{"Missing mask key", []byte{0x81, 0x85}, 0, io.ErrUnexpectedEOF},
		{"Truncated mask key", []byte{0x81, 0x85, 0x37, 0xfa}, 0, io.ErrUnexpectedEOF},
		{"Missing payload", []byte{0x81, 0x05}, 0, io.ErrUnexpectedEOF},
		{"Short payload", []byte{0x81, 0x05, 'a', 'b'}, 0, io.ErrUnexpectedEOF},
		{"Short 16-bit payload", append([]byte{0x81, payloadLen16, 0xff, 0xff}, patternPayload(10)...), 0, io.ErrUnexpectedEOF},
		{"Short 64-bit payload", hugeFrame, 0, io.ErrUnexpectedEOF},
		{"Short 64-bit payload with limit disabled", hugeFrame, -1, io.ErrUnexpectedEOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ReadFrame(bytes.NewReader(tt.data), tt.limit)
			assert.ErrorIs(t, err, tt.err)
			assert.Nil(t, f)
		})
	}
}

func TestReadFrameLimitAllowsExactSize(t *testing.T) {
	payload := patternPayload(50)

	f, err := ReadFrame(bytes.NewReader(clientFrame(byte(OpText), payload, testMaskKey)), 50)
	require.NoError(t, err)
	assert.Equal(t, payload, f.Payload)
}

func TestMaskBytes(t *testing.T) {
	t.Run("Known vector", func(t *testing.T) {
		data := []byte("Hello")
		MaskBytes([4]byte{0x12, 0x34, 0x56, 0x78}, 0, data)
		assert.Equal(t, []byte{0x5a, 0x51, 0x3a, 0x14, 0x7d}, data)
	})

	t.Run("Involutive", func(t *testing.T) {
		keys := [][4]byte{
			{0, 0, 0, 0},
			{0xff, 0xff, 0xff, 0xff},
			{0x12, 0x34, 0x56, 0x78},
			testMaskKey,
		}
		for _, key := range keys {
			for _, n := range []int{0, 1, 3, 4, 5, 126, 1000} {
				original := patternPayload(n)
				data := bytes.Clone(original)

				MaskBytes(key, 0, data)
				MaskBytes(key, 0, data)
				assert.Equal(t, original, data, "key %x length %d", key, n)
			}
		}
	})

	t.Run("Offset continues across chunks", func(t *testing.T) {
		whole := patternPayload(11)
		chunked := bytes.Clone(whole)

		MaskBytes(testMaskKey, 0, whole)
		pos := MaskBytes(testMaskKey, 0, chunked[:3])
		assert.Equal(t, 3, pos)
		pos = MaskBytes(testMaskKey, pos, chunked[3:])
		assert.Equal(t, 2, pos)

		assert.Equal(t, whole, chunked)
	})
}
