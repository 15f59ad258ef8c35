package websocket

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/gobwas/ws"

	"github.com/plainws/websocket/internal/test/assert"
	"github.com/plainws/websocket/internal/test/xrand"
)

// clientFrame builds a masked client frame with gobwas/ws.
func clientFrame(t testing.TB, op ws.OpCode, p []byte, key [4]byte) []byte {
	t.Helper()

	b := append([]byte(nil), p...)
	frame, err := ws.CompileFrame(ws.MaskFrameWith(ws.NewFrame(op, true, b), key))
	assert.Success(t, err)
	return frame
}

func TestDecode(t *testing.T) {
	t.Parallel()

	t.Run("hello", func(t *testing.T) {
		t.Parallel()

		frame := []byte("\x81\x05\x37\xfa\x21\x3d\x7f\x9f\x4d\x51\x58")
		m, err := Decode(frame)
		assert.Success(t, err)
		assert.Equal(t, "message", Message{Opcode: OpText, Text: "Hello"}, m)
		assert.Equal(t, "ignored", false, m.Ignored())
	})

	t.Run("helloMaskBit", func(t *testing.T) {
		t.Parallel()

		frame := []byte("\x81\x85\x37\xfa\x21\x3d\x7f\x9f\x4d\x51\x58")
		m, err := Decode(frame)
		assert.Success(t, err)
		assert.Equal(t, "text", "Hello", m.Text)
	})

	t.Run("inputUntouched", func(t *testing.T) {
		t.Parallel()

		frame := []byte("\x81\x05\x37\xfa\x21\x3d\x7f\x9f\x4d\x51\x58")
		orig := append([]byte(nil), frame...)
		_, err := Decode(frame)
		assert.Success(t, err)
		assert.Equal(t, "frame", orig, frame)
	})

	t.Run("ignoredOpcodes", func(t *testing.T) {
		t.Parallel()

		ops := []ws.OpCode{ws.OpContinuation, ws.OpBinary, ws.OpClose, ws.OpPing, ws.OpPong}
		for _, op := range ops {
			m, err := Decode(clientFrame(t, op, []byte("data"), xrand.MaskKey()))
			assert.Success(t, err)
			assert.Equal(t, "ignored", true, m.Ignored())
			assert.Equal(t, "opcode", Opcode(op), m.Opcode)
			assert.Equal(t, "text", "", m.Text)
		}
	})

	t.Run("bareControlFrames", func(t *testing.T) {
		t.Parallel()

		inputs := map[string]Opcode{
			"\x88\x00": OpClose,
			"\x89\x00": OpPing,
			"\x8a":     OpPong,
			"\x82\xff": OpBinary,
		}
		for in, op := range inputs {
			m, err := Decode([]byte(in))
			assert.Success(t, err)
			assert.Equal(t, "message", Message{Opcode: op}, m)
		}
	})

	t.Run("fragmentedText", func(t *testing.T) {
		t.Parallel()

		// FIN is not consulted: a first fragment yields its own text and
		// the continuation that follows is ignored.
		first := []byte{0x01, 0x83, 0, 0, 0, 0, 'H', 'e', 'l'}
		m, err := Decode(first)
		assert.Success(t, err)
		assert.Equal(t, "first", Message{Opcode: OpText, Text: "Hel"}, m)

		rest := []byte{0x80, 0x82, 0, 0, 0, 0, 'l', 'o'}
		m, err = Decode(rest)
		assert.Success(t, err)
		assert.Equal(t, "ignored", true, m.Ignored())
		assert.Equal(t, "opcode", OpContinuation, m.Opcode)
	})

	t.Run("reservedOpcodes", func(t *testing.T) {
		t.Parallel()

		for _, op := range []byte{0x3, 0x7, 0xb, 0xf} {
			frame := []byte{0x80 | op, 0x80, 1, 2, 3, 4}
			_, err := Decode(frame)
			assert.ErrorIs(t, ErrUnsupportedOpcode, err)
		}
	})

	t.Run("reservedBits", func(t *testing.T) {
		t.Parallel()

		frame := clientFrame(t, ws.OpText, []byte("hi"), xrand.MaskKey())
		frame[0] |= 1 << 6
		_, err := Decode(frame)
		assert.ErrorIs(t, ErrMalformedFrame, err)
	})

	t.Run("lengthMismatch", func(t *testing.T) {
		t.Parallel()

		frame := clientFrame(t, ws.OpText, []byte("Hello"), xrand.MaskKey())

		_, err := Decode(frame[:len(frame)-1])
		assert.ErrorIs(t, ErrMalformedFrame, err)

		_, err = Decode(append(frame, 'x'))
		assert.ErrorIs(t, ErrMalformedFrame, err)
	})

	t.Run("truncatedHeader", func(t *testing.T) {
		t.Parallel()

		inputs := [][]byte{
			nil,
			{0x81},
			{0x81, 0x85, 0x01},
			{0x81, 0xfe, 0x01},
		}
		for _, in := range inputs {
			_, err := Decode(in)
			assert.ErrorIs(t, ErrMalformedFrame, err)
		}
	})

	t.Run("oversizedLength", func(t *testing.T) {
		t.Parallel()

		frame := []byte{0x81, 0xff, 0x80, 0, 0, 0, 0, 0, 0, 0, 1, 2, 3, 4}
		_, err := Decode(frame)
		assert.ErrorIs(t, ErrUnsupportedPayloadLength, err)
	})

	t.Run("extendedLengths", func(t *testing.T) {
		t.Parallel()

		for _, n := range []int{0, 1, 125, 126, 127, 65535, 65536, 70000} {
			s := xrand.String(n)
			m, err := Decode(clientFrame(t, ws.OpText, []byte(s), xrand.MaskKey()))
			assert.Success(t, err)
			assert.Equal(t, "text", s, m.Text)
		}
	})

	t.Run("neverPanics", func(t *testing.T) {
		t.Parallel()

		for i := 0; i < 10000; i++ {
			Decode(xrand.Bytes(xrand.Int(32)))
		}
	})
}

func TestReadMessage(t *testing.T) {
	t.Parallel()

	t.Run("stream", func(t *testing.T) {
		t.Parallel()

		var b bytes.Buffer
		b.Write(clientFrame(t, ws.OpText, []byte("first"), xrand.MaskKey()))
		b.Write(clientFrame(t, ws.OpPing, []byte("ping"), xrand.MaskKey()))
		b.Write(clientFrame(t, ws.OpText, []byte("second"), xrand.MaskKey()))

		r := bufio.NewReader(&b)
		buf := make([]byte, maxHeaderSize)

		m, err := readMessage(r, buf, defaultReadLimit)
		assert.Success(t, err)
		assert.Equal(t, "first", Message{Opcode: OpText, Text: "first"}, m)

		m, err = readMessage(r, buf, defaultReadLimit)
		assert.Success(t, err)
		assert.Equal(t, "ping", Message{Opcode: OpPing}, m)

		m, err = readMessage(r, buf, defaultReadLimit)
		assert.Success(t, err)
		assert.Equal(t, "second", Message{Opcode: OpText, Text: "second"}, m)

		_, err = readMessage(r, buf, defaultReadLimit)
		assert.Equal(t, "err", io.EOF, err)
	})

	t.Run("limit", func(t *testing.T) {
		t.Parallel()

		frame := clientFrame(t, ws.OpText, []byte(strings.Repeat("a", 200)), xrand.MaskKey())

		_, err := readMessage(bufio.NewReader(bytes.NewReader(frame)), make([]byte, maxHeaderSize), 199)
		assert.ErrorIs(t, ErrUnsupportedPayloadLength, err)

		m, err := readMessage(bufio.NewReader(bytes.NewReader(frame)), make([]byte, maxHeaderSize), -1)
		assert.Success(t, err)
		assert.Equal(t, "length", 200, len(m.Text))
	})

	t.Run("hugeDeclaredLength", func(t *testing.T) {
		t.Parallel()

		frame := []byte{0x81, 0xff, 0x3f, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 1, 2, 3, 4}
		frame = append(frame, "only a few bytes"...)

		_, err := readMessage(bufio.NewReader(bytes.NewReader(frame)), make([]byte, maxHeaderSize), -1)
		assert.ErrorIs(t, ErrMalformedFrame, err)
	})

	t.Run("truncatedPayload", func(t *testing.T) {
		t.Parallel()

		frame := clientFrame(t, ws.OpText, []byte("Hello"), xrand.MaskKey())
		_, err := readMessage(bufio.NewReader(bytes.NewReader(frame[:len(frame)-2])), make([]byte, maxHeaderSize), -1)
		assert.ErrorIs(t, ErrMalformedFrame, err)
	})
}
