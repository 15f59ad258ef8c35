package websocket

import (
	"bufio"
	"bytes"
	"io"

	"golang.org/x/xerrors"

	"github.com/plainws/websocket/internal/errd"
)

// Message is the outcome of decoding a single client frame.
//
// A text frame yields its unmasked payload in Text. Every other opcode
// defined by RFC 6455 (continuation, binary, close, ping and pong) yields a
// Message whose Ignored method reports true: the frame was well formed
// but carries nothing for the application. Malformed frames are reported
// as errors instead, so the three cases never mix.
type Message struct {
	Opcode Opcode
	Text   string
}

// Ignored reports whether the frame was a well formed frame that is not
// a text frame.
func (m Message) Ignored() bool {
	return m.Opcode != OpText
}

// Decode interprets p as exactly one unfragmented client frame and
// returns its text.
//
// The opcode is classified from the first byte alone. Reserved opcodes fail
// with ErrUnsupportedOpcode and the other non-text opcodes yield an ignored
// Message without the rest of p being inspected. The FIN bit is not
// consulted, a first fragment decodes to the text it carries.
//
// Client frames are always masked, so the four bytes after the length
// fields are taken as the mask key without consulting the MASK bit.
// The payload length may use the 7 bit, 16 bit or 64 bit form. The
// declared length must match the bytes that follow the header exactly.
// Errors wrap ErrMalformedFrame, ErrUnsupportedOpcode or
// ErrUnsupportedPayloadLength. p is not modified.
func Decode(p []byte) (_ Message, err error) {
	defer errd.Wrap(&err, "failed to decode frame")

	if len(p) == 0 {
		return Message{}, xerrors.Errorf("empty input: %w", ErrMalformedFrame)
	}
	op := Opcode(p[0] & 0xf)
	if !op.known() {
		return Message{}, xerrors.Errorf("received %v: %w", op, ErrUnsupportedOpcode)
	}
	if op != OpText {
		return Message{Opcode: op}, nil
	}

	r := bytes.NewReader(p)
	var buf [maxHeaderSize - 2]byte
	h, err := readHeader(r, buf[:], true)
	if err != nil {
		return Message{}, err
	}

	err = verifyClientHeader(h)
	if err != nil {
		return Message{}, err
	}

	if h.payloadLength != int64(r.Len()) {
		return Message{}, xerrors.Errorf("declared payload length %v but %v bytes follow the header: %w", h.payloadLength, r.Len(), ErrMalformedFrame)
	}

	payload := make([]byte, r.Len())
	copy(payload, p[len(p)-r.Len():])
	mask(h.maskKey, payload)
	return Message{Opcode: OpText, Text: string(payload)}, nil
}

// readMessage reads one frame from r. Payloads declared longer than limit
// are rejected before anything is allocated; a negative limit disables the
// check. Payloads of ignored frames are discarded.
//
// io.EOF is returned unwrapped when r ends cleanly between frames.
func readMessage(r *bufio.Reader, buf []byte, limit int64) (Message, error) {
	h, err := readHeader(r, buf, true)
	if err != nil {
		return Message{}, err
	}

	err = verifyClientHeader(h)
	if err != nil {
		return Message{}, err
	}

	if limit >= 0 && h.payloadLength > limit {
		return Message{}, xerrors.Errorf("payload length %v exceeds read limit %v: %w", h.payloadLength, limit, ErrUnsupportedPayloadLength)
	}

	if h.opcode != OpText {
		_, err = io.CopyN(io.Discard, r, h.payloadLength)
		if err != nil {
			return Message{}, truncated(err)
		}
		return Message{Opcode: h.opcode}, nil
	}

	payload, err := readPayload(r, h.payloadLength, limit >= 0)
	if err != nil {
		return Message{}, truncated(err)
	}
	mask(h.maskKey, payload)
	return Message{Opcode: OpText, Text: string(payload)}, nil
}

// readPayload reads n bytes from r. Unless n is already bounded by a read
// limit the buffer only grows with the bytes that actually arrive, so a
// declared length alone cannot exhaust memory.
func readPayload(r io.Reader, n int64, bounded bool) ([]byte, error) {
	if bounded {
		b := make([]byte, n)
		_, err := io.ReadFull(r, b)
		return b, err
	}

	var b bytes.Buffer
	_, err := io.CopyN(&b, r, n)
	return b.Bytes(), err
}

// verifyClientHeader checks the parts of h a server must reject.
func verifyClientHeader(h header) error {
	if !h.opcode.known() {
		return xerrors.Errorf("received %v: %w", h.opcode, ErrUnsupportedOpcode)
	}
	if h.rsv1 || h.rsv2 || h.rsv3 {
		return xerrors.Errorf("reserved bits set without a negotiated extension: %w", ErrMalformedFrame)
	}
	return nil
}
