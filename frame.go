package websocket

import (
	"encoding/binary"
	"errors"
	"io"
	"math"

	"golang.org/x/xerrors"
)

// header represents a WebSocket frame header.
// See https://tools.ietf.org/html/rfc6455#section-5.2.
type header struct {
	fin    bool
	rsv1   bool
	rsv2   bool
	rsv3   bool
	opcode Opcode

	payloadLength int64

	masked bool
	// maskKey is stored little endian so byte(maskKey) is the first key byte.
	maskKey uint32
}

// First byte contains fin, rsv1, rsv2, rsv3 and the opcode.
// Second byte contains mask flag and payload len.
// Next 8 bytes are the maximum extended payload length.
// Last 4 bytes are the mask key.
const maxHeaderSize = 1 + 1 + 8 + 4

// maxShortPayload is the largest length that fits the 7 bit length field.
const maxShortPayload = 125

// headerSize returns how many bytes the header for a payload of n bytes
// occupies on the wire.
func headerSize(n int64, masked bool) int {
	size := 2
	switch {
	case n > math.MaxUint16:
		size += 8
	case n > maxShortPayload:
		size += 2
	}
	if masked {
		size += 4
	}
	return size
}

// appendHeader appends the wire form of h to b.
// See https://tools.ietf.org/html/rfc6455#section-5.2
func appendHeader(b []byte, h header) []byte {
	var b0 byte
	if h.fin {
		b0 |= 1 << 7
	}
	if h.rsv1 {
		b0 |= 1 << 6
	}
	if h.rsv2 {
		b0 |= 1 << 5
	}
	if h.rsv3 {
		b0 |= 1 << 4
	}
	b0 |= byte(h.opcode) & 0xf

	var b1 byte
	if h.masked {
		b1 |= 1 << 7
	}

	switch {
	case h.payloadLength > math.MaxUint16:
		b = append(b, b0, b1|127)
		b = binary.BigEndian.AppendUint64(b, uint64(h.payloadLength))
	case h.payloadLength > maxShortPayload:
		b = append(b, b0, b1|126)
		b = binary.BigEndian.AppendUint16(b, uint16(h.payloadLength))
	default:
		b = append(b, b0, b1|byte(h.payloadLength))
	}

	if h.masked {
		b = binary.LittleEndian.AppendUint32(b, h.maskKey)
	}
	return b
}

// readHeader reads a frame header from r. buf must hold at least
// maxHeaderSize-2 bytes and is used as scratch space.
//
// With clientFrame set the mask key is read whether or not the MASK bit is
// set: every client frame carries one.
//
// io.EOF is returned as is when r is exhausted before the first byte.
// A header cut short anywhere else is reported as ErrMalformedFrame.
func readHeader(r io.Reader, buf []byte, clientFrame bool) (header, error) {
	// We read the first two bytes first so that we know
	// exactly how long the header is.
	b := buf[:2]
	_, err := io.ReadFull(r, b)
	if err != nil {
		if err == io.EOF {
			return header{}, err
		}
		return header{}, truncated(err)
	}

	var h header
	h.fin = b[0]&(1<<7) != 0
	h.rsv1 = b[0]&(1<<6) != 0
	h.rsv2 = b[0]&(1<<5) != 0
	h.rsv3 = b[0]&(1<<4) != 0
	h.opcode = Opcode(b[0] & 0xf)

	h.masked = clientFrame || b[1]&(1<<7) != 0
	payloadLength := b[1] &^ (1 << 7)

	var extra int
	switch payloadLength {
	case 126:
		extra = 2
	case 127:
		extra = 8
	default:
		h.payloadLength = int64(payloadLength)
	}
	if h.masked {
		extra += 4
	}
	if extra == 0 {
		return h, nil
	}

	b = buf[:extra]
	_, err = io.ReadFull(r, b)
	if err != nil {
		return header{}, truncated(err)
	}

	switch payloadLength {
	case 126:
		h.payloadLength = int64(binary.BigEndian.Uint16(b))
		b = b[2:]
	case 127:
		n := binary.BigEndian.Uint64(b)
		if n > math.MaxInt64 {
			return header{}, xerrors.Errorf("header with 64 bit length %#x: %w", n, ErrUnsupportedPayloadLength)
		}
		h.payloadLength = int64(n)
		b = b[8:]
	}

	if h.masked {
		h.maskKey = binary.LittleEndian.Uint32(b)
	}
	return h, nil
}

// truncated turns an early end of input into ErrMalformedFrame.
func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return xerrors.Errorf("frame truncated: %v: %w", err, ErrMalformedFrame)
	}
	return err
}
