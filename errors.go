package websocket

import (
	"errors"
)

var (
	// ErrMissingHandshakeKey is returned when an upgrade request carries no
	// Sec-WebSocket-Key. The upgrade is rejected.
	ErrMissingHandshakeKey = errors.New("websocket: missing Sec-WebSocket-Key")

	// ErrUnsupportedOpcode is returned for frames using an opcode
	// RFC 6455 reserves for future use.
	ErrUnsupportedOpcode = errors.New("websocket: unsupported opcode")

	// ErrUnsupportedPayloadLength is returned when a declared payload length
	// cannot be represented or exceeds the read limit.
	ErrUnsupportedPayloadLength = errors.New("websocket: unsupported payload length")

	// ErrMalformedFrame is returned for frames that violate the framing rules:
	// truncated input, trailing bytes or reserved bits set.
	ErrMalformedFrame = errors.New("websocket: malformed frame")
)
