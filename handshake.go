package websocket

import (
	"crypto/sha1"
	"encoding/base64"
)

var keyGUID = []byte("258EAFA5-E914-47DA-95CA-C5AB0DC85B11")

// AcceptKey derives the Sec-WebSocket-Accept value for the client's
// Sec-WebSocket-Key: the base64 encoded SHA-1 of the key bytes followed by
// the RFC 6455 GUID. The result is always 28 characters.
// See https://tools.ietf.org/html/rfc6455#section-1.3
//
// An empty key yields ErrMissingHandshakeKey.
func AcceptKey(key string) (string, error) {
	if key == "" {
		return "", ErrMissingHandshakeKey
	}

	h := sha1.New()
	h.Write([]byte(key))
	h.Write(keyGUID)
	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}
