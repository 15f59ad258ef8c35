// Package websocket implements the server side of the WebSocket protocol:
// the upgrade handshake and a codec for single unfragmented text frames.
//
// See https://tools.ietf.org/html/rfc6455
//
// AcceptKey, Decode and Encode are pure functions over byte slices and can
// be used with any transport. Accept upgrades a net/http request and returns
// a Conn, and Server wires Accept, Conn and a Handler into an http.Handler.
//
// Fragmented messages, the closing handshake and ping/pong replies are not
// implemented. Control frames and binary frames are decoded as ignored
// messages so callers can tell them apart from text and from malformed input.
//
// Use the wsjson subpackage to read or write JSON messages.
package websocket
