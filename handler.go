package websocket

import (
	"context"
)

// Handler responds to the text messages of a connection.
//
// HandleMessage is called once per decoded text frame, in arrival order,
// from the connection's read loop. A non nil reply is encoded with Encode
// and written back. Returning an error ends the loop and closes the
// connection.
type Handler interface {
	HandleMessage(ctx context.Context, c *Conn, text string) (reply interface{}, err error)
}

// HandlerFunc adapts an ordinary function to a Handler.
type HandlerFunc func(ctx context.Context, c *Conn, text string) (interface{}, error)

// HandleMessage calls f(ctx, c, text).
func (f HandlerFunc) HandleMessage(ctx context.Context, c *Conn, text string) (interface{}, error) {
	return f(ctx, c, text)
}

// Echo replies to every message with the message itself.
func Echo(ctx context.Context, c *Conn, text string) (interface{}, error) {
	return text, nil
}

// Serve runs h against every message read from c until the peer goes away,
// ctx is done or an error occurs. c is closed when Serve returns.
// A peer closing the connection between frames is not an error.
func Serve(ctx context.Context, c *Conn, h Handler) error {
	s := &Server{Handler: h}
	return s.serve(ctx, c)
}
