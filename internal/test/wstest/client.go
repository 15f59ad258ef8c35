package wstest

import (
	"bufio"
	"net"

	"github.com/gobwas/ws"

	"github.com/plainws/websocket/internal/test/xrand"
)

// Client is the raw client side of an upgraded connection. Frames are built
// and parsed with github.com/gobwas/ws so the server is checked against an
// independent implementation.
type Client struct {
	net.Conn
	br *bufio.Reader
}

// NewClient wraps an upgraded connection.
func NewClient(c net.Conn) *Client {
	return &Client{
		Conn: c,
		br:   bufio.NewReader(c),
	}
}

// ClientFrame returns a complete masked client frame.
func ClientFrame(op ws.OpCode, p []byte, key [4]byte) []byte {
	b := make([]byte, len(p))
	copy(b, p)

	f := ws.MaskFrameWith(ws.NewFrame(op, true, b), key)
	frame, err := ws.CompileFrame(f)
	if err != nil {
		panic(err)
	}
	return frame
}

// WriteFrame writes a masked frame with a random key.
func (c *Client) WriteFrame(op ws.OpCode, p []byte) error {
	_, err := c.Write(ClientFrame(op, p, xrand.MaskKey()))
	return err
}

// WriteText writes a masked text frame.
func (c *Client) WriteText(s string) error {
	return c.WriteFrame(ws.OpText, []byte(s))
}

// ReadFrame reads the next server frame.
func (c *Client) ReadFrame() (ws.Frame, error) {
	return ws.ReadFrame(c.br)
}
