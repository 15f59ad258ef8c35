// Package wstest upgrades in memory connections and speaks the client side
// of the framing protocol for tests.
package wstest

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"

	"github.com/plainws/websocket"
	"github.com/plainws/websocket/internal/errd"
)

// Key is the sample Sec-WebSocket-Key from RFC 6455 section 1.3.
const Key = "dGhlIHNhbXBsZSBub25jZQ=="

// NewRequest returns a valid upgrade request for target.
func NewRequest(target string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	r.Header.Set("Connection", "Upgrade")
	r.Header.Set("Upgrade", "websocket")
	r.Header.Set("Sec-WebSocket-Version", "13")
	r.Header.Set("Sec-WebSocket-Key", Key)
	return r
}

// Pipe upgrades one end of a net.Pipe with websocket.Accept and returns
// the server Conn together with a Client on the other end. The handshake
// response has already been consumed from the Client.
func Pipe(opts *websocket.AcceptOptions) (_ *websocket.Conn, _ *Client, err error) {
	defer errd.Wrap(&err, "failed to create ws pipe")

	clientConn, serverConn := net.Pipe()
	client := NewClient(clientConn)

	r := NewRequest("/")
	respc := make(chan error, 1)
	go func() {
		resp, err := http.ReadResponse(client.br, r)
		if err != nil {
			respc <- err
			return
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusSwitchingProtocols {
			respc <- fmt.Errorf("unexpected handshake status %v", resp.Status)
			return
		}
		respc <- nil
	}()

	hj := testHijacker{
		ResponseRecorder: httptest.NewRecorder(),
		serverConn:       serverConn,
	}
	c, err := websocket.Accept(hj, r, opts)
	if err != nil {
		clientConn.Close()
		serverConn.Close()
		return nil, nil, err
	}

	err = <-respc
	if err != nil {
		c.Close()
		clientConn.Close()
		return nil, nil, err
	}
	return c, client, nil
}

type testHijacker struct {
	*httptest.ResponseRecorder
	serverConn net.Conn
}

var _ http.Hijacker = testHijacker{}

func (hj testHijacker) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return hj.serverConn, bufio.NewReadWriter(bufio.NewReader(hj.serverConn), bufio.NewWriter(hj.serverConn)), nil
}
