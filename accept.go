package websocket

import (
	"bufio"
	"log/slog"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/http/httpguts"
	"golang.org/x/xerrors"

	"github.com/plainws/websocket/internal/errd"
)

// defaultReadLimit is the largest payload a Conn accepts unless
// configured otherwise.
const defaultReadLimit = 32768

// AcceptOptions represents Accept's options.
type AcceptOptions struct {
	// Subprotocols lists the WebSocket subprotocols that Accept will negotiate with the client.
	// The empty subprotocol will always be negotiated as per RFC 6455. If you would like to
	// reject it, close the connection when c.Subprotocol() == "".
	Subprotocols []string

	// InsecureSkipVerify disables Accept's origin verification behaviour.
	// By default Accept only allows the handshake to succeed if the
	// Origin header is absent or names the same host as the request.
	// This is to prevent CSRF when secure data is stored in cookies.
	//
	// Use this if you want a WebSocket server any javascript can
	// connect to or you want to perform Origin verification yourself.
	InsecureSkipVerify bool

	// ReadLimit is the largest payload in bytes the connection will read.
	// Zero means 32768. A negative value disables the limit.
	ReadLimit int64

	// Logger receives the connection's log lines. Defaults to slog.Default().
	Logger *slog.Logger
}

// Accept accepts a WebSocket handshake from a client and upgrades the
// the connection to WebSocket.
//
// Accept will reject the handshake if the Origin domain is not the same
// as the Host unless InsecureSkipVerify is set.
//
// On failure Accept writes an HTTP error response itself; the caller only
// needs to return.
func Accept(w http.ResponseWriter, r *http.Request, opts *AcceptOptions) (_ *Conn, err error) {
	defer errd.Wrap(&err, "failed to accept WebSocket connection")

	if opts == nil {
		opts = &AcceptOptions{}
	}

	errCode, err := verifyClientRequest(r)
	if err != nil {
		http.Error(w, err.Error(), errCode)
		return nil, err
	}

	if !opts.InsecureSkipVerify {
		err = authenticateOrigin(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusForbidden)
			return nil, err
		}
	}

	token, err := AcceptKey(r.Header.Get("Sec-WebSocket-Key"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, err
	}

	hj, ok := w.(http.Hijacker)
	if !ok {
		err = xerrors.New("http.ResponseWriter does not implement http.Hijacker")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, err
	}

	subproto := selectSubprotocol(r, opts.Subprotocols)

	netConn, brw, err := hj.Hijack()
	if err != nil {
		err = xerrors.Errorf("failed to hijack connection: %w", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, err
	}

	// The http.Server timeouts no longer apply to a hijacked connection.
	netConn.SetDeadline(time.Time{})

	err = writeHandshakeResponse(brw.Writer, token, subproto)
	if err != nil {
		netConn.Close()
		return nil, err
	}

	readLimit := opts.ReadLimit
	if readLimit == 0 {
		readLimit = defaultReadLimit
	}

	return newConn(connConfig{
		subprotocol: subproto,
		netConn:     netConn,
		br:          brw.Reader,
		bw:          brw.Writer,
		readLimit:   readLimit,
		logger:      opts.Logger,
	}), nil
}

func verifyClientRequest(r *http.Request) (errCode int, _ error) {
	if !r.ProtoAtLeast(1, 1) {
		return http.StatusUpgradeRequired, xerrors.Errorf("WebSocket protocol violation: handshake request must be at least HTTP/1.1: %q", r.Proto)
	}

	if !headerContainsToken(r.Header, "Connection", "Upgrade") {
		return http.StatusUpgradeRequired, xerrors.Errorf("WebSocket protocol violation: Connection header %q does not contain Upgrade", r.Header.Get("Connection"))
	}

	if !headerContainsToken(r.Header, "Upgrade", "websocket") {
		return http.StatusUpgradeRequired, xerrors.Errorf("WebSocket protocol violation: Upgrade header %q does not contain websocket", r.Header.Get("Upgrade"))
	}

	if r.Method != http.MethodGet {
		return http.StatusMethodNotAllowed, xerrors.Errorf("WebSocket protocol violation: handshake request method is not GET but %q", r.Method)
	}

	if r.Header.Get("Sec-WebSocket-Version") != "13" {
		return http.StatusBadRequest, xerrors.Errorf("unsupported WebSocket protocol version (only 13 is supported): %q", r.Header.Get("Sec-WebSocket-Version"))
	}

	if r.Header.Get("Sec-WebSocket-Key") == "" {
		return http.StatusBadRequest, xerrors.Errorf("WebSocket protocol violation: %w", ErrMissingHandshakeKey)
	}

	return 0, nil
}

// writeHandshakeResponse writes the 101 response on the hijacked connection.
func writeHandshakeResponse(w *bufio.Writer, token, subprotocol string) error {
	w.WriteString("HTTP/1.1 101 Web Socket Protocol Handshake\r\n")
	w.WriteString("Upgrade: WebSocket\r\n")
	w.WriteString("Connection: Upgrade\r\n")
	w.WriteString("Sec-WebSocket-Accept:" + token + "\r\n")
	if subprotocol != "" {
		w.WriteString("Sec-WebSocket-Protocol: " + subprotocol + "\r\n")
	}
	w.WriteString("\r\n")

	err := w.Flush()
	if err != nil {
		return xerrors.Errorf("failed to write handshake response: %w", err)
	}
	return nil
}

func authenticateOrigin(r *http.Request) error {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return nil
	}
	u, err := url.Parse(origin)
	if err != nil {
		return xerrors.Errorf("failed to parse Origin header %q: %w", origin, err)
	}
	if !strings.EqualFold(u.Host, r.Host) {
		return xerrors.Errorf("request Origin %q is not authorized for Host %q", origin, r.Host)
	}
	return nil
}

func selectSubprotocol(r *http.Request, subprotocols []string) string {
	for _, sp := range subprotocols {
		if headerContainsToken(r.Header, "Sec-WebSocket-Protocol", sp) {
			return sp
		}
	}
	return ""
}

func headerContainsToken(h http.Header, key, token string) bool {
	key = textproto.CanonicalMIMEHeaderKey(key)
	return httpguts.HeaderValuesContainsToken(h[key], token)
}
