package websocket

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/plainws/websocket/internal/errd"
)

// Conn represents an upgraded WebSocket connection on the server side.
//
// Read must only be called from a single goroutine at a time.
// Write and Close may be called concurrently with everything.
//
// Every error from Read closes the connection, a partially read frame
// leaves the stream unusable.
//
// Conn never performs the closing handshake and never answers control
// frames, those are returned from Read as ignored messages.
type Conn struct {
	id          string
	subprotocol string
	netConn     net.Conn
	br          *bufio.Reader
	bw          *bufio.Writer
	logger      *slog.Logger

	readLimit atomic.Int64
	readBuf   [maxHeaderSize - 2]byte

	writeMu sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

type connConfig struct {
	subprotocol string
	netConn     net.Conn
	br          *bufio.Reader
	bw          *bufio.Writer
	readLimit   int64
	logger      *slog.Logger
}

func newConn(cfg connConfig) *Conn {
	c := &Conn{
		id:          uuid.NewString(),
		subprotocol: cfg.subprotocol,
		netConn:     cfg.netConn,
		br:          cfg.br,
		bw:          cfg.bw,
	}
	if c.br == nil {
		c.br = bufio.NewReader(c.netConn)
	}
	if c.bw == nil {
		c.bw = bufio.NewWriter(c.netConn)
	}
	c.readLimit.Store(cfg.readLimit)

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	c.logger = logger.With(
		slog.String("conn_id", c.id),
		slog.String("remote_addr", c.netConn.RemoteAddr().String()),
	)
	return c
}

// ID returns the identifier assigned to the connection at upgrade time.
func (c *Conn) ID() string {
	return c.id
}

// Subprotocol returns the negotiated subprotocol.
// An empty string means the default protocol.
func (c *Conn) Subprotocol() string {
	return c.subprotocol
}

// RemoteAddr returns the peer's network address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.netConn.RemoteAddr()
}

// Logger returns a logger annotated with the connection's id and peer address.
func (c *Conn) Logger() *slog.Logger {
	return c.logger
}

// SetReadLimit sets the largest payload Read accepts. Larger frames fail
// with ErrUnsupportedPayloadLength. A negative n disables the limit.
func (c *Conn) SetReadLimit(n int64) {
	c.readLimit.Store(n)
}

// Read reads the next frame from the connection.
//
// Text frames yield their payload; other well formed frames yield a
// Message whose Ignored method reports true. io.EOF is returned when the
// peer closes the connection between frames.
//
// The context's deadline and cancellation interrupt a blocked Read, in which
// case the context's error is returned.
func (c *Conn) Read(ctx context.Context) (_ Message, err error) {
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	stop, err := bindContext(ctx, c.netConn.SetReadDeadline)
	if err != nil {
		return Message{}, err
	}
	defer stop()

	m, err := readMessage(c.br, c.readBuf[:], c.readLimit.Load())
	if err != nil {
		return Message{}, interruptErr(ctx, err)
	}
	return m, nil
}

// Write encodes v with Encode and writes it as a single text frame.
func (c *Conn) Write(ctx context.Context, v interface{}) (err error) {
	defer errd.Wrap(&err, "failed to write message")

	b, err := Encode(v)
	if err != nil {
		return err
	}
	return c.writeFrame(ctx, b)
}

// writeFrame writes an already encoded frame.
func (c *Conn) writeFrame(ctx context.Context, b []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	stop, err := bindContext(ctx, c.netConn.SetWriteDeadline)
	if err != nil {
		return err
	}
	defer stop()

	_, err = c.bw.Write(b)
	if err == nil {
		err = c.bw.Flush()
	}
	if err != nil {
		return interruptErr(ctx, err)
	}
	return nil
}

// Close closes the underlying connection without a closing handshake.
// It is safe to call more than once; later calls return the first result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.netConn.Close()
	})
	return c.closeErr
}

var aLongTimeAgo = time.Unix(1, 0)

// bindContext arranges for ctx's deadline and cancellation to interrupt the
// I/O guarded by setDeadline. The returned func must be called once the I/O
// returns; it clears the deadline again.
//
// The deadline is only ever moved by ctx being done, so a deadline error
// from the I/O always means ctx interrupted it.
func bindContext(ctx context.Context, setDeadline func(time.Time) error) (func(), error) {
	err := ctx.Err()
	if err != nil {
		return nil, err
	}

	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		setDeadline(aLongTimeAgo)
		close(fired)
	})
	return func() {
		if !stop() {
			<-fired
		}
		setDeadline(time.Time{})
	}, nil
}

// interruptErr returns ctx's error in place of the deadline error bindContext
// caused. Everything else is returned as is: net/http cancels the request
// context when a hijacked connection reaches EOF, and that EOF must still
// read as the peer going away.
func interruptErr(ctx context.Context, err error) error {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	return err
}
