package websocket

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"golang.org/x/xerrors"

	"github.com/plainws/websocket/metrics"
)

// Server is an http.Handler that upgrades every request and feeds the
// connection's messages to Handler.
//
// The zero value is not usable, Handler must be set. Fields must not be
// changed once the Server is serving.
type Server struct {
	Handler Handler

	// AcceptOptions is passed to Accept for every request. May be nil.
	AcceptOptions *AcceptOptions

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics records handshakes, frames and connections. May be nil.
	Metrics *metrics.Metrics

	// MessageRate limits how many messages per second each connection may
	// have handled. Zero means unlimited. MessageBurst is the limiter's burst,
	// at least 1.
	MessageRate  rate.Limit
	MessageBurst int

	// IdleTimeout closes connections that send nothing for this long.
	// Zero means no timeout.
	IdleTimeout time.Duration

	mu      sync.Mutex
	closing bool
	conns   map[*Conn]struct{}
	wg      sync.WaitGroup
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.isClosing() {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}

	var opts AcceptOptions
	if s.AcceptOptions != nil {
		opts = *s.AcceptOptions
	}
	if opts.Logger == nil {
		opts.Logger = s.logger()
	}

	c, err := Accept(w, r, &opts)
	if err != nil {
		s.Metrics.Handshake(false)
		s.logger().Warn("handshake rejected",
			slog.String("remote_addr", r.RemoteAddr),
			slog.Any("error", err))
		return
	}
	s.Metrics.Handshake(true)

	if !s.addConn(c) {
		c.Close()
		return
	}
	defer s.removeConn(c)

	start := time.Now()
	s.Metrics.ConnectionOpened()
	defer func() {
		s.Metrics.ConnectionClosed(time.Since(start))
	}()

	c.Logger().Info("connection upgraded", slog.String("subprotocol", c.Subprotocol()))

	err = s.serve(r.Context(), c)
	if err != nil && !s.isClosing() {
		c.Logger().Warn("connection closed", slog.Any("error", err))
		return
	}
	c.Logger().Info("connection closed")
}

// serve is the read loop behind Serve and ServeHTTP.
func (s *Server) serve(ctx context.Context, c *Conn) error {
	defer c.Close()

	var limiter *rate.Limiter
	if s.MessageRate > 0 {
		limiter = rate.NewLimiter(s.MessageRate, max(s.MessageBurst, 1))
	}

	for {
		m, err := s.read(ctx, c)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if isProtocolError(err) {
				s.Metrics.FrameRead(metrics.OutcomeMalformed, 0)
			}
			return err
		}

		if m.Ignored() {
			s.Metrics.FrameRead(metrics.OutcomeIgnored, 0)
			c.Logger().Debug("ignored frame", slog.String("opcode", m.Opcode.String()))
			continue
		}
		s.Metrics.FrameRead(metrics.OutcomeText, len(m.Text))

		if limiter != nil && !limiter.Allow() {
			s.Metrics.MessageRateLimited()
			err = limiter.Wait(ctx)
			if err != nil {
				return err
			}
		}

		reply, err := s.Handler.HandleMessage(ctx, c, m.Text)
		if err != nil {
			return xerrors.Errorf("message handler failed: %w", err)
		}
		if reply == nil {
			continue
		}

		b, n, err := encode(reply)
		if err != nil {
			return err
		}
		err = c.writeFrame(ctx, b)
		if err != nil {
			return xerrors.Errorf("failed to write reply: %w", err)
		}
		s.Metrics.FrameWritten(n)
	}
}

func (s *Server) read(ctx context.Context, c *Conn) (Message, error) {
	if s.IdleTimeout <= 0 {
		return c.Read(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, s.IdleTimeout)
	defer cancel()
	return c.Read(ctx)
}

// Shutdown stops accepting upgrades, closes every open connection and waits
// for their read loops to return or for ctx to be done.
//
// Connections are closed without a closing handshake. Shutdown does not
// stop the http.Server the Server is mounted on.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return xerrors.Errorf("failed to wait for WebSocket connections: %w", ctx.Err())
	}
}

// addConn registers c unless the server is shutting down.
func (s *Server) addConn(c *Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closing {
		return false
	}
	if s.conns == nil {
		s.conns = make(map[*Conn]struct{})
	}
	s.conns[c] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) removeConn(c *Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	s.wg.Done()
}

func (s *Server) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func isProtocolError(err error) bool {
	return errors.Is(err, ErrMalformedFrame) ||
		errors.Is(err, ErrUnsupportedOpcode) ||
		errors.Is(err, ErrUnsupportedPayloadLength)
}
