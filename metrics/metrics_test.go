package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/plainws/websocket/internal/test/assert"
)

func TestMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New("test", reg)

	m.Handshake(true)
	m.Handshake(true)
	m.Handshake(false)
	assert.Equal(t, "accepted handshakes", 2.0, testutil.ToFloat64(m.Handshakes.WithLabelValues("accepted")))
	assert.Equal(t, "rejected handshakes", 1.0, testutil.ToFloat64(m.Handshakes.WithLabelValues("rejected")))

	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed(time.Second)
	assert.Equal(t, "active connections", 1.0, testutil.ToFloat64(m.ActiveConnections))

	m.FrameRead(OutcomeText, 5)
	m.FrameRead(OutcomeIgnored, 0)
	m.FrameWritten(7)
	assert.Equal(t, "text frames in", 1.0, testutil.ToFloat64(m.Frames.WithLabelValues(DirectionIn, OutcomeText)))
	assert.Equal(t, "ignored frames in", 1.0, testutil.ToFloat64(m.Frames.WithLabelValues(DirectionIn, OutcomeIgnored)))
	assert.Equal(t, "bytes in", 5.0, testutil.ToFloat64(m.PayloadBytes.WithLabelValues(DirectionIn)))
	assert.Equal(t, "bytes out", 7.0, testutil.ToFloat64(m.PayloadBytes.WithLabelValues(DirectionOut)))

	m.MessageRateLimited()
	assert.Equal(t, "rate limited", 1.0, testutil.ToFloat64(m.RateLimited))

	n, err := testutil.GatherAndCount(reg)
	assert.Success(t, err)
	if n == 0 {
		t.Fatal("expected registered metrics")
	}
}

func TestNilMetrics(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.Handshake(true)
	m.ConnectionOpened()
	m.ConnectionClosed(time.Second)
	m.FrameRead(OutcomeMalformed, 0)
	m.FrameWritten(1)
	m.MessageRateLimited()
}
