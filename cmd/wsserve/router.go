package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/plainws/websocket"
	"github.com/plainws/websocket/metrics"
)

// messageHandler logs every message and, when echo is set, sends it back.
func messageHandler(echo bool) websocket.HandlerFunc {
	return func(ctx context.Context, c *websocket.Conn, text string) (interface{}, error) {
		c.Logger().Info("data from socket", slog.String("text", text))
		if !echo {
			return nil, nil
		}
		return text, nil
	}
}

func newServer(cfg config, logger *slog.Logger, m *metrics.Metrics) *websocket.Server {
	return &websocket.Server{
		Handler: messageHandler(cfg.Echo),
		AcceptOptions: &websocket.AcceptOptions{
			Subprotocols:       cfg.Subprotocols,
			InsecureSkipVerify: cfg.InsecureOrigin,
			ReadLimit:          cfg.ReadLimit,
			Logger:             logger,
		},
		Logger:       logger,
		Metrics:      m,
		MessageRate:  rate.Limit(cfg.MessageRate),
		MessageBurst: cfg.MessageBurst,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func newRouter(cfg config, s *websocket.Server, reg *prometheus.Registry, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET(cfg.Path, gin.WrapH(s))
	r.GET(cfg.MetricsPath, gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Upgraded requests are logged by the Server for their whole lifetime.
		if c.IsWebsocket() {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		logger.Debug("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)))
	}
}
