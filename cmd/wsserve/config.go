package main

import (
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/xerrors"
)

const envPrefix = "WS_"

type config struct {
	Address     string `env:"ADDRESS"      envDefault:":3000"`
	Path        string `env:"PATH"         envDefault:"/"`
	MetricsPath string `env:"METRICS_PATH" envDefault:"/metrics"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	Echo           bool     `env:"ECHO"            envDefault:"true"`
	Subprotocols   []string `env:"SUBPROTOCOLS"    envSeparator:","`
	InsecureOrigin bool     `env:"INSECURE_ORIGIN" envDefault:"false"`
	ReadLimit      int64    `env:"READ_LIMIT"      envDefault:"32768"`

	// MessageRate is in messages per second, 0 disables limiting.
	MessageRate  float64 `env:"MESSAGE_RATE"  envDefault:"0"`
	MessageBurst int     `env:"MESSAGE_BURST" envDefault:"10"`

	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT"     envDefault:"5m"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// parseConfig reads the WS_ variables from environ, or from the process
// environment when environ is nil.
func parseConfig(environ map[string]string) (cfg config, err error) {
	err = env.ParseWithOptions(&cfg, env.Options{
		Prefix:      envPrefix,
		Environment: environ,
	})
	if err != nil {
		return config{}, xerrors.Errorf("failed to parse config: %w", err)
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		return config{}, xerrors.Errorf("unsupported log format %q", cfg.LogFormat)
	}
	if cfg.MessageRate < 0 {
		return config{}, xerrors.Errorf("message rate must not be negative: %v", cfg.MessageRate)
	}
	if cfg.Path == "" || cfg.Path[0] != '/' {
		return config{}, xerrors.Errorf("path must start with a slash: %q", cfg.Path)
	}
	return cfg, nil
}
