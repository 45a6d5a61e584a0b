// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - Defaults live in New; Load layers a file and the environment on top.
//   - The loaded Config is treated as immutable and passed by value.
//   - Errors are wrapped with this package's sentinels.
package config

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	// Zone names must resolve on hosts without a system zoneinfo database.
	_ "time/tzdata"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	Listen  Listen  `koanf:"listen"`
	Store   Store   `koanf:"store"`
	Meta    Meta    `koanf:"meta"`
	Metrics Metrics `koanf:"metrics"`

	// ShutdownTimeout bounds how long in-flight requests may take to drain.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Listen configures the HTTP listener.
type Listen struct {
	Address string `koanf:"address"`
	Port    int    `koanf:"port"`
}

// Store configures the record store and its snapshot file.
type Store struct {
	// Data is the snapshot file path.
	Data string `koanf:"data"`

	// Secret is the shared secret submissions must present.
	Secret string `koanf:"secret"`

	// WriteBack is the periodic flush interval in seconds.
	WriteBack int `koanf:"write_back"`
}

// Meta configures the leaderboard page.
type Meta struct {
	Title string `koanf:"title"`
	Year  int    `koanf:"year"`

	// Timezone is an IANA zone name used when rendering times.
	Timezone string `koanf:"timezone"`
}

// Metrics configures the Prometheus exposition.
type Metrics struct {
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`

	// Buckets are the latency histogram bounds in milliseconds; empty keeps the defaults.
	Buckets []float64 `koanf:"buckets"`

	// Labels are attached to every series, e.g. {instance = "east-1"}.
	Labels map[string]string `koanf:"labels"`
}

// New creates a Config with defaults. The secret has no default.
func New() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Listen: Listen{
			Address: "0.0.0.0",
			Port:    8080,
		},
		Store: Store{
			Data:      "history.json",
			WriteBack: 5,
		},
		Meta: Meta{
			Title:    "Leaderboard",
			Year:     time.Now().Year(),
			Timezone: "Asia/Shanghai",
		},
		Metrics: Metrics{
			Namespace: "scoreboard",
		},
		ShutdownTimeout: 10 * time.Second,
	}
}

// Addr returns the host:port the server listens on.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Listen.Address, strconv.Itoa(c.Listen.Port))
}

// FlushInterval returns the write-back interval, never below one second.
func (c Config) FlushInterval() time.Duration {
	if c.Store.WriteBack < 1 {
		return time.Second
	}
	return time.Duration(c.Store.WriteBack) * time.Second
}

// Location resolves Meta.Timezone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Meta.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: meta.timezone %q: %v", ErrInvalidConfig, c.Meta.Timezone, err)
	}
	return loc, nil
}

// Validate checks the fields the service cannot run without.
func (c Config) Validate() error {
	if c.Listen.Port < 1 || c.Listen.Port > 65535 {
		return fmt.Errorf("%w: listen.port %d out of range 1-65535", ErrInvalidConfig, c.Listen.Port)
	}
	if c.Store.Data == "" {
		return fmt.Errorf("%w: store.data must not be empty", ErrInvalidConfig)
	}
	if c.Store.Secret == "" {
		return fmt.Errorf("%w: store.secret must not be empty", ErrInvalidConfig)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: shutdown_timeout must be positive", ErrInvalidConfig)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format %q must be text or json", ErrInvalidConfig, c.LogFormat)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return c.Metrics.validate()
}

var metricName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func (m Metrics) validate() error {
	if !metricName.MatchString(m.Namespace) {
		return fmt.Errorf("%w: metrics.namespace %q is not a valid metric name", ErrInvalidConfig, m.Namespace)
	}
	if m.Subsystem != "" && !metricName.MatchString(m.Subsystem) {
		return fmt.Errorf("%w: metrics.subsystem %q is not a valid metric name", ErrInvalidConfig, m.Subsystem)
	}
	for i := 1; i < len(m.Buckets); i++ {
		if m.Buckets[i] <= m.Buckets[i-1] {
			return fmt.Errorf("%w: metrics.buckets must be strictly increasing", ErrInvalidConfig)
		}
	}
	for name := range m.Labels {
		if !metricName.MatchString(name) || strings.HasPrefix(name, "__") {
			return fmt.Errorf("%w: metrics.labels key %q is not a valid label name", ErrInvalidConfig, name)
		}
	}
	return nil
}
