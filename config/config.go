// Package config holds the typed configuration of caches and timeout maps.
//
// Settings come from a YAML file (Load, Parse) or from an endpoint-style
// URI such as "cache:lru?maxSize=500&retention=soft" (CacheConfigFromURI).
// Every field is named and typed; no property is bound by reflection.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/IvanBrykalov/cachekit/metrics"
	"github.com/IvanBrykalov/cachekit/metrics/prom"
)

var (
	ErrInvalidCapacity  = errors.New("config: maxSize must be > 0")
	ErrInvalidInterval  = errors.New("config: interval must be >= 0")
	ErrInvalidOrder     = errors.New("config: unknown order")
	ErrInvalidRetention = errors.New("config: unknown retention")
	ErrInvalidLevel     = errors.New("config: unknown log level")
	ErrUnknownOption    = errors.New("config: unknown option")
	ErrNoScheduler      = errors.New("config: purging enabled but no scheduler given")
)

// Order selects the eviction ordering of a bounded cache.
type Order string

const (
	OrderAccess    Order = "access"    // least recently used goes first
	OrderInsertion Order = "insertion" // oldest insert goes first
)

// ParseOrder accepts "access"/"lru" and "insertion"/"fifo".
func ParseOrder(s string) (Order, error) {
	switch s {
	case "access", "lru":
		return OrderAccess, nil
	case "insertion", "fifo":
		return OrderInsertion, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOrder, s)
}

// Retention selects how a bounded cache holds its values.
type Retention string

const (
	RetentionStrong Retention = "strong"
	RetentionWeak   Retention = "weak"
	RetentionSoft   Retention = "soft"
)

// ParseRetention validates s.
func ParseRetention(s string) (Retention, error) {
	switch r := Retention(s); r {
	case RetentionStrong, RetentionWeak, RetentionSoft:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRetention, s)
}

// Config is the root configuration document.
type Config struct {
	Cache   CacheConfig   `yaml:"cache"`
	Timeout TimeoutConfig `yaml:"timeout"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// CacheConfig configures a bounded cache.
type CacheConfig struct {
	MaxSize        int       `yaml:"maxSize"`
	Order          Order     `yaml:"order"`
	Retention      Retention `yaml:"retention"`
	StopOnEviction bool      `yaml:"stopOnEviction"`
	// SoftLimitBytes gives soft caches their own heap limit. Zero shares
	// the process-wide monitor, which follows GOMEMLIMIT.
	SoftLimitBytes uint64 `yaml:"softLimitBytes"`
}

// TimeoutConfig configures a timeout map. A zero PurgeInterval disables
// purging.
type TimeoutConfig struct {
	PurgeInterval time.Duration `yaml:"purgeInterval"`
	InitialDelay  time.Duration `yaml:"initialDelay"`
}

// MetricsConfig configures Prometheus export.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`
	Addr      string `yaml:"addr"`
}

// LogConfig configures the hclog root logger.
type LogConfig struct {
	Name  string `yaml:"name"`
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the configuration used for omitted fields.
func Default() Config {
	return Config{
		Cache:   DefaultCache(),
		Timeout: TimeoutConfig{PurgeInterval: time.Second, InitialDelay: time.Second},
		Metrics: MetricsConfig{Namespace: "cachekit", Addr: ":8080"},
		Log:     LogConfig{Name: "cachekit", Level: "info"},
	}
}

// DefaultCache returns a strong, access-ordered cache of 1000 entries.
func DefaultCache() CacheConfig {
	return CacheConfig{MaxSize: 1000, Order: OrderAccess, Retention: RetentionStrong}
}

// Load reads and validates the YAML file at path.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over Default and validates the result.
// Unknown fields are rejected.
func Parse(b []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Marshal encodes cfg as YAML.
func (c Config) Marshal() ([]byte, error) { return yaml.Marshal(c) }

// Validate checks every section.
func (c Config) Validate() error {
	return errors.Join(
		c.Cache.Validate(),
		c.Timeout.Validate(),
		c.Log.Validate(),
	)
}

// Validate checks the cache section.
func (c CacheConfig) Validate() error {
	var errs []error
	if c.MaxSize <= 0 {
		errs = append(errs, fmt.Errorf("%w, got %d", ErrInvalidCapacity, c.MaxSize))
	}
	if _, err := ParseOrder(string(c.Order)); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseRetention(string(c.Retention)); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Validate checks the timeout section.
func (t TimeoutConfig) Validate() error {
	if t.PurgeInterval < 0 || t.InitialDelay < 0 {
		return fmt.Errorf("%w: purgeInterval=%s initialDelay=%s", ErrInvalidInterval, t.PurgeInterval, t.InitialDelay)
	}
	return nil
}

// Validate checks the log section.
func (l LogConfig) Validate() error {
	if l.Level != "" && hclog.LevelFromString(l.Level) == hclog.NoLevel {
		return fmt.Errorf("%w: %q", ErrInvalidLevel, l.Level)
	}
	return nil
}

// NewLogger builds a logger writing to w (nil => stderr).
func (l LogConfig) NewLogger(w io.Writer) hclog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := hclog.Info
	if l.Level != "" {
		level = hclog.LevelFromString(l.Level)
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       l.Name,
		Level:      level,
		Output:     w,
		JSONFormat: l.JSON,
	})
}

// NewMetrics returns a Prometheus adapter registered on reg, or
// metrics.Noop when export is disabled. sub overrides the configured
// subsystem when non-empty, so several components can share a registry.
func (m MetricsConfig) NewMetrics(reg prometheus.Registerer, sub string) metrics.Metrics {
	if !m.Enabled {
		return metrics.Noop{}
	}
	if sub == "" {
		sub = m.Subsystem
	}
	return prom.New(reg, m.Namespace, sub, nil)
}
