package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mike-ai-lab/ConstructLM-sub002/internal/geometry"
	"github.com/mike-ai-lab/ConstructLM-sub002/internal/tracing"
)

// DefaultPath is used when CONFIG_PATH is unset
const DefaultPath = "./config/citations.yaml"

// EnvPrefix namespaces environment overrides, e.g. CITELOC_SERVER_PORT
const EnvPrefix = "CITELOC"

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// PDFConfig holds the page projection knobs; both ViewportScale and
// MinQuoteRunes are hot-reloadable.
type PDFConfig struct {
	ViewportScale float64       `mapstructure:"viewport_scale"`
	MinQuoteRunes int           `mapstructure:"min_quote_runes"`
	RenderTimeout time.Duration `mapstructure:"render_timeout"`
}

type MatcherConfig struct {
	Containment bool `mapstructure:"containment"`
}

type CacheConfig struct {
	LocalCapacity int           `mapstructure:"local_capacity"`
	TTL           time.Duration `mapstructure:"ttl"`
	// RedisAddr enables the shared page-geometry tier when set
	RedisAddr string `mapstructure:"redis_addr"`
}

// DocStoreConfig points at the upload pipeline's document table. An empty
// driver disables lookups by document ID.
type DocStoreConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	Table        string `mapstructure:"table"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// Config is the service configuration loaded from citations.yaml
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Tracing   tracing.Config  `mapstructure:"tracing"`
	PDF       PDFConfig       `mapstructure:"pdf"`
	Matcher   MatcherConfig   `mapstructure:"matcher"`
	Cache     CacheConfig     `mapstructure:"cache"`
	DocStore  DocStoreConfig  `mapstructure:"docstore"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8085)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.max_body_bytes", 8<<20)

	v.SetDefault("logging.level", "info")
	v.SetDefault("metrics.enabled", true)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "citation-locator")
	v.SetDefault("tracing.otlp_endpoint", "localhost:4317")

	v.SetDefault("pdf.viewport_scale", 1.5)
	v.SetDefault("pdf.min_quote_runes", 3)
	v.SetDefault("pdf.render_timeout", "20s")

	v.SetDefault("matcher.containment", true)

	v.SetDefault("cache.local_capacity", 256)
	v.SetDefault("cache.ttl", "30m")
	v.SetDefault("cache.redis_addr", "")

	v.SetDefault("docstore.driver", "")
	v.SetDefault("docstore.dsn", "")
	v.SetDefault("docstore.table", "documents")
	v.SetDefault("docstore.max_open_conns", 5)

	v.SetDefault("ratelimit.rps", 20.0)
	v.SetDefault("ratelimit.burst", 40)
}

// Path returns CONFIG_PATH or DefaultPath
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads the config at Path()
func Load() (*Config, error) {
	return LoadFile(Path())
}

// LoadFile reads path on top of the defaults and applies CITELOC_* overrides.
// A missing file is not an error: defaults and environment still apply.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects values the service cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.PDF.ViewportScale <= 0 {
		errs = append(errs, fmt.Errorf("pdf.viewport_scale must be positive: %v", c.PDF.ViewportScale))
	}
	if c.PDF.MinQuoteRunes < geometry.DefaultMinQuoteRunes {
		errs = append(errs, fmt.Errorf("pdf.min_quote_runes must be at least %d: %d",
			geometry.DefaultMinQuoteRunes, c.PDF.MinQuoteRunes))
	}
	switch c.DocStore.Driver {
	case "", "postgres", "sqlite3":
	default:
		errs = append(errs, fmt.Errorf("docstore.driver unsupported: %q", c.DocStore.Driver))
	}
	if c.DocStore.Driver != "" && c.DocStore.DSN == "" {
		errs = append(errs, errors.New("docstore.dsn required when docstore.driver is set"))
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("ratelimit values must not be negative"))
	}
	return errors.Join(errs...)
}
