package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Source modes.
const (
	ModeLive = "live"
	ModeDemo = "demo"
)

// Backend transports.
const (
	TransportFetch = "fetch"
	TransportJSONP = "jsonp"
)

// Config represents the overall application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Backend  BackendConfig  `yaml:"backend"`
	Source   SourceConfig   `yaml:"source"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port                 int     `yaml:"port"`
	SessionKey           string  `yaml:"session_key"`
	SecureCookies        bool    `yaml:"secure_cookies"`
	RateLimitPerSec      float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst       int     `yaml:"rate_limit_burst"`
	LoginRateLimitPerSec float64 `yaml:"login_rate_limit_per_sec"`
	CacheTTLSeconds      int     `yaml:"cache_ttl_seconds"`
	WorkspaceTTLMinutes  int     `yaml:"workspace_ttl_minutes"`
	SessionMaxAgeHours   int     `yaml:"session_max_age_hours"`
	SessionSweepMinutes  int     `yaml:"session_sweep_minutes"`
}

// BackendConfig describes how the reporting backend is reached.
type BackendConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Transport      string        `yaml:"transport"`
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"` // Ignored by YAML parser
	HTTPProxy      string        `yaml:"http_proxy"`
	PageSize       int           `yaml:"page_size"`
}

// SourceConfig selects the data source once at startup.
type SourceConfig struct {
	Mode         string `yaml:"mode"`
	DemoFallback bool   `yaml:"demo_fallback"`
	Timezone     string `yaml:"timezone"`
}

// DatabaseConfig holds the session database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the configuration from the given path, then applies .env and
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	var cfg Config
	cfg.Source.DemoFallback = true

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	_ = godotenv.Load() // ignore missing file
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("TSDASH_BACKEND_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("TSDASH_BACKEND_TRANSPORT"); v != "" {
		cfg.Backend.Transport = v
	}
	if v := os.Getenv("TSDASH_SESSION_KEY"); v != "" {
		cfg.Server.SessionKey = v
	}
	if v := os.Getenv("TSDASH_SOURCE_MODE"); v != "" {
		cfg.Source.Mode = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 {
			return fmt.Errorf("invalid PORT: %s", v)
		}
		cfg.Server.Port = port
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.LoginRateLimitPerSec <= 0 {
		cfg.Server.LoginRateLimitPerSec = 1
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}
	if cfg.Server.WorkspaceTTLMinutes <= 0 {
		cfg.Server.WorkspaceTTLMinutes = 30
	}
	if cfg.Server.SessionMaxAgeHours <= 0 {
		cfg.Server.SessionMaxAgeHours = 30 * 24
	}
	if cfg.Server.SessionSweepMinutes <= 0 {
		cfg.Server.SessionSweepMinutes = 60
	}

	if cfg.Backend.Transport == "" {
		cfg.Backend.Transport = TransportFetch
	}
	if cfg.Backend.TimeoutSeconds <= 0 {
		cfg.Backend.TimeoutSeconds = 10
	}
	cfg.Backend.Timeout = time.Duration(cfg.Backend.TimeoutSeconds) * time.Second
	if cfg.Backend.PageSize <= 0 {
		cfg.Backend.PageSize = 50
	}

	if cfg.Source.Mode == "" {
		if cfg.Backend.BaseURL == "" {
			cfg.Source.Mode = ModeDemo
		} else {
			cfg.Source.Mode = ModeLive
		}
	}
	if cfg.Source.Timezone == "" {
		cfg.Source.Timezone = "Asia/Hong_Kong"
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "tsdash.db"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

func (c *Config) validate() error {
	switch c.Source.Mode {
	case ModeLive:
		if c.Backend.BaseURL == "" {
			return fmt.Errorf("backend.base_url is required in %q mode", ModeLive)
		}
	case ModeDemo:
	default:
		return fmt.Errorf("unknown source.mode %q", c.Source.Mode)
	}

	switch c.Backend.Transport {
	case TransportFetch, TransportJSONP:
	default:
		return fmt.Errorf("unknown backend.transport %q", c.Backend.Transport)
	}

	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	return nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
