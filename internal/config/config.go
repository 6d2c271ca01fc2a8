// Package config manages the application configuration.
//
// Configuration is an explicit object. It is assembled from an optional
// `.env` file and the process environment, validated, and then handed to
// whatever needs it: the HTTP server, the database layer, and the
// bootstrapper, which renders it back into environment variables for the
// server process it launches.
//
// Responsibilities:
//   - Load the `.env` file (when present) into the process environment.
//   - Map env vars into structured Go types with koanf.
//   - Validate required values so the app fails fast on bad config.
//   - Provide defaults for everything a fresh checkout needs to run.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

/*
	Env vars are read in two passes:

	1. The plain keys documented for the original `.env` file
	   (DATABASE_URL, SECRET_KEY, DEBUG, ...) are mapped one by one.
	2. Variables with the FORMULALAB_ prefix are mapped generically, using a
	   double underscore as the nesting separator:
	   FORMULALAB_SERVER__PORT -> server.port -> Config.Server.Port

	The second pass wins, so a prefixed variable always overrides a plain one.
*/

const (
	// EnvPrefix is the prefix of the generic configuration variables.
	EnvPrefix = "FORMULALAB_"

	// DefaultEnvFile is the configuration file read when no path is given.
	DefaultEnvFile = ".env"

	// DevelopmentSecretKey is the signing key used when none is configured.
	// It is rejected in production.
	DevelopmentSecretKey = "your_super_secret_key_change_this_in_production"

	// DefaultDatabaseURL points at a SQLite file relative to the working directory.
	DefaultDatabaseURL = "sqlite:///./cosmetic_formula_lab.db"
)

// legacyKeys maps the plain variables of the original `.env` file to koanf keys.
var legacyKeys = map[string]string{
	"DATABASE_URL":                "database.url",
	"SECRET_KEY":                  "auth.secret_key",
	"DEBUG":                       "primary.debug",
	"ENVIRONMENT":                 "primary.env",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"ACCESS_TOKEN_EXPIRE_MINUTES": "auth.access_token_expire_minutes",
	"CORS_ORIGINS":                "server.cors_allowed_origins",
	"REDIS_URL":                   "redis.address",
	"RESEND_API_KEY":              "integration.resend_api_key",
}

// Config is the root configuration object for the application.
//
// Observability is a pointer because it is optional. If not provided,
// defaults are injected by Load.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Database      DatabaseConfig       `koanf:"database" validate:"required"`
	Redis         RedisConfig          `koanf:"redis"`
	Auth          AuthConfig           `koanf:"auth" validate:"required"`
	Integration   IntegrationConfig    `koanf:"integration"`
	Bootstrap     BootstrapConfig      `koanf:"bootstrap" validate:"required"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required,oneof=local development staging production"`

	// Debug turns on verbose logging and the debug-only routes.
	Debug bool `koanf:"debug"`
}

// ServerConfig groups settings for the HTTP server runtime.
// Timeouts are expressed in seconds.
type ServerConfig struct {
	Host               string          `koanf:"host"`
	Port               string          `koanf:"port" validate:"required"`
	ReadTimeout        int             `koanf:"read_timeout" validate:"required,min=1"`
	WriteTimeout       int             `koanf:"write_timeout" validate:"required,min=1"`
	IdleTimeout        int             `koanf:"idle_timeout" validate:"required,min=1"`
	ShutdownTimeout    int             `koanf:"shutdown_timeout" validate:"required,min=1"`
	CORSAllowedOrigins []string        `koanf:"cors_allowed_origins" validate:"required,min=1"`
	RateLimit          RateLimitConfig `koanf:"rate_limit"`
}

// RateLimitConfig throttles the authentication endpoints per client IP.
type RateLimitConfig struct {
	Enabled           bool    `koanf:"enabled"`
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gte=0"`
	Burst             int     `koanf:"burst" validate:"gte=0"`
}

// DatabaseConfig holds the connection target and pool tuning.
//
// URL selects the driver by scheme: postgres:// and postgresql:// use pgx,
// sqlite:// (or a bare file path) uses SQLite.
type DatabaseConfig struct {
	URL             string `koanf:"url" validate:"required"`
	MaxOpenConns    int    `koanf:"max_open_conns" validate:"min=1"`
	MaxIdleConns    int    `koanf:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime" validate:"min=0"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time" validate:"min=0"`
}

// RedisConfig contains Redis connection details. An empty address disables
// Redis and the background job service that depends on it.
type RedisConfig struct {
	Address string `koanf:"address"`
}

// Enabled reports whether a Redis address is configured.
func (r RedisConfig) Enabled() bool {
	return r.Address != ""
}

// AuthConfig stores token-signing settings.
type AuthConfig struct {
	SecretKey                string `koanf:"secret_key" validate:"required,min=16"`
	AccessTokenExpireMinutes int    `koanf:"access_token_expire_minutes" validate:"required,min=1"`
	ShortTokenExpireMinutes  int    `koanf:"short_token_expire_minutes" validate:"required,min=1"`
	BcryptCost               int    `koanf:"bcrypt_cost" validate:"min=4,max=31"`
}

// AccessTokenTTL is the lifetime of a "remember me" token.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenExpireMinutes) * time.Minute
}

// ShortTokenTTL is the lifetime of a regular session token.
func (a AuthConfig) ShortTokenTTL() time.Duration {
	return time.Duration(a.ShortTokenExpireMinutes) * time.Minute
}

// IntegrationConfig holds keys of third-party services.
type IntegrationConfig struct {
	ResendAPIKey string `koanf:"resend_api_key"`
	EmailFrom    string `koanf:"email_from" validate:"required"`
}

// BootstrapConfig drives the environment bootstrapper.
type BootstrapConfig struct {
	// EnvDir is the isolated runtime environment, relative to the project root.
	EnvDir string `koanf:"env_dir" validate:"required"`

	// Manifest is the dependency manifest the toolchain installs from.
	Manifest string `koanf:"manifest" validate:"required"`

	// Package is the main package built into the environment.
	Package string `koanf:"package" validate:"required"`

	// GoBinary is the toolchain executable.
	GoBinary string `koanf:"go_binary" validate:"required"`

	StructureCheck bool     `koanf:"structure_check"`
	Reload         bool     `koanf:"reload"`
	WatchDirs      []string `koanf:"watch_dirs"`
	WatchExts      []string `koanf:"watch_exts"`

	// ReloadDelay debounces bursts of file events into a single restart.
	ReloadDelay time.Duration `koanf:"reload_delay"`
}

// Default returns the configuration a fresh checkout runs with.
func Default() *Config {
	return &Config{
		Primary: Primary{
			Env: "development",
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8000",
			ReadTimeout:     30,
			WriteTimeout:    30,
			IdleTimeout:     60,
			ShutdownTimeout: 10,
			CORSAllowedOrigins: []string{
				"http://localhost:3000",
				"http://localhost:5173",
				"http://127.0.0.1:5173",
			},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerSecond: 5,
				Burst:             10,
			},
		},
		Database: DatabaseConfig{
			URL:             DefaultDatabaseURL,
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
			ConnMaxIdleTime: 60,
		},
		Auth: AuthConfig{
			SecretKey:                DevelopmentSecretKey,
			AccessTokenExpireMinutes: 1440,
			ShortTokenExpireMinutes:  60,
			BcryptCost:               10,
		},
		Integration: IntegrationConfig{
			EmailFrom: "Formula Lab <onboarding@resend.dev>",
		},
		Bootstrap: BootstrapConfig{
			EnvDir:         ".runtime",
			Manifest:       "go.mod",
			Package:        "./cmd/formulalab",
			GoBinary:       "go",
			StructureCheck: true,
			Reload:         true,
			WatchDirs:      []string{"cmd", "internal"},
			WatchExts:      []string{".go", ".sql"},
			ReloadDelay:    300 * time.Millisecond,
		},
		Observability: DefaultObservabilityConfig(),
	}
}

// Load reads envFile (if it exists) into the process environment, maps the
// environment onto Default(), validates the result and returns it.
//
// Variables already present in the process environment are not overwritten
// by the file, matching godotenv.Load semantics.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("checking %s: %w", envFile, err)
	}

	return FromEnv()
}

// FromEnv builds the configuration from the current process environment only.
func FromEnv() (*Config, error) {
	k := koanf.New(".")

	err := k.Load(env.Provider("", ".", func(s string) string {
		return legacyKeys[s]
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading plain env variables: %w", err)
	}

	err = k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading %s env variables: %w", EnvPrefix, err)
	}

	// Unmarshal on top of the defaults: keys absent from the environment
	// keep their default value.
	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if cfg.Observability == nil {
		cfg.Observability = DefaultObservabilityConfig()
	}
	cfg.Observability.ServiceName = ServiceName
	cfg.Observability.Environment = cfg.Primary.Env
	if cfg.Primary.Debug {
		cfg.Observability.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate runs the struct-tag rules and the cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if c.Primary.Env == "production" && c.Auth.SecretKey == DevelopmentSecretKey {
		return errors.New("config validation failed: auth.secret_key must be set in production")
	}

	if c.Observability != nil {
		if err := c.Observability.Validate(); err != nil {
			return fmt.Errorf("invalid observability config: %w", err)
		}
	}

	return nil
}

// IsProduction reports whether the application runs in production.
func (c *Config) IsProduction() bool {
	return c.Primary.Env == "production"
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}
