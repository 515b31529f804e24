// Package config loads service configuration from the environment.
//
// Values are read from a local .env file when present (godotenv) and then
// from process environment variables (cleanenv). Process variables win over
// the .env file because godotenv never overrides variables that are already set.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Config is the root configuration of the catalog service.
type Config struct {
	Service   ServiceConfig
	Logging   LoggingConfig
	Tracing   TracingConfig
	Profiling ProfilingConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Redis     RedisConfig
	Storage   StorageConfig
}

// ServiceConfig holds process-level settings.
type ServiceConfig struct {
	Name                string `env:"SERVICE_NAME" env-default:"catalog-service"`
	Version             string `env:"SERVICE_VERSION" env-default:"dev"`
	Env                 string `env:"ENV" env-default:"local"`
	Port                string `env:"PORT" env-default:"8080"`
	ShutdownTimeout     string `env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
	ReadinessDrainDelay string `env:"READINESS_DRAIN_DELAY" env-default:"5s"`
}

// LoggingConfig controls zerolog output.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" env-default:"info"`
	Format string `env:"LOG_FORMAT" env-default:"json"`
}

// TracingConfig controls the OTLP trace exporter.
type TracingConfig struct {
	Enabled    bool    `env:"TRACING_ENABLED" env-default:"false"`
	Endpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:"localhost:4318"`
	SampleRate float64 `env:"OTEL_SAMPLE_RATE" env-default:"1.0"`
}

// ProfilingConfig controls continuous profiling via Pyroscope.
type ProfilingConfig struct {
	Enabled  bool   `env:"PROFILING_ENABLED" env-default:"false"`
	Endpoint string `env:"PYROSCOPE_ENDPOINT" env-default:"http://localhost:4040"`
}

// DatabaseConfig describes the PostgreSQL connection.
type DatabaseConfig struct {
	Host        string `env:"DB_HOST" env-default:"localhost"`
	Port        string `env:"DB_PORT" env-default:"5432"`
	User        string `env:"DB_USER" env-default:"catalog"`
	Password    string `env:"DB_PASSWORD" env-default:"catalog"`
	Name        string `env:"DB_NAME" env-default:"catalog"`
	SSLMode     string `env:"DB_SSLMODE" env-default:"disable"`
	MaxConns    int32  `env:"DB_MAX_CONNS" env-default:"10"`
	AutoMigrate bool   `env:"DB_AUTO_MIGRATE" env-default:"true"`
}

// DSN builds a postgres:// connection URL.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   net.JoinHostPort(d.Host, d.Port),
		Path:   d.Name,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// AuthConfig holds token and password settings.
//
// AccessTokenTTL must stay strictly below RefreshTokenTTL.
type AuthConfig struct {
	JWTSecret           string        `env:"JWT_SECRET"`
	Issuer              string        `env:"JWT_ISSUER" env-default:"catalog-service"`
	AccessTokenTTL      time.Duration `env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL     time.Duration `env:"REFRESH_TOKEN_TTL" env-default:"360h"`
	RotateRefreshTokens bool          `env:"AUTH_ROTATE_REFRESH_TOKENS" env-default:"true"`
	BcryptCost          int           `env:"BCRYPT_COST" env-default:"10"`
	LoginMaxAttempts    int           `env:"LOGIN_MAX_ATTEMPTS" env-default:"5"`
	LoginAttemptWindow  time.Duration `env:"LOGIN_ATTEMPT_WINDOW" env-default:"15m"`
}

// RedisConfig is used by the login throttle. Disabled means no throttling.
type RedisConfig struct {
	Enabled  bool   `env:"REDIS_ENABLED" env-default:"false"`
	Addr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

// StorageConfig describes the S3-compatible bucket used for avatars.
type StorageConfig struct {
	Enabled            bool     `env:"S3_ENABLED" env-default:"false"`
	Endpoint           string   `env:"S3_ENDPOINT" env-default:"http://localhost:9000"`
	AccessKey          string   `env:"S3_ACCESS_KEY"`
	SecretKey          string   `env:"S3_SECRET_KEY"`
	Bucket             string   `env:"S3_BUCKET" env-default:"avatars"`
	PublicBaseURL      string   `env:"S3_PUBLIC_BASE_URL"`
	AvatarMaxBytes     int64    `env:"AVATAR_MAX_BYTES" env-default:"5242880"`
	AvatarContentTypes []string `env:"AVATAR_CONTENT_TYPES" env-separator:"," env-default:"image/jpeg,image/png,image/webp"`
}

// Load reads the optional .env file and the process environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that env tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	if c.Service.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	} else if _, err := strconv.Atoi(c.Service.Port); err != nil {
		errs = append(errs, fmt.Errorf("PORT %q is not numeric", c.Service.Port))
	}
	if _, err := time.ParseDuration(c.Service.ShutdownTimeout); err != nil {
		errs = append(errs, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err))
	}
	if _, err := time.ParseDuration(c.Service.ReadinessDrainDelay); err != nil {
		errs = append(errs, fmt.Errorf("READINESS_DRAIN_DELAY: %w", err))
	}

	if len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes"))
	}
	if c.Auth.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be positive"))
	}
	if c.Auth.AccessTokenTTL >= c.Auth.RefreshTokenTTL {
		errs = append(errs, fmt.Errorf("ACCESS_TOKEN_TTL (%s) must be shorter than REFRESH_TOKEN_TTL (%s)",
			c.Auth.AccessTokenTTL, c.Auth.RefreshTokenTTL))
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be within [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.Auth.LoginMaxAttempts <= 0 {
		errs = append(errs, errors.New("LOGIN_MAX_ATTEMPTS must be positive"))
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, errors.New("OTEL_SAMPLE_RATE must be within [0, 1]"))
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, errors.New("DB_MAX_CONNS must be positive"))
	}
	if c.Storage.Enabled && (c.Storage.AccessKey == "" || c.Storage.SecretKey == "") {
		errs = append(errs, errors.New("S3_ACCESS_KEY and S3_SECRET_KEY are required when S3_ENABLED=true"))
	}
	if c.Storage.AvatarMaxBytes <= 0 {
		errs = append(errs, errors.New("AVATAR_MAX_BYTES must be positive"))
	}

	return errors.Join(errs...)
}

// GetShutdownTimeoutDuration returns the graceful shutdown timeout.
func (c *Config) GetShutdownTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Service.ShutdownTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetReadinessDrainDelayDuration returns how long /ready reports shutting_down
// before the HTTP server stops accepting connections.
func (c *Config) GetReadinessDrainDelayDuration() time.Duration {
	d, err := time.ParseDuration(c.Service.ReadinessDrainDelay)
	if err != nil {
		return 0
	}
	return d
}
