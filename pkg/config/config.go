package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// minPublicKeyLength guards against truncated or placeholder keys.
const minPublicKeyLength = 100

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	Backend  BackendConfig
	CORS     CORSConfig
	Log      LogConfig
	Cache    CacheConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// BackendConfig describes the hosted backend that issues sessions.
type BackendConfig struct {
	URL           string
	PublicKey     string
	JWTSecret     string
	OAuthProvider string
	RedirectPath  string
	Timeout       time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CacheConfig tunes the read cache and its bounded read retry.
type CacheConfig struct {
	Enabled           bool
	TTL               time.Duration
	Prefix            string
	ReadRetryAttempts int
	ReadRetryDelay    time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Backend = BackendConfig{
		URL:           strings.TrimSpace(v.GetString("BACKEND_URL")),
		PublicKey:     strings.TrimSpace(v.GetString("BACKEND_PUBLIC_KEY")),
		JWTSecret:     v.GetString("BACKEND_JWT_SECRET"),
		OAuthProvider: v.GetString("OAUTH_PROVIDER"),
		RedirectPath:  v.GetString("AUTH_REDIRECT_PATH"),
		Timeout:       parseDuration(v.GetString("IDENTITY_TIMEOUT"), 10*time.Second),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cache = CacheConfig{
		Enabled:           v.GetBool("ENABLE_CACHE"),
		TTL:               parseDuration(v.GetString("CACHE_TTL"), 5*time.Minute),
		Prefix:            v.GetString("CACHE_PREFIX"),
		ReadRetryAttempts: v.GetInt("READ_RETRY_ATTEMPTS"),
		ReadRetryDelay:    parseDuration(v.GetString("READ_RETRY_DELAY"), 200*time.Millisecond),
	}

	return cfg, nil
}

// Validate checks the settings the process cannot start without.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	return c.Backend.Validate()
}

// Validate reports a missing or malformed backend URL, public key or token secret.
func (b BackendConfig) Validate() error {
	if b.URL == "" || b.PublicKey == "" {
		return errors.New("missing backend environment variables: BACKEND_URL and BACKEND_PUBLIC_KEY are required")
	}
	parsed, err := url.Parse(b.URL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("invalid backend URL format: %q", b.URL)
	}
	if !strings.HasPrefix(b.PublicKey, "eyJ") || len(b.PublicKey) < minPublicKeyLength {
		return errors.New("invalid backend public key format")
	}
	if b.JWTSecret == "" {
		return errors.New("missing BACKEND_JWT_SECRET")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "course_portal")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("BACKEND_URL", "")
	v.SetDefault("BACKEND_PUBLIC_KEY", "")
	v.SetDefault("BACKEND_JWT_SECRET", "")
	v.SetDefault("OAUTH_PROVIDER", "google")
	v.SetDefault("AUTH_REDIRECT_PATH", "/dashboard")
	v.SetDefault("IDENTITY_TIMEOUT", "10s")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_CACHE", true)
	v.SetDefault("CACHE_TTL", "5m")
	v.SetDefault("CACHE_PREFIX", "course-portal")
	v.SetDefault("READ_RETRY_ATTEMPTS", 3)
	v.SetDefault("READ_RETRY_DELAY", "200ms")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
