package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Log      LogConfig
	Credits  CreditsConfig
	Sweep    SweepConfig
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

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CreditsConfig tunes credit-read behaviour: summary caching and the
// expiring-soon classification threshold.
type CreditsConfig struct {
	CacheEnabled      bool
	CacheTTL          time.Duration
	ExpiringThreshold int
	ExpiringWindow    int
}

// SweepConfig controls the in-process expiry sweep scheduler. The sweep stays
// externally triggerable regardless of this flag.
type SweepConfig struct {
	Enabled    bool
	Interval   time.Duration
	MaxRetries int
	RetryDelay time.Duration
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
		if !errors.As(err, &notFound) {
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

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Credits = CreditsConfig{
		CacheEnabled:      v.GetBool("CREDITS_CACHE_ENABLED"),
		CacheTTL:          parseDuration(v.GetString("CREDITS_CACHE_TTL"), 5*time.Minute),
		ExpiringThreshold: v.GetInt("CREDITS_EXPIRING_THRESHOLD_DAYS"),
		ExpiringWindow:    v.GetInt("CREDITS_EXPIRING_WINDOW_DAYS"),
	}
	if cfg.Credits.ExpiringThreshold <= 0 {
		cfg.Credits.ExpiringThreshold = 30
	}
	if cfg.Credits.ExpiringWindow <= 0 {
		cfg.Credits.ExpiringWindow = 7
	}

	cfg.Sweep = SweepConfig{
		Enabled:    v.GetBool("SWEEP_ENABLED"),
		Interval:   parseDuration(v.GetString("SWEEP_INTERVAL"), time.Hour),
		MaxRetries: v.GetInt("SWEEP_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("SWEEP_RETRY_DELAY"), 30*time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "tuition_credit")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CREDITS_CACHE_ENABLED", false)
	v.SetDefault("CREDITS_CACHE_TTL", "5m")
	v.SetDefault("CREDITS_EXPIRING_THRESHOLD_DAYS", 30)
	v.SetDefault("CREDITS_EXPIRING_WINDOW_DAYS", 7)

	v.SetDefault("SWEEP_ENABLED", false)
	v.SetDefault("SWEEP_INTERVAL", "1h")
	v.SetDefault("SWEEP_MAX_RETRIES", 3)
	v.SetDefault("SWEEP_RETRY_DELAY", "30s")
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
