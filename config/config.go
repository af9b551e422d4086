package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Host string
	Port string

	DBDriver      string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBSSLMode     string
	DBAutoMigrate bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Timezone       string
	Variants       []string
	PrimaryVariant string
	AdminSecret    string

	LogLevel  string
	LogFormat string

	SettleMaxAttempts int
	SettleRetryDelay  time.Duration
	ResettleInterval  time.Duration

	BetRateLimit  int
	BetRateWindow time.Duration
}

// Load reads .env when present and then the process environment.
// It reports whether a .env file was found so callers can log it.
func Load() (*Config, bool, error) {
	envLoaded := godotenv.Load() == nil

	cfg := &Config{
		Host:           getEnv("APP_HOST", "127.0.0.1"),
		Port:           getEnv("APP_PORT", "3000"),
		DBDriver:       getEnv("DB_DRIVER", "postgres"),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     os.Getenv("DB_PASSWORD"),
		DBName:         getEnv("DB_NAME", "wingo"),
		DBSSLMode:      getEnv("DB_SSLMODE", "disable"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		Timezone:       getEnv("GAME_TIMEZONE", "Asia/Kolkata"),
		Variants:       splitList(getEnv("GAME_VARIANTS", "wingo3m,wingo1m,wingo30s,bow")),
		PrimaryVariant: getEnv("PRIMARY_VARIANT", "wingo3m"),
		AdminSecret:    os.Getenv("ADMIN_SECRET"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
	}

	var err error
	if cfg.DBAutoMigrate, err = getBool("DB_AUTO_MIGRATE", true); err != nil {
		return nil, envLoaded, err
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, envLoaded, err
	}
	if cfg.SettleMaxAttempts, err = getInt("SETTLE_MAX_ATTEMPTS", 3); err != nil {
		return nil, envLoaded, err
	}
	if cfg.SettleRetryDelay, err = getDuration("SETTLE_RETRY_DELAY", 500*time.Millisecond); err != nil {
		return nil, envLoaded, err
	}
	if cfg.ResettleInterval, err = getDuration("RESETTLE_INTERVAL", 2*time.Minute); err != nil {
		return nil, envLoaded, err
	}
	if cfg.BetRateLimit, err = getInt("BET_RATE_LIMIT", 10); err != nil {
		return nil, envLoaded, err
	}
	if cfg.BetRateWindow, err = getDuration("BET_RATE_WINDOW", 10*time.Second); err != nil {
		return nil, envLoaded, err
	}

	if cfg.SettleMaxAttempts < 1 {
		return nil, envLoaded, fmt.Errorf("SETTLE_MAX_ATTEMPTS must be at least 1, got %d", cfg.SettleMaxAttempts)
	}
	if cfg.DBDriver != "postgres" && cfg.DBDriver != "sqlite" {
		return nil, envLoaded, fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", cfg.DBDriver)
	}
	if len(cfg.Variants) == 0 {
		return nil, envLoaded, fmt.Errorf("GAME_VARIANTS is empty")
	}

	return cfg, envLoaded, nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Location resolves the game timezone. Hosts without tzdata fall back to a
// fixed +05:30 zone for the default Asia/Kolkata setting.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err == nil {
		return loc, nil
	}
	if c.Timezone == "Asia/Kolkata" {
		return time.FixedZone("IST", 5*3600+30*60), nil
	}
	return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s: %q", key, v)
	}
	return b, nil
}

func getInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q", key, v)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q", key, v)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(strings.ToLower(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}
