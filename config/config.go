package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Data stores: "name=path,name=path"
	Sources       string
	DefaultSource string

	// Calendar
	ExchangeCD           string
	CalendarLookbackDays int
	PeriodWalk           string // "single" or "full"

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration
	HTTPAddr      string
	MetricsAddr   string
	LogLevel      string

	// Parallel resolution across entities
	MaxParallel int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Sources:       getEnv("SOURCES", "default=data/research.db"),
		DefaultSource: getEnv("DEFAULT_SOURCE", "default"),

		ExchangeCD:           getEnv("EXCHANGE_CD", "XSHG"),
		CalendarLookbackDays: getEnvInt("CALENDAR_LOOKBACK_DAYS", 365),
		PeriodWalk:           getEnv("PERIOD_WALK", "single"),

		// Empty REDIS_ADDR disables the result cache.
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		CacheTTL:      time.Duration(getEnvInt("CACHE_TTL_SEC", 600)) * time.Second,
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		MaxParallel: getEnvInt("MAX_PARALLEL", 8),
	}
}

// ParseSources parses the Sources string into name -> database path.
// Later duplicates win.
func (c *Config) ParseSources() (map[string]string, error) {
	out := make(map[string]string)
	for _, part := range strings.Split(c.Sources, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, path, ok := strings.Cut(part, "=")
		name, path = strings.TrimSpace(name), strings.TrimSpace(path)
		if !ok || name == "" || path == "" {
			return nil, fmt.Errorf("config: bad SOURCES entry %q, want name=path", part)
		}
		out[name] = path
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("config: SOURCES is empty")
	}
	if _, ok := out[c.DefaultSource]; !ok {
		return nil, fmt.Errorf("config: DEFAULT_SOURCE %q not in SOURCES", c.DefaultSource)
	}
	return out, nil
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}
