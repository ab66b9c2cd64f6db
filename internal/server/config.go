// Package server provides configuration helpers that define runtime
// defaults, YAML file loading, environment overrides, and validation for the
// Agent Hub service.
package server

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// AuthConfig holds the settings for the bearer-token collaborator.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Port           string
	AllowedOrigins []string
	MaxMessageSize int64
	PingInterval   time.Duration
	RateLimit      RateLimitConfig
	Auth           AuthConfig
}

var (
	configMu        sync.RWMutex
	activeConfig    Config
	allowedOrigins  map[string]struct{}
	allowAllOrigins bool
)

func init() {
	SetConfig(nil)
}

func defaultConfig() Config {
	return Config{
		Port: ":8080",
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		MaxMessageSize: 4096,
		PingInterval:   30 * time.Second,
		RateLimit: RateLimitConfig{
			Burst:          5,
			RefillInterval: time.Second,
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
	}
}

func sanitizeConfig(cfg Config) Config {
	if cfg.Port == "" {
		cfg.Port = ":8080"
	}

	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 4096
	}

	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}

	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 5
	}

	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = time.Second
	}

	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
	}

	normalizedOrigins, allowAll := normalizeOrigins(cfg.AllowedOrigins)
	cfg.AllowedOrigins = normalizedOrigins

	configMu.Lock()
	defer configMu.Unlock()

	activeConfig = cfg
	allowAllOrigins = allowAll
	allowedOrigins = make(map[string]struct{}, len(normalizedOrigins))
	for _, origin := range normalizedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	return cfg
}

// SetConfig applies the provided configuration. Passing nil resets to defaults.
func SetConfig(cfg *Config) {
	if cfg == nil {
		defaultCfg := defaultConfig()
		sanitizeConfig(defaultCfg)
		return
	}

	sanitized := Config{
		Port:           cfg.Port,
		AllowedOrigins: append([]string(nil), cfg.AllowedOrigins...),
		MaxMessageSize: cfg.MaxMessageSize,
		PingInterval:   cfg.PingInterval,
		RateLimit: RateLimitConfig{
			Burst:          cfg.RateLimit.Burst,
			RefillInterval: cfg.RateLimit.RefillInterval,
		},
		Auth: AuthConfig{
			JWTSecret: cfg.Auth.JWTSecret,
			TokenTTL:  cfg.Auth.TokenTTL,
		},
	}
	sanitizeConfig(sanitized)
}

func currentConfig() Config {
	configMu.RLock()
	defer configMu.RUnlock()

	cfg := activeConfig
	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// fileConfig mirrors Config in the shape expected from a YAML file. Interval
// settings are expressed in seconds, matching the environment variables.
type fileConfig struct {
	Port                   string   `yaml:"port"`
	AllowedOrigins         []string `yaml:"allowedOrigins"`
	MaxMessageSize         int64    `yaml:"maxMessageSize"`
	PingIntervalSeconds    int      `yaml:"pingIntervalSeconds"`
	RateLimitBurst         int      `yaml:"rateLimitBurst"`
	RateLimitRefillSeconds int      `yaml:"rateLimitRefillSeconds"`
	JWTSecret              string   `yaml:"jwtSecret"`
	TokenTTLSeconds        int      `yaml:"tokenTTLSeconds"`
}

// LoadConfig builds a Config from defaults, an optional YAML file, and
// environment overrides, in increasing order of precedence. When path is
// empty the default candidate locations are tried; a missing or unreadable
// file falls back to the remaining layers.
func LoadConfig(path string) *Config {
	cfg := defaultConfig()

	candidates := make([]string, 0, 2)
	if path != "" {
		candidates = append(candidates, path)
	} else {
		candidates = append(candidates,
			"configs/config.yaml",
			"config.yaml",
		)
	}

	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate)
		if err != nil {
			continue
		}

		var parsed fileConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			slog.Warn("Ignoring malformed config file", "path", candidate, "error", err)
			continue
		}

		mergeFileConfig(&cfg, parsed)
		break
	}

	applyEnvOverrides(&cfg)
	return &cfg
}

func mergeFileConfig(dst *Config, src fileConfig) {
	if src.Port != "" {
		dst.Port = src.Port
	}
	if len(src.AllowedOrigins) > 0 {
		dst.AllowedOrigins = append([]string(nil), src.AllowedOrigins...)
	}
	if src.MaxMessageSize > 0 {
		dst.MaxMessageSize = src.MaxMessageSize
	}
	if src.PingIntervalSeconds > 0 {
		dst.PingInterval = time.Duration(src.PingIntervalSeconds) * time.Second
	}
	if src.RateLimitBurst > 0 {
		dst.RateLimit.Burst = src.RateLimitBurst
	}
	if src.RateLimitRefillSeconds > 0 {
		dst.RateLimit.RefillInterval = time.Duration(src.RateLimitRefillSeconds) * time.Second
	}
	if src.JWTSecret != "" {
		dst.Auth.JWTSecret = src.JWTSecret
	}
	if src.TokenTTLSeconds > 0 {
		dst.Auth.TokenTTL = time.Duration(src.TokenTTLSeconds) * time.Second
	}
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()
	applyEnvOverrides(&cfg)
	return &cfg
}

func applyEnvOverrides(cfg *Config) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}

	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseMaxMessageSize(maxSize, cfg.MaxMessageSize)
	}

	if interval := os.Getenv("PING_INTERVAL"); interval != "" {
		cfg.PingInterval = parseSecondsInterval(interval, cfg.PingInterval)
	}

	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseIntValue(burst, cfg.RateLimit.Burst)
	}

	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseSecondsInterval(interval, cfg.RateLimit.RefillInterval)
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}

	if ttl := os.Getenv("JWT_TTL"); ttl != "" {
		cfg.Auth.TokenTTL = parseSecondsInterval(ttl, cfg.Auth.TokenTTL)
	}
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseMaxMessageSize(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseSecondsInterval(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
