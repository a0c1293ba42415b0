package server

import (
	"log"
	"strings"
	"sync"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/samber/lo"
)

// RateLimitConfig defines the parameters for per-connection frame rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Port           string
	AllowedOrigins []string
	MaxMessageSize int64
	RateLimit      RateLimitConfig
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
		RateLimit: RateLimitConfig{
			Burst:          10,
			RefillInterval: time.Second,
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

	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 10
	}

	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = time.Second
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
		RateLimit: RateLimitConfig{
			Burst:          cfg.RateLimit.Burst,
			RefillInterval: cfg.RateLimit.RefillInterval,
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

// envSettings mirrors the environment variables the service reads. Refill is
// expressed in whole seconds.
type envSettings struct {
	Port           string `env:"SERVER_PORT"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS"`
	MaxMessageSize int64  `env:"MAX_MESSAGE_SIZE"`
	RateLimitBurst int    `env:"RATE_LIMIT_BURST"`
	RefillSeconds  int    `env:"RATE_LIMIT_REFILL_INTERVAL"`
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Unset or invalid variables fall back to default values.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	var settings envSettings
	if _, err := env.UnmarshalFromEnviron(&settings); err != nil {
		log.Printf("Ignoring malformed environment configuration: %v", err)
		return &cfg
	}

	if settings.Port != "" {
		cfg.Port = settings.Port
	}
	if settings.AllowedOrigins != "" {
		cfg.AllowedOrigins = parseOrigins(settings.AllowedOrigins)
	}
	if settings.MaxMessageSize > 0 {
		cfg.MaxMessageSize = settings.MaxMessageSize
	}
	if settings.RateLimitBurst > 0 {
		cfg.RateLimit.Burst = settings.RateLimitBurst
	}
	if settings.RefillSeconds > 0 {
		cfg.RateLimit.RefillInterval = time.Duration(settings.RefillSeconds) * time.Second
	}

	return &cfg
}

func parseOrigins(origins string) []string {
	return lo.Map(strings.Split(origins, ","), func(origin string, _ int) string {
		return strings.TrimSpace(origin)
	})
}
