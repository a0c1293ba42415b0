package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func resetConfig(t *testing.T) {
	t.Helper()
	t.Cleanup(func() { SetConfig(nil) })
}

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	require.Equal(t, ":8080", cfg.Port)
	require.Equal(t, []string{"http://localhost:8080"}, cfg.AllowedOrigins)
	require.Equal(t, int64(4096), cfg.MaxMessageSize)
	require.Equal(t, 10, cfg.RateLimit.Burst)
	require.Equal(t, time.Second, cfg.RateLimit.RefillInterval)
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9191")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("MAX_MESSAGE_SIZE", "2048")
	t.Setenv("RATE_LIMIT_BURST", "25")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "3")

	cfg := NewConfigFromEnv()

	require.Equal(t, ":9191", cfg.Port)
	require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	require.Equal(t, int64(2048), cfg.MaxMessageSize)
	require.Equal(t, 25, cfg.RateLimit.Burst)
	require.Equal(t, 3*time.Second, cfg.RateLimit.RefillInterval)
}

func TestNewConfigFromEnvIgnoresInvalidValues(t *testing.T) {
	t.Setenv("MAX_MESSAGE_SIZE", "-5")
	t.Setenv("RATE_LIMIT_BURST", "0")

	cfg := NewConfigFromEnv()

	require.Equal(t, int64(4096), cfg.MaxMessageSize)
	require.Equal(t, 10, cfg.RateLimit.Burst)
}

func TestSetConfigSanitizesZeroValues(t *testing.T) {
	resetConfig(t)

	SetConfig(&Config{})
	cfg := currentConfig()

	require.Equal(t, ":8080", cfg.Port)
	require.Equal(t, int64(4096), cfg.MaxMessageSize)
	require.Equal(t, 10, cfg.RateLimit.Burst)
	require.Equal(t, time.Second, cfg.RateLimit.RefillInterval)
}

func TestSetConfigNilResetsToDefaults(t *testing.T) {
	resetConfig(t)

	SetConfig(&Config{Port: ":9999"})
	require.Equal(t, ":9999", currentConfig().Port)

	SetConfig(nil)
	require.Equal(t, ":8080", currentConfig().Port)
}

func TestCurrentConfigReturnsCopy(t *testing.T) {
	resetConfig(t)

	SetConfig(&Config{AllowedOrigins: []string{"http://one.example.com"}})

	cfg := currentConfig()
	cfg.AllowedOrigins[0] = "http://mutated.example.com"

	require.Equal(t, []string{"http://one.example.com"}, currentConfig().AllowedOrigins)
}
