package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-edu-portal/internal/config"
	"github.com/stretchr/testify/require"
)

func TestEnvVars(t *testing.T) {
	c := config.New()

	t.Run("defaults", func(t *testing.T) {
		require.Equal(t, ":8080", c.GetPort())
		require.Equal(t, "DEV", c.GetEnv())
		require.Equal(t, config.ProviderLocal, c.GetProviderKind())
		require.True(t, c.GetRequireEmailConfirmation())
		require.Equal(t, time.Hour, c.GetAccessTokenExpiry())
	})

	t.Run("overrides from environment", func(t *testing.T) {
		t.Setenv("PORT", "9090")
		t.Setenv("BASE_URL", "https://learn.example.com/")
		t.Setenv("REQUIRE_EMAIL_CONFIRMATION", "false")
		t.Setenv("ACCESS_TOKEN_EXPIRY", "15m")
		t.Setenv("REDIS_DB", "3")

		require.Equal(t, ":9090", c.GetPort())
		require.Equal(t, "https://learn.example.com", c.GetBaseURL())
		require.Equal(t, "https://learn.example.com/auth/update-password", c.GetResetRedirectURL())
		require.False(t, c.GetRequireEmailConfirmation())
		require.Equal(t, 15*time.Minute, c.GetAccessTokenExpiry())
		require.Equal(t, 3, c.GetRedisDB())
	})

	t.Run("allowed origins list", func(t *testing.T) {
		t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
		origins := c.GetAllowedOrigins()
		require.True(t, origins.IsAllowedOrigin("https://a.example.com"))
		require.True(t, origins.IsAllowedOrigin("https://b.example.com"))
		require.False(t, origins.IsAllowedOrigin("https://c.example.com"))
		require.Equal(t, "https://a.example.com, https://b.example.com", origins.String())
	})

	t.Run("invalid duration falls back", func(t *testing.T) {
		t.Setenv("SESSION_MAX_AGE", "soon")
		require.Equal(t, 7*24*time.Hour, c.GetMaxSessionAge())
	})
}
