package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/taskflow/pkg/httpx"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"1d", 24 * time.Hour, true},
		{"7d", 7 * 24 * time.Hour, true},
		{"12h", 12 * time.Hour, true},
		{"90s", 90 * time.Second, true},
		{"30", 0, false},
		{"3600000", 0, false},
		{" 2d ", 48 * time.Hour, true},
		{"", 0, false},
		{"xd", 0, false},
		{"-1d", 0, false},
		{"soon", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseDuration(tt.in)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no .env here
	for _, k := range []string{
		"JWT_SECRET", "JWT_EXPIRATION", "STORE_DRIVER", "PORT", "ENV",
		"FRONTEND_URL", "CORS_ALLOWED_ORIGINS", "ADMIN_STRICT_CHECK", "REDIS_ADDR",
	} {
		t.Setenv(k, "")
	}

	cfg := LoadConfig()
	require.Equal(t, 24*time.Hour, cfg.JWTExpiration)
	require.Equal(t, "sqlite", cfg.StoreDriver)
	require.Equal(t, 5000, cfg.Port)
	require.Equal(t, "development", cfg.Env)
	require.False(t, cfg.IsProduction())
	require.False(t, cfg.AdminStrictCheck)
	require.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	require.Empty(t, cfg.RedisAddr)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("JWT_PREVIOUS_SECRETS", "old-one, ,old-two")
	t.Setenv("JWT_EXPIRATION", "7d")
	t.Setenv("STORE_DRIVER", "Mongo")
	t.Setenv("PORT", "8081")
	t.Setenv("ENV", "production")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("ADMIN_STRICT_CHECK", "true")

	cfg := LoadConfig()
	require.Equal(t, []string{"old-one", "old-two"}, cfg.JWTPreviousSecrets)
	require.Equal(t, 7*24*time.Hour, cfg.JWTExpiration)
	require.Equal(t, "mongo", cfg.StoreDriver)
	require.Equal(t, 8081, cfg.Port)
	require.True(t, cfg.IsProduction())
	require.True(t, cfg.AdminStrictCheck)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoadConfig_RateLimits(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Run("defaults", func(t *testing.T) {
		cfg := LoadConfig()
		require.Equal(t, httpx.StrictLimit, cfg.RateLimits.Strict)
		require.Equal(t, httpx.PublicLimit, cfg.RateLimits.Public)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("RATELIMIT_STRICT_REQUESTS", "200")
		t.Setenv("RATELIMIT_STRICT_WINDOW_SEC", "30")
		t.Setenv("RATELIMIT_STRICT_BURST", "250")

		cfg := LoadConfig()
		require.Equal(t, httpx.RateLimitConfig{RequestsPerWindow: 200, Window: 30 * time.Second, Burst: 250}, cfg.RateLimits.Strict)
		require.Equal(t, httpx.ModerateLimit, cfg.RateLimits.Moderate)
	})

	t.Run("invalid values keep defaults", func(t *testing.T) {
		t.Setenv("RATELIMIT_MODERATE_REQUESTS", "invalid")
		t.Setenv("RATELIMIT_MODERATE_WINDOW_SEC", "-10")
		t.Setenv("RATELIMIT_MODERATE_BURST", "0")

		cfg := LoadConfig()
		require.Equal(t, httpx.ModerateLimit, cfg.RateLimits.Moderate)
	})
}

func TestLoadConfig_BareIntegerExpirationUsesDefault(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_EXPIRATION", "3600")

	cfg := LoadConfig()
	require.Equal(t, 24*time.Hour, cfg.JWTExpiration)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, writeFile(dir, ".env", "PORT=6001\nFRONTEND_URL=https://app.example\n"))
	t.Setenv("PORT", "")
	t.Setenv("FRONTEND_URL", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg := LoadConfig()
	require.Equal(t, 6001, cfg.Port)
	require.Equal(t, "https://app.example", cfg.FrontendURL)
	require.Equal(t, []string{"https://app.example"}, cfg.AllowedOrigins)
}

func TestInitKeys(t *testing.T) {
	logger := discard()

	t.Run("configured secret", func(t *testing.T) {
		keys, err := InitKeys(Config{
			JWTSecret:          "0123456789abcdef0123456789abcdef",
			JWTPreviousSecrets: []string{"fedcba9876543210fedcba9876543210"},
		}, logger)
		require.NoError(t, err)
		require.True(t, keys.IsReady())
		require.Equal(t, 2, keys.Len())
	})

	t.Run("ephemeral outside production", func(t *testing.T) {
		keys, err := InitKeys(Config{Env: "development"}, logger)
		require.NoError(t, err)
		require.True(t, keys.IsReady())
	})

	t.Run("missing in production", func(t *testing.T) {
		_, err := InitKeys(Config{Env: "production"}, logger)
		require.ErrorIs(t, err, ErrMissingSecret)
	})

	t.Run("weak secret", func(t *testing.T) {
		_, err := InitKeys(Config{JWTSecret: "short"}, logger)
		require.Error(t, err)
	})
}
