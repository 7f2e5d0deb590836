package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	httpapi "github.com/aussiebroadwan/taskflow/internal/taskflow/http"
	"github.com/aussiebroadwan/taskflow/pkg/httpx"
)

type Config struct {
	JWTSecret          string        // Required in production: HMAC secret for session tokens (>=32 bytes)
	JWTPreviousSecrets []string      // Optional: retired secrets still accepted for verification
	JWTExpiration      time.Duration // Session token lifetime (default: 1d)
	JWTIssuer          string        // Issuer claim (default: taskflow)

	StoreDriver   string // sqlite or mongo (default: sqlite)
	DatabaseFile  string // SQLite database file (default: taskflow.db)
	MongoURI      string // Mongo connection string (default: mongodb://localhost:27017)
	MongoDatabase string // Mongo database name (default: taskflow)

	PepperFile     string // Password pepper file, created on first start (default: pepper)
	BootstrapToken string // Optional outside production: token required to bootstrap

	FrontendURL    string   // Prefix for password reset links (default: http://localhost:3000)
	AllowedOrigins []string // CORS and websocket origins (default: FrontendURL)

	SMTPHost     string // Optional: enables SMTP delivery of reset links
	SMTPPort     int    // default: 587
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	RedisAddr     string // Optional: enables the cross-instance event relay
	RedisPassword string
	RedisChannel  string

	AdminStrictCheck bool // Re-read the caller's role on every admin request

	RateLimits httpapi.Limits // RATELIMIT_{STRICT,MODERATE,LENIENT,PUBLIC}_{REQUESTS,WINDOW_SEC,BURST}

	Env                  string        // development, test, production (default: development)
	LogLevel             string        // debug, info, warn, error (default: info)
	LogFormat            string        // json, text (default: json)
	Port                 int           // HTTP server port (default: 5000)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired reset token sweep (default: 1h)
}

// IsProduction reports whether production safeguards apply: reset tokens are
// never echoed, bootstrap needs a token and a JWT secret must be configured.
func (c Config) IsProduction() bool {
	switch strings.ToLower(c.Env) {
	case "production", "prod":
		return true
	}
	return false
}

// LoadConfig reads the environment, loading a .env file first when one exists.
// Variables already set in the environment win over the file.
func LoadConfig() Config {
	_ = godotenv.Load()

	cfg := Config{
		JWTSecret:          os.Getenv("JWT_SECRET"),
		JWTPreviousSecrets: getEnvList("JWT_PREVIOUS_SECRETS"),
		JWTExpiration:      getEnvDurationOrDefault("JWT_EXPIRATION", 24*time.Hour),
		JWTIssuer:          getEnvOrDefault("JWT_ISSUER", "taskflow"),

		StoreDriver:   strings.ToLower(getEnvOrDefault("STORE_DRIVER", "sqlite")),
		DatabaseFile:  getEnvOrDefault("DATABASE_FILE", "taskflow.db"),
		MongoURI:      getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnvOrDefault("MONGO_DATABASE", "taskflow"),

		PepperFile:     getEnvOrDefault("PEPPER_FILE", "pepper"),
		BootstrapToken: os.Getenv("BOOTSTRAP_TOKEN"),

		FrontendURL: getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvIntOrDefault("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     getEnvOrDefault("SMTP_FROM", "TaskFlow <no-reply@taskflow.local>"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisChannel:  os.Getenv("REDIS_CHANNEL"),

		AdminStrictCheck: getEnvBoolOrDefault("ADMIN_STRICT_CHECK", false),

		RateLimits: httpapi.Limits{
			Strict:   getEnvRateLimit("STRICT", httpx.StrictLimit),
			Moderate: getEnvRateLimit("MODERATE", httpx.ModerateLimit),
			Lenient:  getEnvRateLimit("LENIENT", httpx.LenientLimit),
			Public:   getEnvRateLimit("PUBLIC", httpx.PublicLimit),
		},

		Env:                  getEnvOrDefault("ENV", "development"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 5000),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	cfg.AllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS")
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{cfg.FrontendURL}
	}

	return cfg
}

// ReloadConfig is LoadConfig for a running process: values in .env replace
// the ones loaded at start, since the process environment cannot change
// from outside.
func ReloadConfig() Config {
	_ = godotenv.Overload()
	return LoadConfig()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvRateLimit overrides def from RATELIMIT_{prefix}_REQUESTS,
// _WINDOW_SEC and _BURST. Non-positive or malformed values are ignored.
func getEnvRateLimit(prefix string, def httpx.RateLimitConfig) httpx.RateLimitConfig {
	cfg := def
	if n := getEnvIntOrDefault("RATELIMIT_"+prefix+"_REQUESTS", 0); n > 0 {
		cfg.RequestsPerWindow = n
	}
	if n := getEnvIntOrDefault("RATELIMIT_"+prefix+"_WINDOW_SEC", 0); n > 0 {
		cfg.Window = time.Duration(n) * time.Second
	}
	if n := getEnvIntOrDefault("RATELIMIT_"+prefix+"_BURST", 0); n > 0 {
		cfg.Burst = n
	}
	return cfg
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if d, ok := parseDuration(os.Getenv(key)); ok {
		return d
	}
	return defaultValue
}

// parseDuration accepts Go durations ("90s", "12h") and whole days ("7d").
// A bare integer has no agreed unit and is rejected, so the default applies.
func parseDuration(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if d, err := time.ParseDuration(value); err == nil {
		return d, true
	}

	if days, ok := strings.CutSuffix(value, "d"); ok {
		if n, err := strconv.Atoi(days); err == nil && n >= 0 {
			return time.Duration(n) * 24 * time.Hour, true
		}
		return 0, false
	}

	return 0, false
}
