package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/taskd/pkg/httpx"
	"github.com/aussiebroadwan/taskd/pkg/jwtx"
)

// MinSecretLength is the shortest accepted HS256 signing secret in bytes.
const MinSecretLength = 32

type Config struct {
	AccessSecret  string        // Required: JWT_ACCESS_SECRET
	RefreshSecret string        // Required: JWT_REFRESH_SECRET, must differ from the access secret
	Issuer        string        // JWT issuer claim (default: taskd)
	AccessTTL     time.Duration // default: 15m
	RefreshTTL    time.Duration // default: 7d

	DatabaseDriver string // sqlite or postgres (default: sqlite)
	DatabaseURL    string // DSN or file path (default: taskd.db)

	RedisURL           string        // default: redis://localhost:6379/0
	CachePrefix        string        // default: taskd
	QueryCacheTTL      time.Duration // default: 5m
	RevocationFailOpen bool          // allow requests when the blacklist is unreachable (default: false)

	CookieSecure bool   // Secure attribute on the refresh cookie (default: true)
	Pepper       string // PASSWORD_PEPPER; when empty PepperFile is used
	PepperFile   string // default: pepper

	Env                  string        // dev, staging, prod (default: dev)
	LogLevel             string        // debug, info, warn, error (default: info)
	LogFormat            string        // json, text (default: json)
	Port                 int           // default: 8080
	ShutdownGracePeriod  time.Duration // default: 10s
	HousekeepingInterval time.Duration // default: 1h

	AuthRateLimit     httpx.RateLimitConfig // RATELIMIT_AUTH_*
	APIRateLimit      httpx.RateLimitConfig // RATELIMIT_API_*
	TrustProxyHeaders bool                  // TRUST_PROXY_HEADERS, default: false
}

func LoadConfig() Config {
	return Config{
		AccessSecret:  os.Getenv("JWT_ACCESS_SECRET"),
		RefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),
		Issuer:        getEnvOrDefault("JWT_ISSUER", "taskd"),
		AccessTTL:     getEnvDurationOrDefault("ACCESS_TOKEN_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL:    getEnvDurationOrDefault("REFRESH_TOKEN_TTL", jwtx.DefaultRefreshTokenTTL),

		DatabaseDriver: strings.ToLower(getEnvOrDefault("DATABASE_DRIVER", "sqlite")),
		DatabaseURL:    getEnvOrDefault("DATABASE_URL", "taskd.db"),

		RedisURL:           getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		CachePrefix:        getEnvOrDefault("CACHE_PREFIX", "taskd"),
		QueryCacheTTL:      getEnvDurationOrDefault("QUERY_CACHE_TTL", 5*time.Minute),
		RevocationFailOpen: getEnvBoolOrDefault("REVOCATION_FAIL_OPEN", false),

		CookieSecure: getEnvBoolOrDefault("COOKIE_SECURE", true),
		Pepper:       os.Getenv("PASSWORD_PEPPER"),
		PepperFile:   getEnvOrDefault("PASSWORD_PEPPER_FILE", "pepper"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Hour),

		AuthRateLimit: httpx.RateLimitFromEnv("AUTH", httpx.AuthLimit),
		APIRateLimit:  httpx.RateLimitFromEnv("API", httpx.APILimit),

		TrustProxyHeaders: getEnvBoolOrDefault("TRUST_PROXY_HEADERS", false),
	}
}

// Validate reports every problem at once so a misconfigured deploy fails
// with the full list.
func (c Config) Validate() error {
	var errs []error
	if len(c.AccessSecret) < MinSecretLength {
		errs = append(errs, fmt.Errorf("JWT_ACCESS_SECRET must be at least %d bytes", MinSecretLength))
	}
	if len(c.RefreshSecret) < MinSecretLength {
		errs = append(errs, fmt.Errorf("JWT_REFRESH_SECRET must be at least %d bytes", MinSecretLength))
	}
	if c.AccessSecret != "" && c.AccessSecret == c.RefreshSecret {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ"))
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		errs = append(errs, errors.New("token TTLs must be positive"))
	} else if c.AccessTTL >= c.RefreshTTL {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be shorter than REFRESH_TOKEN_TTL"))
	}
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER %q: want sqlite or postgres", c.DatabaseDriver))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.RedisURL == "" {
		errs = append(errs, errors.New("REDIS_URL is required"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Accept Go durations ("15m", "168h") or bare seconds.
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
