package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string

	ServiceName string
	KeyPurpose  string

	// ClockSkewSeconds widens the key validity window during verification.
	// Zero means exact boundaries.
	ClockSkewSeconds int

	AdminAPIKey string

	SigningPrivateKeyPEM     string
	SigningPrivateKeySeedHex string

	VerifyCacheTTLSeconds int

	PolicyBundlePath string
	PolicyBundleID   string

	RateLimitRequests      int
	RateLimitWindowSeconds int
	RateLimitFailClosed    bool
	RateLimitMaxKeys       int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:                 addr,
		PostgresDSN:              os.Getenv("POSTGRES_DSN"),
		LogLevel:                 envDefault("LOG_LEVEL", "info"),
		ServiceName:              envDefault("SERVICE_NAME", "docseal"),
		KeyPurpose:               envDefault("KEY_PURPOSE", "attestation"),
		ClockSkewSeconds:         envIntDefault("CLOCK_SKEW_SECONDS", 0),
		AdminAPIKey:              os.Getenv("ADMIN_API_KEY"),
		SigningPrivateKeyPEM:     os.Getenv("SIGNING_PRIVATE_KEY_PEM"),
		SigningPrivateKeySeedHex: os.Getenv("SIGNING_PRIVATE_KEY_SEED_HEX"),
		VerifyCacheTTLSeconds:    envIntDefault("VERIFY_CACHE_TTL_SECONDS", 0),
		PolicyBundlePath:         os.Getenv("POLICY_BUNDLE_PATH"),
		PolicyBundleID:           os.Getenv("POLICY_BUNDLE_ID"),
		RateLimitRequests:        envIntDefault("RATE_LIMIT_REQUESTS", 0),
		RateLimitWindowSeconds:   envIntDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitFailClosed:      envBoolDefault("RATE_LIMIT_FAIL_CLOSED", false),
		RateLimitMaxKeys:         envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		RedisAddr:                os.Getenv("REDIS_ADDR"),
		RedisPassword:            os.Getenv("REDIS_PASSWORD"),
		RedisDB:                  envIntDefault("REDIS_DB", 0),
	}
}

func (c Config) ClockSkew() time.Duration {
	if c.ClockSkewSeconds <= 0 {
		return 0
	}
	return time.Duration(c.ClockSkewSeconds) * time.Second
}

func (c Config) VerifyCacheTTL() time.Duration {
	if c.VerifyCacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.VerifyCacheTTLSeconds) * time.Second
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}
