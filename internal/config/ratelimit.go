package config

import (
	"os"
	"strconv"
	"time"
)

// RateLimitConfig drives the Redis token bucket middleware. The defaults
// match the invite redemption budget: five attempts per caller per
// sixty seconds, keyed by client IP and route.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// LoadRedeemRateLimit reads the environment to build the limiter config
// for POST /v1/demo/redeem.
func LoadRedeemRateLimit() RateLimitConfig {
	def := RateLimitConfig{
		Enabled:        envBool("REDEEM_RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("REDEEM_RATE_LIMIT_CAPACITY", 5),
		RefillTokens:   envInt("REDEEM_RATE_LIMIT_REFILL_TOKENS", 5),
		RefillInterval: envDur("REDEEM_RATE_LIMIT_REFILL_INTERVAL", time.Minute),
		TTL:            envDur("REDEEM_RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    envStr("REDEEM_RATE_LIMIT_KEY_STRATEGY", "ip_route"),
		Prefix:         envStr("REDEEM_RATE_LIMIT_PREFIX", "rl:redeem"),
		Debug:          envBool("REDEEM_RATE_LIMIT_DEBUG", false),
	}
	if def.Capacity < 1 {
		def.Capacity = 1
	}
	if def.RefillTokens < 1 {
		def.RefillTokens = 1
	}
	if def.RefillInterval <= 0 {
		def.RefillInterval = time.Second
	}
	minTTL := 5 * def.RefillInterval
	if def.TTL < minTTL {
		def.TTL = minTTL
	}
	return def
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
