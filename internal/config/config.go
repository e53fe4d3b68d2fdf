// Package config defines process configuration and its loading order.
package config

import "time"

// Config contains process configuration.
type Config struct {
	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// PGDSN enables the Postgres-backed stores when set; without it the
	// service runs on the in-memory ledger and a seeded roster.
	PGDSN string `koanf:"pg_dsn"`

	// TokenTTLMinutes is the default work-token horizon when the
	// organizer does not tie it to the event end.
	TokenTTLMinutes int `koanf:"token_ttl_minutes"`

	// RateBurst and RatePerSec bound the per-IP token bucket.
	RateBurst  int `koanf:"rate_burst"`
	RatePerSec int `koanf:"rate_per_sec"`

	// MaxBodyBytes caps request body size.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`
}

// New returns the defaults the other sources are layered over.
func New() *Config {
	return &Config{
		Addr:            ":8080",
		TokenTTLMinutes: 60,
		RateBurst:       20,
		RatePerSec:      10,
		MaxBodyBytes:    1 << 20,
	}
}

// TokenTTL returns the default token horizon as a duration.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}
