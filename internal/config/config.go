// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	Username   string
	Password   string
	ListenAddr string
	DBPath     string
	// MFAWait bounds how long a login attempt waits for the out-of-band
	// verification code before the attempt is abandoned.
	MFAWait time.Duration
}

// Load reads configuration from environment variables and returns a validated
// Config. CAMPUSFEED_USERNAME and CAMPUSFEED_PASSWORD are required; the feed
// cannot reach any provider without a campus identity. Optional variables
// with defaults: CAMPUSFEED_LISTEN_ADDR (127.0.0.1:8000), CAMPUSFEED_DB_PATH
// (campusfeed.db), CAMPUSFEED_MFA_WAIT (5m).
func Load() (*Config, error) {
	username := os.Getenv("CAMPUSFEED_USERNAME")
	if username == "" {
		return nil, fmt.Errorf("CAMPUSFEED_USERNAME is required")
	}

	password := os.Getenv("CAMPUSFEED_PASSWORD")
	if password == "" {
		return nil, fmt.Errorf("CAMPUSFEED_PASSWORD is required")
	}

	listenAddr := "127.0.0.1:8000"
	if v, ok := os.LookupEnv("CAMPUSFEED_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "campusfeed.db"
	if v, ok := os.LookupEnv("CAMPUSFEED_DB_PATH"); ok {
		dbPath = v
	}

	mfaWait := 5 * time.Minute
	if v, ok := os.LookupEnv("CAMPUSFEED_MFA_WAIT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("CAMPUSFEED_MFA_WAIT has invalid duration %q: %w", v, err)
		}
		mfaWait = parsed
	}

	return &Config{
		Username:   username,
		Password:   password,
		ListenAddr: listenAddr,
		DBPath:     dbPath,
		MFAWait:    mfaWait,
	}, nil
}
