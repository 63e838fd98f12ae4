// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Defaults applied when the corresponding variable is absent.
const (
	DefaultDelaySeconds = 2
	DefaultDatabasePath = "./data/bot.db"
	DefaultSessionFile  = "./telegram_session.json"
	DefaultListenAddr   = ":5000"
)

// Config holds the application configuration.
type Config struct {
	APIID           int
	APIHash         string
	Phone           string
	SourceChat      string
	DestinationChat string
	Keywords        []string
	ForwardMedia    bool
	DelaySeconds    int
	DatabasePath    string
	SessionFile     string
	ListenAddr      string
	LogLevel        string
}

// Load reads configuration from environment variables. Platform credentials
// and chat references may be absent: the process then starts idle and a run
// cannot be auto-started.
func Load() (*Config, error) {
	apiID := 0
	if raw := os.Getenv("TELEGRAM_API_ID"); raw != "" {
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_API_ID %q: %w", raw, err)
		}
		apiID = v
	}

	// Anything other than "true" (case-insensitive) disables media forwarding.
	forwardMedia := true
	if raw := os.Getenv("FORWARD_MEDIA"); raw != "" {
		forwardMedia = strings.EqualFold(strings.TrimSpace(raw), "true")
	}

	// Non-numeric and negative values silently fall back to the default.
	delay := DefaultDelaySeconds
	if raw := os.Getenv("DELAY_SECONDS"); raw != "" {
		if v, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && v >= 0 {
			delay = v
		}
	}

	return &Config{
		APIID:           apiID,
		APIHash:         os.Getenv("TELEGRAM_API_HASH"),
		Phone:           os.Getenv("TELEGRAM_PHONE"),
		SourceChat:      os.Getenv("SOURCE_CHAT"),
		DestinationChat: os.Getenv("DESTINATION_CHAT"),
		Keywords:        ParseKeywords(os.Getenv("KEYWORDS")),
		ForwardMedia:    forwardMedia,
		DelaySeconds:    delay,
		DatabasePath:    envOrDefault("DATABASE_PATH", DefaultDatabasePath),
		SessionFile:     envOrDefault("SESSION_FILE", DefaultSessionFile),
		ListenAddr:      envOrDefault("LISTEN_ADDR", DefaultListenAddr),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
	}, nil
}

// ParseKeywords splits a comma-separated keyword list, trimming whitespace
// and dropping empty entries. An empty result means no filtering.
func ParseKeywords(raw string) []string {
	if raw == "" {
		return nil
	}
	var keywords []string
	for _, k := range strings.Split(raw, ",") {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		keywords = append(keywords, k)
	}
	return keywords
}

// MissingForStart returns the names of required variables that are unset.
// A run can only start when it returns an empty slice.
func (c *Config) MissingForStart() []string {
	var missing []string
	if c.APIID == 0 {
		missing = append(missing, "TELEGRAM_API_ID")
	}
	if c.APIHash == "" {
		missing = append(missing, "TELEGRAM_API_HASH")
	}
	if c.Phone == "" {
		missing = append(missing, "TELEGRAM_PHONE")
	}
	if c.SourceChat == "" {
		missing = append(missing, "SOURCE_CHAT")
	}
	if c.DestinationChat == "" {
		missing = append(missing, "DESTINATION_CHAT")
	}
	return missing
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
