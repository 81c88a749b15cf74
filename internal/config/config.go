package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Config holds the static configuration surface for the referral engine.
// Values come from defaults, then VITY_* environment variables, then flags.
type Config struct {
	DBPath           string        // path to the sqlite database
	Platform         string        // platform identifier stamped on analytics events
	TriggerThreshold int           // messages before the prompt is scheduled
	PresentDelay     time.Duration // pause between threshold and presentation
	AutoCloseDelay   time.Duration // post-conversion display time before auto-close
	CooldownWindow   time.Duration // suppression window after a dismissal
	ReferralBase     string        // referral URL prefix, user id is appended
	VariantsFile     string        // optional YAML file overriding variant content
	Debug            bool          // verbose logging
}

func Default() Config {
	return Config{
		DBPath:           "./vity-loop.db",
		Platform:         "chatgpt.com",
		TriggerThreshold: 3,
		PresentDelay:     1500 * time.Millisecond,
		AutoCloseDelay:   1800 * time.Millisecond,
		CooldownWindow:   7 * 24 * time.Hour,
		ReferralBase:     "https://app.maximem.ai/signup?ref=",
	}
}

// FromEnv returns the default config with VITY_* environment overrides applied.
func FromEnv() Config {
	c := Default()
	c.DBPath = envOrDefault("VITY_DB_PATH", c.DBPath)
	c.Platform = envOrDefault("VITY_PLATFORM", c.Platform)
	c.TriggerThreshold = envInt("VITY_THRESHOLD", c.TriggerThreshold)
	c.PresentDelay = envDuration("VITY_PRESENT_DELAY", c.PresentDelay)
	c.AutoCloseDelay = envDuration("VITY_AUTOCLOSE_DELAY", c.AutoCloseDelay)
	c.CooldownWindow = envDuration("VITY_COOLDOWN", c.CooldownWindow)
	c.ReferralBase = envOrDefault("VITY_REF_BASE", c.ReferralBase)
	c.VariantsFile = envOrDefault("VITY_VARIANTS_FILE", c.VariantsFile)
	c.Debug = envBool("VITY_DEBUG", c.Debug)
	return c
}

func (c Config) Validate() error {
	if c.TriggerThreshold < 1 {
		return fmt.Errorf("trigger threshold must be at least 1, got %d", c.TriggerThreshold)
	}
	if c.CooldownWindow < 0 {
		return fmt.Errorf("cooldown window must not be negative")
	}
	return nil
}

// Logger builds the process logger. Debug mode gets a console writer at
// debug level; otherwise logging is off entirely, matching the original
// debug-flag behavior.
func (c Config) Logger() zerolog.Logger {
	if !c.Debug {
		return zerolog.Nop()
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return zerolog.New(w).Level(zerolog.DebugLevel).With().Timestamp().Logger()
}

func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func envDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func envBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
