package config_test

import (
	"testing"
	"time"

	"github.com/vity-loop/vity-loop/internal/config"
)

func TestDefault(t *testing.T) {
	c := config.Default()

	if c.TriggerThreshold != 3 {
		t.Errorf("got threshold %d, want 3", c.TriggerThreshold)
	}
	if c.PresentDelay != 1500*time.Millisecond {
		t.Errorf("got present delay %v, want 1.5s", c.PresentDelay)
	}
	if c.AutoCloseDelay != 1800*time.Millisecond {
		t.Errorf("got auto-close delay %v, want 1.8s", c.AutoCloseDelay)
	}
	if c.CooldownWindow != 7*24*time.Hour {
		t.Errorf("got cooldown %v, want 168h", c.CooldownWindow)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("VITY_DB_PATH", "/tmp/other.db")
	t.Setenv("VITY_THRESHOLD", "5")
	t.Setenv("VITY_COOLDOWN", "24h")
	t.Setenv("VITY_DEBUG", "true")

	c := config.FromEnv()

	if c.DBPath != "/tmp/other.db" {
		t.Errorf("got db path %q", c.DBPath)
	}
	if c.TriggerThreshold != 5 {
		t.Errorf("got threshold %d, want 5", c.TriggerThreshold)
	}
	if c.CooldownWindow != 24*time.Hour {
		t.Errorf("got cooldown %v, want 24h", c.CooldownWindow)
	}
	if !c.Debug {
		t.Error("debug flag not applied")
	}
	// Untouched values keep their defaults.
	if c.PresentDelay != config.Default().PresentDelay {
		t.Errorf("present delay changed without an override: %v", c.PresentDelay)
	}
}

func TestFromEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("VITY_THRESHOLD", "many")
	t.Setenv("VITY_COOLDOWN", "a week")
	t.Setenv("VITY_DEBUG", "yes please")

	c := config.FromEnv()
	d := config.Default()

	if c.TriggerThreshold != d.TriggerThreshold || c.CooldownWindow != d.CooldownWindow || c.Debug != d.Debug {
		t.Errorf("unparseable overrides did not fall back: %+v", c)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{"default", func(c *config.Config) {}, false},
		{"zero threshold", func(c *config.Config) { c.TriggerThreshold = 0 }, true},
		{"negative cooldown", func(c *config.Config) { c.CooldownWindow = -time.Hour }, true},
		{"zero cooldown", func(c *config.Config) { c.CooldownWindow = 0 }, false},
	}

	for _, tt := range tests {
		c := config.Default()
		tt.mutate(&c)
		err := c.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: got err %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}
