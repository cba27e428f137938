package session_test

import (
	"testing"
	"time"

	"github.com/omochice/socket-session/internal/session"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*session.Config)
		wantErr bool
	}{
		{"defaults", func(*session.Config) {}, false},
		{"zero heartbeat interval", func(c *session.Config) { c.Heartbeat.Interval = 0 }, true},
		{"heartbeat disabled ignores interval", func(c *session.Config) {
			c.Heartbeat.Enabled = false
			c.Heartbeat.Interval = 0
		}, false},
		{"multiplier below one", func(c *session.Config) { c.Reconnect.Multiplier = 0.5 }, true},
		{"cap below base", func(c *session.Config) { c.Reconnect.MaxDelay = time.Millisecond }, true},
		{"jitter of one", func(c *session.Config) { c.Reconnect.Jitter = 1 }, true},
		{"zero capacity", func(c *session.Config) { c.Buffer.Capacity = 0 }, true},
		{"unknown overflow policy", func(c *session.Config) { c.Buffer.Overflow = 9 }, true},
		{"zero write timeout", func(c *session.Config) { c.WriteTimeout = 0 }, true},
		{"unlimited attempts", func(c *session.Config) { c.Reconnect.MaxAttempts = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := session.DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParsePolicies(t *testing.T) {
	for in, want := range map[string]session.OverflowPolicy{
		"":            session.DropOldest,
		"drop-oldest": session.DropOldest,
		"drop-newest": session.DropNewest,
		"reject":      session.Reject,
	} {
		got, err := session.ParseOverflowPolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseOverflowPolicy(%q) = %v, %v", in, got, err)
		}
		if in != "" && got.String() != in {
			t.Errorf("String() = %q, want %q", got.String(), in)
		}
	}
	if _, err := session.ParseOverflowPolicy("grow"); err == nil {
		t.Error("ParseOverflowPolicy(grow) succeeded")
	}

	if p, err := session.ParseResetPolicy("traffic"); err != nil || p != session.ResetOnTraffic {
		t.Errorf("ParseResetPolicy(traffic) = %v, %v", p, err)
	}
	if _, err := session.ParseResetPolicy("never"); err == nil {
		t.Error("ParseResetPolicy(never) succeeded")
	}
}
