// Package config provides viper-based configuration loading for the
// session client and the demo server.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/omochice/socket-session/internal/session"
)

// Config is the root configuration.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Client  ClientConfig  `mapstructure:"client"`
	Server  ServerConfig  `mapstructure:"server"`
	Session SessionConfig `mapstructure:"session"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: stdout, stderr, or file paths
	Outputs     []string       `mapstructure:"outputs"`
	Rotation    RotationConfig `mapstructure:"rotation"`
	Development bool           `mapstructure:"development"`
}

// RotationConfig controls rotation of file outputs.
type RotationConfig struct {
	Enable     bool `mapstructure:"enable"`
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
}

// ClientConfig configures cmd/client.
type ClientConfig struct {
	// URL is ws://, wss:// or tcp://host:port.
	URL         string        `mapstructure:"url"`
	Username    string        `mapstructure:"username"`
	Codec       string        `mapstructure:"codec"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	// Token is sent in the token header of every data message.
	Token string `mapstructure:"token"`
	// Debug logs message payloads.
	Debug       bool   `mapstructure:"debug"`
	HistoryFile string `mapstructure:"history_file"`
}

// ServerConfig configures cmd/server.
type ServerConfig struct {
	Address string `mapstructure:"address"`
	// Path is the WebSocket upgrade path.
	Path  string `mapstructure:"path"`
	Codec string `mapstructure:"codec"`
	// Echo also sends broadcasts back to their sender.
	Echo bool `mapstructure:"echo"`
	// Workers bounds concurrently served connections.
	Workers int `mapstructure:"workers"`
}

// SessionConfig mirrors session.Config with string policies.
type SessionConfig struct {
	Heartbeat    HeartbeatConfig `mapstructure:"heartbeat"`
	Reconnect    ReconnectConfig `mapstructure:"reconnect"`
	Buffer       BufferConfig    `mapstructure:"buffer"`
	WriteTimeout time.Duration   `mapstructure:"write_timeout"`
}

type HeartbeatConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type ReconnectConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	BaseDelay        time.Duration `mapstructure:"base_delay"`
	Multiplier       float64       `mapstructure:"multiplier"`
	MaxDelay         time.Duration `mapstructure:"max_delay"`
	Jitter           float64       `mapstructure:"jitter"`
	MaxAttempts      int           `mapstructure:"max_attempts"`
	ResetOn          string        `mapstructure:"reset_on"`
	ReconnectOnClose bool          `mapstructure:"reconnect_on_close"`
}

type BufferConfig struct {
	Capacity int    `mapstructure:"capacity"`
	Overflow string `mapstructure:"overflow"`
}

// Default returns a Config populated with defaults.
func Default() *Config {
	sc := session.DefaultConfig()
	return &Config{
		Log: LogConfig{
			Level:   "info",
			Format:  "console",
			Outputs: []string{"stderr"},
			Rotation: RotationConfig{
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
		Client: ClientConfig{
			URL:         "ws://localhost:8080/ws",
			Codec:       "proto",
			DialTimeout: 10 * time.Second,
		},
		Server: ServerConfig{
			Address: ":8080",
			Path:    "/ws",
			Codec:   "proto",
			Workers: 1024,
		},
		Session: SessionConfig{
			Heartbeat: HeartbeatConfig{
				Enabled:  sc.Heartbeat.Enabled,
				Interval: sc.Heartbeat.Interval,
				Timeout:  sc.Heartbeat.Timeout,
			},
			Reconnect: ReconnectConfig{
				Enabled:          sc.Reconnect.Enabled,
				BaseDelay:        sc.Reconnect.BaseDelay,
				Multiplier:       sc.Reconnect.Multiplier,
				MaxDelay:         sc.Reconnect.MaxDelay,
				Jitter:           sc.Reconnect.Jitter,
				MaxAttempts:      sc.Reconnect.MaxAttempts,
				ResetOn:          "open",
				ReconnectOnClose: sc.Reconnect.ReconnectOnClose,
			},
			Buffer: BufferConfig{
				Capacity: sc.Buffer.Capacity,
				Overflow: sc.Buffer.Overflow.String(),
			},
			WriteTimeout: sc.WriteTimeout,
		},
	}
}

// Load reads configuration from path, or from socksession.yaml in the
// working directory, ./configs or ~/.socksession when path is empty.
// Environment variables use the prefix SOCKSESSION with `.` replaced by
// `_`, for example SOCKSESSION_CLIENT_USERNAME=alice.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("SOCKSESSION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	if path == "" {
		path = os.Getenv("SOCKSESSION_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("socksession")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".socksession"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults seeds every key so env-only configs work.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)

	v.SetDefault("client.url", cfg.Client.URL)
	v.SetDefault("client.username", cfg.Client.Username)
	v.SetDefault("client.codec", cfg.Client.Codec)
	v.SetDefault("client.dial_timeout", cfg.Client.DialTimeout)
	v.SetDefault("client.token", cfg.Client.Token)
	v.SetDefault("client.debug", cfg.Client.Debug)
	v.SetDefault("client.history_file", cfg.Client.HistoryFile)

	v.SetDefault("server.address", cfg.Server.Address)
	v.SetDefault("server.path", cfg.Server.Path)
	v.SetDefault("server.codec", cfg.Server.Codec)
	v.SetDefault("server.echo", cfg.Server.Echo)
	v.SetDefault("server.workers", cfg.Server.Workers)

	s := cfg.Session
	v.SetDefault("session.heartbeat.enabled", s.Heartbeat.Enabled)
	v.SetDefault("session.heartbeat.interval", s.Heartbeat.Interval)
	v.SetDefault("session.heartbeat.timeout", s.Heartbeat.Timeout)
	v.SetDefault("session.reconnect.enabled", s.Reconnect.Enabled)
	v.SetDefault("session.reconnect.base_delay", s.Reconnect.BaseDelay)
	v.SetDefault("session.reconnect.multiplier", s.Reconnect.Multiplier)
	v.SetDefault("session.reconnect.max_delay", s.Reconnect.MaxDelay)
	v.SetDefault("session.reconnect.jitter", s.Reconnect.Jitter)
	v.SetDefault("session.reconnect.max_attempts", s.Reconnect.MaxAttempts)
	v.SetDefault("session.reconnect.reset_on", s.Reconnect.ResetOn)
	v.SetDefault("session.reconnect.reconnect_on_close", s.Reconnect.ReconnectOnClose)
	v.SetDefault("session.buffer.capacity", s.Buffer.Capacity)
	v.SetDefault("session.buffer.overflow", s.Buffer.Overflow)
	v.SetDefault("session.write_timeout", s.WriteTimeout)
}

func (c *Config) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stderr"}
	}

	if c.Client.URL != "" {
		u, err := url.Parse(c.Client.URL)
		if err != nil {
			return fmt.Errorf("invalid client.url: %w", err)
		}
		switch u.Scheme {
		case "ws", "wss", "tcp":
		default:
			return fmt.Errorf("invalid client.url scheme %q: want ws, wss or tcp", u.Scheme)
		}
	}
	if c.Server.Workers <= 0 {
		return fmt.Errorf("invalid server.workers: %d", c.Server.Workers)
	}
	if !strings.HasPrefix(c.Server.Path, "/") {
		return fmt.Errorf("invalid server.path: %q", c.Server.Path)
	}

	sc, err := c.SessionConfig()
	if err != nil {
		return err
	}
	if err := sc.Validate(); err != nil {
		return fmt.Errorf("invalid session config: %w", err)
	}
	return nil
}

// SessionConfig converts the session section to a session.Config.
func (c *Config) SessionConfig() (session.Config, error) {
	s := c.Session
	overflow, err := session.ParseOverflowPolicy(strings.ToLower(s.Buffer.Overflow))
	if err != nil {
		return session.Config{}, fmt.Errorf("invalid session.buffer.overflow: %w", err)
	}
	reset, err := session.ParseResetPolicy(strings.ToLower(s.Reconnect.ResetOn))
	if err != nil {
		return session.Config{}, fmt.Errorf("invalid session.reconnect.reset_on: %w", err)
	}
	return session.Config{
		Heartbeat: session.HeartbeatConfig{
			Enabled:  s.Heartbeat.Enabled,
			Interval: s.Heartbeat.Interval,
			Timeout:  s.Heartbeat.Timeout,
		},
		Reconnect: session.ReconnectConfig{
			Enabled:          s.Reconnect.Enabled,
			BaseDelay:        s.Reconnect.BaseDelay,
			Multiplier:       s.Reconnect.Multiplier,
			MaxDelay:         s.Reconnect.MaxDelay,
			Jitter:           s.Reconnect.Jitter,
			MaxAttempts:      s.Reconnect.MaxAttempts,
			Reset:            reset,
			ReconnectOnClose: s.Reconnect.ReconnectOnClose,
		},
		Buffer: session.BufferConfig{
			Capacity: s.Buffer.Capacity,
			Overflow: overflow,
		},
		WriteTimeout: s.WriteTimeout,
	}, nil
}
