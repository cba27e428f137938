package session

import (
	"errors"
	"fmt"
	"time"
)

// OverflowPolicy decides what Enqueue does when the buffer is full.
type OverflowPolicy int

const (
	// DropOldest evicts the head of the buffer and appends the new message.
	DropOldest OverflowPolicy = iota
	// DropNewest evicts the most recently buffered message and appends the
	// new one.
	DropNewest
	// Reject refuses the new message and keeps the buffer unchanged.
	Reject
)

func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "drop-oldest"
	case DropNewest:
		return "drop-newest"
	case Reject:
		return "reject"
	default:
		return fmt.Sprintf("overflow(%d)", int(p))
	}
}

// ParseOverflowPolicy parses the String form of a policy.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch s {
	case "drop-oldest", "":
		return DropOldest, nil
	case "drop-newest":
		return DropNewest, nil
	case "reject":
		return Reject, nil
	default:
		return 0, fmt.Errorf("unknown overflow policy %q", s)
	}
}

// ResetPolicy decides when the reconnection attempt counter returns to zero.
type ResetPolicy int

const (
	// ResetOnOpen resets the counter as soon as a connection opens.
	ResetOnOpen ResetPolicy = iota
	// ResetOnTraffic resets the counter on the first inbound frame of a
	// connection, so a server that accepts and immediately drops
	// connections still exhausts the retry budget.
	ResetOnTraffic
)

// ParseResetPolicy parses "open" or "traffic".
func ParseResetPolicy(s string) (ResetPolicy, error) {
	switch s {
	case "open", "":
		return ResetOnOpen, nil
	case "traffic":
		return ResetOnTraffic, nil
	default:
		return 0, fmt.Errorf("unknown reset policy %q", s)
	}
}

// HeartbeatConfig configures liveness probing.
type HeartbeatConfig struct {
	Enabled bool
	// Interval between pings.
	Interval time.Duration
	// Timeout after a ping within which some inbound traffic must arrive.
	Timeout time.Duration
}

// ReconnectConfig configures automatic reconnection.
type ReconnectConfig struct {
	Enabled    bool
	BaseDelay  time.Duration
	Multiplier float64
	MaxDelay   time.Duration
	// Jitter is the fraction in [0,1) by which a delay may be shortened.
	Jitter float64
	// MaxAttempts is the number of retries before giving up. Zero or less
	// retries forever.
	MaxAttempts int
	Reset       ResetPolicy
	// ReconnectOnClose also reconnects after the server closes the
	// connection with a code that is not retryable.
	ReconnectOnClose bool
}

// BufferConfig configures the outbound buffer.
type BufferConfig struct {
	Capacity int
	Overflow OverflowPolicy
}

// Config is the immutable configuration of a Session.
type Config struct {
	Heartbeat HeartbeatConfig
	Reconnect ReconnectConfig
	Buffer    BufferConfig
	// WriteTimeout bounds every transport write.
	WriteTimeout time.Duration
}

// DefaultConfig returns the defaults used when no configuration is given.
func DefaultConfig() Config {
	return Config{
		Heartbeat: HeartbeatConfig{
			Enabled:  true,
			Interval: 30 * time.Second,
			Timeout:  10 * time.Second,
		},
		Reconnect: ReconnectConfig{
			Enabled:          true,
			BaseDelay:        time.Second,
			Multiplier:       2.0,
			MaxDelay:         60 * time.Second,
			Jitter:           0.1,
			MaxAttempts:      10,
			Reset:            ResetOnOpen,
			ReconnectOnClose: true,
		},
		Buffer: BufferConfig{
			Capacity: 100,
			Overflow: DropOldest,
		},
		WriteTimeout: 30 * time.Second,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.Heartbeat.Enabled {
		if c.Heartbeat.Interval <= 0 {
			return errors.New("heartbeat interval must be positive")
		}
		if c.Heartbeat.Timeout <= 0 {
			return errors.New("heartbeat timeout must be positive")
		}
	}
	if c.Reconnect.Enabled {
		if c.Reconnect.BaseDelay < 0 {
			return errors.New("reconnect base delay must not be negative")
		}
		if c.Reconnect.Multiplier < 1 {
			return errors.New("reconnect multiplier must be at least 1")
		}
		if c.Reconnect.MaxDelay < c.Reconnect.BaseDelay {
			return errors.New("reconnect max delay must not be below base delay")
		}
		if c.Reconnect.Jitter < 0 || c.Reconnect.Jitter >= 1 {
			return errors.New("reconnect jitter must be in [0,1)")
		}
	}
	if c.Buffer.Capacity <= 0 {
		return errors.New("buffer capacity must be positive")
	}
	if c.Buffer.Overflow < DropOldest || c.Buffer.Overflow > Reject {
		return fmt.Errorf("unknown overflow policy %d", c.Buffer.Overflow)
	}
	if c.WriteTimeout <= 0 {
		return errors.New("write timeout must be positive")
	}
	return nil
}
