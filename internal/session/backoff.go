package session

import (
	"math"
	"math/rand/v2"
	"time"
)

// Strategy maps a zero-based retry attempt to the wait before that retry.
type Strategy interface {
	NextDelay(attempt int) time.Duration
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(attempt int) time.Duration

func (f StrategyFunc) NextDelay(attempt int) time.Duration { return f(attempt) }

// ExponentialBackoff computes min(Base*Multiplier^attempt, Max). With Jitter
// set, the delay is shortened by a random fraction up to Jitter, so it never
// exceeds Max.
type ExponentialBackoff struct {
	Base       time.Duration
	Multiplier float64
	Max        time.Duration
	Jitter     float64
	// Rand returns a value in [0,1). Defaults to math/rand/v2.
	Rand func() float64
}

// NewExponentialBackoff builds the strategy from cfg.
func NewExponentialBackoff(cfg ReconnectConfig) *ExponentialBackoff {
	return &ExponentialBackoff{
		Base:       cfg.BaseDelay,
		Multiplier: cfg.Multiplier,
		Max:        cfg.MaxDelay,
		Jitter:     cfg.Jitter,
	}
}

// NextDelay implements Strategy.
func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if b.Base <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}
	mult := b.Multiplier
	if mult < 1 {
		mult = 1
	}
	delay := float64(b.Base) * math.Pow(mult, float64(attempt))
	if b.Max > 0 && delay > float64(b.Max) {
		delay = float64(b.Max)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which no Duration can hold.
	if delay >= math.MaxInt64 {
		delay = math.MaxInt64
	}
	if b.Jitter > 0 {
		r := b.Rand
		if r == nil {
			r = rand.Float64
		}
		delay -= delay * b.Jitter * r()
	}
	if delay >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(delay)
}
