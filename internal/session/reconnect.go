package session

import "time"

// reconnector tracks retry attempts and the single pending retry timer.
// Every method runs on the session goroutine.
type reconnector struct {
	cfg      ReconnectConfig
	strategy Strategy
	after    scheduler

	attempts  int
	stopRetry func()
}

func newReconnector(cfg ReconnectConfig, strategy Strategy, after scheduler) *reconnector {
	return &reconnector{cfg: cfg, strategy: strategy, after: after}
}

// schedule arms one retry. It returns the attempt number and delay, or
// ok=false once MaxAttempts retries have already been spent.
func (r *reconnector) schedule(retry func()) (attempt int, delay time.Duration, ok bool) {
	if r.cfg.MaxAttempts > 0 && r.attempts >= r.cfg.MaxAttempts {
		return r.attempts, 0, false
	}
	attempt = r.attempts
	delay = r.strategy.NextDelay(attempt)
	r.attempts++
	r.cancel()
	r.stopRetry = r.after(delay, func() {
		r.stopRetry = nil
		retry()
	})
	return attempt, delay, true
}

// cancel drops the pending retry, if any.
func (r *reconnector) cancel() {
	if r.stopRetry != nil {
		r.stopRetry()
		r.stopRetry = nil
	}
}

func (r *reconnector) reset() {
	r.attempts = 0
}
