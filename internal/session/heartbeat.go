package session

// heartbeat pings the peer while a connection is up. Every method runs on
// the session goroutine.
type heartbeat struct {
	cfg    HeartbeatConfig
	after  scheduler
	ping   func()
	expire func()

	stopTick     func()
	stopDeadline func()
}

func newHeartbeat(cfg HeartbeatConfig, after scheduler, ping, expire func()) *heartbeat {
	return &heartbeat{cfg: cfg, after: after, ping: ping, expire: expire}
}

func (h *heartbeat) start() {
	if !h.cfg.Enabled {
		return
	}
	h.stop()
	h.stopTick = h.after(h.cfg.Interval, h.tick)
}

func (h *heartbeat) tick() {
	h.stopTick = h.after(h.cfg.Interval, h.tick)
	if h.stopDeadline == nil {
		h.stopDeadline = h.after(h.cfg.Timeout, h.timeout)
	}
	// ping may fail the connection and call stop.
	h.ping()
}

func (h *heartbeat) timeout() {
	h.stopDeadline = nil
	h.expire()
}

// traffic clears a pending deadline.
func (h *heartbeat) traffic() {
	if h.stopDeadline != nil {
		h.stopDeadline()
		h.stopDeadline = nil
	}
}

func (h *heartbeat) stop() {
	if h.stopTick != nil {
		h.stopTick()
		h.stopTick = nil
	}
	h.traffic()
}
