// Package session implements a resilient client session over one logical
// connection.
//
// A Session owns at most one transport connection at a time. While the
// connection is down, sends are queued in a bounded FIFO buffer and replayed
// in order once a new connection opens. A heartbeat detects silent peers and
// an exponential backoff drives automatic reconnection.
//
// Every state transition, timer and transport callback runs on a single
// goroutine per Session. Public methods only post work to that goroutine and
// never block on network I/O, with the exception of Close, which waits for
// the goroutine to exit.
//
// Outbound messages pass through the interceptor chain and the codec when
// they are written, not when they are queued. Inbound frames are decoded
// and then pass through the same chain in the same declared order.
package session
