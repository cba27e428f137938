package session

import "github.com/omochice/socket-session/pkg/protocol"

// Interceptor transforms messages on their way out and on their way in.
// Implementations return the message to pass on and may mutate copies of it
// or perform side effects such as logging.
type Interceptor interface {
	InterceptOutbound(msg protocol.Message) protocol.Message
	InterceptInbound(msg protocol.Message) protocol.Message
}

// InterceptorFuncs adapts a pair of functions to Interceptor. A nil function
// passes messages through unchanged.
type InterceptorFuncs struct {
	Outbound func(protocol.Message) protocol.Message
	Inbound  func(protocol.Message) protocol.Message
}

func (f InterceptorFuncs) InterceptOutbound(msg protocol.Message) protocol.Message {
	if f.Outbound == nil {
		return msg
	}
	return f.Outbound(msg)
}

func (f InterceptorFuncs) InterceptInbound(msg protocol.Message) protocol.Message {
	if f.Inbound == nil {
		return msg
	}
	return f.Inbound(msg)
}

// Chain is an ordered, immutable list of interceptors. Both directions run
// the interceptors in declared order: for a chain [A, B], outbound messages
// see A then B before encoding, and inbound messages see A then B after
// decoding.
type Chain struct {
	interceptors []Interceptor
}

// NewChain copies interceptors into a chain.
func NewChain(interceptors ...Interceptor) Chain {
	return Chain{interceptors: append([]Interceptor(nil), interceptors...)}
}

// Outbound runs every interceptor's outbound hook in order.
func (c Chain) Outbound(msg protocol.Message) protocol.Message {
	for _, i := range c.interceptors {
		msg = i.InterceptOutbound(msg)
	}
	return msg
}

// Inbound runs every interceptor's inbound hook in order.
func (c Chain) Inbound(msg protocol.Message) protocol.Message {
	for _, i := range c.interceptors {
		msg = i.InterceptInbound(msg)
	}
	return msg
}

// Len returns the number of interceptors.
func (c Chain) Len() int { return len(c.interceptors) }
