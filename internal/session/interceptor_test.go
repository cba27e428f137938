package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/omochice/socket-session/internal/session"
	"github.com/omochice/socket-session/pkg/protocol"
)

func TestChain_SameOrderBothDirections(t *testing.T) {
	var order []string
	record := func(name string) session.Interceptor {
		return session.InterceptorFuncs{
			Outbound: func(m protocol.Message) protocol.Message {
				order = append(order, "out:"+name)
				return m
			},
			Inbound: func(m protocol.Message) protocol.Message {
				order = append(order, "in:"+name)
				return m
			},
		}
	}
	chain := session.NewChain(record("first"), record("second"), record("third"))

	chain.Outbound(protocol.Message{})
	chain.Inbound(protocol.Message{})

	assert.Equal(t, []string{
		"out:first", "out:second", "out:third",
		"in:first", "in:second", "in:third",
	}, order)
	assert.Equal(t, 3, chain.Len())
}

func TestInterceptorFuncs_NilPassesThrough(t *testing.T) {
	msg := protocol.NewData("x", []byte("y"))
	var i session.Interceptor = session.InterceptorFuncs{}
	assert.Equal(t, msg, i.InterceptOutbound(msg))
	assert.Equal(t, msg, i.InterceptInbound(msg))
}
