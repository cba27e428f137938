package session_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omochice/socket-session/internal/session"
	"github.com/omochice/socket-session/pkg/protocol/codec"
)

func TestManager_CreatesOnce(t *testing.T) {
	calls := 0
	m := session.NewManager(func() (*session.Session, error) {
		calls++
		return session.New(&fakeTransport{}, codec.Proto(), quietConfig())
	})

	first, err := m.Session()
	require.NoError(t, err)
	second, err := m.Session()
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)

	require.NoError(t, m.Shutdown())
	assert.Equal(t, session.StateClosed, first.State())

	_, err = m.Session()
	assert.ErrorIs(t, err, session.ErrManagerShutdown)
	assert.NoError(t, m.Shutdown())
}

func TestManager_FactoryErrorNotCached(t *testing.T) {
	fail := true
	m := session.NewManager(func() (*session.Session, error) {
		if fail {
			return nil, errors.New("not yet")
		}
		return session.New(&fakeTransport{}, codec.Proto(), quietConfig())
	})
	defer m.Shutdown()

	_, err := m.Session()
	assert.Error(t, err)

	fail = false
	s, err := m.Session()
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestManager_ShutdownWithoutSession(t *testing.T) {
	m := session.NewManager(func() (*session.Session, error) {
		t.Fatal("factory must not run")
		return nil, nil
	})
	assert.NoError(t, m.Shutdown())
}
