package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRegistry_CreateAndGet(t *testing.T) {
	reg := NewSessionRegistry(time.Hour)

	session := reg.Create()
	require.NotEmpty(t, session.ID)
	require.NotNil(t, session.Store)

	got := reg.Get(session.ID)
	require.NotNil(t, got)
	assert.Same(t, session.Store, got.Store)

	assert.Nil(t, reg.Get("no-such-session"))
}

func TestSessionRegistry_IdleExpiry(t *testing.T) {
	reg := NewSessionRegistry(10 * time.Minute)
	clock := baseTime
	reg.now = func() time.Time { return clock }

	session := reg.Create()
	require.Equal(t, 1, reg.Len())

	// A touch inside the TTL refreshes the idle timer.
	clock = clock.Add(8 * time.Minute)
	require.NotNil(t, reg.Get(session.ID))

	clock = clock.Add(8 * time.Minute)
	require.NotNil(t, reg.Get(session.ID), "refreshed session survives")

	clock = clock.Add(11 * time.Minute)
	assert.Nil(t, reg.Get(session.ID))
	assert.Equal(t, 0, reg.Len())
}

func TestSessionRegistry_ZeroTTLUsesDefault(t *testing.T) {
	reg := NewSessionRegistry(0)
	assert.Equal(t, DefaultSessionTTL, reg.ttl)
}
