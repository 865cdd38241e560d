package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/prepdesk/server/internal/auth"
)

func idleSessionFactory() SessionFactory {
	log := zap.NewNop()
	return func() *auth.SessionManager {
		return auth.NewSessionManager(nil, nil, nil, nil, log)
	}
}

func TestSessionMap_evictsIdleEntries(t *testing.T) {
	h := NewAuthHandler(idleSessionFactory(), zap.NewNop())

	current := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return current }

	h.session("+919876543210")
	_, ok := h.lookupSession("+919876543210")
	require.True(t, ok)

	current = current.Add(sessionTTL + time.Minute)
	h.session("+919812345678")

	_, ok = h.lookupSession("+919876543210")
	assert.False(t, ok, "idle session must be evicted")
	_, ok = h.lookupSession("+919812345678")
	assert.True(t, ok)
}

func TestSessionMap_accessRefreshesIdleTimer(t *testing.T) {
	h := NewAuthHandler(idleSessionFactory(), zap.NewNop())

	current := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return current }

	h.session("+919876543210")

	current = current.Add(sessionTTL / 2)
	_, ok := h.lookupSession("+919876543210")
	require.True(t, ok)

	current = current.Add(sessionTTL/2 + time.Minute)
	h.session("+910000000000")

	_, ok = h.lookupSession("+919876543210")
	assert.True(t, ok, "a recently used session must survive pruning")
}

func TestSessionMap_sameEntryReturnedWhileLive(t *testing.T) {
	h := NewAuthHandler(idleSessionFactory(), zap.NewNop())

	first := h.session("+919876543210")
	second := h.session("+919876543210")
	assert.Same(t, first, second)

	h.dropSession("+919876543210")
	third := h.session("+919876543210")
	assert.NotSame(t, first, third, "dropped session must be rebuilt")
}
