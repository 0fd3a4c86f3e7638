// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/morganforge/pixelfeed/internal/config"
	"github.com/morganforge/pixelfeed/internal/store"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	kv, err := store.Open(filepath.Join(t.TempDir(), "session.db"), store.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	cfg := config.Default().Session
	return NewStore(kv, cfg, nil), clock
}

func alice() Identity {
	return Identity{ID: 7, Username: "alice", Name: "Alice Adams", Email: "alice@example.com"}
}

func TestSaveAndGetIdentity(t *testing.T) {
	s, _ := newTestStore(t)

	require.False(t, s.IsAuthenticated())

	require.NoError(t, s.SaveIdentity(alice(), false))
	require.True(t, s.IsAuthenticated())

	got, ok := s.GetIdentity()
	require.True(t, ok)
	require.Equal(t, alice(), got)

	username, ok := s.CurrentUsername()
	require.True(t, ok)
	require.Equal(t, "alice", username)
}

func TestRememberWindow(t *testing.T) {
	s, clock := newTestStore(t)

	require.NoError(t, s.SaveIdentity(alice(), true))

	clock.Advance(29 * 24 * time.Hour)
	require.True(t, s.IsAuthenticated())

	clock.Advance(2 * 24 * time.Hour)
	require.False(t, s.IsAuthenticated())
}

func TestNoRememberNeverExpires(t *testing.T) {
	s, clock := newTestStore(t)

	require.NoError(t, s.SaveIdentity(alice(), false))
	clock.Advance(90 * 24 * time.Hour)
	require.True(t, s.IsAuthenticated())
}

func TestEndSession(t *testing.T) {
	s, clock := newTestStore(t)

	require.NoError(t, s.SaveIdentity(alice(), false))
	require.NoError(t, s.EndSession())

	// Signed out immediately.
	require.False(t, s.IsAuthenticated())
	_, ok := s.CurrentUsername()
	require.False(t, ok)

	// Identity survives on the grace window.
	id, ok := s.IdentityFor("alice")
	require.True(t, ok)
	require.Equal(t, "Alice Adams", id.Name)

	clock.Advance(19 * time.Minute)
	_, ok = s.IdentityFor("alice")
	require.True(t, ok)

	clock.Advance(2 * time.Minute)
	_, ok = s.IdentityFor("alice")
	require.False(t, ok)
}

func TestEndSessionZeroGraceRemovesIdentity(t *testing.T) {
	clock := newFakeClock()
	kv, err := store.Open(filepath.Join(t.TempDir(), "session.db"), store.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	cfg := config.Default().Session
	cfg.LogoutGraceMinutes = 0
	s := NewStore(kv, cfg, nil)

	require.NoError(t, s.SaveIdentity(alice(), false))
	require.NoError(t, s.EndSession())

	require.False(t, s.IsAuthenticated())
	_, ok := s.IdentityFor("alice")
	require.False(t, ok)
}

func TestEndSessionWithoutSession(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.EndSession())
}

func TestStalePointerCleanedUp(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.SaveIdentity(alice(), false))

	// Simulate an identity record lost underneath a live pointer.
	require.NoError(t, s.kv.Remove(identityKey("alice")))

	_, ok := s.GetIdentity()
	require.False(t, ok)

	// The dangling pointer was removed too.
	_, ok = s.CurrentUsername()
	require.False(t, ok)
}

func TestClearAll(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.SaveIdentity(alice(), true))
	require.NoError(t, s.ClearAll())
	require.False(t, s.IsAuthenticated())
	_, ok := s.IdentityFor("alice")
	require.False(t, ok)
}

func TestBootstrapSeedsFlag(t *testing.T) {
	s, _ := newTestStore(t)

	ctx := Bootstrap(s)
	require.False(t, ctx.IsAuthenticated())
	require.ErrorIs(t, ctx.Require(), ErrNotAuthenticated)

	require.NoError(t, s.SaveIdentity(alice(), false))

	// The flag is seeded once; the store change alone does not flip it.
	require.False(t, ctx.IsAuthenticated())

	ctx.MarkAuthenticated()
	require.True(t, ctx.IsAuthenticated())
	require.NoError(t, ctx.Require())

	id, ok := ctx.Identity()
	require.True(t, ok)
	require.Equal(t, "alice", id.Username)

	ctx.MarkSignedOut()
	require.False(t, ctx.IsAuthenticated())
	_, ok = ctx.Identity()
	require.False(t, ok)
}

func TestBootstrapWithExistingSession(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.SaveIdentity(alice(), true))

	ctx := Bootstrap(s)
	require.True(t, ctx.IsAuthenticated())
}
