// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock is a settable time source for expiry tests
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

func openTestStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, clock
}

func TestSetGetRoundTrip(t *testing.T) {
	s, _ := openTestStore(t)

	type record struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	require.NoError(t, s.Set("profile", record{Name: "alice", Count: 3}))

	got, ok := Get[record](s, "profile")
	require.True(t, ok)
	require.Equal(t, "alice", got.Name)
	require.Equal(t, 3, got.Count)
}

func TestGetMissingKey(t *testing.T) {
	s, _ := openTestStore(t)

	_, ok := Get[string](s, "nope")
	require.False(t, ok)
	require.False(t, s.Has("nope"))
}

func TestExpiryAfterDeadline(t *testing.T) {
	s, clock := openTestStore(t)

	require.NoError(t, s.SetForMinutes("token", "abc123", 5))
	require.True(t, s.Has("token"))

	clock.Advance(4 * time.Minute)
	got, ok := Get[string](s, "token")
	require.True(t, ok)
	require.Equal(t, "abc123", got)

	clock.Advance(2 * time.Minute)
	_, ok = Get[string](s, "token")
	require.False(t, ok)

	// Expired entry must have been purged, not just skipped.
	keys, err := s.Keys("")
	require.NoError(t, err)
	require.NotContains(t, keys, "token")
}

func TestEntryLiveAtExactDeadline(t *testing.T) {
	s, clock := openTestStore(t)

	require.NoError(t, s.SetForMinutes("token", "abc123", 5))

	// At the deadline millisecond the entry is still readable; one
	// millisecond later it is gone.
	clock.Advance(5 * time.Minute)
	got, ok := Get[string](s, "token")
	require.True(t, ok)
	require.Equal(t, "abc123", got)

	clock.Advance(time.Millisecond)
	_, ok = Get[string](s, "token")
	require.False(t, ok)
}

func TestZeroTTLNeverExpires(t *testing.T) {
	s, clock := openTestStore(t)

	require.NoError(t, s.SetForMinutes("forever", 42, 0))
	clock.Advance(365 * 24 * time.Hour)
	got, ok := Get[int](s, "forever")
	require.True(t, ok)
	require.Equal(t, 42, got)
}

func TestOverwriteResetsExpiry(t *testing.T) {
	s, clock := openTestStore(t)

	require.NoError(t, s.SetForMinutes("k", "v1", 5))
	clock.Advance(4 * time.Minute)
	require.NoError(t, s.SetForMinutes("k", "v2", 5))
	clock.Advance(4 * time.Minute)

	got, ok := Get[string](s, "k")
	require.True(t, ok)
	require.Equal(t, "v2", got)
}

func TestExpireRewritesDeadline(t *testing.T) {
	s, clock := openTestStore(t)

	require.NoError(t, s.Set("session", "payload"))

	ok, err := s.Expire("session", 20*time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	clock.Advance(19 * time.Minute)
	require.True(t, s.Has("session"))

	clock.Advance(2 * time.Minute)
	require.False(t, s.Has("session"))

	// Expiring a missing key reports false without error.
	ok, err = s.Expire("gone", time.Minute)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCorruptEntryIsMissAndDeleted(t *testing.T) {
	s, _ := openTestStore(t)

	require.NoError(t, s.Set("good", "fine"))
	_, err := s.db.Exec(
		`INSERT INTO entries (key, value, timestamp, expiry) VALUES (?, ?, ?, ?)`,
		"bad", `{"unterminated`, time.Now().UnixMilli(), int64(0),
	)
	require.NoError(t, err)

	_, ok := Get[map[string]any](s, "bad")
	require.False(t, ok)

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM entries WHERE key = 'bad'`).Scan(&count))
	require.Equal(t, 0, count)

	// Other entries are untouched.
	require.True(t, s.Has("good"))
}

func TestWrongTypeIsMiss(t *testing.T) {
	s, _ := openTestStore(t)

	require.NoError(t, s.Set("num", 7))
	_, ok := Get[map[string]string](s, "num")
	require.False(t, ok)
}

func TestRemoveAndClear(t *testing.T) {
	s, _ := openTestStore(t)

	require.NoError(t, s.Set("a", 1))
	require.NoError(t, s.Set("b", 2))

	require.NoError(t, s.Remove("a"))
	require.False(t, s.Has("a"))
	require.True(t, s.Has("b"))

	// Removing twice is fine.
	require.NoError(t, s.Remove("a"))

	require.NoError(t, s.Clear())
	require.False(t, s.Has("b"))
}

func TestClearPrefix(t *testing.T) {
	s, _ := openTestStore(t)

	require.NoError(t, s.Set("lockout/attempts", 1))
	require.NoError(t, s.Set("lockout/locks", 2))
	require.NoError(t, s.Set("session/current", 3))

	require.NoError(t, s.ClearPrefix("lockout/"))
	require.False(t, s.Has("lockout/attempts"))
	require.False(t, s.Has("lockout/locks"))
	require.True(t, s.Has("session/current"))
}

func TestKeysWithPrefix(t *testing.T) {
	s, clock := openTestStore(t)

	require.NoError(t, s.Set("session/identity/alice", 1))
	require.NoError(t, s.SetForMinutes("session/identity/bob", 2, 1))
	require.NoError(t, s.Set("other", 3))

	clock.Advance(2 * time.Minute)

	keys, err := s.Keys("session/identity/")
	require.NoError(t, err)
	require.Equal(t, []string{"session/identity/alice"}, keys)
}

func TestPurgeExpired(t *testing.T) {
	s, clock := openTestStore(t)

	require.NoError(t, s.SetForMinutes("a", 1, 1))
	require.NoError(t, s.SetForMinutes("b", 2, 1))
	require.NoError(t, s.Set("c", 3))

	clock.Advance(2 * time.Minute)

	n, err := s.PurgeExpired()
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.True(t, s.Has("c"))
}

func TestPersistsAcrossReopen(t *testing.T) {
	clock := newFakeClock()
	path := filepath.Join(t.TempDir(), "persist.db")

	s, err := Open(path, WithClock(clock.Now))
	require.NoError(t, err)
	require.NoError(t, s.Set("who", "alice"))
	require.NoError(t, s.Close())

	s2, err := Open(path, WithClock(clock.Now))
	require.NoError(t, err)
	defer s2.Close()

	got, ok := Get[string](s2, "who")
	require.True(t, ok)
	require.Equal(t, "alice", got)
}

func TestClosedStoreErrors(t *testing.T) {
	s, _ := openTestStore(t)
	require.NoError(t, s.Close())

	require.ErrorIs(t, s.Set("k", 1), ErrClosed)
	require.ErrorIs(t, s.Remove("k"), ErrClosed)
	_, ok := Get[int](s, "k")
	require.False(t, ok)
}
