// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session persists the signed-in identity across process restarts.
//
// Two kinds of entry live in the key-value store: a current pointer naming
// the signed-in username, and one identity record per username. Signing in
// with "remember me" keeps the identity for thirty days; signing out removes
// the pointer immediately and leaves the identity on a short grace window so
// an accidental logout can be undone by signing in again without re-entering
// profile details.
package session

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/morganforge/pixelfeed/internal/config"
	"github.com/morganforge/pixelfeed/internal/store"
)

// =============================================================================
// KEYS
// =============================================================================

const (
	// keyCurrent holds the username of the signed-in user
	keyCurrent = "session/current"

	// identityPrefix namespaces per-user identity records
	identityPrefix = "session/identity/"
)

func identityKey(username string) string {
	return identityPrefix + username
}

// =============================================================================
// IDENTITY
// =============================================================================

// Identity is the persisted projection of a directory user. It carries only
// what the client needs between restarts; credentials never land here.
type Identity struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// =============================================================================
// SESSION STORE
// =============================================================================

// Store manages the signed-in identity on top of the key-value store
type Store struct {
	kv          *store.Store
	rememberFor time.Duration
	logoutGrace time.Duration
	log         *zap.Logger
}

// NewStore creates a session store using the durations from cfg.
// A nil logger is replaced with a no-op logger.
func NewStore(kv *store.Store, cfg config.SessionConfig, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		kv:          kv,
		rememberFor: time.Duration(cfg.RememberDays) * 24 * time.Hour,
		logoutGrace: time.Duration(cfg.LogoutGraceMinutes) * time.Minute,
		log:         log,
	}
}

// SaveIdentity records id as the signed-in user. With remember set, both the
// identity record and the current pointer expire after the remember window;
// otherwise they persist until signed out.
func (s *Store) SaveIdentity(id Identity, remember bool) error {
	var ttl time.Duration
	if remember {
		ttl = s.rememberFor
	}

	if err := s.kv.SetWithTTL(identityKey(id.Username), id, ttl); err != nil {
		return fmt.Errorf("failed to save identity: %w", err)
	}
	if err := s.kv.SetWithTTL(keyCurrent, id.Username, ttl); err != nil {
		return fmt.Errorf("failed to save session pointer: %w", err)
	}

	s.log.Info("session established",
		zap.String("username", id.Username),
		zap.Bool("remember", remember))
	return nil
}

// CurrentUsername returns the signed-in username, if any
func (s *Store) CurrentUsername() (string, bool) {
	return store.Get[string](s.kv, keyCurrent)
}

// GetIdentity returns the signed-in identity. A pointer without a live
// identity record is stale and gets cleaned up.
func (s *Store) GetIdentity() (Identity, bool) {
	username, ok := s.CurrentUsername()
	if !ok {
		return Identity{}, false
	}
	id, ok := store.Get[Identity](s.kv, identityKey(username))
	if !ok {
		s.log.Warn("stale session pointer removed", zap.String("username", username))
		_ = s.kv.Remove(keyCurrent)
		return Identity{}, false
	}
	return id, true
}

// IdentityFor returns the stored identity record for username regardless of
// who is signed in. Used by the sign-in flow to restore a profile during the
// logout grace window.
func (s *Store) IdentityFor(username string) (Identity, bool) {
	return store.Get[Identity](s.kv, identityKey(username))
}

// IsAuthenticated reports whether a live session exists
func (s *Store) IsAuthenticated() bool {
	_, ok := s.GetIdentity()
	return ok
}

// EndSession signs the current user out. The pointer goes away immediately,
// so IsAuthenticated is false as soon as this returns. The identity record is
// re-expired onto the logout grace window rather than deleted; a zero grace
// window removes it outright.
func (s *Store) EndSession() error {
	username, ok := s.CurrentUsername()
	if err := s.kv.Remove(keyCurrent); err != nil {
		return fmt.Errorf("failed to remove session pointer: %w", err)
	}
	if !ok {
		return nil
	}

	if s.logoutGrace <= 0 {
		if err := s.kv.Remove(identityKey(username)); err != nil {
			return fmt.Errorf("failed to remove identity: %w", err)
		}
		s.log.Info("session ended", zap.String("username", username))
		return nil
	}

	if _, err := s.kv.Expire(identityKey(username), s.logoutGrace); err != nil {
		return fmt.Errorf("failed to re-expire identity: %w", err)
	}

	s.log.Info("session ended", zap.String("username", username))
	return nil
}

// ClearAll removes every session entry, including identity records on their
// grace window
func (s *Store) ClearAll() error {
	if err := s.kv.Remove(keyCurrent); err != nil {
		return err
	}
	return s.kv.ClearPrefix(identityPrefix)
}
