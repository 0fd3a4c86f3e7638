// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"sync"
)

// ErrNotAuthenticated is returned by Require when no user is signed in
var ErrNotAuthenticated = errors.New("not authenticated")

// Context carries the authenticated flag for the lifetime of the process.
//
// The flag is seeded exactly once from persistent state at startup and after
// that changes only through MarkAuthenticated and MarkSignedOut, so every
// caller sees the same answer regardless of what happens to the store
// underneath.
type Context struct {
	store *Store

	mu            sync.RWMutex
	authenticated bool
}

// Bootstrap builds the process-wide session context, seeding the
// authenticated flag from the persisted session state.
func Bootstrap(s *Store) *Context {
	return &Context{
		store:         s,
		authenticated: s.IsAuthenticated(),
	}
}

// IsAuthenticated reports the seeded flag, not live store state
func (c *Context) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authenticated
}

// Identity returns the signed-in identity when authenticated
func (c *Context) Identity() (Identity, bool) {
	if !c.IsAuthenticated() {
		return Identity{}, false
	}
	return c.store.GetIdentity()
}

// Require gates protected operations
func (c *Context) Require() error {
	if !c.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	return nil
}

// MarkAuthenticated flips the flag after a successful sign-in
func (c *Context) MarkAuthenticated() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authenticated = true
}

// MarkSignedOut flips the flag after sign-out
func (c *Context) MarkSignedOut() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authenticated = false
}
