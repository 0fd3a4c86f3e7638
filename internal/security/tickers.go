// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package security

import (
	"sync"
	"time"
)

// =============================================================================
// BACKGROUND TICKERS
// =============================================================================
//
// Lock expiry is always evaluated against the clock at read time, so these
// tickers only refresh what a user sees and keep the persisted tables small.
// Stopping them never affects correctness.

const (
	// DefaultSweepInterval is how often expired state is swept.
	DefaultSweepInterval = 60 * time.Second

	// DefaultCountdownInterval is how often a lock countdown reports.
	DefaultCountdownInterval = time.Second
)

// StartSweeper sweeps expired locks and stale attempt records every interval
// until the returned stop function is called. Stop is idempotent.
func (l *Ledger) StartSweeper(interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				_, _ = l.SweepExpired()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}

// Countdown reports the remaining lock time for one username at a fixed
// interval until the lock expires or Stop is called.
type Countdown struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

// StartCountdown invokes onTick with the remaining whole seconds for
// username, first immediately and then every interval. When the lock
// expires, onTick receives 0 once and the countdown stops itself.
func (l *Ledger) StartCountdown(username string, interval time.Duration, onTick func(remaining int)) *Countdown {
	if interval <= 0 {
		interval = DefaultCountdownInterval
	}

	c := &Countdown{
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
	}

	go func() {
		remaining := l.RemainingLockSeconds(username)
		onTick(remaining)
		if remaining <= 0 {
			c.Stop()
			return
		}
		for {
			select {
			case <-c.ticker.C:
				remaining := l.RemainingLockSeconds(username)
				onTick(remaining)
				if remaining <= 0 {
					c.Stop()
					return
				}
			case <-c.done:
				return
			}
		}
	}()

	return c
}

// Stop halts the countdown. Safe to call more than once.
func (c *Countdown) Stop() {
	c.once.Do(func() {
		c.ticker.Stop()
		close(c.done)
	})
}
