// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package security

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/morganforge/pixelfeed/internal/store"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultMaxAttempts is the number of failed attempts before lockout.
	DefaultMaxAttempts = 5

	// DefaultWarnAfter is the attempt count at which warnings begin.
	DefaultWarnAfter = 3

	// DefaultLockDuration is how long a locked account stays locked.
	DefaultLockDuration = 5 * time.Minute

	// DefaultAttemptWindow is the rolling window for counting failures.
	// A failure older than this no longer counts against the account.
	DefaultAttemptWindow = 5 * time.Minute

	// AttemptsSchemaVersion is the current attempt-record format version.
	AttemptsSchemaVersion = 1
)

// Ledger keys in the key-value store
const (
	keyLocks    = "lockout/locks"
	keyAttempts = "lockout/attempts"
)

// =============================================================================
// ATTEMPT RECORDS
// =============================================================================

// AttemptRecord tracks consecutive failures for one username.
type AttemptRecord struct {
	// Count is the number of failures inside the rolling window, saturated
	// at the lockout threshold.
	Count int `json:"count"`

	// Timestamp is the unix-millisecond time of the last failure.
	Timestamp int64 `json:"timestamp"`
}

// attemptsFile is the persisted shape of the attempts entry.
type attemptsFile struct {
	Version int                      `json:"version"`
	Records map[string]AttemptRecord `json:"records"`
}

// =============================================================================
// LOCKOUT LEDGER
// =============================================================================

// Ledger enforces account lockout after repeated sign-in failures.
//
// State is persisted in two key-value entries so lockouts survive restarts:
// a lock table (username to expiry) and an attempt table (username to
// count/timestamp). Expiry is always evaluated against the clock at read
// time, so correctness never depends on a background ticker.
type Ledger struct {
	kv            *store.Store
	maxAttempts   int
	warnAfter     int
	lockDuration  time.Duration
	attemptWindow time.Duration
	now           func() time.Time
	audit         *AuditLogger
	log           *zap.Logger
	mu            sync.Mutex
}

// LedgerOption is a functional option for configuring the Ledger.
type LedgerOption func(*Ledger)

// WithMaxAttempts sets the failure threshold.
func WithMaxAttempts(max int) LedgerOption {
	return func(l *Ledger) {
		if max > 0 {
			l.maxAttempts = max
		}
	}
}

// WithWarnAfter sets the attempt count at which warnings begin.
func WithWarnAfter(n int) LedgerOption {
	return func(l *Ledger) {
		if n > 0 {
			l.warnAfter = n
		}
	}
}

// WithLockDuration sets how long a lock lasts.
func WithLockDuration(d time.Duration) LedgerOption {
	return func(l *Ledger) {
		if d > 0 {
			l.lockDuration = d
		}
	}
}

// WithAttemptWindow sets the rolling window for counting failures.
func WithAttemptWindow(d time.Duration) LedgerOption {
	return func(l *Ledger) {
		if d > 0 {
			l.attemptWindow = d
		}
	}
}

// WithAudit attaches an audit logger for lockout events.
func WithAudit(a *AuditLogger) LedgerOption {
	return func(l *Ledger) {
		l.audit = a
	}
}

// WithLedgerClock overrides the time source. Used in tests.
func WithLedgerClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithLogger attaches a diagnostic logger.
func WithLogger(log *zap.Logger) LedgerOption {
	return func(l *Ledger) {
		l.log = log
	}
}

// NewLedger creates a lockout ledger over the given key-value store.
func NewLedger(kv *store.Store, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		kv:            kv,
		maxAttempts:   DefaultMaxAttempts,
		warnAfter:     DefaultWarnAfter,
		lockDuration:  DefaultLockDuration,
		attemptWindow: DefaultAttemptWindow,
		now:           time.Now,
		log:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// MaxAttempts returns the failure threshold.
func (l *Ledger) MaxAttempts() int { return l.maxAttempts }

// WarnAfter returns the attempt count at which warnings begin.
func (l *Ledger) WarnAfter() int { return l.warnAfter }

// LockDuration returns how long a lock lasts.
func (l *Ledger) LockDuration() time.Duration { return l.lockDuration }

// =============================================================================
// FAILURE TRACKING
// =============================================================================

// RecordFailure registers a failed sign-in attempt for username and returns
// the attempt count and whether this failure triggered a lock. Failures
// older than the rolling window are discarded first, and the count saturates
// at the lockout threshold.
func (l *Ledger) RecordFailure(username string) (count int, locked bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records := l.loadAttempts()
	nowMs := l.now().UnixMilli()

	rec := records[username]
	if rec.Count > 0 && nowMs-rec.Timestamp > l.attemptWindow.Milliseconds() {
		rec = AttemptRecord{}
	}

	if rec.Count < l.maxAttempts {
		rec.Count++
	}
	rec.Timestamp = nowMs
	records[username] = rec

	if err := l.saveAttempts(records); err != nil {
		return 0, false, err
	}

	if l.audit != nil {
		_ = l.audit.LogAttempt(username, false, "")
	}

	if rec.Count >= l.maxAttempts && !l.isLockedLocked(username) {
		if err := l.lockLocked(username, l.lockDuration); err != nil {
			return rec.Count, false, err
		}
		return rec.Count, true, nil
	}
	return rec.Count, false, nil
}

// RecordSuccess clears the failure record for username.
func (l *Ledger) RecordSuccess(username string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	records := l.loadAttempts()
	if _, ok := records[username]; ok {
		delete(records, username)
		if err := l.saveAttempts(records); err != nil {
			return err
		}
	}

	if l.audit != nil {
		_ = l.audit.LogAttempt(username, true, "")
	}
	return nil
}

// AttemptCount returns the live failure count for username. Records older
// than the rolling window count as zero.
func (l *Ledger) AttemptCount(username string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.loadAttempts()[username]
	if !ok {
		return 0
	}
	if l.now().UnixMilli()-rec.Timestamp > l.attemptWindow.Milliseconds() {
		return 0
	}
	return rec.Count
}

// =============================================================================
// LOCK STATE
// =============================================================================

// IsLocked reports whether username is currently locked. Expired locks are
// removed on the way.
func (l *Ledger) IsLocked(username string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isLockedLocked(username)
}

func (l *Ledger) isLockedLocked(username string) bool {
	locks := l.loadLocks()
	until, ok := locks[username]
	if !ok {
		return false
	}
	if until <= l.now().UnixMilli() {
		delete(locks, username)
		_ = l.saveLocks(locks)
		l.auditUnlock(username, "expired")
		return false
	}
	return true
}

// RemainingLockSeconds returns whole seconds until the lock on username
// expires, rounded up. Zero means not locked.
func (l *Ledger) RemainingLockSeconds(username string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	until, ok := l.loadLocks()[username]
	if !ok {
		return 0
	}
	remainingMs := until - l.now().UnixMilli()
	if remainingMs <= 0 {
		return 0
	}
	return int((remainingMs + 999) / 1000)
}

// Lock locks username for d, replacing any existing lock.
func (l *Ledger) Lock(username string, d time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lockLocked(username, d)
}

func (l *Ledger) lockLocked(username string, d time.Duration) error {
	locks := l.loadLocks()
	locks[username] = l.now().Add(d).UnixMilli()
	if err := l.saveLocks(locks); err != nil {
		return err
	}

	l.log.Warn("account locked",
		zap.String("username", username),
		zap.Duration("duration", d))
	if l.audit != nil {
		_ = l.audit.Log(AuditEvent{
			EventType: EventAccountLocked,
			Username:  username,
			Success:   true,
			Metadata:  map[string]string{"duration": d.String()},
		})
	}
	return nil
}

// Unlock removes the lock and failure record for username.
func (l *Ledger) Unlock(username string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	locks := l.loadLocks()
	if _, ok := locks[username]; ok {
		delete(locks, username)
		if err := l.saveLocks(locks); err != nil {
			return err
		}
		l.auditUnlock(username, "manual")
	}

	records := l.loadAttempts()
	if _, ok := records[username]; ok {
		delete(records, username)
		return l.saveAttempts(records)
	}
	return nil
}

// LockEntry describes one locked account.
type LockEntry struct {
	Username string
	Until    time.Time
}

// ListLocked returns the accounts currently locked, skipping expired locks.
func (l *Ledger) ListLocked() []LockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	nowMs := l.now().UnixMilli()
	var out []LockEntry
	for username, until := range l.loadLocks() {
		if until > nowMs {
			out = append(out, LockEntry{
				Username: username,
				Until:    time.UnixMilli(until),
			})
		}
	}
	return out
}

// SweepExpired removes expired locks and stale attempt records, returning
// the number of entries removed. Reads already ignore expired state, so the
// sweep only keeps the persisted tables small.
func (l *Ledger) SweepExpired() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	nowMs := l.now().UnixMilli()
	removed := 0

	locks := l.loadLocks()
	changed := false
	for username, until := range locks {
		if until <= nowMs {
			delete(locks, username)
			l.auditUnlock(username, "expired")
			removed++
			changed = true
		}
	}
	if changed {
		if err := l.saveLocks(locks); err != nil {
			return removed, err
		}
	}

	records := l.loadAttempts()
	changed = false
	for username, rec := range records {
		if nowMs-rec.Timestamp > l.attemptWindow.Milliseconds() {
			delete(records, username)
			removed++
			changed = true
		}
	}
	if changed {
		if err := l.saveAttempts(records); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// Reset clears all lockout state.
func (l *Ledger) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.kv.Remove(keyLocks); err != nil {
		return err
	}
	if err := l.kv.Remove(keyAttempts); err != nil {
		return err
	}
	if l.audit != nil {
		_ = l.audit.Log(AuditEvent{EventType: EventLockoutReset, Success: true})
	}
	return nil
}

// =============================================================================
// PERSISTENCE
// =============================================================================

func (l *Ledger) loadLocks() map[string]int64 {
	locks, ok := store.Get[map[string]int64](l.kv, keyLocks)
	if !ok || locks == nil {
		return map[string]int64{}
	}
	return locks
}

func (l *Ledger) saveLocks(locks map[string]int64) error {
	if len(locks) == 0 {
		return l.kv.Remove(keyLocks)
	}
	return l.kv.Set(keyLocks, locks)
}

// loadAttempts reads the attempt table, migrating legacy records that stored
// a bare failure count instead of a count/timestamp pair. Migrated records
// get the current time as their timestamp so they age out normally.
func (l *Ledger) loadAttempts() map[string]AttemptRecord {
	raw, ok := l.kv.GetRaw(keyAttempts)
	if !ok {
		return map[string]AttemptRecord{}
	}

	var file attemptsFile
	if err := json.Unmarshal(raw, &file); err == nil && file.Version >= AttemptsSchemaVersion {
		if file.Records == nil {
			return map[string]AttemptRecord{}
		}
		return file.Records
	}

	return l.migrateLegacyAttempts(raw)
}

func (l *Ledger) migrateLegacyAttempts(raw json.RawMessage) map[string]AttemptRecord {
	records := map[string]AttemptRecord{}

	var legacy map[string]json.RawMessage
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return records
	}

	nowMs := l.now().UnixMilli()
	for username, val := range legacy {
		var rec AttemptRecord
		if err := json.Unmarshal(val, &rec); err == nil && rec.Timestamp > 0 {
			records[username] = rec
			continue
		}
		var count int
		if err := json.Unmarshal(val, &count); err == nil && count > 0 {
			if count > l.maxAttempts {
				count = l.maxAttempts
			}
			records[username] = AttemptRecord{Count: count, Timestamp: nowMs}
		}
	}

	l.log.Info("migrated legacy attempt records", zap.Int("count", len(records)))
	_ = l.saveAttempts(records)
	return records
}

func (l *Ledger) saveAttempts(records map[string]AttemptRecord) error {
	if len(records) == 0 {
		return l.kv.Remove(keyAttempts)
	}
	return l.kv.Set(keyAttempts, attemptsFile{
		Version: AttemptsSchemaVersion,
		Records: records,
	})
}

func (l *Ledger) auditUnlock(username, reason string) {
	l.log.Info("account unlocked",
		zap.String("username", username),
		zap.String("reason", reason))
	if l.audit != nil {
		_ = l.audit.Log(AuditEvent{
			EventType: EventAccountUnlock,
			Username:  username,
			Success:   true,
			Metadata:  map[string]string{"reason": reason},
		})
	}
}
