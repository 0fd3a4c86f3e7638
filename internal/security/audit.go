// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package security tracks failed sign-in attempts and enforces account
// lockout. Attempt counts live in the persistent key-value store so a restart
// does not reset the ledger, and every lockout decision is written to the
// audit log.
package security

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// DefaultMaxFileSize is the default max audit file size before rotation (10MB).
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// Audit event types
const (
	EventLoginSuccess   = "LOGIN_SUCCESS"
	EventLoginFailure   = "LOGIN_FAILURE"
	EventAccountLocked  = "ACCOUNT_LOCKED"
	EventAccountUnlock  = "ACCOUNT_UNLOCKED"
	EventLockoutReset   = "LOCKOUT_RESET"
	EventRegister       = "REGISTER"
	EventSessionStart   = "SESSION_START"
	EventSessionEnd     = "SESSION_END"
)

// =============================================================================
// AUDIT EVENT
// =============================================================================

// AuditEvent represents a single audit log entry.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	Username  string            `json:"username,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// ToJSON formats the event as JSON.
func (e *AuditEvent) ToJSON() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// =============================================================================
// AUDIT LOGGER
// =============================================================================

// AuditLogger writes authentication events as JSON lines with size-based
// rotation. It is safe for concurrent use.
type AuditLogger struct {
	path    string
	file    *os.File
	maxSize int64
	enabled bool
	mu      sync.Mutex
}

// NewAuditLogger opens (or creates) the audit log at path.
// A disabled logger accepts events and drops them.
func NewAuditLogger(path string, enabled bool) (*AuditLogger, error) {
	l := &AuditLogger{
		path:    path,
		maxSize: DefaultMaxFileSize,
		enabled: enabled,
	}
	if !enabled {
		return l, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	l.file = file
	return l, nil
}

// Log writes an event to the audit log. Events default their timestamp to now.
func (l *AuditLogger) Log(event AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled || l.file == nil {
		return nil
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	line, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to encode audit event: %w", err)
	}
	if _, err := l.file.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("failed to write audit event: %w", err)
	}

	return l.checkRotationLocked()
}

// LogAttempt is a convenience method for sign-in attempt events.
func (l *AuditLogger) LogAttempt(username string, success bool, errMsg string) error {
	eventType := EventLoginSuccess
	if !success {
		eventType = EventLoginFailure
	}
	return l.Log(AuditEvent{
		EventType: eventType,
		Username:  username,
		Success:   success,
		Error:     errMsg,
	})
}

// Rotate rotates the audit log regardless of size.
func (l *AuditLogger) Rotate() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rotateLocked()
}

// rotateLocked performs rotation without locking (caller must hold lock).
func (l *AuditLogger) rotateLocked() error {
	if l.file == nil {
		return nil
	}

	if err := l.file.Close(); err != nil {
		return fmt.Errorf("failed to close audit log for rotation: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	ext := filepath.Ext(l.path)
	base := strings.TrimSuffix(l.path, ext)
	rotatedPath := fmt.Sprintf("%s_%s%s", base, timestamp, ext)

	if err := os.Rename(l.path, rotatedPath); err != nil {
		// Try to reopen the original file if rename fails
		l.file, _ = os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		return fmt.Errorf("failed to rotate audit log: %w", err)
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create new audit log after rotation: %w", err)
	}
	l.file = file
	return nil
}

// checkRotationLocked rotates when the file has grown past maxSize.
func (l *AuditLogger) checkRotationLocked() error {
	if l.maxSize <= 0 {
		return nil
	}
	info, err := l.file.Stat()
	if err != nil {
		return nil // Ignore stat errors
	}
	if info.Size() >= l.maxSize {
		return l.rotateLocked()
	}
	return nil
}

// SetMaxSize sets the maximum file size before rotation.
func (l *AuditLogger) SetMaxSize(size int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maxSize = size
}

// Path returns the audit log path.
func (l *AuditLogger) Path() string {
	return l.path
}

// IsEnabled reports whether events are being written.
func (l *AuditLogger) IsEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// Close flushes and closes the audit log.
func (l *AuditLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	if err := l.file.Sync(); err != nil {
		l.file.Close()
		l.file = nil
		return err
	}
	err := l.file.Close()
	l.file = nil
	return err
}
