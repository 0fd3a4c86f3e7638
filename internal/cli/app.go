// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Shared wiring for all CLI commands.
package cli

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/morganforge/pixelfeed/internal/auth"
	"github.com/morganforge/pixelfeed/internal/config"
	"github.com/morganforge/pixelfeed/internal/directory"
	"github.com/morganforge/pixelfeed/internal/feed"
	"github.com/morganforge/pixelfeed/internal/logging"
	"github.com/morganforge/pixelfeed/internal/security"
	"github.com/morganforge/pixelfeed/internal/session"
	"github.com/morganforge/pixelfeed/internal/store"
)

// App wires the client's services together for the duration of one command
// or shell session.
type App struct {
	Config    *config.Config
	Log       *zap.Logger
	KV        *store.Store
	Sessions  *session.Store
	SessCtx   *session.Context
	Ledger    *security.Ledger
	Audit     *security.AuditLogger
	Directory *directory.Client
	Auth      *auth.Coordinator
	Feed      *feed.Service

	stopSweeper func()
}

// NewApp loads configuration and builds the service graph. The caller must
// Close the app when done.
func NewApp() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logging.Init(logging.ConfigFromEnv())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	kv, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	audit, err := security.NewAuditLogger(cfg.Security.AuditLogPath, cfg.Security.AuditEnabled)
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	ledger := security.NewLedger(kv,
		security.WithMaxAttempts(cfg.Security.MaxLoginAttempts),
		security.WithWarnAfter(cfg.Security.WarnAfterAttempts),
		security.WithLockDuration(time.Duration(cfg.Security.LockoutDurationMinutes)*time.Minute),
		security.WithAttemptWindow(time.Duration(cfg.Security.AttemptWindowMinutes)*time.Minute),
		security.WithAudit(audit),
		security.WithLogger(log),
	)

	sessions := session.NewStore(kv, cfg.Session, log)
	sessCtx := session.Bootstrap(sessions)

	dir := directory.NewClient(&directory.ClientConfig{
		BaseURL:           cfg.API.BaseURL,
		Timeout:           time.Duration(cfg.API.TimeoutSecs) * time.Second,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Logger:            log,
	})

	app := &App{
		Config:      cfg,
		Log:         log,
		KV:          kv,
		Sessions:    sessions,
		SessCtx:     sessCtx,
		Ledger:      ledger,
		Audit:       audit,
		Directory:   dir,
		Auth:        auth.New(dir, sessions, sessCtx, ledger, audit, log),
		Feed:        feed.NewService(dir),
		stopSweeper: ledger.StartSweeper(security.DefaultSweepInterval),
	}
	return app, nil
}

// Close releases everything the app holds.
func (a *App) Close() {
	if a.stopSweeper != nil {
		a.stopSweeper()
	}
	if a.Audit != nil {
		_ = a.Audit.Close()
	}
	if a.KV != nil {
		_ = a.KV.Close()
	}
	if a.Log != nil {
		_ = a.Log.Sync()
	}
}
