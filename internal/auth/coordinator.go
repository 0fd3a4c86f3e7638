// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth coordinates sign-in and registration against the remote user
// directory, wiring the lockout ledger, the session store and the audit log
// together behind two operations.
package auth

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/secure/precis"

	"github.com/morganforge/pixelfeed/internal/directory"
	"github.com/morganforge/pixelfeed/internal/security"
	"github.com/morganforge/pixelfeed/internal/session"
)

// ErrRequestInFlight is returned when a sign-in or registration is already
// outstanding. The first request keeps running; the caller should wait for
// it instead of stacking another.
var ErrRequestInFlight = errors.New("authentication request already in flight")

// =============================================================================
// RESULT
// =============================================================================

// Result is the outcome of a sign-in or registration attempt.
type Result struct {
	// Success is true when the user is now signed in.
	Success bool

	// User is the signed-in user with credential material stripped.
	User *directory.User

	// Message is the user-facing outcome message on failure.
	Message string

	// Warning carries the lockout warning shown alongside Message once the
	// failure count reaches the warning threshold.
	Warning string

	// ProfilePending signals that a freshly registered account still needs
	// its profile completed.
	ProfilePending bool
}

func failure(message string) Result {
	return Result{Message: message}
}

// =============================================================================
// REGISTRATION REQUEST
// =============================================================================

// RegisterRequest carries the registration form fields. Name is the only
// optional field.
type RegisterRequest struct {
	Username        string `validate:"required"`
	Name            string
	Email           string `validate:"required,email"`
	Password        string `validate:"required,min=6"`
	ConfirmPassword string `validate:"required,eqfield=Password"`
	Website         string
}

func (r *RegisterRequest) trim() {
	r.Username = strings.TrimSpace(r.Username)
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Website = strings.TrimSpace(r.Website)
}

// =============================================================================
// COORDINATOR
// =============================================================================

// Coordinator runs the sign-in and registration flows.
type Coordinator struct {
	dir      *directory.Client
	sessions *session.Store
	sessCtx  *session.Context
	ledger   *security.Ledger
	audit    *security.AuditLogger
	log      *zap.Logger
	validate *validator.Validate

	// inFlight serializes Login/Register; a second call fails fast.
	inFlight atomic.Bool
}

// New creates a coordinator. The audit logger may be nil; a nil diagnostic
// logger is replaced with a no-op logger.
func New(dir *directory.Client, sessions *session.Store, sessCtx *session.Context, ledger *security.Ledger, audit *security.AuditLogger, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		dir:      dir,
		sessions: sessions,
		sessCtx:  sessCtx,
		ledger:   ledger,
		audit:    audit,
		log:      log,
		validate: validator.New(),
	}
}

// NormalizeUsername canonicalizes a username for use as a ledger and storage
// key, so "Alice" and "alice" are the same account. Callers that consult the
// lockout ledger directly must use the same canonical form.
func NormalizeUsername(raw string) (string, error) {
	return precis.UsernameCaseMapped.String(raw)
}

// =============================================================================
// LOGIN
// =============================================================================

// Login signs a user in. Validation and lockout are checked before any
// network call, so a locked or incomplete attempt never leaves the machine.
func (c *Coordinator) Login(ctx context.Context, username, password string, remember bool) (Result, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return Result{}, ErrRequestInFlight
	}
	defer c.inFlight.Store(false)

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return failure(MsgCredentialsRequired), nil
	}

	normalized, err := NormalizeUsername(username)
	if err != nil {
		return failure(MsgInvalidCredentials), nil
	}

	if c.ledger.IsLocked(normalized) {
		seconds := c.ledger.RemainingLockSeconds(normalized)
		return failure(LockedMessage(normalized, seconds)), nil
	}

	user, err := c.dir.GetByUsername(ctx, normalized)
	if err != nil && !errors.Is(err, directory.ErrNotFound) {
		if ctx.Err() != nil {
			// Canceled by the caller; drop the attempt silently.
			return Result{}, ctx.Err()
		}
		c.log.Error("login lookup failed", zap.String("username", normalized), zap.Error(err))
		return failure(MsgLoginError), nil
	}

	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return c.loginFailed(normalized), nil
	}

	if err := c.ledger.RecordSuccess(normalized); err != nil {
		c.log.Warn("failed to clear attempt record", zap.String("username", normalized), zap.Error(err))
	}

	identity := session.Identity{
		ID:       user.ID,
		Username: user.Username,
		Name:     user.Name,
		Email:    user.Email,
	}
	if err := c.sessions.SaveIdentity(identity, remember); err != nil {
		c.log.Error("failed to persist session", zap.String("username", normalized), zap.Error(err))
		return failure(MsgLoginError), nil
	}
	c.sessCtx.MarkAuthenticated()

	if c.audit != nil {
		_ = c.audit.Log(security.AuditEvent{
			EventType: security.EventSessionStart,
			Username:  normalized,
			Success:   true,
		})
	}

	sanitized := user.Sanitized()
	return Result{Success: true, User: &sanitized}, nil
}

// loginFailed records a failed attempt and shapes the message for the
// current count.
func (c *Coordinator) loginFailed(username string) Result {
	count, lockedNow, err := c.ledger.RecordFailure(username)
	if err != nil {
		c.log.Warn("failed to record attempt", zap.String("username", username), zap.Error(err))
	}

	if lockedNow {
		minutes := int(c.ledger.LockDuration().Minutes())
		return failure(LockedNowMessage(username, minutes))
	}

	res := failure(MsgInvalidCredentials)
	if count >= c.ledger.WarnAfter() {
		res.Warning = WarningMessage(count, c.ledger.MaxAttempts())
	}
	return res
}

// =============================================================================
// REGISTRATION
// =============================================================================

// Register creates a new account and signs it in. New accounts are always
// remembered and still need their profile completed.
func (c *Coordinator) Register(ctx context.Context, req RegisterRequest) (Result, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return Result{}, ErrRequestInFlight
	}
	defer c.inFlight.Store(false)

	req.trim()
	if msg := c.validateRegistration(req); msg != "" {
		return failure(msg), nil
	}

	normalized, err := NormalizeUsername(req.Username)
	if err != nil {
		return failure(MsgRegisterError), nil
	}

	// A username is free when the lookup comes back empty. Two clients
	// racing the same name can both pass this check; the directory keeps
	// the first record and sign-in resolves against it.
	_, err = c.dir.GetByUsername(ctx, normalized)
	switch {
	case err == nil:
		return failure(MsgUsernameTaken), nil
	case !errors.Is(err, directory.ErrNotFound):
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		c.log.Error("registration lookup failed", zap.String("username", normalized), zap.Error(err))
		return failure(MsgRegisterError), nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.log.Error("failed to hash password", zap.Error(err))
		return failure(MsgRegisterError), nil
	}

	created, err := c.dir.CreateUser(ctx, &directory.User{
		Username:     normalized,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Website:      req.Website,
	})
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		c.log.Error("failed to create account", zap.String("username", normalized), zap.Error(err))
		return failure(MsgRegisterError), nil
	}

	identity := session.Identity{
		ID:       created.ID,
		Username: created.Username,
		Name:     created.Name,
		Email:    created.Email,
	}
	if err := c.sessions.SaveIdentity(identity, true); err != nil {
		c.log.Error("failed to persist session", zap.String("username", normalized), zap.Error(err))
		return failure(MsgRegisterError), nil
	}
	c.sessCtx.MarkAuthenticated()

	if c.audit != nil {
		_ = c.audit.Log(security.AuditEvent{
			EventType: security.EventRegister,
			Username:  normalized,
			Success:   true,
		})
	}

	sanitized := created.Sanitized()
	return Result{Success: true, User: &sanitized, ProfilePending: true}, nil
}

// validateRegistration maps validator failures onto the registration
// messages, checked in form order: required fields, password match, email
// shape, password length.
func (c *Coordinator) validateRegistration(req RegisterRequest) string {
	err := c.validate.Struct(req)
	if err == nil {
		return ""
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return MsgRegisterError
	}

	failed := map[string]bool{}
	for _, fe := range verrs {
		failed[fe.Tag()] = true
	}

	switch {
	case failed["required"]:
		return MsgFieldsRequired
	case failed["eqfield"]:
		return MsgPasswordMismatch
	case failed["email"]:
		return MsgInvalidEmail
	case failed["min"]:
		return MsgPasswordTooShort
	default:
		return MsgRegisterError
	}
}

// =============================================================================
// PROFILE COMPLETION
// =============================================================================

// ProfileUpdate carries the profile fields a user fills in after
// registration. Username, email and credentials are not editable here.
type ProfileUpdate struct {
	Phone   string
	Website string
	Company directory.Company
	Address directory.Address
}

// CompleteProfile writes the signed-in user's profile fields to the
// directory and replaces the stored session identity with the updated
// record. The refreshed session is always remembered.
func (c *Coordinator) CompleteProfile(ctx context.Context, upd ProfileUpdate) (Result, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return Result{}, ErrRequestInFlight
	}
	defer c.inFlight.Store(false)

	id, ok := c.sessCtx.Identity()
	if !ok {
		return Result{}, session.ErrNotAuthenticated
	}

	// Re-fetch so the update carries the directory's current record,
	// credentials included, rather than the slim session projection.
	user, err := c.dir.GetByID(ctx, id.ID)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		c.log.Error("profile load failed", zap.Int("id", id.ID), zap.Error(err))
		return failure(MsgProfileLoadError), nil
	}

	user.Phone = strings.TrimSpace(upd.Phone)
	user.Website = strings.TrimSpace(upd.Website)
	user.Company = upd.Company
	user.Address = upd.Address

	updated, err := c.dir.UpdateUser(ctx, user)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		c.log.Error("profile update failed", zap.Int("id", id.ID), zap.Error(err))
		return failure(MsgProfileUpdateError), nil
	}

	identity := session.Identity{
		ID:       updated.ID,
		Username: updated.Username,
		Name:     updated.Name,
		Email:    updated.Email,
	}
	if err := c.sessions.SaveIdentity(identity, true); err != nil {
		c.log.Error("failed to refresh session", zap.String("username", updated.Username), zap.Error(err))
		return failure(MsgProfileUpdateError), nil
	}

	sanitized := updated.Sanitized()
	return Result{Success: true, User: &sanitized}, nil
}

// =============================================================================
// LOGOUT
// =============================================================================

// Logout ends the current session and flips the route guard.
func (c *Coordinator) Logout() error {
	username, _ := c.sessions.CurrentUsername()

	if err := c.sessions.EndSession(); err != nil {
		return err
	}
	c.sessCtx.MarkSignedOut()

	if c.audit != nil {
		_ = c.audit.Log(security.AuditEvent{
			EventType: security.EventSessionEnd,
			Username:  username,
			Success:   true,
		})
	}
	return nil
}
