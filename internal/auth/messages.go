// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import "fmt"

// User-facing message strings. These are part of the client's surface; tests
// pin them verbatim.
const (
	MsgCredentialsRequired = "Username and password are required"
	MsgInvalidCredentials  = "Invalid username or password"
	MsgFieldsRequired      = "All fields except Name are required"
	MsgPasswordMismatch    = "Passwords don't match"
	MsgInvalidEmail        = "Please enter a valid email address"
	MsgPasswordTooShort    = "Password must be at least 6 characters long"
	MsgUsernameTaken       = "Username already taken"
	MsgLoginError          = "Error during login. Please try again."
	MsgRegisterError       = "Error creating account. Please try again."
	MsgProfileLoadError    = "Could not load user data"
	MsgProfileUpdateError  = "Failed to update profile"
)

// WarningMessage is shown once failures reach the warning threshold.
func WarningMessage(count, max int) string {
	return fmt.Sprintf("Warning: %d failed login attempts. Account will be locked after %d attempts.", count, max)
}

// LockedNowMessage is shown on the failure that locks the account.
func LockedNowMessage(username string, minutes int) string {
	return fmt.Sprintf("Too many failed attempts. Account %q locked for %d minutes.", username, minutes)
}

// LockedMessage is shown when an attempt hits an already locked account.
func LockedMessage(username string, seconds int) string {
	return fmt.Sprintf("Account %q is locked. Try again in %d seconds or use another account.", username, seconds)
}
