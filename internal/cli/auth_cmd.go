// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// auth_cmd.go - Sign-in, registration, sign-out and session status commands.
//
// Command: login [username] [--remember]
// Command: register
// Command: logout
// Command: status | whoami
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/morganforge/pixelfeed/internal/auth"
)

// readPassword reads a password from stdin without echoing.
// Uses golang.org/x/term for secure cross-platform password input.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	passBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println() // Add newline after hidden input
	return strings.TrimSpace(string(passBytes)), nil
}

func readLine(prompt string) (string, error) {
	fmt.Print(prompt)
	var line string
	if _, err := fmt.Scanln(&line); err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// HandleLogin runs the sign-in flow.
func HandleLogin(app *App, args *ArgParser) error {
	username := args.Positional(0)
	if username == "" {
		var err error
		username, err = readLine("Username: ")
		if err != nil {
			return fmt.Errorf("failed to read username: %w", err)
		}
	}

	// The ledger is keyed by the canonical username, so "ALICE" and "alice"
	// share one lock.
	ledgerName := username
	if n, err := auth.NormalizeUsername(username); err == nil {
		ledgerName = n
	}

	// A locked account gets a live countdown instead of a password prompt.
	if app.Ledger.IsLocked(ledgerName) {
		return showLockCountdown(app, ledgerName)
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}

	res, err := app.Auth.Login(context.Background(), username, password, args.BoolFlag("remember"))
	if err != nil {
		return err
	}

	if res.Warning != "" {
		fmt.Println(res.Warning)
	}
	if !res.Success {
		fmt.Println(res.Message)
		if app.Ledger.IsLocked(ledgerName) {
			return showLockCountdown(app, ledgerName)
		}
		return nil
	}

	fmt.Printf("Signed in as %s.\n", res.User.Username)
	return nil
}

// showLockCountdown ticks the remaining lock time down once per second until
// the lock expires or the user interrupts.
func showLockCountdown(app *App, username string) error {
	done := make(chan struct{})
	countdown := app.Ledger.StartCountdown(username, 0, func(remaining int) {
		if remaining <= 0 {
			fmt.Printf("\rAccount %q is unlocked. Try signing in again.\n", username)
			select {
			case <-done:
			default:
				close(done)
			}
			return
		}
		fmt.Printf("\rAccount %q is locked. Try again in %d seconds or use another account.", username, remaining)
	})
	defer countdown.Stop()

	<-done
	return nil
}

// HandleRegister runs the registration flow.
func HandleRegister(app *App, args *ArgParser) error {
	username, err := readLine("Username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}
	name, _ := readLine("Name (optional): ")
	email, err := readLine("Email: ")
	if err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}
	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		return err
	}

	res, err := app.Auth.Register(context.Background(), auth.RegisterRequest{
		Username:        username,
		Name:            name,
		Email:           email,
		Password:        password,
		ConfirmPassword: confirm,
	})
	if err != nil {
		return err
	}

	if !res.Success {
		fmt.Println(res.Message)
		return nil
	}

	fmt.Printf("Account created. Signed in as %s.\n", res.User.Username)
	if res.ProfilePending {
		fmt.Println("Complete your profile with: pixelfeed profile")
	}
	return nil
}

// HandleLogout ends the current session.
func HandleLogout(app *App, args *ArgParser) error {
	if !app.SessCtx.IsAuthenticated() {
		fmt.Println("Not signed in.")
		return nil
	}

	id, _ := app.SessCtx.Identity()
	if err := app.Auth.Logout(); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	fmt.Printf("Signed out %s.\n", id.Username)
	return nil
}

// HandleStatus shows the current session.
func HandleStatus(app *App, args *ArgParser) error {
	id, ok := app.SessCtx.Identity()
	if !ok {
		fmt.Println("Not signed in.")
		return nil
	}

	fmt.Printf("Signed in as %s", id.Username)
	if id.Name != "" {
		fmt.Printf(" (%s)", id.Name)
	}
	fmt.Println()
	if id.Email != "" {
		fmt.Printf("Email: %s\n", id.Email)
	}
	fmt.Printf("Server: %s\n", app.Config.API.BaseURL)
	return nil
}
