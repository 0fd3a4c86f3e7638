// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// lockout_cmd.go - CLI commands for lockout management.
//
// Command: lockout [subcommand]
// Aliases: lock
//
// Subcommands:
//   status (default)    Show lockout policy and state
//   list                List locked accounts (alias: ls)
//   reset               Clear all lockout state
//
// Flags:
//   --json              Output in JSON format
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"
)

// HandleLockout dispatches the lockout subcommands.
func HandleLockout(app *App, args *ArgParser) error {
	switch args.Subcommand() {
	case "", "status":
		return lockoutStatus(app, args)
	case "list", "ls":
		return lockoutList(app, args)
	case "reset":
		return lockoutReset(app, args)
	default:
		return fmt.Errorf("unknown lockout subcommand: %s", args.Subcommand())
	}
}

func lockoutStatus(app *App, args *ArgParser) error {
	locked := app.Ledger.ListLocked()

	if args.BoolFlag("json") {
		out := map[string]any{
			"max_attempts":  app.Ledger.MaxAttempts(),
			"warn_after":    app.Ledger.WarnAfter(),
			"lock_duration": app.Ledger.LockDuration().String(),
			"locked_count":  len(locked),
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	}

	fmt.Println("Lockout Policy")
	fmt.Printf("  Max attempts:   %d\n", app.Ledger.MaxAttempts())
	fmt.Printf("  Warn after:     %d\n", app.Ledger.WarnAfter())
	fmt.Printf("  Lock duration:  %s\n", app.Ledger.LockDuration())
	fmt.Printf("  Locked now:     %d\n", len(locked))
	return nil
}

func lockoutList(app *App, args *ArgParser) error {
	locked := app.Ledger.ListLocked()
	sort.Slice(locked, func(i, j int) bool { return locked[i].Username < locked[j].Username })

	if args.BoolFlag("json") {
		type entry struct {
			Username string    `json:"username"`
			Until    time.Time `json:"until"`
		}
		out := make([]entry, 0, len(locked))
		for _, e := range locked {
			out = append(out, entry{Username: e.Username, Until: e.Until})
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	}

	if len(locked) == 0 {
		fmt.Println("No accounts are locked.")
		return nil
	}
	for _, e := range locked {
		fmt.Printf("%-20s locked until %s\n", e.Username, e.Until.Format(time.RFC3339))
	}
	return nil
}

func lockoutReset(app *App, args *ArgParser) error {
	if err := app.Ledger.Reset(); err != nil {
		return fmt.Errorf("failed to reset lockout state: %w", err)
	}
	fmt.Println("Lockout state cleared.")
	return nil
}
