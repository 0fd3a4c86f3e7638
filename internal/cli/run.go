// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// run.go - Command dispatch.
package cli

import (
	"fmt"
	"os"
)

// Run parses argv, builds the app and executes the selected command.
// It returns the process exit code.
func Run(argv []string) int {
	cmd, args := parseFrom(argv)

	// Help and version need no wiring.
	switch cmd {
	case CmdHelp:
		PrintUsage()
		return 0
	case CmdVersion:
		PrintVersion()
		return 0
	}

	app, err := NewApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer app.Close()

	if cmd == CmdShell {
		shell := NewShell(app)
		defer shell.Close()
		if err := shell.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if err := dispatch(app, cmd, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// dispatch routes a parsed command to its handler.
func dispatch(app *App, cmd Command, args *ArgParser) error {
	switch cmd {
	case CmdLogin:
		return HandleLogin(app, args)
	case CmdRegister:
		return HandleRegister(app, args)
	case CmdLogout:
		return HandleLogout(app, args)
	case CmdProfile:
		return HandleProfile(app, args)
	case CmdStatus:
		return HandleStatus(app, args)
	case CmdLockout:
		return HandleLockout(app, args)
	case CmdFeed:
		return HandleFeed(app, args)
	case CmdTodos:
		return HandleTodos(app, args)
	case CmdConfig:
		return HandleConfig(app, args)
	case CmdHelp:
		PrintUsage()
		return nil
	case CmdVersion:
		PrintVersion()
		return nil
	default:
		PrintUsage()
		return nil
	}
}
