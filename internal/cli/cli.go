// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command routing for pixelfeed.
package cli

import (
	"fmt"
	"os"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdShell Command = iota
	CmdLogin
	CmdRegister
	CmdLogout
	CmdProfile
	CmdStatus
	CmdLockout
	CmdFeed
	CmdTodos
	CmdConfig
	CmdVersion
	CmdHelp
)

const usageText = `pixelfeed - photo feed client

Pixelfeed is a terminal client for a pixelfeed server.

It provides:
  - Sign-in with remember-me and account lockout protection
  - Account registration
  - Feed, album and todo access from the terminal
  - Audit logging of authentication events

Usage:
  pixelfeed                      Interactive shell (default)
  pixelfeed login [username]     Sign in
  pixelfeed register             Create an account
  pixelfeed logout               Sign out
  pixelfeed profile              Complete or update your profile
  pixelfeed status, whoami       Show session status
  pixelfeed lockout [subcommand] Lockout management
  pixelfeed feed                 Browse the feed
  pixelfeed todos [subcommand]   Manage todos
  pixelfeed config [show|set]    Configuration
  pixelfeed version              Show version
  pixelfeed help                 Show this help

Login flags:
  --remember            Stay signed in for 30 days

Feed flags:
  --page N              Page number
  --limit N             Posts per page
  --mine                Only your own posts

Lockout subcommands:
  status (default)      Show lockout policy and state
  list                  List locked accounts
  reset                 Clear all lockout state

Environment:
  PIXELFEED_API_URL     Override the server URL
  PIXELFEED_STORAGE_DIR Override the data directory
  PIXELFEED_AUDIT       Enable/disable audit logging (true/false)
`

// Parse parses os.Args into a command and its arguments.
func Parse() (Command, *ArgParser) {
	return parseFrom(os.Args[1:])
}

func parseFrom(argv []string) (Command, *ArgParser) {
	if len(argv) == 0 {
		return CmdShell, NewArgParser(nil)
	}

	cmd := argv[0]
	rest := NewArgParser(argv[1:])

	switch cmd {
	case "login", "signin":
		return CmdLogin, rest
	case "register", "signup":
		return CmdRegister, rest
	case "logout", "signout":
		return CmdLogout, rest
	case "profile":
		return CmdProfile, rest
	case "status", "s", "whoami":
		return CmdStatus, rest
	case "lockout", "lock":
		return CmdLockout, rest
	case "feed", "posts":
		return CmdFeed, rest
	case "todos", "todo":
		return CmdTodos, rest
	case "config":
		return CmdConfig, rest
	case "version", "-v", "--version":
		return CmdVersion, rest
	case "help", "-h", "--help":
		return CmdHelp, rest
	case "shell":
		return CmdShell, rest
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		return CmdHelp, rest
	}
}

// PrintUsage writes the usage text to stdout.
func PrintUsage() {
	fmt.Print(usageText)
}

// PrintVersion writes version information to stdout.
func PrintVersion() {
	fmt.Printf("pixelfeed %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}
