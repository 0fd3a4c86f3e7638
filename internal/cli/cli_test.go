// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFromCommands(t *testing.T) {
	tests := []struct {
		argv []string
		want Command
	}{
		{nil, CmdShell},
		{[]string{"login"}, CmdLogin},
		{[]string{"signin"}, CmdLogin},
		{[]string{"register"}, CmdRegister},
		{[]string{"logout"}, CmdLogout},
		{[]string{"profile"}, CmdProfile},
		{[]string{"status"}, CmdStatus},
		{[]string{"whoami"}, CmdStatus},
		{[]string{"s"}, CmdStatus},
		{[]string{"lockout", "list"}, CmdLockout},
		{[]string{"feed"}, CmdFeed},
		{[]string{"todos", "add", "x"}, CmdTodos},
		{[]string{"config", "show"}, CmdConfig},
		{[]string{"version"}, CmdVersion},
		{[]string{"help"}, CmdHelp},
		{[]string{"bogus"}, CmdHelp},
	}
	for _, tt := range tests {
		cmd, _ := parseFrom(tt.argv)
		require.Equal(t, tt.want, cmd, "argv %v", tt.argv)
	}
}

func TestParseFromPassesArgs(t *testing.T) {
	cmd, args := parseFrom([]string{"lockout", "list", "--json"})
	require.Equal(t, CmdLockout, cmd)
	require.Equal(t, "list", args.Subcommand())
	require.True(t, args.BoolFlag("json"))
}

func TestArgParserFlags(t *testing.T) {
	p := NewArgParser([]string{"list", "--page", "2", "--limit=10", "--json", "extra"})
	require.Equal(t, "list", p.Subcommand())
	require.Equal(t, 2, p.FlagIntOrDefault("page", 1))
	require.Equal(t, "10", p.Flag("limit"))
	require.True(t, p.BoolFlag("json"))
	require.Equal(t, "extra", p.Positional(1))
}

func TestArgParserDefaults(t *testing.T) {
	p := NewArgParser([]string{})
	require.Equal(t, "", p.Subcommand())
	require.Equal(t, 1, p.FlagIntOrDefault("page", 1))
	require.False(t, p.BoolFlag("json"))
	require.Equal(t, "", p.Positional(5))
	require.Nil(t, p.PositionalFrom(1))
}

func TestArgParserBoolFlagTakesNoValue(t *testing.T) {
	// --remember must not swallow the following positional.
	p := NewArgParser([]string{"--remember", "alice"})
	require.True(t, p.BoolFlag("remember"))
	require.Equal(t, "alice", p.Positional(0))
}

func TestArgParserMalformedInt(t *testing.T) {
	p := NewArgParser([]string{"--page", "abc"})
	require.Equal(t, 7, p.FlagIntOrDefault("page", 7))
}

func TestArgParserPositionalFrom(t *testing.T) {
	p := NewArgParser([]string{"add", "buy", "more", "film"})
	require.Equal(t, []string{"buy", "more", "film"}, p.PositionalFrom(1))
}
