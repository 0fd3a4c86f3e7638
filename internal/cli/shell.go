// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// shell.go - Interactive shell with input history.
//
// USABILITY: Supports arrow keys for history navigation and line editing.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/morganforge/pixelfeed/internal/config"
)

var shellCommands = []string{
	"login", "register", "logout", "profile", "status", "whoami",
	"lockout", "feed", "todos", "config", "help", "exit", "quit",
}

// Shell provides the interactive command loop.
type Shell struct {
	app         *App
	line        *liner.State
	historyFile string
}

// NewShell creates a shell with history loaded from the storage directory.
func NewShell(app *App) *Shell {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(prefix string) []string {
		var out []string
		for _, cmd := range shellCommands {
			if strings.HasPrefix(cmd, strings.ToLower(prefix)) {
				out = append(out, cmd)
			}
		}
		return out
	})

	dir, err := config.Dir()
	if err != nil {
		dir = os.TempDir()
	}
	s := &Shell{
		app:         app,
		line:        line,
		historyFile: filepath.Join(dir, "shell_history"),
	}
	s.loadHistory()
	return s
}

func (s *Shell) loadHistory() {
	if f, err := os.Open(s.historyFile); err == nil {
		s.line.ReadHistory(f)
		f.Close()
	}
}

func (s *Shell) saveHistory() {
	if f, err := os.Create(s.historyFile); err == nil {
		s.line.WriteHistory(f)
		f.Close()
	}
}

// Close writes history and restores the terminal.
func (s *Shell) Close() {
	s.saveHistory()
	s.line.Close()
}

func (s *Shell) prompt() string {
	if id, ok := s.app.SessCtx.Identity(); ok {
		return id.Username + "> "
	}
	return "pixelfeed> "
}

// Run loops until exit or EOF.
func (s *Shell) Run() error {
	fmt.Printf("pixelfeed %s. Type help for commands, exit to leave.\n", Version)

	for {
		input, err := s.line.Prompt(s.prompt())
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Println()
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		s.line.AppendHistory(input)

		fields := strings.Fields(input)
		if fields[0] == "exit" || fields[0] == "quit" {
			return nil
		}

		cmd, args := parseFrom(fields)
		if cmd == CmdShell {
			// No nested shells.
			continue
		}
		if err := dispatch(s.app, cmd, args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
}
