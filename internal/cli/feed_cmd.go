// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// feed_cmd.go - Feed and todo commands.
//
// Command: feed [--page N] [--limit N] [--mine]
// Command: todos [list|add|done] [args]
package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/morganforge/pixelfeed/internal/feed"
	"github.com/morganforge/pixelfeed/internal/session"
	"github.com/morganforge/pixelfeed/internal/util"
)

// HandleFeed shows a page of posts. Signed-in users get a discovery feed
// excluding their own posts; --mine flips to their own.
func HandleFeed(app *App, args *ArgParser) error {
	if err := app.SessCtx.Require(); err != nil {
		if errors.Is(err, session.ErrNotAuthenticated) {
			fmt.Println("Sign in first: pixelfeed login")
			return nil
		}
		return err
	}
	id, _ := app.SessCtx.Identity()

	ctx := context.Background()
	opts := feed.PageOptions{
		Page:  args.FlagIntOrDefault("page", 1),
		Limit: args.FlagIntOrDefault("limit", 10),
	}

	var (
		posts []feed.Post
		err   error
	)
	if args.BoolFlag("mine") {
		posts, err = app.Feed.PostsByUser(ctx, id.ID)
	} else {
		posts, err = app.Feed.DiscoverPosts(ctx, id.ID, opts)
	}
	if err != nil {
		return fmt.Errorf("failed to load feed: %w", err)
	}

	if len(posts) == 0 {
		fmt.Println("No posts.")
		return nil
	}
	for _, p := range posts {
		fmt.Printf("#%-4d %s\n", p.ID, util.TruncateRunes(p.Title, 60))
		body := strings.ReplaceAll(p.Body, "\n", " ")
		fmt.Printf("      %s\n", util.TruncateRunes(body, 76))
	}
	return nil
}

// HandleTodos manages the signed-in user's todos.
func HandleTodos(app *App, args *ArgParser) error {
	if err := app.SessCtx.Require(); err != nil {
		if errors.Is(err, session.ErrNotAuthenticated) {
			fmt.Println("Sign in first: pixelfeed login")
			return nil
		}
		return err
	}
	id, _ := app.SessCtx.Identity()
	ctx := context.Background()

	switch args.Subcommand() {
	case "", "list", "ls":
		todos, err := app.Feed.TodosByUser(ctx, id.ID)
		if err != nil {
			return fmt.Errorf("failed to load todos: %w", err)
		}
		if len(todos) == 0 {
			fmt.Println("No todos.")
			return nil
		}
		for _, td := range todos {
			mark := " "
			if td.Completed {
				mark = "x"
			}
			fmt.Printf("[%s] #%-4d %s\n", mark, td.ID, td.Title)
		}
		return nil

	case "add":
		title := strings.Join(args.PositionalFrom(1), " ")
		if title == "" {
			return fmt.Errorf("usage: todos add <title>")
		}
		created, err := app.Feed.CreateTodo(ctx, feed.Todo{UserID: id.ID, Title: title})
		if err != nil {
			return fmt.Errorf("failed to add todo: %w", err)
		}
		fmt.Printf("Added #%d.\n", created.ID)
		return nil

	case "done":
		idArg := args.Positional(1)
		todoID, err := strconv.Atoi(idArg)
		if err != nil {
			return fmt.Errorf("usage: todos done <id>")
		}
		todos, err := app.Feed.TodosByUser(ctx, id.ID)
		if err != nil {
			return fmt.Errorf("failed to load todos: %w", err)
		}
		for _, td := range todos {
			if td.ID == todoID {
				td.Completed = true
				if _, err := app.Feed.UpdateTodo(ctx, td); err != nil {
					return fmt.Errorf("failed to update todo: %w", err)
				}
				fmt.Printf("Done #%d.\n", todoID)
				return nil
			}
		}
		return fmt.Errorf("todo #%d not found", todoID)

	default:
		return fmt.Errorf("unknown todos subcommand: %s", args.Subcommand())
	}
}
