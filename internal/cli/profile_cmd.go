// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// profile_cmd.go - Profile completion after registration.
//
// Command: profile
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/morganforge/pixelfeed/internal/auth"
)

// promptDefault reads one full line, showing the current value. An empty
// answer keeps it.
func promptDefault(r *bufio.Reader, label, current string) string {
	if current != "" {
		fmt.Printf("%s [%s]: ", label, current)
	} else {
		fmt.Printf("%s: ", label)
	}
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return current
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	return line
}

// HandleProfile collects the profile fields the registration form skips and
// writes them to the directory.
func HandleProfile(app *App, args *ArgParser) error {
	if !app.SessCtx.IsAuthenticated() {
		fmt.Println("Sign in first: pixelfeed login")
		return nil
	}
	id, _ := app.SessCtx.Identity()

	ctx := context.Background()
	current, err := app.Directory.GetByID(ctx, id.ID)
	if err != nil {
		fmt.Println(auth.MsgProfileLoadError)
		return nil
	}

	fmt.Printf("Completing profile for %s. Press Enter to keep a value.\n", id.Username)
	in := bufio.NewReader(os.Stdin)

	upd := auth.ProfileUpdate{
		Phone:   promptDefault(in, "Phone", current.Phone),
		Website: promptDefault(in, "Website", current.Website),
		Company: current.Company,
		Address: current.Address,
	}
	upd.Company.Name = promptDefault(in, "Company name", current.Company.Name)
	upd.Company.CatchPhrase = promptDefault(in, "Company catch phrase", current.Company.CatchPhrase)
	upd.Address.Street = promptDefault(in, "Street", current.Address.Street)
	upd.Address.Suite = promptDefault(in, "Suite", current.Address.Suite)
	upd.Address.City = promptDefault(in, "City", current.Address.City)
	upd.Address.Zipcode = promptDefault(in, "Zipcode", current.Address.Zipcode)

	res, err := app.Auth.CompleteProfile(ctx, upd)
	if err != nil {
		return err
	}
	if !res.Success {
		fmt.Println(res.Message)
		return nil
	}

	fmt.Println("Profile updated.")
	return nil
}
