// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package directory

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// =============================================================================
// USER RECORDS
// =============================================================================

// Geo is a user's map coordinates.
type Geo struct {
	Lat string `json:"lat"`
	Lng string `json:"lng"`
}

// Address is the directory's postal address shape.
type Address struct {
	Street  string `json:"street"`
	Suite   string `json:"suite"`
	City    string `json:"city"`
	Zipcode string `json:"zipcode"`
	Geo     Geo    `json:"geo"`
}

// Company is the directory's company shape.
type Company struct {
	Name        string `json:"name"`
	CatchPhrase string `json:"catchPhrase"`
	Bs          string `json:"bs"`
}

// User is a directory user record.
//
// SECURITY: PasswordHash carries a bcrypt hash, never a plaintext password.
type User struct {
	ID           int     `json:"id,omitempty"`
	Username     string  `json:"username"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	PasswordHash string  `json:"passwordHash,omitempty"`
	Website      string  `json:"website,omitempty"`
	Phone        string  `json:"phone,omitempty"`
	Address      Address `json:"address"`
	Company      Company `json:"company"`
}

// Sanitized returns a copy with credential material stripped, for display
// and for persisting outside the directory.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}

// =============================================================================
// USER OPERATIONS
// =============================================================================

// GetByUsername looks a user up by exact username. Returns ErrNotFound when
// no user matches. A duplicate username is a server-side data fault; the
// first match wins.
func (c *Client) GetByUsername(ctx context.Context, username string) (*User, error) {
	query := url.Values{"username": {username}}

	var users []User
	if err := c.GetJSON(ctx, "/users", query, &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrNotFound
	}
	return &users[0], nil
}

// GetByID fetches a user by numeric ID.
func (c *Client) GetByID(ctx context.Context, id int) (*User, error) {
	var user User
	if err := c.GetJSON(ctx, "/users/"+strconv.Itoa(id), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser registers a new user record and returns it with the assigned ID.
func (c *Client) CreateUser(ctx context.Context, user *User) (*User, error) {
	if user == nil {
		return nil, fmt.Errorf("user cannot be nil")
	}

	var created User
	if err := c.PostJSON(ctx, "/users", user, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateUser replaces the record for user.ID.
func (c *Client) UpdateUser(ctx context.Context, user *User) (*User, error) {
	if user == nil {
		return nil, fmt.Errorf("user cannot be nil")
	}
	if user.ID == 0 {
		return nil, fmt.Errorf("user has no ID")
	}

	var updated User
	if err := c.PutJSON(ctx, "/users/"+strconv.Itoa(user.ID), user, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}
