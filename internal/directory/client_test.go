// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package directory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&ClientConfig{BaseURL: srv.URL, RequestsPerSecond: 1000})
}

func TestGetByUsername(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users", r.URL.Path)
		require.Equal(t, "alice", r.URL.Query().Get("username"))
		require.NotEmpty(t, r.Header.Get("X-Request-ID"))

		json.NewEncoder(w).Encode([]User{{
			ID:       7,
			Username: "alice",
			Name:     "Alice Adams",
			Email:    "alice@example.com",
		}})
	}))

	user, err := client.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, 7, user.ID)
	require.Equal(t, "Alice Adams", user.Name)
}

func TestGetByUsernameNotFound(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]User{})
	}))

	_, err := client.GetByUsername(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetByUsernameEscapesQuery(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The raw query must carry the username encoded, not verbatim.
		require.Equal(t, "a b&c", r.URL.Query().Get("username"))
		json.NewEncoder(w).Encode([]User{})
	}))

	_, err := client.GetByUsername(context.Background(), "a b&c")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetByID(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/7", r.URL.Path)
		json.NewEncoder(w).Encode(User{ID: 7, Username: "alice"})
	}))

	user, err := client.GetByID(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)
}

func TestGetByIDNotFound(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	_, err := client.GetByID(context.Background(), 999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateUser(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/users", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var in User
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.Equal(t, "bob", in.Username)
		require.NotEmpty(t, in.PasswordHash)

		in.ID = 11
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(in)
	}))

	created, err := client.CreateUser(context.Background(), &User{
		Username:     "bob",
		Email:        "bob@example.com",
		PasswordHash: "$2a$10$fakehash",
	})
	require.NoError(t, err)
	require.Equal(t, 11, created.ID)
}

func TestUpdateUser(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/users/7", r.URL.Path)

		var in User
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		json.NewEncoder(w).Encode(in)
	}))

	updated, err := client.UpdateUser(context.Background(), &User{ID: 7, Username: "alice", Website: "alice.dev"})
	require.NoError(t, err)
	require.Equal(t, "alice.dev", updated.Website)

	_, err = client.UpdateUser(context.Background(), &User{Username: "noid"})
	require.Error(t, err)
}

func TestUnreachableServer(t *testing.T) {
	client := NewClient(&ClientConfig{
		// Port 1 is never listening.
		BaseURL:           "http://127.0.0.1:1",
		Timeout:           time.Second,
		RequestsPerSecond: 1000,
	})

	_, err := client.GetByUsername(context.Background(), "alice")
	require.ErrorIs(t, err, ErrUnreachable)

	var ce *ClientError
	require.True(t, errors.As(err, &ce))
	require.Equal(t, ErrTypeConnection, ce.Type)
}

func TestServerErrorStatus(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := client.GetByUsername(context.Background(), "alice")
	var ce *ClientError
	require.True(t, errors.As(err, &ce))
	require.Equal(t, ErrTypeInvalidResponse, ce.Type)
}

func TestMalformedResponse(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))

	_, err := client.GetByUsername(context.Background(), "alice")
	var ce *ClientError
	require.True(t, errors.As(err, &ce))
	require.Equal(t, ErrTypeInvalidResponse, ce.Type)
}

func TestContextCancellation(t *testing.T) {
	started := make(chan struct{})
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := client.GetByUsername(ctx, "alice")
	require.Error(t, err)
}

func TestSanitizedStripsHash(t *testing.T) {
	u := User{Username: "alice", PasswordHash: "$2a$10$fakehash"}
	require.Empty(t, u.Sanitized().PasswordHash)
	require.Equal(t, "alice", u.Sanitized().Username)
}
