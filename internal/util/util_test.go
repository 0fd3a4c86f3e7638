// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIntToString(t *testing.T) {
	require.Equal(t, "42", IntToString(42))
	require.Equal(t, "-7", IntToString(-7))
	require.Equal(t, "0", IntToString(0))
}

func TestStringToInt(t *testing.T) {
	require.Equal(t, 5, StringToInt("5", 0))
	require.Equal(t, 10, StringToInt("not a number", 10))
	require.Equal(t, -3, StringToInt("-3", 0))
}

func TestTruncateRunes(t *testing.T) {
	require.Equal(t, "hello", TruncateRunes("hello", 10))
	require.Equal(t, "he...", TruncateRunes("hello world", 5))
	require.Equal(t, "", TruncateRunes("hello", 0))

	// Multi-byte characters must not be split mid-rune.
	got := TruncateRunes("héllo wörld", 8)
	require.True(t, strings.HasSuffix(got, "..."))
	require.Equal(t, 8, len([]rune(got)))
}

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "state.json")

	require.NoError(t, AtomicWriteFile(path, []byte("first"), 0600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "first", string(data))

	// Overwrite must replace the content completely.
	require.NoError(t, AtomicWriteFile(path, []byte("second"), 0600))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "second", string(data))

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		require.False(t, strings.HasPrefix(e.Name(), ".tmp-"), "leftover temp file: %s", e.Name())
	}

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
