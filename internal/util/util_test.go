// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestAtomicWriteFile_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "token")

	require.NoError(t, AtomicWriteFile(path, []byte("abc"), 0600, 0700))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestAtomicWriteFile_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, AtomicWriteFile(path, []byte("first-value"), 0600, 0700))
	require.NoError(t, AtomicWriteFile(path, []byte("second"), 0600, 0700))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestAtomicWriteFile_Permissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, AtomicWriteFile(path, []byte("x"), 0600, 0700))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestRemoveIfExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone")
	assert.NoError(t, RemoveIfExists(path))

	require.NoError(t, os.WriteFile(path, []byte("x"), 0600))
	assert.NoError(t, RemoveIfExists(path))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

// =============================================================================
// DISPLAY TESTS
// =============================================================================

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
		want  string
	}{
		{"fits", "vault", 10, "vault"},
		{"exact", "vault", 5, "vault"},
		{"zero", "vault", 0, ""},
		{"ascii", "production-db", 8, "product…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truncate(tt.in, tt.width))
		})
	}
}

func TestTruncate_WideRunes(t *testing.T) {
	got := Truncate("数据库凭证密钥", 7)
	assert.LessOrEqual(t, runewidth.StringWidth(got), 7)
}

func TestPadRight(t *testing.T) {
	assert.Equal(t, "ab   ", PadRight("ab", 5))
	assert.Equal(t, 5, runewidth.StringWidth(PadRight("密钥", 5)))
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, "-", Fingerprint(""))
	fp := Fingerprint("token-value")
	assert.Len(t, fp, 12)
	assert.Equal(t, fp, Fingerprint("token-value"))
	assert.NotEqual(t, fp, Fingerprint("other"))
}
