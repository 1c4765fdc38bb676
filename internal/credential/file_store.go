// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package credential

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/jeranaias/vaulthub-tui/internal/util"
)

// FileStore keeps the token in a single file readable only by the owner.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the token file location.
func (f *FileStore) Path() string { return f.path }

// Get reads the token file. A missing file is an empty slot.
func (f *FileStore) Get(_ context.Context) (string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	return normalize(string(data)), nil
}

// Set writes the token with 0600 permissions in a 0700 directory.
func (f *FileStore) Set(_ context.Context, token string) error {
	token = normalize(token)
	if token == "" {
		return ErrEmptyToken
	}
	if err := util.AtomicWriteFile(f.path, []byte(token), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Clear removes the token file.
func (f *FileStore) Clear(_ context.Context) error {
	if err := util.RemoveIfExists(f.path); err != nil {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}
