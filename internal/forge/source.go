// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

package forge

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrSourceNotFound is returned by a [SourceResolver]
// when a component's source tree is not provisioned.
var ErrSourceNotFound = errors.New("source not found")

// A SourceResolver locates component source trees.
// Provisioning (download, checkout, unpack) is the caller's concern;
// the orchestrator only requires that sources exist
// before graph construction.
type SourceResolver interface {
	// SourcePath returns the path of the component's source tree.
	// It returns an error wrapping [ErrSourceNotFound]
	// when the component is not provisioned.
	SourcePath(component string) (string, error)
}

// HomeResolver resolves component sources as subdirectories
// of a single home directory.
type HomeResolver struct {
	// Home is the directory containing one source tree per component.
	Home string
}

func (r HomeResolver) SourcePath(component string) (string, error) {
	path := filepath.Join(r.Home, component)
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("component %s: %w", component, ErrSourceNotFound)
	}
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("component %s: %s is not a directory", component, path)
	}
	return path, nil
}
