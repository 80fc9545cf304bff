// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

package forge

import (
	"fmt"
	"strings"
)

// ConfigError indicates a malformed or unsupported build request,
// detected before any stage runs.
type ConfigError struct {
	Err error
}

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{Err: fmt.Errorf(format, args...)}
}

func (e *ConfigError) Error() string { return "invalid configuration: " + e.Err.Error() }

func (e *ConfigError) Unwrap() error { return e.Err }

// DependencyError indicates that a stage's predecessor or a required
// component could not be resolved locally or via a sibling environment.
// It is detected during graph construction, before execution.
type DependencyError struct {
	Err error
}

func dependencyErrorf(format string, args ...any) *DependencyError {
	return &DependencyError{Err: fmt.Errorf(format, args...)}
}

func (e *DependencyError) Error() string { return "unresolved dependency: " + e.Err.Error() }

func (e *DependencyError) Unwrap() error { return e.Err }

// ComponentNotFoundError indicates that a component install path
// is not registered in an environment or any of its siblings.
type ComponentNotFoundError struct {
	Component   string
	Environment string
}

func (e *ComponentNotFoundError) Error() string {
	return fmt.Sprintf("component %q not found in environment %s", e.Component, e.Environment)
}

// CommandError indicates that a stage's external command exited non-zero.
type CommandError struct {
	Stage    string
	ExitCode int
	// OutputTail holds the last lines of the command's combined output.
	OutputTail []string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("stage %s: command exited with code %d", e.Stage, e.ExitCode)
	if len(e.OutputTail) > 0 {
		msg += "\n" + strings.Join(e.OutputTail, "\n")
	}
	return msg
}

// PackagingError indicates that archive creation failed
// on a completed environment.
type PackagingError struct {
	Environment string
	Err         error
}

func (e *PackagingError) Error() string {
	return fmt.Sprintf("package environment %s: %v", e.Environment, e.Err)
}

func (e *PackagingError) Unwrap() error { return e.Err }
