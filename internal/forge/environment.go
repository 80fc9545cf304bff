// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

// Package forge models toolchain build environments
// and orchestrates their staged builds.
package forge

import (
	"path/filepath"
	"strings"

	"crossforge.dev/pkg/internal/triple"
)

// An Environment is one toolchain build instance:
// a (build, host, target) combination with an install prefix,
// registered component install paths,
// and references to sibling environments it borrows artifacts from.
type Environment struct {
	// ID is the environment's canonical name,
	// unique within a [Workspace].
	ID string
	// Role relates the build, host, and target platforms.
	Role triple.RoleCategory

	Build  triple.Triple
	Host   triple.Triple
	Target triple.Triple

	// Prefix is the absolute install prefix.
	// No two environments share a prefix.
	Prefix string
	// Version is the toolchain version, like "15.1.0".
	Version string

	components map[string]string
	siblings   []*Environment
	borrows    []BorrowEdge
}

// A BorrowEdge declares a read-only artifact dependency:
// the path SourceRel under Source's prefix is copied to
// DestRel under the borrowing environment's prefix.
type BorrowEdge struct {
	Source    *Environment
	SourceRel string
	DestRel   string
}

// PrefixName derives the canonical name for an environment.
// It is a pure function of its arguments:
// identical inputs always produce the identical name.
func PrefixName(role triple.RoleCategory, build, host, target triple.Triple, version string) string {
	major, _, _ := strings.Cut(version, ".")
	if role == triple.Native || host == target {
		return host.String() + "-native-gcc" + major
	}
	return host.String() + "-host-" + target.String() + "-target-gcc" + major
}

// RegisterComponent records the install path of a locally built component.
// Registering a name again replaces the previous path.
func (env *Environment) RegisterComponent(name, path string) {
	if env.components == nil {
		env.components = make(map[string]string)
	}
	env.components[name] = path
}

// ResolveComponent returns the install path of the named component.
// Local registrations take precedence;
// otherwise siblings are consulted in declaration order.
// If no environment provides the component,
// ResolveComponent returns a [*DependencyError]
// wrapping a [*ComponentNotFoundError].
func (env *Environment) ResolveComponent(name string) (string, error) {
	if path, ok := env.components[name]; ok {
		return path, nil
	}
	for _, sib := range env.siblings {
		if path, ok := sib.components[name]; ok {
			return path, nil
		}
	}
	return "", &DependencyError{Err: &ComponentNotFoundError{
		Component:   name,
		Environment: env.ID,
	}}
}

// AddSibling declares that env may resolve components from
// and borrow artifacts built by sib.
// Sibling order is the order of declaration.
func (env *Environment) AddSibling(sib *Environment) {
	env.siblings = append(env.siblings, sib)
}

// Siblings returns the declared siblings in declaration order.
func (env *Environment) Siblings() []*Environment {
	return env.siblings
}

// AddBorrow declares a borrow edge from src into env.
// Borrow edges are ordered by declaration.
func (env *Environment) AddBorrow(src *Environment, srcRel, dstRel string) {
	env.borrows = append(env.borrows, BorrowEdge{
		Source:    src,
		SourceRel: srcRel,
		DestRel:   dstRel,
	})
}

// Borrows returns the declared borrow edges in declaration order.
func (env *Environment) Borrows() []BorrowEdge {
	return env.borrows
}

// A Workspace is the registry of environments for one build request.
// It enforces prefix uniqueness.
type Workspace struct {
	// PrefixDir is the directory that holds environment prefixes.
	PrefixDir string
	// WorkDir is the directory that holds per-stage build directories.
	WorkDir string

	envs     map[string]*Environment
	prefixes map[string]string // prefix -> environment ID
}

// NewWorkspace returns a workspace rooted at the given directories.
func NewWorkspace(prefixDir, workDir string) *Workspace {
	return &Workspace{
		PrefixDir: prefixDir,
		WorkDir:   workDir,
		envs:      make(map[string]*Environment),
		prefixes:  make(map[string]string),
	}
}

// NewEnvironment creates and registers an environment
// for the given platform combination.
// The environment's ID and prefix are derived with [PrefixName].
// It returns a [*ConfigError] if the ID or prefix
// collides with a previously registered environment.
func (ws *Workspace) NewEnvironment(role triple.RoleCategory, build, host, target triple.Triple, version string) (*Environment, error) {
	env := &Environment{
		ID:      PrefixName(role, build, host, target, version),
		Role:    role,
		Build:   build,
		Host:    host,
		Target:  target,
		Version: version,
	}
	env.Prefix = filepath.Join(ws.PrefixDir, env.ID)
	if other, exists := ws.envs[env.ID]; exists {
		if other.Build == build && other.Host == host && other.Target == target {
			// Same platform combination resolves to the same instance.
			return other, nil
		}
		return nil, configErrorf("environment %s already exists for a different platform combination", env.ID)
	}
	if otherID, exists := ws.prefixes[env.Prefix]; exists {
		return nil, configErrorf("prefix %s already owned by environment %s", env.Prefix, otherID)
	}
	ws.envs[env.ID] = env
	ws.prefixes[env.Prefix] = env.ID
	return env, nil
}

// Environment returns the registered environment with the given ID,
// or nil if none exists.
func (ws *Workspace) Environment(id string) *Environment {
	return ws.envs[id]
}

// BuildDir returns the exclusive build directory
// for the named stage of env.
func (ws *Workspace) BuildDir(env *Environment, stageName string) string {
	return filepath.Join(ws.WorkDir, env.ID, stageName)
}
