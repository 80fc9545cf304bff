// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

package forge

import (
	"context"
	"strings"

	"crossforge.dev/pkg/internal/xmaps"
)

// A StageRef names a stage, optionally qualified by its owning
// environment's ID. An empty Env refers to the same environment
// as the referring stage.
type StageRef struct {
	Env  string
	Name string
}

// String returns "env/name" or "name" if Env is empty.
func (ref StageRef) String() string {
	if ref.Env == "" {
		return ref.Name
	}
	return ref.Env + "/" + ref.Name
}

// A Command is one external program invocation in a stage's sequence.
// Dir, when non-empty, is relative to the stage's build directory.
type Command struct {
	Program string
	Args    []string
	Dir     string
}

// An EnvOverlay describes the process-environment changes a stage
// applies on top of the run's base environment.
// The zero value applies no changes.
type EnvOverlay struct {
	// Set holds replacement variables.
	Set map[string]string
	// PathPrepend holds directories prepended to PATH, in order.
	PathPrepend []string
}

// Merge applies the overlay to a base environment
// (a list of KEY=VALUE strings) and returns the merged environment
// sorted by variable name. Merge does not modify base.
func (o EnvOverlay) Merge(base []string) []string {
	merged := make(map[string]string, len(base)+len(o.Set))
	for _, kv := range base {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			merged[k] = v
		}
	}
	for k, v := range o.Set {
		merged[k] = v
	}
	if len(o.PathPrepend) > 0 {
		path := strings.Join(o.PathPrepend, ":")
		if old := merged["PATH"]; old != "" {
			path += ":" + old
		}
		merged["PATH"] = path
	}
	result := make([]string, 0, len(merged))
	for k, v := range xmaps.Sorted(merged) {
		result = append(result, k+"="+v)
	}
	return result
}

// A Stage is an immutable description of one build step:
// a command sequence (or an in-process action) executed in an
// exclusive build directory, with declared predecessors,
// a completion marker for resume, and declared output paths.
type Stage struct {
	// Name identifies the stage within its environment.
	Name string
	// Env is the environment the stage belongs to.
	Env *Environment
	// After lists the stage's direct predecessors.
	After []StageRef
	// Commands is the external command sequence.
	// It is empty for stages whose work is an in-process Action.
	Commands []Command
	// Overlay is applied to every command's process environment.
	Overlay EnvOverlay
	// Action, if non-nil, is executed instead of Commands.
	// Borrow and packaging stages use it.
	Action func(ctx context.Context) error
	// Marker reports whether the stage's output already exists.
	Marker CompletionMarker
	// BestEffort stages may fail without blocking their dependents.
	BestEffort bool
	// Outputs lists prefix-relative paths the stage writes.
	// Stages of one environment with overlapping outputs
	// must be ordered by the graph.
	Outputs []string
}

// Key returns the stage's globally unique "envID/name" key.
func (s *Stage) Key() string {
	return s.Env.ID + "/" + s.Name
}

// writesUnder reports whether any declared output of s
// is equal to or nested under any declared output of other
// (or vice versa).
func (s *Stage) writesUnder(other *Stage) bool {
	for _, a := range s.Outputs {
		for _, b := range other.Outputs {
			if a == b ||
				strings.HasPrefix(a, b+"/") ||
				strings.HasPrefix(b, a+"/") {
				return true
			}
		}
	}
	return false
}
