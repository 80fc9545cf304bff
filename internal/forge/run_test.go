// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

package forge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"crossforge.dev/pkg/internal/osutil"
	"crossforge.dev/pkg/internal/testcontext"
	"crossforge.dev/pkg/sets"
)

// fakeRunner records every invocation and delegates behavior to onRun.
type fakeRunner struct {
	mu          sync.Mutex
	invocations []*Invocation
	onRun       func(c *Invocation) error
}

func (r *fakeRunner) Run(ctx context.Context, c *Invocation) error {
	r.mu.Lock()
	r.invocations = append(r.invocations, c)
	r.mu.Unlock()
	if r.onRun != nil {
		return r.onRun(c)
	}
	return nil
}

func (r *fakeRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.invocations)
}

// dirs returns the distinct build directories invoked, in no particular order.
func (r *fakeRunner) dirs() map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	for _, c := range r.invocations {
		seen[filepath.Base(c.Dir)] = true
	}
	return seen
}

// nativeRunGraph builds the native toolchain graph used by the
// run tests: binutils-gdb, gcc, debug-symbols, package.
func nativeRunGraph(t *testing.T) (*Graph, *Workspace, *Environment) {
	t.Helper()
	ws := NewWorkspace(t.TempDir(), t.TempDir())
	req := &Request{
		Build:    "x86_64-linux-gnu",
		Target:   "x86_64-linux-gnu",
		Features: FeatureSet{Debugger: true},
	}
	envs, err := req.Environments(ws)
	if err != nil {
		t.Fatal(err)
	}
	b := &GraphBuilder{
		Workspace: ws,
		Resolver:  testResolver(),
		Features:  req.Features,
		Jobs:      2,
	}
	g, err := b.Build(envs)
	if err != nil {
		t.Fatal(err)
	}
	return g, ws, envs[0]
}

func writeTestFile(tb testing.TB, name string, data []byte, perm os.FileMode) {
	tb.Helper()
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		tb.Fatal(err)
	}
	if err := osutil.WriteFilePerm(name, data, perm); err != nil {
		tb.Fatal(err)
	}
}

// touchMarkers returns an onRun callback that simulates each stage's
// installation by creating its completion marker files in the prefix.
// Stages are identified by their exclusive build directory.
func touchMarkers(tb testing.TB, env *Environment) func(c *Invocation) error {
	files := map[string][]string{
		"binutils-gdb": {filepath.Join("bin", "x86_64-linux-gnu-ld")},
		"gcc":          {filepath.Join("bin", "x86_64-linux-gnu-g++")},
		"debug-symbols": {
			filepath.Join("lib", "libstdc++.so.6.debug"),
			filepath.Join("lib", "libgcc_s.so.1.debug"),
		},
	}
	return func(c *Invocation) error {
		for _, rel := range files[filepath.Base(c.Dir)] {
			name := filepath.Join(env.Prefix, rel)
			if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
				tb.Error(err)
				continue
			}
			if err := osutil.WriteFilePerm(name, []byte("installed\n"), 0o644); err != nil {
				tb.Error(err)
			}
		}
		return nil
	}
}

func wantStatuses(g *Graph, st Status) map[string]Status {
	want := make(map[string]Status, g.Len())
	for _, s := range g.Stages() {
		want[s.Key()] = st
	}
	return want
}

func TestBuildRunIdempotence(t *testing.T) {
	ctx, cancel := testcontext.New(t)
	defer cancel()
	g, ws, env := nativeRunGraph(t)

	runner := &fakeRunner{onRun: touchMarkers(t, env)}
	executor := &Executor{Runner: runner, Workspace: ws}

	result, err := NewBuildRun(g, executor, FeatureSet{Debugger: true}).Execute(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := result.Err(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(wantStatuses(g, StatusSucceeded), result.Statuses); diff != "" {
		t.Errorf("first run statuses (-want +got):\n%s", diff)
	}
	if runner.count() == 0 {
		t.Fatal("first run invoked no commands")
	}

	// Every marker is now satisfied, so a second run does no work.
	rerunner := &fakeRunner{onRun: touchMarkers(t, env)}
	executor.Runner = rerunner
	result, err = NewBuildRun(g, executor, FeatureSet{Debugger: true}).Execute(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := result.Err(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(wantStatuses(g, StatusSkipped), result.Statuses); diff != "" {
		t.Errorf("second run statuses (-want +got):\n%s", diff)
	}
	if n := rerunner.count(); n != 0 {
		t.Errorf("second run invoked %d commands; want 0", n)
	}
}

func TestBuildRunForceRebuild(t *testing.T) {
	ctx, cancel := testcontext.New(t)
	defer cancel()
	g, ws, env := nativeRunGraph(t)

	runner := &fakeRunner{onRun: touchMarkers(t, env)}
	executor := &Executor{Runner: runner, Workspace: ws}
	result, err := NewBuildRun(g, executor, FeatureSet{Debugger: true}).Execute(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := result.Err(); err != nil {
		t.Fatal(err)
	}

	// Forcing the compiler stage rebuilds it and,
	// because a predecessor actually ran,
	// everything downstream of it. The linker stage stays skipped.
	rerunner := &fakeRunner{onRun: touchMarkers(t, env)}
	executor.Runner = rerunner
	features := FeatureSet{Debugger: true, ForceRebuild: sets.New("gcc")}
	result, err = NewBuildRun(g, executor, features).Execute(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := result.Err(); err != nil {
		t.Fatal(err)
	}
	want := map[string]Status{
		env.ID + "/binutils-gdb":  StatusSkipped,
		env.ID + "/gcc":           StatusSucceeded,
		env.ID + "/debug-symbols": StatusSucceeded,
		env.ID + "/package":       StatusSucceeded,
	}
	if diff := cmp.Diff(want, result.Statuses); diff != "" {
		t.Errorf("forced run statuses (-want +got):\n%s", diff)
	}
	if dirs := rerunner.dirs(); dirs["binutils-gdb"] {
		t.Error("forced run re-invoked binutils-gdb commands")
	}
}

func TestBuildRunFailureContainment(t *testing.T) {
	ctx, cancel := testcontext.New(t)
	defer cancel()
	ws := NewWorkspace(t.TempDir(), t.TempDir())
	env := testEnv(t, "env")

	// Two independent chains: a -> b and c -> d.
	newStage := func(name string, after ...string) *Stage {
		var refs []StageRef
		for _, a := range after {
			refs = append(refs, StageRef{Name: a})
		}
		return &Stage{
			Name:     name,
			Env:      env,
			After:    refs,
			Commands: []Command{{Program: "true"}},
		}
	}
	g, err := newGraph([]*Stage{
		newStage("a"),
		newStage("b", "a"),
		newStage("c"),
		newStage("d", "c"),
	})
	if err != nil {
		t.Fatal(err)
	}

	runner := &fakeRunner{onRun: func(c *Invocation) error {
		if filepath.Base(c.Dir) == "a" {
			return errors.New("configure failed")
		}
		return nil
	}}
	executor := &Executor{Runner: runner, Workspace: ws}
	run := NewBuildRun(g, executor, FeatureSet{})
	run.Jobs = 2
	result, err := run.Execute(ctx)
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]Status{
		"env/a": StatusFailed,
		"env/b": StatusFailed,
		"env/c": StatusSucceeded,
		"env/d": StatusSucceeded,
	}
	if diff := cmp.Diff(want, result.Statuses); diff != "" {
		t.Errorf("statuses (-want +got):\n%s", diff)
	}
	if result.Err() == nil {
		t.Error("result.Err() = nil; want failure")
	}
	if _, ok := result.Errors["env/a"]; !ok {
		t.Error("no recorded error for the failed stage")
	}
	if _, ok := result.Errors["env/b"]; !ok {
		t.Error("no recorded error for the dependent of the failed stage")
	}
	if dirs := runner.dirs(); dirs["b"] {
		t.Error("dependent of a failed stage was invoked")
	}
}

func TestBuildRunBestEffort(t *testing.T) {
	ctx, cancel := testcontext.New(t)
	defer cancel()
	ws := NewWorkspace(t.TempDir(), t.TempDir())
	env := testEnv(t, "env")

	g, err := newGraph([]*Stage{
		{
			Name:       "optional",
			Env:        env,
			BestEffort: true,
			Commands:   []Command{{Program: "true"}},
		},
		{
			Name:     "main",
			Env:      env,
			After:    []StageRef{{Name: "optional"}},
			Commands: []Command{{Program: "true"}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	runner := &fakeRunner{onRun: func(c *Invocation) error {
		if filepath.Base(c.Dir) == "optional" {
			return errors.New("unsupported on this platform")
		}
		return nil
	}}
	executor := &Executor{Runner: runner, Workspace: ws}
	result, err := NewBuildRun(g, executor, FeatureSet{}).Execute(ctx)
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]Status{
		"env/optional": StatusFailed,
		"env/main":     StatusSucceeded,
	}
	if diff := cmp.Diff(want, result.Statuses); diff != "" {
		t.Errorf("statuses (-want +got):\n%s", diff)
	}
	// The failure is still reported, even though it did not
	// block the dependent stage.
	if result.Err() == nil {
		t.Error("result.Err() = nil; want the best-effort failure reported")
	}
}

func TestBorrowDoesNotMutateSource(t *testing.T) {
	ctx, cancel := testcontext.New(t)
	defer cancel()
	src := testEnv(t, "src")
	dest := testEnv(t, "dest")

	lib := filepath.Join("lib", "libstdc++.so.6")
	writeTestFile(t, filepath.Join(src.Prefix, lib), []byte("library"), 0o755)
	writeTestFile(t, filepath.Join(src.Prefix, lib+".debug"), []byte("symbols"), 0o644)

	edge := BorrowEdge{Source: src, SourceRel: lib, DestRel: lib}
	stage := newBorrowStage(borrowStageName(lib), dest, edge, nil)
	if err := stage.Action(ctx); err != nil {
		t.Fatal(err)
	}

	for name, want := range map[string]string{lib: "library", lib + ".debug": "symbols"} {
		got, err := os.ReadFile(filepath.Join(dest.Prefix, name))
		if err != nil {
			t.Error(err)
			continue
		}
		if string(got) != want {
			t.Errorf("borrowed %s = %q; want %q", name, got, want)
		}
		// The source prefix keeps its own copy untouched.
		orig, err := os.ReadFile(filepath.Join(src.Prefix, name))
		if err != nil {
			t.Errorf("source file disturbed: %v", err)
			continue
		}
		if string(orig) != want {
			t.Errorf("source %s = %q after borrow; want %q", name, orig, want)
		}
	}
	if ok, err := stage.Marker.Satisfied(dest.Prefix); err != nil || !ok {
		t.Errorf("Satisfied(%q) = %t, %v; want true, <nil>", dest.Prefix, ok, err)
	}
}
