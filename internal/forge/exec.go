// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

package forge

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"zombiezen.com/go/log"

	"crossforge.dev/pkg/internal/osutil"
)

// An Invocation is one fully resolved external program execution.
type Invocation struct {
	Program string
	Args    []string
	Dir     string
	Env     []string
	Stdout  io.Writer
	Stderr  io.Writer
}

// A Runner spawns external processes on behalf of the executor.
// Implementations must return an error that wraps [*exec.ExitError]
// (or an equivalent exposing ExitCode) when the process exits non-zero.
type Runner interface {
	Run(ctx context.Context, c *Invocation) error
}

// ExecRunner runs invocations as local subprocesses with [os/exec].
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, c *Invocation) error {
	cmd := exec.CommandContext(ctx, c.Program, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	return cmd.Run()
}

// defaultTailLines is how many lines of combined output
// are retained per stage for diagnostics.
const defaultTailLines = 50

// An Executor runs one stage's command sequence
// in its exclusive build directory.
type Executor struct {
	Runner    Runner
	Workspace *Workspace
	// BaseEnv is the process environment commands start from
	// before stage overlays. It is explicit rather than ambient.
	BaseEnv []string
	// TailLines bounds the retained output tail per stage.
	// Zero means a small default.
	TailLines int
}

// RunStage creates (or reuses) the stage's build directory
// and invokes its command sequence in order,
// aborting at the first non-zero exit.
// A non-zero exit is reported as a [*CommandError]
// carrying the stage name, exit code, and output tail.
func (x *Executor) RunStage(ctx context.Context, stage *Stage) error {
	if stage.Action != nil {
		return stage.Action(ctx)
	}

	buildDir := x.Workspace.BuildDir(stage.Env, stage.Name)
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return fmt.Errorf("run stage %s: %v", stage.Key(), err)
	}
	env := stage.Overlay.Merge(x.BaseEnv)
	tail := newTailWriter(cmp.Or(x.TailLines, defaultTailLines))

	for i, c := range stage.Commands {
		dir := buildDir
		if c.Dir != "" {
			dir = filepath.Join(buildDir, c.Dir)
		}
		log.Debugf(ctx, "%s: running %s (command %d of %d)", stage.Key(), c.Program, i+1, len(stage.Commands))
		inv := &Invocation{
			Program: c.Program,
			Args:    c.Args,
			Dir:     dir,
			Env:     env,
			Stdout:  tail,
			Stderr:  tail,
		}
		if err := x.Runner.Run(ctx, inv); err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				return &CommandError{
					Stage:      stage.Key(),
					ExitCode:   exitErr.ExitCode(),
					OutputTail: tail.Lines(),
				}
			}
			return fmt.Errorf("run stage %s: %s: %w", stage.Key(), c.Program, err)
		}
	}
	if m, ok := stage.Marker.(*hostStamp); ok {
		name := filepath.Join(stage.Env.Prefix, m.StampFile())
		if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
			return fmt.Errorf("run stage %s: %v", stage.Key(), err)
		}
		if err := osutil.WriteFilePerm(name, m.StampContents(), 0o644); err != nil {
			return fmt.Errorf("run stage %s: %v", stage.Key(), err)
		}
	}
	return nil
}

// tailWriter retains the last n lines written to it.
type tailWriter struct {
	n       int
	lines   []string
	partial bytes.Buffer
}

func newTailWriter(n int) *tailWriter {
	return &tailWriter{n: n}
}

func (w *tailWriter) Write(p []byte) (int, error) {
	written := len(p)
	for {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			w.partial.Write(p)
			return written, nil
		}
		w.partial.Write(p[:i])
		w.appendLine(w.partial.String())
		w.partial.Reset()
		p = p[i+1:]
	}
}

func (w *tailWriter) appendLine(line string) {
	if len(w.lines) == w.n {
		copy(w.lines, w.lines[1:])
		w.lines[len(w.lines)-1] = line
	} else {
		w.lines = append(w.lines, line)
	}
}

// Lines returns the retained tail, oldest first.
func (w *tailWriter) Lines() []string {
	if w.partial.Len() == 0 {
		return w.lines
	}
	result := make([]string, 0, len(w.lines)+1)
	result = append(result, w.lines...)
	return append(result, w.partial.String())
}
