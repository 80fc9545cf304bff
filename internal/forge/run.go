// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

package forge

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"zombiezen.com/go/log"

	"crossforge.dev/pkg/internal/xmaps"
)

// Status is the state of one stage within a [BuildRun].
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusSucceeded
	StatusSkipped
	StatusFailed
)

// String returns the status name in lowercase.
func (st Status) String() string {
	switch st {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(st))
	}
}

func parseStatus(s string) (Status, error) {
	for st := StatusPending; st <= StatusFailed; st++ {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown stage status %q", s)
}

// Done reports whether the status is terminal.
func (st Status) Done() bool {
	return st == StatusSucceeded || st == StatusSkipped || st == StatusFailed
}

// A BuildRun executes one stage graph.
type BuildRun struct {
	// ID tags the run's journal rows and log messages.
	ID       uuid.UUID
	Graph    *Graph
	Executor *Executor
	Features FeatureSet
	// Journal may be nil; journal failures never fail the run.
	Journal *Journal
	// Jobs bounds how many stages run concurrently.
	// Zero means [runtime.NumCPU].
	Jobs int
}

// NewBuildRun returns a run over the given graph with a fresh ID.
func NewBuildRun(graph *Graph, executor *Executor, features FeatureSet) *BuildRun {
	return &BuildRun{
		ID:       uuid.New(),
		Graph:    graph,
		Executor: executor,
		Features: features,
	}
}

// A RunResult summarizes a finished (possibly partially failed) run.
type RunResult struct {
	ID uuid.UUID
	// Statuses maps stage keys to their final status.
	Statuses map[string]Status
	// Errors holds the failure of each failed stage, by stage key.
	Errors map[string]error
}

// Err returns nil if every stage succeeded or was skipped,
// or an error joining every stage failure otherwise.
func (r *RunResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Errors))
	for _, key := range xmaps.SortedKeys(r.Errors) {
		errs = append(errs, r.Errors[key])
	}
	return errors.Join(errs...)
}

// Execute runs the graph to completion with a bounded worker pool.
// Ready stages run concurrently; a non-best-effort failure marks the
// failed stage's entire dependent subgraph failed,
// while independent branches continue to completion.
// Execute returns an error only when ctx is canceled
// before the run finishes;
// stage failures are reported through the [RunResult].
func (r *BuildRun) Execute(ctx context.Context) (*RunResult, error) {
	n := r.Graph.Len()
	jobs := r.Jobs
	if jobs < 1 {
		jobs = runtime.NumCPU()
	}
	// Journal writes survive cancellation so that every transition
	// that happened is recorded.
	journalCtx := context.WithoutCancel(ctx)
	if err := r.Journal.BeginRun(journalCtx, r.ID); err != nil {
		log.Warnf(ctx, "%v", err)
	}

	status := make([]Status, n)
	stageErrs := make(map[string]error)
	unmet := make([]int, n)
	var ready []int
	for i := range unmet {
		unmet[i] = len(r.Graph.Predecessors(i))
		if unmet[i] == 0 {
			ready = append(ready, i)
		}
	}

	type completion struct {
		index int
		err   error
	}
	completionc := make(chan completion)
	running := 0
	done := 0
	var workers errgroup.Group
	workers.SetLimit(jobs)
	defer workers.Wait()

	record := func(i int, st Status, exitCode int) {
		status[i] = st
		if err := r.Journal.RecordStage(journalCtx, r.ID, r.Graph.Stage(i), st, exitCode); err != nil {
			log.Warnf(ctx, "%v", err)
		}
	}

	// finish marks stage i terminal and unblocks its dependents.
	var finish func(i int, st Status, exitCode int)
	finish = func(i int, st Status, exitCode int) {
		record(i, st, exitCode)
		done++
		for _, succ := range r.Graph.Successors(i) {
			unmet[succ]--
			if unmet[succ] == 0 && status[succ] == StatusPending {
				ready = append(ready, succ)
			}
		}
	}

	// failSubgraph marks every pending stage reachable from i failed.
	failSubgraph := func(i int) {
		stack := []int{i}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, succ := range r.Graph.Successors(cur) {
				if status[succ] != StatusPending {
					continue
				}
				s := r.Graph.Stage(succ)
				stageErrs[s.Key()] = fmt.Errorf("stage %s: predecessor %s failed", s.Key(), r.Graph.Stage(cur).Key())
				record(succ, StatusFailed, 0)
				done++
				stack = append(stack, succ)
			}
		}
	}

	// ranPredecessor reports whether any predecessor of i
	// actually executed this run (rather than being skipped),
	// which forces i to rebuild.
	ranPredecessor := func(i int) bool {
		for _, p := range r.Graph.Predecessors(i) {
			if status[p] == StatusSucceeded {
				return true
			}
		}
		return false
	}

	dispatch := func() error {
		for len(ready) > 0 && running < jobs {
			if err := ctx.Err(); err != nil {
				return err
			}
			i := ready[0]
			ready = ready[1:]
			if status[i] != StatusPending {
				continue
			}
			stage := r.Graph.Stage(i)
			if stage.Marker != nil && !r.Features.forces(stage) && !ranPredecessor(i) {
				ok, err := stage.Marker.Satisfied(stage.Env.Prefix)
				if err != nil {
					stageErrs[stage.Key()] = fmt.Errorf("stage %s: check completion: %v", stage.Key(), err)
					finish(i, StatusFailed, 0)
					failSubgraph(i)
					continue
				}
				if ok {
					log.Infof(ctx, "%s: up to date, skipping", stage.Key())
					finish(i, StatusSkipped, 0)
					continue
				}
			}
			record(i, StatusRunning, 0)
			running++
			log.Infof(ctx, "%s: starting", stage.Key())
			workers.Go(func() error {
				err := r.Executor.RunStage(ctx, stage)
				completionc <- completion{index: i, err: err}
				return nil
			})
		}
		return nil
	}

	for done < n {
		if err := dispatch(); err != nil && running == 0 {
			return nil, err
		}
		if running == 0 {
			if done < n {
				// Only possible if cancellation drained the ready set.
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				return nil, fmt.Errorf("build run %v: no runnable stages with %d unfinished", r.ID, n-done)
			}
			break
		}
		c := <-completionc
		running--
		stage := r.Graph.Stage(c.index)
		switch {
		case c.err == nil:
			log.Infof(ctx, "%s: succeeded", stage.Key())
			finish(c.index, StatusSucceeded, 0)
		case stage.BestEffort:
			log.Warnf(ctx, "%s: failed (best effort, continuing): %v", stage.Key(), c.err)
			stageErrs[stage.Key()] = c.err
			finish(c.index, StatusFailed, exitCodeOf(c.err))
		default:
			log.Errorf(ctx, "%s: failed: %v", stage.Key(), c.err)
			stageErrs[stage.Key()] = c.err
			finish(c.index, StatusFailed, exitCodeOf(c.err))
			failSubgraph(c.index)
		}
	}

	result := &RunResult{
		ID:       r.ID,
		Statuses: make(map[string]Status, n),
		Errors:   stageErrs,
	}
	for i := range n {
		result.Statuses[r.Graph.Stage(i).Key()] = status[i]
	}
	return result, nil
}

func exitCodeOf(err error) int {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode
	}
	return 0
}
