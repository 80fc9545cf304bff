// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"zombiezen.com/go/log"
	"zombiezen.com/go/xcontext"

	"crossforge.dev/pkg/internal/forge"
)

type buildOptions struct {
	build   string
	host    string
	target  string
	version string

	debugger       bool
	debugServer    bool
	scripting      bool
	multilib       bool
	nls            bool
	newlib         bool
	withoutHeaders bool

	force stringSetFlag
}

func (opts *buildOptions) addFlags(flags *pflag.FlagSet) {
	flags.StringVar(&opts.build, "build", "", "`triple` the toolchain is built on (default this machine)")
	flags.StringVar(&opts.host, "host", "", "`triple` the toolchain runs on (default the build triple)")
	flags.StringVar(&opts.target, "target", "", "`triple` the toolchain generates code for (default the host triple)")
	flags.StringVar(&opts.version, "toolchain-version", forge.DefaultVersion, "toolchain `version` to build")
	flags.BoolVar(&opts.debugger, "debugger", false, "build gdb for the target")
	flags.BoolVar(&opts.debugServer, "gdbserver", false, "build gdbserver for the target")
	flags.BoolVar(&opts.scripting, "scripting", false, "enable debugger scripting support")
	flags.BoolVar(&opts.multilib, "multilib", false, "build secondary runtime library variants")
	flags.BoolVar(&opts.nls, "nls", false, "enable native-language support")
	flags.BoolVar(&opts.newlib, "newlib", false, "build newlib as the C library for freestanding targets")
	flags.BoolVar(&opts.withoutHeaders, "without-headers", false, "build a freestanding compiler with no C library at all")
	flags.Var(&opts.force, "force", "`stage` (or environment, or environment/stage) to rebuild even when complete")
}

// request assembles the build order from flags and global configuration.
func (opts *buildOptions) request(g *globalConfig) *forge.Request {
	return &forge.Request{
		Build:   opts.build,
		Host:    opts.host,
		Target:  opts.target,
		Version: opts.version,
		Features: forge.FeatureSet{
			Debugger:       opts.debugger,
			DebugServer:    opts.debugServer,
			Scripting:      opts.scripting,
			Multilib:       opts.multilib,
			NLS:            opts.nls,
			Newlib:         opts.newlib,
			WithoutHeaders: opts.withoutHeaders,
		},
		Jobs:  g.Jobs,
		Home:  g.Home,
		Force: opts.force.GetSlice(),
	}
}

func newBuildCommand(g *globalConfig) *cobra.Command {
	c := &cobra.Command{
		Use:                   "build [options]",
		Short:                 "build a toolchain",
		DisableFlagsInUseLine: true,
		Args:                  cobra.NoArgs,
		SilenceErrors:         true,
		SilenceUsage:          true,
	}
	opts := new(buildOptions)
	opts.addFlags(c.Flags())
	c.RunE = func(cmd *cobra.Command, args []string) error {
		return runBuild(cmd.Context(), g, opts)
	}
	return c
}

func runBuild(ctx context.Context, g *globalConfig, opts *buildOptions) error {
	if err := g.validate(); err != nil {
		return err
	}
	req := opts.request(g)
	ws := forge.NewWorkspace(g.PrefixDir, g.WorkDir)
	graph, err := req.Graph(ws)
	if err != nil {
		return err
	}

	// The journal is advisory. A build proceeds without one.
	var journal *forge.Journal
	if g.Journal == "" {
		log.Debugf(ctx, "no journal path configured")
	} else if j, err := forge.OpenJournal(g.Journal); err != nil {
		log.Warnf(ctx, "build journal unavailable: %v", err)
	} else {
		journal = j
		defer xcontext.CloseWhenDone(ctx, j).Close()
	}

	executor := &forge.Executor{
		Runner:    forge.ExecRunner{},
		Workspace: ws,
		BaseEnv:   os.Environ(),
	}
	run := forge.NewBuildRun(graph, executor, req.ResolvedFeatures())
	run.Journal = journal
	run.Jobs = req.Jobs
	log.Infof(ctx, "build %v: %d stages", run.ID, graph.Len())
	result, err := run.Execute(ctx)
	if err != nil {
		return err
	}
	if err := result.Err(); err != nil {
		return err
	}
	fmt.Printf("archives written to %s\n", filepath.Join(g.WorkDir, "dist"))
	return nil
}

func newPlanCommand(g *globalConfig) *cobra.Command {
	c := &cobra.Command{
		Use:                   "plan [options]",
		Short:                 "print the stage order without building",
		DisableFlagsInUseLine: true,
		Args:                  cobra.NoArgs,
		SilenceErrors:         true,
		SilenceUsage:          true,
	}
	opts := new(buildOptions)
	opts.addFlags(c.Flags())
	c.RunE = func(cmd *cobra.Command, args []string) error {
		return runPlan(cmd.Context(), g, opts)
	}
	return c
}

func runPlan(ctx context.Context, g *globalConfig, opts *buildOptions) error {
	if err := g.validate(); err != nil {
		return err
	}
	ws := forge.NewWorkspace(g.PrefixDir, g.WorkDir)
	graph, err := opts.request(g).Graph(ws)
	if err != nil {
		return err
	}
	for _, s := range graph.Stages() {
		fmt.Println(s.Key())
	}
	return nil
}
