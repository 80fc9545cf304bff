// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"github.com/spf13/cobra"
	"zombiezen.com/go/bass/sigterm"
	"zombiezen.com/go/log"
)

func main() {
	rootCommand := &cobra.Command{
		Use:           "crossforge",
		Short:         "cross toolchain forge",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	g := defaultGlobalConfig()
	configPath := rootCommand.PersistentFlags().String("config", "", "`path` to configuration file")
	homeFlag := rootCommand.PersistentFlags().String("home", "", "`directory` containing component source trees")
	prefixFlag := rootCommand.PersistentFlags().String("prefix", "", "`directory` receiving installation prefixes")
	workFlag := rootCommand.PersistentFlags().String("work", "", "`directory` for build trees and archives")
	journalFlag := rootCommand.PersistentFlags().String("journal", "", "`path` to build journal database")
	jobsFlag := rootCommand.PersistentFlags().Int("jobs", 0, "maximum `number` of concurrent build jobs")
	showDebug := rootCommand.PersistentFlags().Bool("debug", false, "show debugging output")

	rootCommand.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Precedence, lowest first: defaults, configuration files,
		// environment variables, command-line flags.
		if err := g.mergeFiles(configFilePaths(*configPath)); err != nil {
			return err
		}
		if err := g.mergeEnvironment(); err != nil {
			return err
		}
		flags := cmd.Root().PersistentFlags()
		if flags.Changed("home") {
			g.Home = *homeFlag
		}
		if flags.Changed("prefix") {
			g.PrefixDir = *prefixFlag
		}
		if flags.Changed("work") {
			g.WorkDir = *workFlag
		}
		if flags.Changed("journal") {
			g.Journal = *journalFlag
		}
		if flags.Changed("jobs") {
			g.Jobs = *jobsFlag
		}
		if flags.Changed("debug") {
			g.Debug = *showDebug
		}
		initLogging(g.Debug)
		return nil
	}

	rootCommand.AddCommand(
		newBuildCommand(g),
		newPlanCommand(g),
		newVersionCommand(),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), sigterm.Signals()...)
	err := rootCommand.ExecuteContext(ctx)
	cancel()
	if err != nil {
		initLogging(*showDebug)
		log.Errorf(context.Background(), "%v", err)
		os.Exit(1)
	}
}

var initLogOnce sync.Once

func initLogging(showDebug bool) {
	initLogOnce.Do(func() {
		minLogLevel := log.Info
		if showDebug {
			minLogLevel = log.Debug
		}
		log.SetDefault(&log.LevelFilter{
			Min:    minLogLevel,
			Output: log.New(os.Stderr, "crossforge: ", log.StdFlags, nil),
		})
	})
}
