// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"crossforge.dev/pkg/internal/triple"
)

// crossforgeVersion is the version string filled in by the linker (e.g. "1.2.3").
var crossforgeVersion string

func newVersionCommand() *cobra.Command {
	c := &cobra.Command{
		Use:                   "version",
		Short:                 "show version information",
		DisableFlagsInUseLine: true,
		Args:                  cobra.NoArgs,
		SilenceErrors:         true,
		SilenceUsage:          true,
	}
	c.RunE = func(cmd *cobra.Command, args []string) error {
		return runVersion(cmd.Context())
	}
	return c
}

func runVersion(ctx context.Context) error {
	firstLine := "crossforge"
	if crossforgeVersion == "" {
		firstLine += " (version unknown)"
	} else {
		firstLine += " version " + crossforgeVersion
	}

	fmt.Printf("%s\nHost:   %v\nCPUs:   %d\n", firstLine, triple.Current(), runtime.NumCPU())
	if release := kernelRelease(); release != "" {
		fmt.Printf("Kernel: %s\n", release)
	}
	return nil
}
