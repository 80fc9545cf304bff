// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

package forge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"zombiezen.com/go/log"

	"crossforge.dev/pkg/internal/osutil"
)

// newBorrowStage wraps a borrow edge in a copy-only stage.
// The copy reads from the source environment's prefix
// without mutating it and writes into the borrowing
// environment's prefix.
func newBorrowStage(name string, dest *Environment, edge BorrowEdge, after []StageRef) *Stage {
	return &Stage{
		Name:  name,
		Env:   dest,
		After: after,
		Action: func(ctx context.Context) error {
			return copyBorrow(ctx, dest, edge)
		},
		Marker:  FileExists(edge.DestRel),
		Outputs: []string{edge.DestRel},
	}
}

// copyBorrow copies the borrowed path from the source prefix into the
// destination prefix. When the source names a shared library with a
// separated debug-symbol file alongside it (gdb's "<name>.debug"
// convention), the debug file is copied too so the debug link stays
// resolvable in the borrowing prefix.
func copyBorrow(ctx context.Context, dest *Environment, edge BorrowEdge) error {
	src := filepath.Join(edge.Source.Prefix, edge.SourceRel)
	info, err := os.Lstat(src)
	if err != nil {
		return fmt.Errorf("borrow from %s: %w", edge.Source.ID, err)
	}
	dst := filepath.Join(dest.Prefix, edge.DestRel)
	log.Debugf(ctx, "borrowing %s from %s", edge.SourceRel, edge.Source.ID)
	if info.IsDir() {
		return osutil.CopyTree(dst, src)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := osutil.CopyFile(dst, src); err != nil {
		return err
	}
	if ok, err := osutil.Exists(src + ".debug"); err != nil {
		return err
	} else if ok {
		if err := osutil.CopyFile(dst+".debug", src+".debug"); err != nil {
			return err
		}
	}
	return nil
}

// copyTreeAction copies a component directory into an environment.
// Support packages (like an embedded interpreter) use it.
func copyTreeAction(ctx context.Context, dst, src string) error {
	log.Debugf(ctx, "copying %s to %s", src, dst)
	return osutil.CopyTree(dst, src)
}
