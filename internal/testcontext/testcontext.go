// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

// Package testcontext provides a [context.Context] suitable for tests.
package testcontext

import (
	"context"
	"testing"
	"time"

	"zombiezen.com/go/log/testlog"
)

// New returns a context that associates the test logger with the test,
// obeys the test's deadline if present,
// and is canceled when the test function returns.
func New(tb testing.TB) (context.Context, context.CancelFunc) {
	ctx := tb.Context()
	cancel := context.CancelFunc(func() {})
	if d, ok := deadline(tb); ok {
		ctx, cancel = context.WithDeadline(ctx, d)
	}
	ctx = testlog.WithTB(ctx, tb)
	return ctx, cancel
}

func deadline(x any) (deadline time.Time, ok bool) {
	d, ok := x.(interface {
		Deadline() (deadline time.Time, ok bool)
	})
	if !ok {
		return time.Time{}, false
	}
	return d.Deadline()
}
