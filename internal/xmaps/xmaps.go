// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

// Package xmaps provides more generic functions in the spirit of the [maps] package.
package xmaps

import (
	"cmp"
	"iter"
	"slices"
)

// SortedKeys returns a slice of the map's keys in sorted order.
func SortedKeys[M ~map[K]V, K cmp.Ordered, V any](m M) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Sorted iterates over a map in ascending key order.
func Sorted[M ~map[K]V, K cmp.Ordered, V any](m M) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, k := range SortedKeys(m) {
			if !yield(k, m[k]) {
				return
			}
		}
	}
}
