// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

// Package sets provides generic set types.
package sets

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"
)

// Set is an unordered set with O(1) lookup, insertion, and deletion.
// The zero value is an empty set.
type Set[T comparable] map[T]struct{}

// New returns a new set that contains the arguments passed to it.
func New[T comparable](elem ...T) Set[T] {
	s := make(Set[T], len(elem))
	s.Add(elem...)
	return s
}

// Collect returns a new set that contains the elements of the given iterator.
func Collect[T comparable](seq iter.Seq[T]) Set[T] {
	s := make(Set[T])
	s.AddSeq(seq)
	return s
}

// Add adds the arguments to the set.
func (s Set[T]) Add(elem ...T) {
	for _, x := range elem {
		s[x] = struct{}{}
	}
}

// AddSeq adds the values from seq to the set.
func (s Set[T]) AddSeq(seq iter.Seq[T]) {
	for x := range seq {
		s[x] = struct{}{}
	}
}

// Has reports whether the set contains x.
func (s Set[T]) Has(x T) bool {
	_, present := s[x]
	return present
}

// Len returns the number of elements in the set.
func (s Set[T]) Len() int {
	return len(s)
}

// All returns an iterator of the elements of s in unspecified order.
func (s Set[T]) All() iter.Seq[T] {
	return maps.Keys(s)
}

// Clone returns a new set that contains the same elements as s.
func (s Set[T]) Clone() Set[T] {
	if s == nil {
		return make(Set[T])
	}
	return maps.Clone(s)
}

// Delete removes x from the set if present.
func (s Set[T]) Delete(x T) {
	delete(s, x)
}

// Clear removes all elements from the set.
func (s Set[T]) Clear() {
	clear(s)
}

// Format implements [fmt.Formatter]
// by formatting the elements according to verb,
// separated by spaces and surrounded by braces.
func (s Set[T]) Format(f fmt.State, verb rune) {
	parts := make([]string, 0, len(s))
	for x := range s {
		parts = append(parts, fmt.Sprintf(fmt.FormatString(f, verb), x))
	}
	slices.Sort(parts)
	fmt.Fprintf(f, "{%s}", strings.Join(parts, " "))
}
