// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

package sets

import (
	"fmt"
	"slices"
	"testing"
)

func TestSet(t *testing.T) {
	s := New("gcc", "binutils")
	if !s.Has("gcc") || !s.Has("binutils") {
		t.Errorf("New(\"gcc\", \"binutils\") = %v; missing elements", s)
	}
	if s.Has("glibc") {
		t.Errorf("%v.Has(\"glibc\") = true; want false", s)
	}
	s.Add("glibc")
	if got, want := s.Len(), 3; got != want {
		t.Errorf("after Add, Len() = %d; want %d", got, want)
	}
	s.Delete("binutils")
	if s.Has("binutils") {
		t.Errorf("after Delete, %v.Has(\"binutils\") = true; want false", s)
	}

	var zero Set[string]
	if zero.Has("gcc") {
		t.Error("zero set contains \"gcc\"")
	}
	clone := zero.Clone()
	clone.Add("gcc")
	if zero.Has("gcc") {
		t.Error("adding to clone of zero set modified original")
	}
}

func TestSetFormat(t *testing.T) {
	got := fmt.Sprintf("%v", New("b", "a"))
	if want := "{a b}"; got != want {
		t.Errorf("Sprintf(%%v) = %q; want %q", got, want)
	}
}

func TestSorted(t *testing.T) {
	s := NewSorted(3, 1, 2, 2)
	if got, want := slices.Collect(s.Values()), []int{1, 2, 3}; !slices.Equal(got, want) {
		t.Errorf("Values() = %v; want %v", got, want)
	}
	if !s.Has(2) {
		t.Errorf("%v.Has(2) = false; want true", s)
	}
	s.Delete(2)
	if s.Has(2) {
		t.Errorf("after Delete(2), Has(2) = true; want false")
	}
	if got, want := s.Len(), 2; got != want {
		t.Errorf("after Delete(2), Len() = %d; want %d", got, want)
	}

	var nilSet *Sorted[int]
	if nilSet.Has(1) || nilSet.Len() != 0 {
		t.Error("nil Sorted set is not empty")
	}
}
