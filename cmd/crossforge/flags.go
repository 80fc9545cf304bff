// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"encoding/csv"
	"slices"

	"crossforge.dev/pkg/sets"
)

// stringSetFlag is similar to [github.com/spf13/pflag.StringArray],
// but prevents duplicate entries.
type stringSetFlag struct {
	set     sets.Set[string]
	changed bool
}

func (f *stringSetFlag) Get() any { return f.set }

func (f *stringSetFlag) Type() string { return "stringArray" }

func (f *stringSetFlag) GetSlice() []string {
	s := slices.Collect(f.set.All())
	slices.Sort(s)
	return s
}

func (f *stringSetFlag) String() string {
	buf := new(bytes.Buffer)
	buf.WriteString("[")
	w := csv.NewWriter(buf)
	_ = w.Write(f.GetSlice())
	w.Flush()
	b := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	b = append(b, "]"...)
	return string(b)
}

func (f *stringSetFlag) Set(s string) error {
	if f.set == nil {
		f.set = make(sets.Set[string])
	}
	if !f.changed {
		f.set.Clear()
		f.changed = true
	}
	f.set.Add(s)
	return nil
}

func (f *stringSetFlag) Append(val string) error {
	if f.set == nil {
		f.set = make(sets.Set[string])
	}
	f.set.Add(val)
	return nil
}

func (f *stringSetFlag) Replace(val []string) error {
	if f.set == nil {
		f.set = make(sets.Set[string])
	} else {
		f.set.Clear()
	}
	for _, s := range val {
		f.set.Add(s)
	}
	return nil
}
