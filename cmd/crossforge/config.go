// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"runtime"

	jsonv2 "github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/tailscale/hujson"
)

type globalConfig struct {
	Debug     bool   `json:"debug"`
	Home      string `json:"home"`
	PrefixDir string `json:"prefixDirectory"`
	WorkDir   string `json:"workDirectory"`
	Journal   string `json:"journal"`
	Jobs      int    `json:"jobs"`
}

func defaultGlobalConfig() *globalConfig {
	return &globalConfig{
		PrefixDir: defaultPrefixDir(),
		Jobs:      runtime.NumCPU(),
	}
}

func (g *globalConfig) mergeEnvironment() error {
	if home := os.Getenv("CROSSFORGE_HOME"); home != "" {
		g.Home = home
	}
	if dir := os.Getenv("CROSSFORGE_PREFIX_DIR"); dir != "" {
		g.PrefixDir = dir
	}

	if cd := cacheDir(); cd != "" {
		if g.WorkDir == "" {
			g.WorkDir = filepath.Join(cd, "crossforge", "work")
		}
		if g.Journal == "" {
			g.Journal = filepath.Join(cd, "crossforge", "journal.db")
		}
	}

	return nil
}

func (g *globalConfig) mergeFiles(paths iter.Seq[string]) error {
	for path := range paths {
		huJSONData, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
		jsonData, err := hujson.Standardize(huJSONData)
		if err != nil {
			return fmt.Errorf("read %s: %v", path, err)
		}
		if err := jsonv2.Unmarshal(jsonData, g, jsonv2.RejectUnknownMembers(false)); err != nil {
			return fmt.Errorf("read %s: %v", path, err)
		}
	}

	return nil
}

// UnmarshalJSONFrom unmarshals the configuration object from the JSON decoder,
// merging any fields in the JSON object with existing values.
func (g *globalConfig) UnmarshalJSONFrom(in *jsontext.Decoder) error {
	tok, err := in.ReadToken()
	if err != nil {
		return err
	}
	if got := tok.Kind(); got != '{' {
		return fmt.Errorf("config must be an object not a %v", got)
	}

	for {
		keyToken, err := in.ReadToken()
		if err != nil {
			return err
		}
		switch kind := keyToken.Kind(); kind {
		case '}':
			return nil
		case '"':
			// Keep going.
		default:
			return fmt.Errorf("unexpected non-string key (%v) in object", kind)
		}

		switch k := keyToken.String(); k {
		case "debug":
			if err := jsonv2.UnmarshalDecode(in, &g.Debug); err != nil {
				return fmt.Errorf("unmarshal config.debug: %w", err)
			}
		case "home":
			if err := jsonv2.UnmarshalDecode(in, &g.Home); err != nil {
				return fmt.Errorf("unmarshal config.home: %w", err)
			}
		case "prefixDirectory":
			if err := jsonv2.UnmarshalDecode(in, &g.PrefixDir); err != nil {
				return fmt.Errorf("unmarshal config.prefixDirectory: %w", err)
			}
		case "workDirectory":
			if err := jsonv2.UnmarshalDecode(in, &g.WorkDir); err != nil {
				return fmt.Errorf("unmarshal config.workDirectory: %w", err)
			}
		case "journal":
			if err := jsonv2.UnmarshalDecode(in, &g.Journal); err != nil {
				return fmt.Errorf("unmarshal config.journal: %w", err)
			}
		case "jobs":
			if err := jsonv2.UnmarshalDecode(in, &g.Jobs); err != nil {
				return fmt.Errorf("unmarshal config.jobs: %w", err)
			}
		default:
			if reject, _ := jsonv2.GetOption(in.Options(), jsonv2.RejectUnknownMembers); reject {
				return fmt.Errorf("unmarshal config: unknown field %q", k)
			}
		}
	}
}

func (g *globalConfig) validate() error {
	if g.Home == "" {
		return fmt.Errorf("source home not set (use --home or CROSSFORGE_HOME)")
	}
	if !filepath.IsAbs(g.PrefixDir) {
		// The directory must be in the format of the local OS.
		return fmt.Errorf("prefix directory %q is not absolute", g.PrefixDir)
	}
	if g.WorkDir == "" {
		return fmt.Errorf("work directory not set")
	}

	return nil
}

// configFilePaths returns the configuration file paths to merge,
// in increasing order of preference.
func configFilePaths(explicit string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for dir := range systemConfigDirs() {
			if !yield(filepath.Join(dir, "crossforge", "config.jwcc")) {
				return
			}
		}
		if explicit != "" {
			yield(explicit)
		}
	}
}
