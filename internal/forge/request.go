// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

package forge

import (
	"crossforge.dev/pkg/internal/triple"
)

// DefaultVersion is the toolchain version built
// when a request does not pin one.
const DefaultVersion = "15.1.0"

// A Request is one toolchain build order:
// the platform combination, the feature set,
// and the directories involved.
type Request struct {
	// Build, Host, and Target are triple strings.
	// An empty Build means the current platform;
	// an empty Host means the build platform;
	// an empty Target means the host platform.
	Build  string
	Host   string
	Target string
	// Version is the toolchain version. Empty means [DefaultVersion].
	Version string

	Features FeatureSet
	// Jobs bounds build parallelism.
	Jobs int
	// Home is the directory holding component source trees.
	Home string
	// Force lists stages or environments to rebuild
	// even when complete.
	Force []string
}

// parseTriples resolves the request's triple strings.
// Malformed input is a [*ConfigError]:
// it is rejected before any environment is constructed.
func (req *Request) parseTriples() (build, host, target triple.Triple, err error) {
	build = triple.Current()
	if req.Build != "" {
		build, err = triple.Parse(req.Build)
		if err != nil {
			return triple.Triple{}, triple.Triple{}, triple.Triple{}, &ConfigError{Err: err}
		}
	}
	host = build
	if req.Host != "" {
		host, err = triple.Parse(req.Host)
		if err != nil {
			return triple.Triple{}, triple.Triple{}, triple.Triple{}, &ConfigError{Err: err}
		}
	}
	target = host
	if req.Target != "" {
		target, err = triple.Parse(req.Target)
		if err != nil {
			return triple.Triple{}, triple.Triple{}, triple.Triple{}, &ConfigError{Err: err}
		}
	}
	return build, host, target, nil
}

// ResolvedFeatures returns the request's feature set
// with the Force list merged into ForceRebuild.
func (req *Request) ResolvedFeatures() FeatureSet {
	fs := req.Features
	if len(req.Force) > 0 {
		fs.ForceRebuild = fs.ForceRebuild.Clone()
		fs.ForceRebuild.Add(req.Force...)
	}
	return fs
}

// Graph instantiates the request's environments in ws
// and builds their stage graph,
// resolving component sources under the request's home directory.
func (req *Request) Graph(ws *Workspace) (*Graph, error) {
	envs, err := req.Environments(ws)
	if err != nil {
		return nil, err
	}
	b := &GraphBuilder{
		Workspace: ws,
		Resolver:  HomeResolver{Home: req.Home},
		Features:  req.ResolvedFeatures(),
		Jobs:      req.Jobs,
	}
	return b.Build(envs)
}

func (req *Request) version() string {
	if req.Version == "" {
		return DefaultVersion
	}
	return req.Version
}

// Environments instantiates the environments the request needs,
// registered in ws, borrow sources first.
// A Canadian request includes the prerequisite cross environments
// (one targeting the host, one targeting the target),
// and a freestanding request with a debugger includes the native
// environment whose runtime libraries the debugger borrows.
func (req *Request) Environments(ws *Workspace) ([]*Environment, error) {
	build, host, target, err := req.parseTriples()
	if err != nil {
		return nil, err
	}
	role, err := triple.Classify(build, host, target)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	version := req.version()

	newEnv := func(role triple.RoleCategory, b, h, t triple.Triple) (*Environment, error) {
		return ws.NewEnvironment(role, b, h, t, version)
	}

	switch role {
	case triple.Native, triple.Cross:
		env, err := newEnv(role, build, host, target)
		if err != nil {
			return nil, err
		}
		return []*Environment{env}, nil

	case triple.FreestandingCross:
		var envs []*Environment
		var native *Environment
		if req.Features.Debugger {
			native, err = newEnv(triple.Native, build, build, build)
			if err != nil {
				return nil, err
			}
			envs = append(envs, native)
		}
		env, err := newEnv(role, build, host, target)
		if err != nil {
			return nil, err
		}
		if native != nil {
			env.AddSibling(native)
		}
		return append(envs, env), nil

	case triple.Canadian, triple.CanadianCross:
		// A Canadian build needs a cross toolchain that targets
		// its host (to compile the host-platform tools)
		// and one that targets its target (to borrow the target
		// C library and runtime from).
		crossHost, err := newEnv(triple.Cross, build, build, host)
		if err != nil {
			return nil, err
		}
		envs := []*Environment{crossHost}
		crossTarget := crossHost
		if target != host {
			crossTarget, err = newEnv(triple.Cross, build, build, target)
			if err != nil {
				return nil, err
			}
			envs = append(envs, crossTarget)
		}
		env, err := newEnv(role, build, host, target)
		if err != nil {
			return nil, err
		}
		env.AddSibling(crossTarget)
		if crossHost != crossTarget {
			env.AddSibling(crossHost)
		}
		return append(envs, env), nil

	default:
		return nil, configErrorf("unsupported role category %v", role)
	}
}
