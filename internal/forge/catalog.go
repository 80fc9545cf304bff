// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

package forge

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"crossforge.dev/pkg/internal/triple"
	"crossforge.dev/pkg/sets"
)

// A FeatureSet selects optional parts of a toolchain build request.
type FeatureSet struct {
	// Debugger builds gdb alongside the binary utilities.
	Debugger bool
	// DebugServer builds (or borrows) gdbserver for the target.
	DebugServer bool
	// Scripting enables debugger scripting support
	// (pretty-printer scripts, embedded interpreter on Windows hosts).
	Scripting bool
	// Multilib enables secondary runtime library variants.
	Multilib bool
	// NLS enables native-language support in the built tools.
	NLS bool
	// Newlib builds newlib as the C library for freestanding targets.
	Newlib bool
	// WithoutHeaders builds a freestanding compiler
	// with no C library or headers at all.
	WithoutHeaders bool
	// ForceRebuild lists stage names, environment IDs,
	// or "envID/stage" keys whose completion markers are ignored.
	ForceRebuild sets.Set[string]
}

// forces reports whether the named stage must rebuild
// even when its completion marker is satisfied.
func (fs FeatureSet) forces(s *Stage) bool {
	return fs.ForceRebuild.Has(s.Name) ||
		fs.ForceRebuild.Has(s.Env.ID) ||
		fs.ForceRebuild.Has(s.Key())
}

// A GraphBuilder instantiates the stage catalog for a set of
// environments and a requested feature set.
type GraphBuilder struct {
	Workspace *Workspace
	Resolver  SourceResolver
	Features  FeatureSet
	// Jobs is the parallelism passed to make. Zero means 1.
	Jobs int
	// Packager produces each environment's archive.
	// If nil, a default bzip2 packager under the workspace is used.
	Packager *Packager
}

// Build instantiates the minimal dependency-ordered stage set
// for the given environments.
// Environments must be listed with borrow sources
// before their borrowers.
// The resulting order is deterministic:
// catalog declaration order breaks ties.
func (b *GraphBuilder) Build(envs []*Environment) (*Graph, error) {
	if b.Packager == nil {
		b.Packager = &Packager{
			DistDir: filepath.Join(b.Workspace.WorkDir, "dist"),
			Writer:  BzipTarWriter{},
		}
	}
	var stages []*Stage
	for _, env := range envs {
		if b.Features.DebugServer && env.Target.IsFreestanding() {
			return nil, configErrorf("environment %s: debug server requested for freestanding target %v", env.ID, env.Target)
		}
		envStages, err := b.instantiate(env, stages)
		if err != nil {
			return nil, err
		}
		stages = append(stages, envStages...)
	}
	return newGraph(stages)
}

// instantiate produces env's stages in catalog declaration order.
// prior holds the stages of previously instantiated environments,
// consulted when resolving borrow producers.
func (b *GraphBuilder) instantiate(env *Environment, prior []*Stage) ([]*Stage, error) {
	c := &envCatalog{
		b:     b,
		env:   env,
		prior: prior,
	}

	freestanding := env.Target.IsFreestanding()
	canadian := env.Role.IsCanadian()
	// Hosted cross environments build the target C library themselves.
	// Native environments use the system C library,
	// and Canadian environments borrow a sibling's.
	buildsLibc := !freestanding && !canadian && env.Role != triple.Native

	// Debugger side dependencies for Windows hosts.
	// The four builds are mutually independent.
	if b.Features.Debugger && env.Host.IsWindows() {
		for _, dep := range []string{"gmp", "mpfr", "expat", "libiconv"} {
			if err := c.sideDep(dep); err != nil {
				return nil, err
			}
		}
	}

	if err := c.binutilsGdb(); err != nil {
		return nil, err
	}

	bootstraps := buildsLibc || (freestanding && b.Features.Newlib && !b.Features.WithoutHeaders)
	if bootstraps {
		if err := c.gccBootstrap(); err != nil {
			return nil, err
		}
	}
	if buildsLibc {
		if env.Target.IsLinux() {
			if err := c.linuxHeaders(); err != nil {
				return nil, err
			}
		}
		if err := c.libcHeaders(); err != nil {
			return nil, err
		}
		if err := c.libgcc(); err != nil {
			return nil, err
		}
		if err := c.libc(); err != nil {
			return nil, err
		}
	}
	if canadian && !freestanding {
		// Borrow the target C library and compiler runtime
		// from the sibling cross build with the same target.
		src, err := c.siblingWithTarget(env.Target)
		if err != nil {
			return nil, err
		}
		env.AddBorrow(src, "sysroot", "sysroot")
		env.AddBorrow(src, filepath.Join("lib", "gcc"), filepath.Join("lib", "gcc"))
	}
	if b.Features.Newlib && freestanding && !b.Features.WithoutHeaders {
		if err := c.newlib(); err != nil {
			return nil, err
		}
	}

	if err := c.gcc(buildsLibc, bootstraps); err != nil {
		return nil, err
	}

	if b.Features.DebugServer && !freestanding {
		if canadian {
			src, err := c.siblingWithTarget(env.Target)
			if err != nil {
				return nil, err
			}
			env.AddBorrow(src, filepath.Join("bin", "gdbserver"), filepath.Join("bin", "gdbserver"))
		} else if err := c.gdbserver(); err != nil {
			return nil, err
		}
	}

	if b.Features.Debugger && (freestanding || canadian) {
		// The debugger links against the C++ runtime of its host.
		// Freestanding and Canadian environments never build one,
		// so it is borrowed from the sibling that targets the host.
		src, err := c.siblingWithTarget(env.Host)
		if err != nil {
			return nil, err
		}
		for _, lib := range runtimeLibs(env.Host) {
			env.AddBorrow(src, filepath.Join("lib", lib), filepath.Join("lib", lib))
		}
		if b.Features.Scripting {
			rel := filepath.Join("share", "gcc", "python")
			env.AddBorrow(src, rel, rel)
		}
	}

	if b.Features.Scripting && env.Host.IsWindows() {
		if err := c.pythonEmbed(); err != nil {
			return nil, err
		}
	}

	if b.Features.Debugger && !freestanding && !canadian && !env.Target.IsWindows() {
		if err := c.debugSymbols(); err != nil {
			return nil, err
		}
	}

	if err := c.materializeBorrows(); err != nil {
		return nil, err
	}
	if err := c.pack(); err != nil {
		return nil, err
	}
	return c.stages, nil
}

// runtimeLibs returns the shared compiler runtime libraries
// a debugger hosted on host loads at run time.
func runtimeLibs(host triple.Triple) []string {
	if host.IsWindows() {
		return []string{"libstdc++-6.dll", "libgcc_s_seh-1.dll"}
	}
	return []string{"libstdc++.so.6", "libgcc_s.so.1"}
}

// envCatalog accumulates the stages of one environment.
type envCatalog struct {
	b      *GraphBuilder
	env    *Environment
	prior  []*Stage
	stages []*Stage
}

func (c *envCatalog) add(s *Stage) {
	s.Env = c.env
	c.stages = append(c.stages, s)
}

// afterAll returns refs to every stage instantiated so far
// whose name is in names. Missing names are skipped:
// a precondition that omitted the stage also removes the edge.
func (c *envCatalog) afterAll(names ...string) []StageRef {
	var refs []StageRef
	for _, s := range c.stages {
		for _, name := range names {
			if s.Name == name {
				refs = append(refs, StageRef{Name: name})
			}
		}
	}
	return refs
}

// last returns a ref to the most recently instantiated stage
// with any of the given names, or false if none exists.
func (c *envCatalog) last(names ...string) (StageRef, bool) {
	for i := len(c.stages) - 1; i >= 0; i-- {
		for _, name := range names {
			if c.stages[i].Name == name {
				return StageRef{Name: name}, true
			}
		}
	}
	return StageRef{}, false
}

func (c *envCatalog) siblingWithTarget(t triple.Triple) (*Environment, error) {
	for _, sib := range c.env.Siblings() {
		if sib.Target == t {
			return sib, nil
		}
	}
	return nil, dependencyErrorf("environment %s: no sibling environment targets %v", c.env.ID, t)
}

// source resolves the first available source tree among names.
func (c *envCatalog) source(names ...string) (string, error) {
	var firstErr error
	for _, name := range names {
		path, err := c.b.Resolver.SourcePath(name)
		if err == nil {
			return path, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return "", &DependencyError{Err: firstErr}
}

func (c *envCatalog) jobs() string {
	j := c.b.Jobs
	if j < 1 {
		j = 1
	}
	return "-j" + strconv.Itoa(j)
}

// overlay is the process-environment overlay shared by the
// environment's compile stages: the environment's own tools first,
// then the tools of siblings that target the host
// (needed to cross-compile host-platform binaries).
func (c *envCatalog) overlay() EnvOverlay {
	prepend := []string{filepath.Join(c.env.Prefix, "bin")}
	if c.env.Role.IsCanadian() {
		for _, sib := range c.env.Siblings() {
			if sib.Target == c.env.Host {
				prepend = append(prepend, filepath.Join(sib.Prefix, "bin"))
			}
		}
	}
	return EnvOverlay{PathPrepend: prepend}
}

// configureArgs returns the configure arguments shared by the
// toolchain components of the environment.
func (c *envCatalog) configureArgs() []string {
	env := c.env
	args := []string{
		"--prefix=" + env.Prefix,
		"--target=" + env.Target.String(),
	}
	if env.Host != env.Build {
		args = append(args, "--build="+env.Build.String(), "--host="+env.Host.String())
	}
	if !c.b.Features.NLS {
		args = append(args, "--disable-nls")
	}
	if !c.b.Features.Multilib || !env.Target.NeedsMultilib() {
		args = append(args, "--disable-multilib")
	}
	return args
}

func (c *envCatalog) sideDep(name string) error {
	src, err := c.source(name)
	if err != nil {
		return err
	}
	env := c.env
	installDir := filepath.Join(env.Prefix, "deps", name)
	c.add(&Stage{
		Name: name,
		Commands: []Command{
			{
				Program: filepath.Join(src, "configure"),
				Args: []string{
					"--prefix=" + installDir,
					"--build=" + env.Build.String(),
					"--host=" + env.Host.String(),
					"--disable-shared",
					"--enable-static",
				},
			},
			{Program: "make", Args: []string{c.jobs()}},
			{Program: "make", Args: []string{"install"}},
		},
		Overlay: c.overlay(),
		Marker:  HostStamp(filepath.Join("deps", name), env.Host),
		Outputs: []string{filepath.Join("deps", name)},
	})
	c.env.RegisterComponent(name, installDir)
	return nil
}

func (c *envCatalog) binutilsGdb() error {
	src, err := c.source("binutils-gdb", "binutils")
	if err != nil {
		return err
	}
	env := c.env
	args := c.configureArgs()
	if c.b.Features.Debugger {
		for _, dep := range []string{"gmp", "mpfr", "expat", "libiconv"} {
			if path, err := env.ResolveComponent(dep); err == nil {
				args = append(args, "--with-"+dep+"="+path)
			}
		}
		if c.b.Features.Scripting && !env.Host.IsWindows() {
			args = append(args, "--with-python")
		}
	} else {
		args = append(args, "--disable-gdb")
	}
	c.add(&Stage{
		Name:  "binutils-gdb",
		After: c.afterAll("gmp", "mpfr", "expat", "libiconv"),
		Commands: []Command{
			{Program: filepath.Join(src, "configure"), Args: args},
			{Program: "make", Args: []string{c.jobs()}},
			{Program: "make", Args: []string{"install"}},
		},
		Overlay: c.overlay(),
		Marker:  FileExists(filepath.Join("bin", env.Target.String()+"-ld")),
		Outputs: []string{"bin", filepath.Join(env.Target.String(), "bin")},
	})
	return nil
}

func (c *envCatalog) gccBootstrap() error {
	src, err := c.source("gcc")
	if err != nil {
		return err
	}
	env := c.env
	args := append(c.configureArgs(),
		"--enable-languages=c,c++",
		"--with-sysroot="+filepath.Join(env.Prefix, "sysroot"),
	)
	if env.Target.IsFreestanding() {
		args = append(args, "--with-newlib")
	}
	c.add(&Stage{
		Name:  "gcc-bootstrap",
		After: []StageRef{{Name: "binutils-gdb"}},
		Commands: []Command{
			{Program: filepath.Join(src, "configure"), Args: args},
			{Program: "make", Args: []string{c.jobs(), "all-gcc"}},
			{Program: "make", Args: []string{"install-gcc"}},
		},
		Overlay: c.overlay(),
		Marker:  FileExists(filepath.Join("bin", env.Target.String()+"-gcc")),
		Outputs: []string{filepath.Join("libexec", "gcc")},
	})
	return nil
}

func (c *envCatalog) linuxHeaders() error {
	src, err := c.source("linux")
	if err != nil {
		return err
	}
	env := c.env
	c.add(&Stage{
		Name:  "linux-headers",
		After: []StageRef{{Name: "binutils-gdb"}},
		Commands: []Command{
			{Program: "make", Args: []string{
				"-C", src,
				"ARCH=" + kernelArch(env.Target.Arch),
				"INSTALL_HDR_PATH=" + filepath.Join(env.Prefix, "sysroot", "usr"),
				"headers_install",
			}},
		},
		Overlay: c.overlay(),
		Marker:  FileExists(filepath.Join("sysroot", "usr", "include", "linux", "version.h")),
		Outputs: []string{filepath.Join("sysroot", "usr", "include", "linux")},
	})
	return nil
}

// libcSource resolves the C library source tree for the target:
// mingw-w64 for Windows targets, glibc otherwise,
// preferring a vendor-suffixed override like "glibc-plct".
func (c *envCatalog) libcSource() (string, error) {
	if c.env.Target.IsWindows() {
		return c.source("mingw-w64")
	}
	if vendor := c.env.Target.Vendor; !vendor.IsUnknown() {
		return c.source("glibc-"+vendor.String(), "glibc")
	}
	return c.source("glibc")
}

// libcHeaderMarker is the header file whose installation marks the
// C library headers stage complete.
func (c *envCatalog) libcHeaderMarker() string {
	if c.env.Target.IsWindows() {
		return filepath.Join("sysroot", "usr", "include", "_mingw.h")
	}
	return filepath.Join("sysroot", "usr", "include", "features.h")
}

// libcMarker is the library whose installation marks the full
// C library stage complete.
func (c *envCatalog) libcMarker() string {
	if c.env.Target.IsWindows() {
		return filepath.Join("sysroot", "usr", "lib", "libmsvcrt.a")
	}
	return filepath.Join("sysroot", "usr", "lib", "libc.so")
}

func (c *envCatalog) libcHeaders() error {
	src, err := c.libcSource()
	if err != nil {
		return err
	}
	env := c.env
	after := []StageRef{{Name: "gcc-bootstrap"}}
	if _, ok := c.last("linux-headers"); ok {
		after = append(after, StageRef{Name: "linux-headers"})
	}
	c.add(&Stage{
		Name:  "libc-headers",
		After: after,
		Commands: []Command{
			{Program: filepath.Join(src, "configure"), Args: []string{
				"--prefix=/usr",
				"--build=" + env.Build.String(),
				"--host=" + env.Target.String(),
				"--with-headers=" + filepath.Join(env.Prefix, "sysroot", "usr", "include"),
			}},
			{Program: "make", Args: []string{
				"install_root=" + filepath.Join(env.Prefix, "sysroot"),
				"install-headers",
			}},
		},
		Overlay: c.overlay(),
		Marker:  FileExists(c.libcHeaderMarker()),
		Outputs: []string{filepath.Join("sysroot", "usr", "include")},
	})
	return nil
}

func (c *envCatalog) libgcc() error {
	bootstrapDir := c.b.Workspace.BuildDir(c.env, "gcc-bootstrap")
	c.add(&Stage{
		Name:  "libgcc",
		After: []StageRef{{Name: "libc-headers"}},
		Commands: []Command{
			{Program: "make", Args: []string{"-C", bootstrapDir, c.jobs(), "all-target-libgcc"}},
			{Program: "make", Args: []string{"-C", bootstrapDir, "install-target-libgcc"}},
		},
		Overlay: c.overlay(),
		Marker:  FileExists(filepath.Join("lib", "gcc", c.env.Target.String(), c.env.Version, "libgcc.a")),
		Outputs: []string{filepath.Join("lib", "gcc", c.env.Target.String(), c.env.Version, "libgcc.a")},
	})
	return nil
}

func (c *envCatalog) libc() error {
	src, err := c.libcSource()
	if err != nil {
		return err
	}
	env := c.env
	c.add(&Stage{
		Name:  "libc",
		After: []StageRef{{Name: "libgcc"}},
		Commands: []Command{
			{Program: filepath.Join(src, "configure"), Args: []string{
				"--prefix=/usr",
				"--build=" + env.Build.String(),
				"--host=" + env.Target.String(),
			}},
			{Program: "make", Args: []string{c.jobs()}},
			{Program: "make", Args: []string{
				"install_root=" + filepath.Join(env.Prefix, "sysroot"),
				"install",
			}},
		},
		Overlay: c.overlay(),
		Marker:  FileExists(c.libcMarker()),
		Outputs: []string{filepath.Join("sysroot", "usr", "lib"), filepath.Join("sysroot", "lib")},
	})
	return nil
}

func (c *envCatalog) newlib() error {
	src, err := c.source("newlib")
	if err != nil {
		return err
	}
	env := c.env
	c.add(&Stage{
		Name:  "newlib",
		After: []StageRef{{Name: "gcc-bootstrap"}},
		Commands: []Command{
			{Program: filepath.Join(src, "configure"), Args: c.configureArgs()},
			{Program: "make", Args: []string{c.jobs()}},
			{Program: "make", Args: []string{"install"}},
		},
		Overlay: c.overlay(),
		Marker:  FileExists(filepath.Join(env.Target.String(), "lib", "libc.a")),
		Outputs: []string{filepath.Join(env.Target.String(), "lib")},
	})
	return nil
}

func (c *envCatalog) gcc(buildsLibc, bootstrapped bool) error {
	env := c.env
	var after []StageRef
	var commands []Command
	switch {
	case buildsLibc:
		// Continue in the bootstrap build directory.
		bootstrapDir := c.b.Workspace.BuildDir(env, "gcc-bootstrap")
		after = []StageRef{{Name: "libc"}}
		commands = []Command{
			{Program: "make", Args: []string{"-C", bootstrapDir, c.jobs()}},
			{Program: "make", Args: []string{"-C", bootstrapDir, "install"}},
		}
	case bootstrapped:
		bootstrapDir := c.b.Workspace.BuildDir(env, "gcc-bootstrap")
		after = []StageRef{{Name: "newlib"}}
		commands = []Command{
			{Program: "make", Args: []string{"-C", bootstrapDir, c.jobs()}},
			{Program: "make", Args: []string{"-C", bootstrapDir, "install"}},
		}
	default:
		src, err := c.source("gcc")
		if err != nil {
			return err
		}
		args := append(c.configureArgs(), "--enable-languages=c,c++")
		switch {
		case env.Target.IsFreestanding():
			args = append(args, "--without-headers", "--with-newlib")
		case env.Role.IsCanadian():
			args = append(args, "--with-sysroot="+filepath.Join(env.Prefix, "sysroot"))
		}
		after = []StageRef{{Name: "binutils-gdb"}}
		if env.Role.IsCanadian() && !env.Target.IsFreestanding() {
			after = append(after,
				StageRef{Name: borrowStageName("sysroot")},
				StageRef{Name: borrowStageName(filepath.Join("lib", "gcc"))},
			)
		}
		commands = []Command{
			{Program: filepath.Join(src, "configure"), Args: args},
			{Program: "make", Args: []string{c.jobs()}},
			{Program: "make", Args: []string{"install"}},
		}
	}
	c.add(&Stage{
		Name:     "gcc",
		After:    after,
		Commands: commands,
		Overlay:  c.overlay(),
		Marker:   FileExists(filepath.Join("bin", env.Target.String()+"-g++")),
		Outputs: []string{
			filepath.Join("bin", env.Target.String()+"-g++"),
			filepath.Join("lib", "gcc", env.Target.String()),
			"include",
		},
	})
	return nil
}

func (c *envCatalog) gdbserver() error {
	src, err := c.source("binutils-gdb", "binutils")
	if err != nil {
		return err
	}
	env := c.env
	c.add(&Stage{
		Name:  "gdbserver",
		After: []StageRef{{Name: "gcc"}},
		Commands: []Command{
			{Program: filepath.Join(src, "gdbserver", "configure"), Args: []string{
				"--prefix=" + env.Prefix,
				"--host=" + env.Target.String(),
			}},
			{Program: "make", Args: []string{c.jobs()}},
			{Program: "make", Args: []string{"install"}},
		},
		Overlay: c.overlay(),
		Marker:  FileExists(filepath.Join("bin", "gdbserver")),
		Outputs: []string{filepath.Join("bin", "gdbserver")},
	})
	return nil
}

func (c *envCatalog) pythonEmbed() error {
	env := c.env
	path, err := c.source("python-embed")
	if err != nil {
		return err
	}
	dest := filepath.Join(env.Prefix, "python")
	after := c.afterAll("binutils-gdb")
	c.add(&Stage{
		Name:  "python-embed",
		After: after,
		Action: func(ctx context.Context) error {
			return copyTreeAction(ctx, dest, path)
		},
		Marker:  FileExists("python"),
		Outputs: []string{"python"},
	})
	return nil
}

func (c *envCatalog) debugSymbols() error {
	env := c.env
	objcopy := env.Target.String() + "-objcopy"
	var commands []Command
	var outputs []string
	for _, lib := range runtimeLibs(env.Target) {
		full := filepath.Join(env.Prefix, "lib", lib)
		commands = append(commands,
			Command{Program: objcopy, Args: []string{"--only-keep-debug", full, full + ".debug"}},
			Command{Program: objcopy, Args: []string{"--strip-debug", full}},
			Command{Program: objcopy, Args: []string{"--add-gnu-debuglink=" + full + ".debug", full}},
		)
		outputs = append(outputs, filepath.Join("lib", lib), filepath.Join("lib", lib+".debug"))
	}
	var marker []CompletionMarker
	for _, lib := range runtimeLibs(env.Target) {
		marker = append(marker, FileExists(filepath.Join("lib", lib+".debug")))
	}
	c.add(&Stage{
		Name:     "debug-symbols",
		After:    []StageRef{{Name: "gcc"}},
		Commands: commands,
		Overlay:  c.overlay(),
		Marker:   AllOf(marker...),
		Outputs:  outputs,
	})
	return nil
}

// materializeBorrows turns the environment's declared borrow edges
// into copy-only stages, ordered after their producing stages
// in the source environment.
func (c *envCatalog) materializeBorrows() error {
	for _, edge := range c.env.Borrows() {
		name := borrowStageName(edge.DestRel)
		var after []StageRef
		if ref, ok := producerOf(c.prior, edge.Source, edge.SourceRel); ok {
			after = append(after, ref)
		}
		stage := newBorrowStage(name, c.env, edge, after)
		// Insert before the stages that already reference it.
		inserted := false
		for i, s := range c.stages {
			if refersTo(s, name) {
				c.stages = append(c.stages[:i], append([]*Stage{stage}, c.stages[i:]...)...)
				inserted = true
				break
			}
		}
		if !inserted {
			c.stages = append(c.stages, stage)
		}
	}
	return nil
}

func refersTo(s *Stage, name string) bool {
	for _, ref := range s.After {
		if ref.Env == "" && ref.Name == name {
			return true
		}
	}
	return false
}

// producerOf finds the last stage of the source environment
// whose declared outputs cover rel.
// Falling back to the source's compiler stage keeps the borrow
// ordered after the bulk of the source build
// even when no output declaration matches.
func producerOf(prior []*Stage, src *Environment, rel string) (StageRef, bool) {
	probe := &Stage{Outputs: []string{rel}}
	var fallback *Stage
	for i := len(prior) - 1; i >= 0; i-- {
		s := prior[i]
		if s.Env != src || s.Name == "package" {
			continue
		}
		if s.writesUnder(probe) {
			return StageRef{Env: src.ID, Name: s.Name}, true
		}
		if fallback == nil && s.Name == "gcc" {
			fallback = s
		}
	}
	if fallback != nil {
		return StageRef{Env: src.ID, Name: fallback.Name}, true
	}
	return StageRef{}, false
}

// borrowStageName derives a stable stage name from a borrow's
// destination path.
func borrowStageName(destRel string) string {
	return "borrow-" + strings.ReplaceAll(filepath.ToSlash(destRel), "/", "-")
}

// pack appends the packaging stage, ordered after every other stage
// of the environment.
func (c *envCatalog) pack() error {
	env := c.env
	var after []StageRef
	for _, s := range c.stages {
		after = append(after, StageRef{Name: s.Name})
	}
	pkg := c.b.Packager
	c.add(&Stage{
		Name:  "package",
		After: after,
		Action: func(ctx context.Context) error {
			_, err := pkg.Package(ctx, env)
			return err
		},
		Marker: absFileExists(pkg.ArchivePath(env)),
	})
	return nil
}

// kernelArch maps a target architecture to the Linux kernel's
// ARCH= spelling.
func kernelArch(arch triple.Architecture) string {
	switch {
	case arch.Is64Bit() && strings.HasPrefix(string(arch), "aarch64"):
		return "arm64"
	case arch == "x86_64" || arch == "amd64":
		return "x86"
	case strings.HasPrefix(string(arch), "i") && strings.HasSuffix(string(arch), "86"):
		return "x86"
	case arch == "riscv32" || arch == "riscv64":
		return "riscv"
	case arch == "loongarch64":
		return "loongarch"
	case strings.HasPrefix(string(arch), "mips"):
		return "mips"
	case strings.HasPrefix(string(arch), "powerpc"):
		return "powerpc"
	case strings.HasPrefix(string(arch), "arm"):
		return "arm"
	default:
		return string(arch)
	}
}
