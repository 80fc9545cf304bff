// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

package triple

import "strings"

// Architecture is the CPU family component of a [Triple],
// like "x86_64" or "aarch64".
type Architecture string

// IsUnknown reports whether arch is empty or [Unknown].
func (arch Architecture) IsUnknown() bool {
	return arch == "" || arch == Unknown
}

func (arch Architecture) isKnown() bool {
	return arch.isX86() || arch.isX8664() ||
		arch.isARM() || arch.isAArch64() ||
		arch.isRISCV32() || arch.isRISCV64() ||
		arch == "loongarch64" ||
		arch == "mips" || arch == "mipsel" ||
		arch == "mips64" || arch == "mips64el" ||
		arch == "powerpc" || arch == "powerpc64" || arch == "powerpc64le" ||
		arch == "s390x" ||
		arch == "avr" || arch == "msp430" ||
		arch == "sparc" || arch == "sparc64"
}

// isX86 reports whether arch is a 32-bit x86 architecture.
func (arch Architecture) isX86() bool {
	return len(arch) == 4 &&
		arch[0] == 'i' &&
		'3' <= arch[1] && arch[1] <= '9' &&
		arch[2] == '8' && arch[3] == '6'
}

func (arch Architecture) isX8664() bool {
	return arch == "x86_64" || arch == "amd64"
}

func (arch Architecture) isARM() bool {
	return strings.HasPrefix(string(arch), "arm") && !arch.isAArch64()
}

func (arch Architecture) isAArch64() bool {
	return strings.HasPrefix(string(arch), "aarch64") || arch == "arm64"
}

func (arch Architecture) isRISCV32() bool {
	return arch == "riscv32"
}

func (arch Architecture) isRISCV64() bool {
	return arch == "riscv64"
}

// Is64Bit reports whether arch is a 64-bit architecture.
// It returns false if arch.IsUnknown().
func (arch Architecture) Is64Bit() bool {
	return arch.isX8664() || arch.isAArch64() || arch.isRISCV64() ||
		arch == "loongarch64" ||
		arch == "mips64" || arch == "mips64el" ||
		arch == "powerpc64" || arch == "powerpc64le" ||
		arch == "s390x" || arch == "sparc64"
}

// Is32Bit reports whether arch is a 32-bit architecture.
// It returns false if arch.IsUnknown().
func (arch Architecture) Is32Bit() bool {
	return arch.isX86() || arch.isARM() || arch.isRISCV32() ||
		arch == "mips" || arch == "mipsel" ||
		arch == "powerpc" ||
		arch == "avr" || arch == "msp430" || arch == "sparc"
}

// String returns string(arch) or "unknown" if arch is empty.
func (arch Architecture) String() string {
	if arch == "" {
		return Unknown
	}
	return string(arch)
}
