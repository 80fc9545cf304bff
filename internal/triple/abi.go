// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

package triple

import "strings"

// ABI is the final component of a [Triple],
// naming the binary interface and C library flavor,
// like "gnu", "musl", "mingw32", "elf", or "eabihf".
type ABI string

// IsUnknown reports whether abi is empty or [Unknown].
func (abi ABI) IsUnknown() bool {
	return abi == "" || abi == Unknown
}

// isBareMetal reports whether abi implies a freestanding target
// with no hosted C library.
func (abi ABI) isBareMetal() bool {
	return abi == "elf" || strings.HasPrefix(string(abi), "eabi")
}

// IsGNU reports whether abi uses the GNU C library.
func (abi ABI) IsGNU() bool {
	return strings.HasPrefix(string(abi), "gnu")
}

// String returns string(abi) or "unknown" if abi is empty.
func (abi ABI) String() string {
	if abi == "" {
		return Unknown
	}
	return string(abi)
}
