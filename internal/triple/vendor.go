// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

package triple

// Vendor is the vendor component of a [Triple], like "pc" or "plct".
type Vendor string

// IsUnknown reports whether vendor is empty or [Unknown].
func (vendor Vendor) IsUnknown() bool {
	return vendor == "" || vendor == Unknown
}

// String returns string(vendor) or "unknown" if vendor is empty.
func (vendor Vendor) String() string {
	if vendor == "" {
		return Unknown
	}
	return string(vendor)
}
