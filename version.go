// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

const libraryVersion = "0.4.0"

// Version returns the library build identifier.
func Version() string {
	return libraryVersion
}
