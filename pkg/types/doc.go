// SPDX-License-Identifier: MPL-2.0

// Package types defines small value types shared by the mrepack command and
// its domain packages. They carry validation but no domain dependencies.
package types
