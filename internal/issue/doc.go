// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable, user-facing errors and a catalog of
// known failure modes with Markdown guidance rendered for the terminal.
package issue
