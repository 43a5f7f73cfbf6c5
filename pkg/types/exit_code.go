// SPDX-License-Identifier: MPL-2.0

package types

import "strconv"

// Process exit codes of the mrepack CLI.
const (
	// ExitOK means every group was merged and rewritten.
	ExitOK ExitCode = 0
	// ExitError is any failure without a more specific code.
	ExitError ExitCode = 1
	// ExitConfig means the repack document or application settings are invalid.
	ExitConfig ExitCode = 2
	// ExitGraph means dependency analysis failed (duplicate input or cycle).
	ExitGraph ExitCode = 3
	// ExitMerge means the merge engine failed for a group.
	ExitMerge ExitCode = 4
	// ExitRewrite means patching a merged output's references failed.
	ExitRewrite ExitCode = 5
)

// ExitCode is the status the mrepack process exits with.
type ExitCode int

// Describe returns a short label for the known exit codes.
func (c ExitCode) Describe() string {
	switch c {
	case ExitOK:
		return "success"
	case ExitError:
		return "error"
	case ExitConfig:
		return "configuration error"
	case ExitGraph:
		return "dependency graph error"
	case ExitMerge:
		return "merge failed"
	case ExitRewrite:
		return "reference rewrite failed"
	default:
		return "exit " + c.String()
	}
}

// String returns the decimal string representation of the ExitCode.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }
