// SPDX-License-Identifier: MPL-2.0

package orchestrator

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateInput is the sentinel error wrapped by DuplicateInputError.
	ErrDuplicateInput = errors.New("duplicate input assignment")
	// ErrCircularDependency is the sentinel error wrapped by CircularDependencyError.
	ErrCircularDependency = errors.New("circular dependency")
	// ErrMergeFailed is the sentinel error wrapped by MergeError.
	ErrMergeFailed = errors.New("merge failed")
	// ErrRewriteFailed is the sentinel error wrapped by RewriteError.
	ErrRewriteFailed = errors.New("reference rewrite failed")
)

type (
	// DuplicateInputError is returned when one module name is an input of two groups.
	DuplicateInputError struct {
		Module      string
		FirstGroup  string
		SecondGroup string
	}

	// CircularDependencyError lists the group labels forming a cycle, ending
	// with the group it started from.
	CircularDependencyError struct {
		Cycle []string
	}

	// MergeError wraps a merge engine failure for one group.
	MergeError struct {
		Group string
		Err   error
	}

	// RewriteError wraps a failure to patch the references of a merged output.
	RewriteError struct {
		Group  string
		Output string
		Err    error
	}
)

func (e *DuplicateInputError) Error() string {
	return fmt.Sprintf("assembly %q appears in multiple groups (%s, %s)", e.Module, e.FirstGroup, e.SecondGroup)
}

func (e *DuplicateInputError) Unwrap() error { return ErrDuplicateInput }

func (e *CircularDependencyError) Error() string {
	return "circular dependency detected: " + strings.Join(e.Cycle, " -> ")
}

func (e *CircularDependencyError) Unwrap() error { return ErrCircularDependency }

func (e *MergeError) Error() string {
	return fmt.Sprintf("merging group %s: %v", e.Group, e.Err)
}

// Unwrap exposes both the sentinel and the engine's own error.
func (e *MergeError) Unwrap() []error { return []error{ErrMergeFailed, e.Err} }

func (e *RewriteError) Error() string {
	return fmt.Sprintf("rewriting references of %s (group %s): %v", e.Output, e.Group, e.Err)
}

func (e *RewriteError) Unwrap() []error { return []error{ErrRewriteFailed, e.Err} }
