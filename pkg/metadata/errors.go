// SPDX-License-Identifier: MPL-2.0

package metadata

import (
	"errors"
	"fmt"
)

var (
	// ErrNotPE is returned when the file is not a PE image.
	ErrNotPE = errors.New("not a PE image")

	// ErrNotManaged is returned when a PE image carries no CLI header.
	ErrNotManaged = errors.New("PE image has no CLI header")

	// ErrMalformed is the sentinel wrapped by every structural decoding failure.
	ErrMalformed = errors.New("malformed CLI metadata")

	// ErrNoSectionSpace is returned when patched metadata outgrows its original
	// extent, the PE header area has no room for an additional section and the
	// last section cannot grow because data follows it.
	ErrNoSectionSpace = errors.New("no room for an additional PE section")

	// ErrReferenceIndex is returned for an AssemblyRef row index out of range.
	ErrReferenceIndex = errors.New("assembly reference index out of range")
)

// malformed wraps ErrMalformed with a formatted detail message.
func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}
