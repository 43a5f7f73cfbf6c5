// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"fmt"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

// ErrInvalidDocument is wrapped by every syntax, schema and size error
// reported by this package.
var ErrInvalidDocument = errors.New("invalid document")

// FormatError formats a CUE error with JSON path prefixes for clear error messages.
//
// Error format: <file-path>: <json-path>: <message>
//
// Examples:
//   - repack.cue: groups[0].outputAssembly: incomplete value string
//   - config.cue: ui.verbose: conflicting values "yes" and bool
//
// The returned error wraps ErrInvalidDocument.
func FormatError(err error, filePath string) error {
	if err == nil {
		return nil
	}

	cueErrs := cueerrors.Errors(err)
	if len(cueErrs) == 0 {
		return fmt.Errorf("%w: %s: %w", ErrInvalidDocument, filePath, err)
	}

	lines := make([]string, 0, len(cueErrs))
	for _, e := range cueErrs {
		pathStr := formatPath(cueerrors.Path(e))
		msg := e.Error()
		// CUE repeats the path at the start of some messages.
		if pathStr != "" && strings.HasPrefix(msg, pathStr) {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, pathStr), ":"))
		}
		if pathStr != "" {
			lines = append(lines, pathStr+": "+msg)
		} else {
			lines = append(lines, msg)
		}
	}

	if len(lines) == 1 {
		return fmt.Errorf("%w: %s: %s", ErrInvalidDocument, filePath, lines[0])
	}
	return fmt.Errorf("%w: %s: validation failed:\n  %s", ErrInvalidDocument, filePath, strings.Join(lines, "\n  "))
}

// formatPath converts a CUE error path (["groups", "0", "name"]) to JSON-path
// notation (groups[0].name).
func formatPath(path []string) string {
	var sb strings.Builder
	for i, part := range path {
		if i > 0 && isIndex(part) {
			sb.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(part)
	}
	return sb.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// CheckFileSize verifies that data does not exceed maxSize bytes.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if int64(len(data)) > maxSize {
		return fmt.Errorf("%w: %s: file size %d bytes exceeds maximum %d bytes",
			ErrInvalidDocument, filename, len(data), maxSize)
	}
	return nil
}
