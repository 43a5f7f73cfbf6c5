// SPDX-License-Identifier: MPL-2.0

// Package engine defines the single-group merge contract and an adapter that
// fulfils it by driving an external ILRepack-compatible executable.
package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/mrepack/mrepack/pkg/metadata"
	"github.com/mrepack/mrepack/pkg/repackfile"
)

var (
	// ErrToolNotFound is returned when the merge tool executable cannot be located.
	ErrToolNotFound = errors.New("merge tool not found")
	// ErrToolFailed is the sentinel error wrapped by ToolError.
	ErrToolFailed = errors.New("merge tool failed")
	// ErrOutputMissing is returned when the tool exits cleanly without writing the output.
	ErrOutputMissing = errors.New("merge tool produced no output")
	// ErrNoInputs is returned for a request without input modules.
	ErrNoInputs = errors.New("merge request has no inputs")
)

type (
	// Request is the work for one group: every input is merged into Output.
	// The first input is the primary module whose identity the output keeps.
	Request struct {
		Inputs            []string
		Output            string
		SearchDirectories []string
		Settings          repackfile.Settings
	}

	// Result lists the names of every input module absorbed into the output.
	Result struct {
		MergedIdentities []string
	}

	// Engine merges one group. Failure is final; callers do not retry.
	Engine interface {
		Merge(ctx context.Context, req Request) (Result, error)
	}
)

// MergedIdentities returns the assembly names of inputs in order, reading each
// module's Assembly row and falling back to the file name when the module
// cannot be read or has no manifest. Names are deduplicated case-insensitively.
func MergedIdentities(inputs []string) []string {
	seen := make(map[string]bool, len(inputs))
	names := make([]string, 0, len(inputs))
	for _, in := range inputs {
		name := metadata.NameFromPath(in)
		if id, err := metadata.ReadIdentity(in); err == nil && id.Name != "" {
			name = id.Name
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, name)
	}
	return names
}
