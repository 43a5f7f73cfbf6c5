// SPDX-License-Identifier: MPL-2.0

package repackfile

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/mrepack/mrepack/pkg/metadata"
)

// ErrInvalidConfiguration is wrapped by every semantic validation failure.
var ErrInvalidConfiguration = errors.New("invalid repack configuration")

type (
	// ValidationError is a single problem found in a configuration.
	ValidationError struct {
		// Field is the JSON path of the offending value (e.g. "groups[1].outputAssembly").
		Field string
		// Message is the human-readable description.
		Message string
	}

	// ValidationErrors collects every problem found in one validation pass.
	ValidationErrors []ValidationError
)

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Unwrap returns ErrInvalidConfiguration for errors.Is compatibility.
func (e ValidationError) Unwrap() error { return ErrInvalidConfiguration }

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return fmt.Sprintf("%s: %s", ErrInvalidConfiguration, e[0].Error())
	}
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return fmt.Sprintf("%s: %d problems:\n  %s", ErrInvalidConfiguration, len(e), strings.Join(msgs, "\n  "))
}

// Unwrap returns ErrInvalidConfiguration for errors.Is compatibility.
func (e ValidationErrors) Unwrap() error { return ErrInvalidConfiguration }

// Validate checks the configuration invariants: at least one group, every
// group has an input and an output, no two groups share an output path
// (case-insensitively) and every option value is well formed. All problems
// are returned together as ValidationErrors.
func (c *Configuration) Validate() error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if len(c.Groups) == 0 {
		add("groups", "at least one group is required")
	}
	errs = append(errs, c.GlobalOptions.validate("globalOptions")...)

	seen := make(map[string]int, len(c.Groups))
	for i := range c.Groups {
		g := &c.Groups[i]
		field := fmt.Sprintf("groups[%d]", i)

		if len(g.InputAssemblies) == 0 {
			add(field+".inputAssemblies", "group %q has no input assemblies", g.Label())
		}
		for j, in := range g.InputAssemblies {
			if strings.TrimSpace(in) == "" {
				add(fmt.Sprintf("%s.inputAssemblies[%d]", field, j), "input path is empty")
			}
		}
		if strings.TrimSpace(g.OutputAssembly) == "" {
			add(field+".outputAssembly", "group %q has no output assembly", g.Label())
			continue
		}
		key := g.Key()
		if first, dup := seen[key]; dup {
			add(field+".outputAssembly", "output %q is already produced by groups[%d]", g.OutputAssembly, first)
		} else {
			seen[key] = i
		}
		errs = append(errs, g.Options.validate(field+".options")...)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (o *Options) validate(field string) ValidationErrors {
	var errs ValidationErrors
	if o.TargetKind != nil && !o.TargetKind.IsValid() {
		errs = append(errs, ValidationError{
			Field:   field + ".targetKind",
			Message: fmt.Sprintf("unknown target kind %q (want library, exe or winexe)", *o.TargetKind),
		})
	}
	if o.TargetPlatformVersion != nil && !slices.Contains(targetPlatforms, *o.TargetPlatformVersion) {
		errs = append(errs, ValidationError{
			Field:   field + ".targetPlatformVersion",
			Message: fmt.Sprintf("unknown target platform %q (want one of %s)", *o.TargetPlatformVersion, strings.Join(targetPlatforms, ", ")),
		})
	}
	if o.Version != nil {
		if _, err := metadata.ParseVersion(*o.Version); err != nil {
			errs = append(errs, ValidationError{Field: field + ".version", Message: err.Error()})
		}
	}
	return errs
}
