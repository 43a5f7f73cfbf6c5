// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// ActionableError is an error a user can act on. Besides the cause it names
	// the failed operation, the file or group involved, concrete next steps and
	// optionally a catalog entry that `mrepack explain` renders.
	//
	//	err := issue.NewErrorContext().
	//		WithOperation("load repack document").
	//		WithResource("./repack.cue").
	//		WithIssue(issue.ConfigInvalidId).
	//		WithSuggestion("Run 'mrepack config validate ./repack.cue'").
	//		Wrap(cause).
	//		BuildError()
	ActionableError struct {
		// Operation is a verb phrase such as "merge group".
		Operation   string
		Resource    string
		Suggestions []string
		// Issue is zero when no catalog entry applies.
		Issue Id
		Cause error
	}

	// ErrorContext accumulates the fields of an ActionableError.
	ErrorContext struct {
		draft ActionableError
	}
)

// NewErrorContext starts an empty ErrorContext.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

// WrapWithContext is shorthand for an ActionableError with only an operation,
// a resource and a cause. A nil err yields nil.
func WrapWithContext(err error, operation, resource string) *ActionableError {
	if err == nil {
		return nil
	}
	return &ActionableError{Operation: operation, Resource: resource, Cause: err}
}

// Error renders "failed to <operation>[: <resource>][: <cause>]".
func (e *ActionableError) Error() string {
	parts := []string{"failed to " + e.Operation}
	if e.Resource != "" {
		parts = append(parts, e.Resource)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *ActionableError) Unwrap() error { return e.Cause }

// Format appends the suggestions as a bullet list to Error. With verbose set
// it also numbers every layer of the cause chain.
func (e *ActionableError) Format(verbose bool) string {
	var b strings.Builder
	b.WriteString(e.Error())

	if e.HasSuggestions() {
		b.WriteByte('\n')
		for _, s := range e.Suggestions {
			fmt.Fprintf(&b, "\n  • %s", s)
		}
	}
	if verbose && e.Cause != nil {
		b.WriteString("\n\nError chain:")
		for i, layer := range chain(e.Cause) {
			fmt.Fprintf(&b, "\n  %d. %s", i+1, layer)
		}
	}
	return b.String()
}

func chain(err error) []string {
	var layers []string
	for ; err != nil; err = errors.Unwrap(err) {
		layers = append(layers, err.Error())
	}
	return layers
}

// HasSuggestions reports whether any next step is attached.
func (e *ActionableError) HasSuggestions() bool { return len(e.Suggestions) > 0 }

// CatalogIssue returns the linked catalog entry, or nil.
func (e *ActionableError) CatalogIssue() *Issue {
	if e.Issue == 0 {
		return nil
	}
	return Get(e.Issue)
}

// Find returns the outermost ActionableError in err's chain, or nil.
func Find(err error) *ActionableError {
	var ae *ActionableError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.draft.Operation = op
	return c
}

func (c *ErrorContext) WithResource(res string) *ErrorContext {
	c.draft.Resource = res
	return c
}

func (c *ErrorContext) WithSuggestion(sug string) *ErrorContext {
	return c.WithSuggestions(sug)
}

func (c *ErrorContext) WithSuggestions(sugs ...string) *ErrorContext {
	c.draft.Suggestions = append(c.draft.Suggestions, sugs...)
	return c
}

func (c *ErrorContext) WithIssue(id Id) *ErrorContext {
	c.draft.Issue = id
	return c
}

func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.draft.Cause = err
	return c
}

// Build returns a copy of the accumulated error, or nil when no operation
// was given.
func (c *ErrorContext) Build() *ActionableError {
	if c.draft.Operation == "" {
		return nil
	}
	ae := c.draft
	ae.Suggestions = append([]string(nil), c.draft.Suggestions...)
	return &ae
}

// BuildError is Build as an error interface; it is a true nil when Build
// would return nil.
func (c *ErrorContext) BuildError() error {
	if ae := c.Build(); ae != nil {
		return ae
	}
	return nil
}
