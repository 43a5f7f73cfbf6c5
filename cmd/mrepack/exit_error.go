// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/mrepack/mrepack/internal/config"
	"github.com/mrepack/mrepack/internal/engine"
	"github.com/mrepack/mrepack/internal/issue"
	"github.com/mrepack/mrepack/internal/orchestrator"
	"github.com/mrepack/mrepack/pkg/cueutil"
	"github.com/mrepack/mrepack/pkg/metadata"
	"github.com/mrepack/mrepack/pkg/repackfile"
	"github.com/mrepack/mrepack/pkg/types"
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code types.ExitCode
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %s: %s", e.Code, e.Code.Describe())
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitCodeFor maps an error to the process exit code.
func exitCodeFor(err error) types.ExitCode {
	var exitErr *ExitError
	switch {
	case err == nil:
		return types.ExitOK
	case errors.As(err, &exitErr):
		return exitErr.Code
	case errors.Is(err, repackfile.ErrInvalidConfiguration),
		errors.Is(err, cueutil.ErrInvalidDocument),
		errors.Is(err, config.ErrInvalidConfig):
		return types.ExitConfig
	case errors.Is(err, orchestrator.ErrDuplicateInput),
		errors.Is(err, orchestrator.ErrCircularDependency):
		return types.ExitGraph
	case errors.Is(err, orchestrator.ErrMergeFailed):
		return types.ExitMerge
	case errors.Is(err, orchestrator.ErrRewriteFailed):
		return types.ExitRewrite
	}
	if ae := issue.Find(err); ae != nil && (ae.Issue == issue.ConfigInvalidId || ae.Issue == issue.ConfigLoadFailedId) {
		return types.ExitConfig
	}
	return types.ExitError
}

// issueFor picks the catalog entry that explains err, or zero.
func issueFor(err error) issue.Id {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, engine.ErrToolNotFound):
		return issue.ToolNotFoundId
	case errors.Is(err, orchestrator.ErrDuplicateInput):
		return issue.DuplicateInputId
	case errors.Is(err, orchestrator.ErrCircularDependency):
		return issue.DependencyCycleId
	case errors.Is(err, orchestrator.ErrMergeFailed):
		return issue.MergeFailedId
	case errors.Is(err, orchestrator.ErrRewriteFailed):
		return issue.RewriteFailedId
	case errors.Is(err, metadata.ErrNotPE), errors.Is(err, metadata.ErrNotManaged), errors.Is(err, metadata.ErrMalformed):
		return issue.ModuleUnreadableId
	}
	if ae := issue.Find(err); ae != nil && ae.Issue != 0 {
		return ae.Issue
	}
	if errors.Is(err, repackfile.ErrInvalidConfiguration) || errors.Is(err, cueutil.ErrInvalidDocument) {
		return issue.ConfigInvalidId
	}
	return 0
}

// newExitError attaches the exit code for err. Nil stays nil.
func newExitError(err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: exitCodeFor(err), Err: err}
}
