// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/mrepack/mrepack/internal/logging"
)

var duplicatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignoring\s+duplicate\s+(\w+)\s+['"]?([^\s'",]+)`),
	regexp.MustCompile(`(?i)duplicate\s+(\w+)\s+['"]?([^\s'",]+)['"]?.*\bignored\b`),
}

type (
	// ExecCommandFunc creates the command for one tool invocation. Tests
	// replace it to avoid running a real merge tool.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// LookPathFunc resolves an executable name to a path.
	LookPathFunc func(file string) (string, error)

	// ToolOption configures a ToolEngine.
	ToolOption func(*ToolEngine)

	// ToolEngine runs one external tool process per merge.
	ToolEngine struct {
		tool        string
		extraArgs   []string
		logger      logging.Logger
		execCommand ExecCommandFunc
		lookPath    LookPathFunc
	}

	// ToolError reports a non-zero exit of the merge tool.
	ToolError struct {
		Tool     string
		Output   string
		ExitCode int
		Stderr   string
	}

	// lineWriter splits a byte stream into lines and hands each one to emit.
	lineWriter struct {
		mu   sync.Mutex
		buf  []byte
		emit func(string)
	}
)

// WithExtraArgs appends arguments after the generated ones.
func WithExtraArgs(args ...string) ToolOption {
	return func(e *ToolEngine) { e.extraArgs = append(e.extraArgs, args...) }
}

// WithLogger sets the logger receiving tool output and duplicate notices.
func WithLogger(l logging.Logger) ToolOption {
	return func(e *ToolEngine) { e.logger = l }
}

// WithExecCommand overrides process creation.
func WithExecCommand(fn ExecCommandFunc) ToolOption {
	return func(e *ToolEngine) { e.execCommand = fn }
}

// WithLookPath overrides executable lookup.
func WithLookPath(fn LookPathFunc) ToolOption {
	return func(e *ToolEngine) { e.lookPath = fn }
}

// NewToolEngine creates an engine driving tool, a path or a name looked up on PATH.
func NewToolEngine(tool string, opts ...ToolOption) *ToolEngine {
	e := &ToolEngine{
		tool:        tool,
		logger:      logging.Nop{},
		execCommand: exec.CommandContext,
		lookPath:    exec.LookPath,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resolve returns the absolute location of the tool executable.
func (e *ToolEngine) Resolve() (string, error) {
	path, err := e.lookPath(e.tool)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrToolNotFound, e.tool, err)
	}
	return path, nil
}

// Merge runs the tool for req and waits for it to exit.
func (e *ToolEngine) Merge(ctx context.Context, req Request) (Result, error) {
	if len(req.Inputs) == 0 {
		return Result{}, ErrNoInputs
	}
	tool, err := e.Resolve()
	if err != nil {
		return Result{}, err
	}
	if dir := filepath.Dir(req.Output); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Result{}, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	args := append(BuildArgs(req), e.extraArgs...)
	args = append(args, req.Inputs...)
	e.logger.Verbose("invoking merge tool", "tool", tool, "args", strings.Join(args, " "))

	var stderr bytes.Buffer
	stdoutLines := &lineWriter{emit: e.toolLine}
	stderrLines := &lineWriter{emit: e.toolLine}

	cmd := e.execCommand(ctx, tool, args...)
	cmd.Stdout = stdoutLines
	cmd.Stderr = io.MultiWriter(&stderr, stderrLines)
	runErr := cmd.Run()
	stdoutLines.flush()
	stderrLines.flush()

	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, fmt.Errorf("merge canceled: %w", ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return Result{}, &ToolError{
				Tool:     tool,
				Output:   req.Output,
				ExitCode: exitErr.ExitCode(),
				Stderr:   strings.TrimSpace(stderr.String()),
			}
		}
		return Result{}, fmt.Errorf("failed to run %s: %w", tool, runErr)
	}

	if _, err := os.Stat(req.Output); err != nil {
		return Result{}, fmt.Errorf("%w: %s", ErrOutputMissing, req.Output)
	}
	return Result{MergedIdentities: MergedIdentities(req.Inputs)}, nil
}

// toolLine forwards one line of tool output to the verbose log and reports
// duplicate-ignored lines through the dedicated notification.
func (e *ToolEngine) toolLine(line string) {
	for _, re := range duplicatePatterns {
		if m := re.FindStringSubmatch(line); m != nil {
			e.logger.DuplicateIgnored(strings.ToLower(m[1]), m[2])
			return
		}
	}
	e.logger.Verbose(line)
}

// BuildArgs renders the option switches for req, without the inputs.
func BuildArgs(req Request) []string {
	s := req.Settings
	args := []string{"/out:" + req.Output}
	for _, dir := range req.SearchDirectories {
		args = append(args, "/lib:"+dir)
	}
	if s.Internalize {
		if s.InternalizeExclude != "" {
			args = append(args, "/internalize:"+s.InternalizeExclude)
		} else {
			args = append(args, "/internalize")
		}
	}
	if !s.DebugInfo {
		args = append(args, "/ndebug")
	}
	flags := []struct {
		on   bool
		flag string
	}{
		{s.CopyAttributes, "/copyattrs"},
		{s.AllowMultipleAttributes, "/allowMultiple"},
		{s.Union, "/union"},
		{s.Parallel, "/parallel"},
		{s.Wildcards, "/wildcards"},
		{s.ZeroPeKind, "/zeropekind"},
		{s.AllowDuplicateResources, "/allowduplicateresources"},
	}
	for _, f := range flags {
		if f.on {
			args = append(args, f.flag)
		}
	}
	if s.TargetKind != "" {
		args = append(args, "/target:"+string(s.TargetKind))
	}
	if s.TargetPlatformVersion != "" {
		platform := "/targetplatform:" + s.TargetPlatformVersion
		if s.TargetPlatformDirectory != "" {
			platform += "," + s.TargetPlatformDirectory
		}
		args = append(args, platform)
	}
	if s.Version != "" {
		args = append(args, "/ver:"+s.Version)
	}
	if s.AttributeFile != "" {
		args = append(args, "/attr:"+s.AttributeFile)
	}
	if s.Verbose {
		args = append(args, "/verbose")
	}
	return args
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d while writing %s", filepath.Base(e.Tool), e.ExitCode, e.Output)
	if e.Stderr != "" {
		msg += ": " + lastLine(e.Stderr)
	}
	return msg
}

// Unwrap returns ErrToolFailed for errors.Is() compatibility.
func (e *ToolError) Unwrap() error { return ErrToolFailed }

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emitLine(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) > 0 {
		w.emitLine(w.buf)
		w.buf = nil
	}
}

func (w *lineWriter) emitLine(b []byte) {
	if line := strings.TrimRight(string(b), "\r"); strings.TrimSpace(line) != "" {
		w.emit(line)
	}
}

var _ Engine = (*ToolEngine)(nil)
