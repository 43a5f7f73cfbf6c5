// SPDX-License-Identifier: MPL-2.0

package orchestrator

import (
	"fmt"

	"github.com/mrepack/mrepack/internal/logging"
	"github.com/mrepack/mrepack/pkg/metadata"
	"github.com/mrepack/mrepack/pkg/repackfile"
)

type (
	// RewrittenReference describes one patched AssemblyRef row.
	RewrittenReference struct {
		Row  int
		From string
		To   string
		// Output is the merged module the reference now names.
		Output string
	}

	// RewriteReport is the outcome of one Rewrite call.
	RewriteReport struct {
		Output    string
		Rewritten []RewrittenReference
		// Saved is false when nothing changed and the file was not touched.
		Saved bool
	}

	// Rewriter points the references of a freshly merged module at the
	// outputs that absorbed the modules it referenced.
	Rewriter struct {
		logger logging.Logger
	}
)

// NewRewriter creates a Rewriter reporting through logger.
func NewRewriter(logger logging.Logger) *Rewriter {
	return &Rewriter{logger: logger}
}

// Rewrite patches outputPath in place. A reference is replaced when mapping
// knows the module it names and the absorbing output is a different module
// with a different name. Version, culture, flags, public key token and hash
// value are kept. The file is written only when a row changed.
func (r *Rewriter) Rewrite(outputPath string, mapping *OutputMapping, registry *Registry) (RewriteReport, error) {
	report := RewriteReport{Output: outputPath}

	m, err := metadata.Open(outputPath)
	if err != nil {
		return report, fmt.Errorf("opening merged module: %w", err)
	}
	refs, err := m.References()
	if err != nil {
		return report, fmt.Errorf("reading references of %s: %w", outputPath, err)
	}

	self := repackfile.OutputKey(outputPath)
	for i, ref := range refs {
		target, ok := mapping.Lookup(ref.Name)
		if !ok || repackfile.OutputKey(target) == self {
			continue
		}
		name := registry.NameFor(target)
		if ref.Name == name {
			continue
		}
		if err := m.RenameReference(i, name); err != nil {
			return report, err
		}
		r.logger.Verbose("reference rewritten", "module", outputPath, "from", ref.Name, "to", name)
		report.Rewritten = append(report.Rewritten, RewrittenReference{Row: i, From: ref.Name, To: name, Output: target})
	}

	if !m.Modified() {
		return report, nil
	}
	if m.StrongNameSigned() {
		r.logger.Warn("patched module is strong-name signed; its signature is no longer valid", "module", outputPath)
	}
	if err := m.Save(outputPath); err != nil {
		return report, fmt.Errorf("saving %s: %w", outputPath, err)
	}
	report.Saved = true
	return report, nil
}
