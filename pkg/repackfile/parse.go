// SPDX-License-Identifier: MPL-2.0

package repackfile

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mrepack/mrepack/pkg/cueutil"

	"github.com/pelletier/go-toml/v2"
)

//go:embed repackfile_schema.cue
var repackfileSchema string

// canonicalKeys maps lower-cased field names to the spelling the schema uses.
var canonicalKeys = func() map[string]string {
	names := []string{
		"groups", "globalOptions",
		"name", "inputAssemblies", "outputAssembly", "options",
		"internalize", "internalizeExclude", "copyAttributes", "allowMultipleAttributes",
		"debugInfo", "parallel", "union", "wildcards", "zeroPeKind",
		"allowDuplicateResources", "targetKind", "targetPlatformVersion",
		"targetPlatformDirectory", "version", "attributeFile", "searchDirectories", "verbose",
	}
	m := make(map[string]string, len(names))
	for _, n := range names {
		m[strings.ToLower(n)] = n
	}
	return m
}()

// Load reads, parses and validates the repack document at path. Relative
// paths inside it are resolved against the document's directory.
func Load(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read repack file at %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	cfg, err := Parse(data, path, filepath.Dir(abs))
	if err != nil {
		return nil, err
	}
	cfg.Path = path
	return cfg, nil
}

// Parse parses a repack document. The format follows filename's extension:
// ".toml" is TOML, anything else is CUE (which accepts JSON). When baseDir is
// non-empty, relative paths are resolved against it.
func Parse(data []byte, filename, baseDir string) (*Configuration, error) {
	if filename == "" {
		filename = "<input>"
	}

	var doc map[string]any
	if strings.EqualFold(filepath.Ext(filename), ".toml") {
		if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, filename); err != nil {
			return nil, err
		}
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", cueutil.ErrInvalidDocument, filename, err)
		}
	} else {
		var err error
		if doc, err = cueutil.DecodeDocument(data, cueutil.WithFilename(filename)); err != nil {
			return nil, err
		}
	}

	normalized, _ := normalizeKeys(doc).(map[string]any)
	result, err := cueutil.Validate[Configuration](repackfileSchema, normalized, "#Configuration",
		cueutil.WithFilename(filename))
	if err != nil {
		return nil, err
	}

	cfg := result.Value
	cfg.Path = filename
	if baseDir != "" {
		cfg.resolvePaths(baseDir)
	}
	// Outputs are compared after resolution so relative and absolute
	// spellings of one file collide.
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalizeKeys rewrites every map key to its canonical spelling. Unknown keys
// are kept as written so the schema reports them.
func normalizeKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if canon, ok := canonicalKeys[strings.ToLower(k)]; ok {
				k = canon
			}
			out[k] = normalizeKeys(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeKeys(val)
		}
		return out
	}
	return v
}

func (c *Configuration) resolvePaths(baseDir string) {
	c.BaseDir = baseDir
	resolve := func(p string) string {
		if strings.TrimSpace(p) == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}
	resolveOpts := func(o *Options) {
		for _, p := range []**string{&o.InternalizeExclude, &o.TargetPlatformDirectory, &o.AttributeFile} {
			if *p != nil {
				r := resolve(**p)
				*p = &r
			}
		}
		for i, d := range o.SearchDirectories {
			o.SearchDirectories[i] = resolve(d)
		}
	}

	resolveOpts(&c.GlobalOptions)
	for i := range c.Groups {
		g := &c.Groups[i]
		for j, in := range g.InputAssemblies {
			g.InputAssemblies[j] = resolve(in)
		}
		g.OutputAssembly = resolve(g.OutputAssembly)
		resolveOpts(&g.Options)
	}
}
