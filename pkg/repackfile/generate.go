// SPDX-License-Identifier: MPL-2.0

package repackfile

import (
	"fmt"
	"strings"
)

// GenerateCUE renders the configuration as a canonical CUE document that
// Parse accepts. Paths are written as stored (resolved when loaded from disk).
func GenerateCUE(cfg *Configuration) string {
	var sb strings.Builder

	sb.WriteString("// Repack configuration\n\n")
	sb.WriteString("groups: [")
	for i := range cfg.Groups {
		g := &cfg.Groups[i]
		sb.WriteString("{\n")
		if g.Name != "" {
			fmt.Fprintf(&sb, "\tname: %q\n", g.Name)
		}
		sb.WriteString("\tinputAssemblies: [\n")
		for _, in := range g.InputAssemblies {
			fmt.Fprintf(&sb, "\t\t%q,\n", in)
		}
		sb.WriteString("\t]\n")
		fmt.Fprintf(&sb, "\toutputAssembly: %q\n", g.OutputAssembly)
		writeOptions(&sb, "\t", "options", &g.Options)
		sb.WriteString("}")
		if i < len(cfg.Groups)-1 {
			sb.WriteString(", ")
		}
	}
	sb.WriteString("]\n")

	writeOptions(&sb, "", "globalOptions", &cfg.GlobalOptions)
	return sb.String()
}

func writeOptions(sb *strings.Builder, indent, name string, o *Options) {
	var lines []string
	boolField := func(key string, v *bool) {
		if v != nil {
			lines = append(lines, fmt.Sprintf("%s: %t", key, *v))
		}
	}
	strField := func(key string, v *string) {
		if v != nil {
			lines = append(lines, fmt.Sprintf("%s: %q", key, *v))
		}
	}

	boolField("internalize", o.Internalize)
	strField("internalizeExclude", o.InternalizeExclude)
	boolField("copyAttributes", o.CopyAttributes)
	boolField("allowMultipleAttributes", o.AllowMultipleAttributes)
	boolField("debugInfo", o.DebugInfo)
	boolField("parallel", o.Parallel)
	boolField("union", o.Union)
	boolField("wildcards", o.Wildcards)
	boolField("zeroPeKind", o.ZeroPeKind)
	boolField("allowDuplicateResources", o.AllowDuplicateResources)
	if o.TargetKind != nil {
		lines = append(lines, fmt.Sprintf("targetKind: %q", string(*o.TargetKind)))
	}
	strField("targetPlatformVersion", o.TargetPlatformVersion)
	strField("targetPlatformDirectory", o.TargetPlatformDirectory)
	strField("version", o.Version)
	strField("attributeFile", o.AttributeFile)
	if len(o.SearchDirectories) > 0 {
		quoted := make([]string, len(o.SearchDirectories))
		for i, d := range o.SearchDirectories {
			quoted[i] = fmt.Sprintf("%q", d)
		}
		lines = append(lines, "searchDirectories: ["+strings.Join(quoted, ", ")+"]")
	}
	boolField("verbose", o.Verbose)

	if len(lines) == 0 {
		return
	}
	if indent == "" {
		sb.WriteString("\n")
	}
	fmt.Fprintf(sb, "%s%s: {\n", indent, name)
	for _, l := range lines {
		fmt.Fprintf(sb, "%s\t%s\n", indent, l)
	}
	fmt.Fprintf(sb, "%s}\n", indent)
}
