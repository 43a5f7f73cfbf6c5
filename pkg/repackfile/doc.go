// SPDX-License-Identifier: MPL-2.0

// Package repackfile loads and validates multi-group repack documents.
//
// A repack document lists merge groups and global options:
//
//	groups: [{
//		name:            "core"
//		inputAssemblies: ["bin/Core.dll", "bin/Core.Util.dll"]
//		outputAssembly:  "out/Core.dll"
//	}, {
//		inputAssemblies: ["bin/App.dll"]
//		outputAssembly:  "out/App.dll"
//		options: {internalize: true}
//	}]
//	globalOptions: {debugInfo: false}
//
// CUE and JSON documents (comments and trailing commas allowed) go through the
// CUE compiler; TOML documents go through go-toml. Field names are matched case
// insensitively and every document is validated against an embedded CUE schema
// before the semantic checks in Validate run.
package repackfile
