// SPDX-License-Identifier: MPL-2.0

// Package orchestrator runs a multi-group repack. It indexes every input
// module by name, derives inter-group dependencies from the modules'
// AssemblyRef tables, orders the groups so producers merge before consumers,
// merges each group through an engine.Engine and patches every output after
// the first so it references earlier outputs instead of the inputs they absorbed.
//
// Groups are processed one at a time. The only concurrency is the metadata
// reads performed while building the dependency graph.
package orchestrator
