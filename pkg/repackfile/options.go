// SPDX-License-Identifier: MPL-2.0

package repackfile

import "slices"

// Overlay returns o with every field set in over replacing the corresponding
// field of o. Search directories are concatenated (o first) without duplicates.
func (o Options) Overlay(over Options) Options {
	out := o
	overlay(&out.Internalize, over.Internalize)
	overlay(&out.InternalizeExclude, over.InternalizeExclude)
	overlay(&out.CopyAttributes, over.CopyAttributes)
	overlay(&out.AllowMultipleAttributes, over.AllowMultipleAttributes)
	overlay(&out.DebugInfo, over.DebugInfo)
	overlay(&out.Parallel, over.Parallel)
	overlay(&out.Union, over.Union)
	overlay(&out.Wildcards, over.Wildcards)
	overlay(&out.ZeroPeKind, over.ZeroPeKind)
	overlay(&out.AllowDuplicateResources, over.AllowDuplicateResources)
	overlay(&out.TargetKind, over.TargetKind)
	overlay(&out.TargetPlatformVersion, over.TargetPlatformVersion)
	overlay(&out.TargetPlatformDirectory, over.TargetPlatformDirectory)
	overlay(&out.Version, over.Version)
	overlay(&out.AttributeFile, over.AttributeFile)
	overlay(&out.Verbose, over.Verbose)

	out.SearchDirectories = slices.Clone(o.SearchDirectories)
	for _, dir := range over.SearchDirectories {
		if !slices.Contains(out.SearchDirectories, dir) {
			out.SearchDirectories = append(out.SearchDirectories, dir)
		}
	}
	return out
}

func overlay[T any](dst **T, src *T) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

// Settings resolves o to concrete values. Unset flags are false except
// DebugInfo, which defaults to true. An exclude file implies internalization.
func (o Options) Settings() Settings {
	s := Settings{
		Internalize:             deref(o.Internalize, false),
		InternalizeExclude:      deref(o.InternalizeExclude, ""),
		CopyAttributes:          deref(o.CopyAttributes, false),
		AllowMultipleAttributes: deref(o.AllowMultipleAttributes, false),
		DebugInfo:               deref(o.DebugInfo, true),
		Parallel:                deref(o.Parallel, false),
		Union:                   deref(o.Union, false),
		Wildcards:               deref(o.Wildcards, false),
		ZeroPeKind:              deref(o.ZeroPeKind, false),
		AllowDuplicateResources: deref(o.AllowDuplicateResources, false),
		TargetKind:              deref(o.TargetKind, ""),
		TargetPlatformVersion:   deref(o.TargetPlatformVersion, ""),
		TargetPlatformDirectory: deref(o.TargetPlatformDirectory, ""),
		Version:                 deref(o.Version, ""),
		AttributeFile:           deref(o.AttributeFile, ""),
		SearchDirectories:       slices.Clone(o.SearchDirectories),
		Verbose:                 deref(o.Verbose, false),
	}
	if s.InternalizeExclude != "" {
		s.Internalize = true
	}
	return s
}

func deref[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
