// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides shared CUE parsing utilities.
//
// Documents are validated in three steps, the same way for repack files and
// application settings:
//
//  1. Compile the embedded schema
//  2. Compile (or encode) user data and unify it with a schema definition
//  3. Validate and decode to a Go value
//
// # Usage
//
//	//go:embed repackfile_schema.cue
//	var schema string
//
//	doc, err := cueutil.DecodeDocument(data, cueutil.WithFilename("repack.cue"))
//	if err != nil {
//	    return nil, err
//	}
//	result, err := cueutil.Validate[Configuration](schema, doc, "#Configuration",
//	    cueutil.WithFilename("repack.cue"))
//	if err != nil {
//	    return nil, err // Error includes the CUE path of the offending field
//	}
//	return result.Value, nil
package cueutil
