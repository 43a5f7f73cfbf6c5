// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// ParseResult contains the result of a successful validation.
type ParseResult[T any] struct {
	// Value is the decoded Go value.
	Value *T

	// Unified is the unified CUE value, available for callers that need to
	// inspect defaults filled in by the schema.
	Unified cue.Value
}

// DecodeDocument compiles CUE source (JSON is a subset, so comments and
// trailing commas are accepted in either) and decodes it into a generic map
// without applying a schema. Callers normalise the map and pass it to Validate.
func DecodeDocument(data []byte, opts ...Option) (map[string]any, error) {
	o := applyOptions(opts)
	if err := CheckFileSize(data, o.maxFileSize, o.filename); err != nil {
		return nil, err
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(o.filename))
	if v.Err() != nil {
		return nil, FormatError(v.Err(), o.filename)
	}
	if v.IncompleteKind() != cue.StructKind {
		return nil, fmt.Errorf("%w: %s: document must be a struct, got %s", ErrInvalidDocument, o.filename, v.IncompleteKind())
	}

	var doc map[string]any
	if err := v.Decode(&doc); err != nil {
		return nil, FormatError(err, o.filename)
	}
	return doc, nil
}

// Validate unifies doc with the schemaPath definition of schema, validates the
// result and decodes it into T.
func Validate[T any](schema string, doc map[string]any, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	o := applyOptions(opts)
	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(schema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile schema: %w", schemaValue.Err())
	}
	schemaRoot := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if schemaRoot.Err() != nil {
		return nil, fmt.Errorf("internal error: schema definition %s not found: %w", schemaPath, schemaRoot.Err())
	}

	userValue := ctx.Encode(doc)
	if userValue.Err() != nil {
		return nil, FormatError(userValue.Err(), o.filename)
	}

	unified := schemaRoot.Unify(userValue)
	if err := unified.Validate(cue.Concrete(o.concrete)); err != nil {
		return nil, FormatError(err, o.filename)
	}

	var result T
	if err := unified.Decode(&result); err != nil {
		return nil, FormatError(err, o.filename)
	}
	return &ParseResult[T]{Value: &result, Unified: unified}, nil
}

// ParseAndDecode compiles CUE source and validates it against schemaPath in
// one step. Field names are matched exactly.
func ParseAndDecode[T any](schema string, data []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	doc, err := DecodeDocument(data, opts...)
	if err != nil {
		return nil, err
	}
	return Validate[T](schema, doc, schemaPath, opts...)
}
