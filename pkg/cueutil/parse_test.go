// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"strings"
	"testing"
)

const testSchema = `
#Doc: close({
	name:   string & !=""
	tags?:  [...string]
	level?: "low" | "high"
})
`

type testDoc struct {
	Name  string   `json:"name"`
	Tags  []string `json:"tags,omitempty"`
	Level string   `json:"level,omitempty"`
}

func TestDecodeDocument_CommentsAndTrailingCommas(t *testing.T) {
	t.Parallel()

	data := []byte(`{
	// JSON with comments
	"name": "core",
	"tags": ["a", "b",],
}`)
	doc, err := DecodeDocument(data, WithFilename("doc.json"))
	if err != nil {
		t.Fatalf("DecodeDocument() error = %v", err)
	}
	if doc["name"] != "core" {
		t.Errorf("name = %v, want core", doc["name"])
	}
	tags, ok := doc["tags"].([]any)
	if !ok || len(tags) != 2 {
		t.Errorf("tags = %#v, want two entries", doc["tags"])
	}
}

func TestDecodeDocument_RejectsNonStruct(t *testing.T) {
	t.Parallel()

	if _, err := DecodeDocument([]byte(`[1, 2]`)); err == nil {
		t.Error("expected error for a list document")
	}
}

func TestDecodeDocument_SyntaxError(t *testing.T) {
	t.Parallel()

	_, err := DecodeDocument([]byte(`name: "unterminated`), WithFilename("bad.cue"))
	if !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument, got %v", err)
	}
	if !strings.Contains(err.Error(), "bad.cue") {
		t.Errorf("error should name the file, got %v", err)
	}
}

func TestDecodeDocument_SizeLimit(t *testing.T) {
	t.Parallel()

	_, err := DecodeDocument([]byte(`name: "x"`), WithMaxFileSize(3))
	if !errors.Is(err, ErrInvalidDocument) {
		t.Errorf("expected ErrInvalidDocument, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		doc     map[string]any
		wantErr string
	}{
		{name: "valid", doc: map[string]any{"name": "core", "level": "high"}},
		{name: "unknown field", doc: map[string]any{"name": "core", "extra": true}, wantErr: "extra"},
		{name: "bad enum", doc: map[string]any{"name": "core", "level": "mid"}, wantErr: "level"},
		{name: "missing required", doc: map[string]any{"tags": []any{"x"}}, wantErr: "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res, err := Validate[testDoc](testSchema, tt.doc, "#Doc", WithFilename("doc.cue"))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				if res.Value.Name != "core" || res.Value.Level != "high" {
					t.Errorf("decoded %+v", *res.Value)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrInvalidDocument) || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_NonConcrete(t *testing.T) {
	t.Parallel()

	schema := `#Settings: close({ verbose?: bool, name?: string })`
	res, err := Validate[map[string]any](schema, map[string]any{"verbose": true}, "#Settings", WithConcrete(false))
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if (*res.Value)["verbose"] != true {
		t.Errorf("verbose = %v, want true", (*res.Value)["verbose"])
	}
}

func TestParseAndDecode(t *testing.T) {
	t.Parallel()

	res, err := ParseAndDecode[testDoc](testSchema, []byte(`name: "util"`), "#Doc")
	if err != nil {
		t.Fatalf("ParseAndDecode() error = %v", err)
	}
	if res.Value.Name != "util" {
		t.Errorf("name = %q, want util", res.Value.Name)
	}
}
