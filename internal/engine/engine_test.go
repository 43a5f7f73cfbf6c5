// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/mrepack/mrepack/pkg/metadata"
	"github.com/mrepack/mrepack/pkg/metadata/metadatatest"
)

func TestMergedIdentities(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// The Assembly row name wins over the file name.
	renamed := metadatatest.Write(t, dir, metadata.ModuleSpec{Name: "Contoso.Core", ModuleName: "core.dll"})
	plain := metadatatest.Library(t, dir, "Contoso.Util")
	garbage := filepath.Join(dir, "Native.dll")
	if err := os.WriteFile(garbage, []byte("not a module"), 0o644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "Missing.dll")

	got := MergedIdentities([]string{renamed, plain, garbage, missing, filepath.Join(dir, "CONTOSO.UTIL.dll")})
	want := []string{"Contoso.Core", "Contoso.Util", "Native", "Missing"}
	if !slices.Equal(got, want) {
		t.Errorf("MergedIdentities() = %v, want %v", got, want)
	}
}
