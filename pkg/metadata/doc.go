// SPDX-License-Identifier: MPL-2.0

// Package metadata reads and patches ECMA-335 CLI metadata inside managed PE
// modules.
//
// The package covers exactly what multi-group repacking needs:
//
//   - the Assembly row of a module (its identity)
//   - the AssemblyRef rows (the modules it references by name)
//   - in-place substitution of AssemblyRef rows and persistence of the patched
//     module back to disk
//
// Every metadata table defined by ECMA-335 Partition II (0x00-0x2C) is decoded
// so that rows can be re-encoded when heap or table index widths change.
// Method bodies, resources and other PE content are never interpreted; a
// module is always held fully in memory and no file handle outlives Open.
//
// # Usage
//
//	mod, err := metadata.Open("out/Consumer.dll")
//	if err != nil {
//	    return err
//	}
//	for i, ref := range mod.References() {
//	    if ref.Name == "LibA" {
//	        if err := mod.RenameReference(i, "Producer"); err != nil {
//	            return err
//	        }
//	    }
//	}
//	if mod.Modified() {
//	    return mod.Save("out/Consumer.dll")
//	}
package metadata
