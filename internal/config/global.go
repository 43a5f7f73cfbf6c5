// SPDX-License-Identifier: MPL-2.0

package config

import "sync/atomic"

// dirOverride, when non-empty, replaces the platform lookup in ConfigDir.
// The CLI never sets it; tests point it at a temporary directory so they
// neither read nor write the developer's real settings file.
var dirOverride atomic.Pointer[string]

// SetConfigDirOverride makes ConfigDir return dir until Reset is called.
func SetConfigDirOverride(dir string) {
	dirOverride.Store(&dir)
}

// Reset restores the platform config directory lookup.
func Reset() {
	dirOverride.Store(nil)
}

func overriddenConfigDir() (string, bool) {
	if dir := dirOverride.Load(); dir != nil && *dir != "" {
		return *dir, true
	}
	return "", false
}
