// SPDX-License-Identifier: MPL-2.0

// Package config handles mrepack application settings using Viper with CUE as
// the file format.
//
// Settings are loaded from ~/.config/mrepack/config.cue (or the XDG equivalent on
// Linux, ~/Library/Application Support/mrepack/config.cue on macOS,
// %APPDATA%\mrepack\config.cue on Windows), then from ./config.cue when no
// per-user file exists. MREPACK_* environment variables override file values.
//
// Files are validated against the embedded #Config schema (config_schema.cue).
// These settings describe the tool itself (merge engine location, output style);
// the groups to repack live in a separate repack document (see pkg/repackfile).
package config
