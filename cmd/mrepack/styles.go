// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/mrepack/mrepack/internal/config"

	"github.com/charmbracelet/lipgloss"
)

// Palette entries adapt to the terminal background detected by lipgloss.
var (
	paletteAccent  = lipgloss.AdaptiveColor{Light: "#6D28D9", Dark: "#A78BFA"}
	paletteMuted   = lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#9CA3AF"}
	paletteOK      = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"}
	paletteFailed  = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	paletteCaution = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}
	paletteName    = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
)

var (
	// TitleStyle heads a block of output such as "Repack plan".
	TitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(paletteAccent)
	SubtitleStyle = lipgloss.NewStyle().Foreground(paletteMuted)
	SuccessStyle  = lipgloss.NewStyle().Foreground(paletteOK)
	ErrorStyle    = lipgloss.NewStyle().Bold(true).Foreground(paletteFailed)
	WarningStyle  = lipgloss.NewStyle().Foreground(paletteCaution)
	// NameStyle marks group labels, assembly names and settings keys.
	NameStyle = lipgloss.NewStyle().Foreground(paletteName)
)

// stateStyle picks the style a group state is printed with.
func stateStyle(done, failed bool) lipgloss.Style {
	switch {
	case failed:
		return ErrorStyle
	case done:
		return SuccessStyle
	default:
		return SubtitleStyle
	}
}

// applyColorScheme pins the adaptive palette when the settings name a scheme.
// The auto scheme leaves background detection to lipgloss.
func applyColorScheme(scheme config.ColorScheme) {
	switch scheme {
	case config.ColorSchemeDark:
		lipgloss.SetHasDarkBackground(true)
	case config.ColorSchemeLight:
		lipgloss.SetHasDarkBackground(false)
	}
}
