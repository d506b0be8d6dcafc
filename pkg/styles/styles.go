// Package styles provides the adaptive color palette and pre-configured
// lipgloss styles used for terminal output.
//
// Colors carry both a light and a dark variant so output stays readable
// regardless of the terminal background.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// ColorError is used for error messages and blocking validation failures.
	ColorError = lipgloss.AdaptiveColor{
		Light: "#D73737",
		Dark:  "#FF5555",
	}

	// ColorWarning is used for warnings and non-blocking validation failures.
	ColorWarning = lipgloss.AdaptiveColor{
		Light: "#E67E22",
		Dark:  "#FFB86C",
	}

	// ColorSuccess is used for success messages and added lines in diffs.
	ColorSuccess = lipgloss.AdaptiveColor{
		Light: "#27AE60",
		Dark:  "#50FA7B",
	}

	// ColorInfo is used for informational messages.
	ColorInfo = lipgloss.AdaptiveColor{
		Light: "#2980B9",
		Dark:  "#8BE9FD",
	}

	// ColorPath is used for file paths and organization identifiers.
	ColorPath = lipgloss.AdaptiveColor{
		Light: "#8E44AD",
		Dark:  "#BD93F9",
	}

	// ColorMuted is used for secondary information like unchanged diff lines.
	ColorMuted = lipgloss.AdaptiveColor{
		Light: "#6C7A89",
		Dark:  "#6272A4",
	}
)

// Pre-configured styles for common output elements.
var (
	Error   = lipgloss.NewStyle().Bold(true).Foreground(ColorError)
	Warning = lipgloss.NewStyle().Bold(true).Foreground(ColorWarning)
	Success = lipgloss.NewStyle().Bold(true).Foreground(ColorSuccess)
	Info    = lipgloss.NewStyle().Bold(true).Foreground(ColorInfo)

	// Bright renders emphasized identifiers such as organization names.
	Bright = lipgloss.NewStyle().Bold(true)

	// FilePath renders file paths and configuration locations.
	FilePath = lipgloss.NewStyle().Bold(true).Foreground(ColorPath)

	// DiffAdded and DiffRemoved render unified diff lines.
	DiffAdded   = lipgloss.NewStyle().Foreground(ColorSuccess)
	DiffRemoved = lipgloss.NewStyle().Foreground(ColorError)

	// Muted renders de-emphasized context such as extra (ignored) patches.
	Muted = lipgloss.NewStyle().Foreground(ColorMuted)
)
