// Package console provides styled terminal output helpers.
//
// Styling is applied only when the target stream is a terminal; piped output
// stays plain so it can be processed by other tools.
package console

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/autumnfound/otterdog/pkg/styles"
	"github.com/autumnfound/otterdog/pkg/tty"
)

func isTTY() bool {
	return tty.IsStdoutTerminal()
}

// applyStyle conditionally applies styling based on TTY status
func applyStyle(style lipgloss.Style, text string) string {
	if isTTY() {
		return style.Render(text)
	}
	return text
}

// FormatSuccessMessage formats a success message with styling
func FormatSuccessMessage(message string) string {
	return applyStyle(styles.Success, "✓ ") + message
}

// FormatInfoMessage formats an informational message
func FormatInfoMessage(message string) string {
	return applyStyle(styles.Info, "ℹ ") + message
}

// FormatWarningMessage formats a warning message
func FormatWarningMessage(message string) string {
	return applyStyle(styles.Warning, "! ") + message
}

// FormatErrorMessage formats an error message (for stderr output)
func FormatErrorMessage(message string) string {
	return applyStyle(styles.Error, "✗ ") + message
}

// Bright emphasizes an identifier such as an organization name.
func Bright(text string) string {
	return applyStyle(styles.Bright, text)
}

// FormatDiffLine colorizes a unified diff line based on its leading marker.
func FormatDiffLine(line string) string {
	if len(line) == 0 {
		return line
	}
	switch line[0] {
	case '+':
		return applyStyle(styles.DiffAdded, line)
	case '-':
		return applyStyle(styles.DiffRemoved, line)
	default:
		return line
	}
}
