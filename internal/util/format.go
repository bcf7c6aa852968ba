// Package util hosts shared display formatting helpers used by the CLI
// commands.
package util

import "fmt"

// Truncate shortens s to at most limit runes, marking the cut with an
// ellipsis. Limits below 2 return the ellipsis alone for non-empty input.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit < 2 {
		return "…"
	}
	return string(runes[:limit-1]) + "…"
}

// FormatProgress renders a 0-100 progress value for display.
func FormatProgress(progress int) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	return fmt.Sprintf("%d%%", progress)
}
