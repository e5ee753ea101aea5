package cmd

import (
	"fmt"

	"github.com/fatih/color"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
)

// formatScoreWithColor colors a 0-100 score green/yellow/red.
func formatScoreWithColor(score float64) string {
	text := fmt.Sprintf("%.0f", score)
	switch {
	case score >= 80:
		return colorSuccess(text)
	case score >= 50:
		return colorWarn(text)
	default:
		return colorError(text)
	}
}
