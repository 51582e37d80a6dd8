package logger

import (
	"fmt"
	"strings"
)

// ProgressBar renders an ASCII bar such as "[======    ] 3/5 (60%)".
type ProgressBar struct {
	total       int
	width       int
	enableColor bool
}

// NewProgressBar creates a progress bar for total units.
func NewProgressBar(total, width int, enableColor bool) *ProgressBar {
	if width < 1 {
		width = 10
	}
	return &ProgressBar{total: total, width: width, enableColor: enableColor}
}

// Percentage returns the progress percentage (0-100) for current units.
func (pb *ProgressBar) Percentage(current int) int {
	if pb.total <= 0 {
		return 0
	}
	perc := (current * 100) / pb.total
	if perc > 100 {
		perc = 100
	}
	if perc < 0 {
		perc = 0
	}
	return perc
}

// Render generates the bar for current units.
func (pb *ProgressBar) Render(current int) string {
	perc := pb.Percentage(current)
	filled := (perc * pb.width) / 100

	result := fmt.Sprintf("[%s%s] %d/%d (%d%%)",
		strings.Repeat("=", filled), strings.Repeat(" ", pb.width-filled), current, pb.total, perc)

	if !pb.enableColor {
		return result
	}
	if perc < 100 {
		return "\033[36m" + result + "\033[0m" // Cyan for in-progress
	}
	return "\033[32m" + result + "\033[0m"
}
