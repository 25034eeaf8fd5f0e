// Package format converts raw API quantities (bytes, seconds, ratios)
// into the display strings used across tool output.
package format

import (
	"fmt"
	"math"
	"strings"
)

var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

// Bytes renders a byte count with one decimal place using binary scaling.
// Zero and negative counts render as "0 B".
func Bytes(b int64) string {
	if b <= 0 {
		return "0 B"
	}
	value := float64(b)
	unit := 0
	for value >= 1024 && unit < len(byteUnits)-1 {
		value /= 1024
		unit++
	}
	return fmt.Sprintf("%.1f %s", value, byteUnits[unit])
}

// Uptime renders a duration in seconds as a compact "1d 2h 3m" style
// string. Leading zero-valued units are omitted; sub-hour durations
// include seconds. Zero renders as "0s".
func Uptime(seconds int64) string {
	if seconds <= 0 {
		return "0s"
	}

	days := seconds / 86400
	seconds %= 86400
	hours := seconds / 3600
	seconds %= 3600
	minutes := seconds / 60
	secs := seconds % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if days == 0 && hours == 0 && (secs > 0 || len(parts) == 0) {
		parts = append(parts, fmt.Sprintf("%ds", secs))
	}
	return strings.Join(parts, " ")
}

// Percent computes used/total*100 rounded to one decimal place.
// A non-positive total yields 0.0 rather than dividing by zero.
func Percent(used, total float64) float64 {
	if total <= 0 {
		return 0.0
	}
	return math.Round(used/total*1000) / 10
}
