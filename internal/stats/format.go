package stats

import (
	"fmt"
	"math"
	"strconv"

	"teledash/internal/models"
)

// roundPct rounds a percentage to the nearest integer. No clamping: a
// usage_idle above 100 legitimately produces a negative active figure and
// is passed through as-is.
func roundPct(v float64) int {
	return int(math.Round(v))
}

// roundValue applies roundPct with a fallback for null/non-numeric source
// values.
func roundValue(v *float64, def int) int {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return def
	}
	return roundPct(*v)
}

// cpuPercent derives the active-CPU figure: 100 minus idle when the source
// reports idle time, otherwise the pre-summed active column, otherwise 0.
func cpuPercent(s *models.CPUSample) int {
	if s.UsageIdle != nil && !math.IsNaN(*s.UsageIdle) {
		return roundPct(100 - *s.UsageIdle)
	}
	return roundValue(s.UsageActive, 0)
}

// cpuBreakdown splits active time into user/system/iowait, zero-filling
// missing columns.
func cpuBreakdown(s *models.CPUSample) *models.CPUBreakdown {
	return &models.CPUBreakdown{
		User:   roundValue(s.UsageUser, 0),
		System: roundValue(s.UsageSystem, 0),
		IOWait: roundValue(s.UsageIOWait, 0),
	}
}

// formatUptime renders a seconds count as "Xd Yh", truncating: floor
// division by 86400, then by 3600 of the remainder.
func formatUptime(seconds int64) string {
	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	return fmt.Sprintf("%dd %dh", days, hours)
}

// formatLoad renders a load average with exactly two decimals, defaulting
// to "0.00" for null or non-numeric source values.
func formatLoad(v *float64) string {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return "0.00"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
