// Package xsq implements C5: the XSQ serializer/parser. The struct-tag
// encoding/xml model and the MarshalIndent + xml.Header write pattern are
// adapted directly from internal/exporter/{rekordbox,traktor,serato}.go;
// round-trip verification follows internal/exporter/verify.go.
package xsq

import (
	"math"
	"strconv"
)

// truncate truncates (never rounds) v to the given number of decimal
// places, per spec.md §4.5's "truncation to two decimal places... not
// banker's rounding" requirement, generalized to the 3/4-decimal fields too.
func truncate(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Trunc(v*p) / p
}

// formatTruncated formats v truncated to decimals places, always showing
// that many digits after the point (e.g. formatTruncated(0.1, 2) == "0.10").
func formatTruncated(v float64, decimals int) string {
	return strconv.FormatFloat(truncate(v, decimals), 'f', decimals, 64)
}

// FormatValue formats a normalized [0,1] value-curve value at 2dp.
func FormatValue(v float64) string { return formatTruncated(v, 2) }

// FormatTime formats a normalized [0,1] value-curve time coordinate at 4dp.
func FormatTime(t float64) string { return formatTruncated(t, 4) }

// FormatDurationSeconds formats a duration in milliseconds as seconds with
// 3 decimal places (e.g. 10500ms -> "10.500").
func FormatDurationSeconds(durationMs int64) string {
	return formatTruncated(float64(durationMs)/1000.0, 3)
}
