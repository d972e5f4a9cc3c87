package formstats

import (
	"strconv"
	"strings"
)

// CompletionRate returns submissions/sessions as a percentage with two
// decimals, or "0" when either side is missing or not positive.
func CompletionRate(sessions, submissions string) string {
	s, ok := parseCount(sessions)
	if !ok || s <= 0 {
		return "0"
	}
	sub, ok := parseCount(submissions)
	if !ok || sub <= 0 {
		return "0"
	}
	return strconv.FormatFloat(sub/s*100, 'f', 2, 64) + "%"
}

func parseCount(value string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// metricValue parses a metric cell, treating junk as zero.
func metricValue(value string) float64 {
	v, _ := parseCount(value)
	return v
}
