package formstats

import (
	"strings"
	"time"
)

const (
	govDateLayout     = "2 January 2006"
	govDateTimeLayout = "2 January 2006 15:04"
)

// GovDate formats a YYYYMMDD report date as "6 November 2018".
// Unparsable input is returned unchanged.
func GovDate(value string) string {
	day, err := time.Parse(TimelineKeyLayout, strings.TrimSpace(value))
	if err != nil {
		return value
	}
	return day.Format(govDateLayout)
}

// GovDateTime formats a YYYYMMDDHHMM report timestamp as
// "6 November 2018 16:48".
func GovDateTime(value string) string {
	ts, err := time.Parse("200601021504", strings.TrimSpace(value))
	if err != nil {
		return value
	}
	return ts.Format(govDateTimeLayout)
}
