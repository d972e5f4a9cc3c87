package formstats

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimelineKeyLayout formats timeline keys (YYYYMMDD).
const TimelineKeyLayout = "20060102"

// ErrInvalidPeriod is returned when a start period cannot be turned into a
// day count.
var ErrInvalidPeriod = errors.New("formstats: invalid period")

// Timeline is an ordered, gap-free run of day keys with a value per day.
type Timeline struct {
	keys   []string
	values map[string]float64
}

// NewTimeline returns days+1 zeroed keys ending at end.
func NewTimeline(end time.Time, days int) Timeline {
	if days < 0 {
		return Timeline{values: map[string]float64{}}
	}
	t := Timeline{
		keys:   make([]string, 0, days+1),
		values: make(map[string]float64, days+1),
	}
	for i := days; i >= 0; i-- {
		key := end.AddDate(0, 0, -i).Format(TimelineKeyLayout)
		t.keys = append(t.keys, key)
		t.values[key] = 0
	}
	return t
}

// ParsePeriodDays converts an API start date into the number of days
// before now. It accepts "NdaysAgo", "today", "yesterday" and YYYY-MM-DD.
func ParsePeriodDays(start string, now time.Time) (int, error) {
	value := strings.TrimSpace(start)
	switch value {
	case "today":
		return 0, nil
	case "yesterday":
		return 1, nil
	}
	if n, ok := strings.CutSuffix(value, "daysAgo"); ok {
		days, err := strconv.Atoi(n)
		if err != nil || days < 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidPeriod, start)
		}
		return days, nil
	}
	if day, err := time.Parse("2006-01-02", value); err == nil {
		// Calendar days, counted in UTC so DST shifts cannot shorten a day.
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		days := int(today.Sub(day).Hours() / 24)
		if days < 0 {
			return 0, fmt.Errorf("%w: %q is in the future", ErrInvalidPeriod, start)
		}
		return days, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPeriod, start)
}

// TimelineForPeriod builds the timeline for a start period ending today.
// An unparsable period yields an empty timeline and the parse error.
func TimelineForPeriod(start string, now time.Time) (Timeline, error) {
	days, err := ParsePeriodDays(start, now)
	if err != nil {
		return NewTimeline(now, -1), err
	}
	return NewTimeline(now, days), nil
}

// Len returns the number of keys.
func (t Timeline) Len() int {
	return len(t.keys)
}

// Keys returns the keys in chronological order.
func (t Timeline) Keys() []string {
	return append([]string(nil), t.keys...)
}

// Values returns the values in key order.
func (t Timeline) Values() []float64 {
	out := make([]float64, len(t.keys))
	for i, key := range t.keys {
		out[i] = t.values[key]
	}
	return out
}

// Value returns the value stored for key.
func (t Timeline) Value(key string) (float64, bool) {
	v, ok := t.values[key]
	return v, ok
}

// Add accumulates v into key. Keys outside the timeline are ignored.
func (t Timeline) Add(key string, v float64) bool {
	current, ok := t.values[key]
	if !ok {
		return false
	}
	t.values[key] = current + v
	return true
}

// Clone returns an independent copy.
func (t Timeline) Clone() Timeline {
	out := Timeline{
		keys:   append([]string(nil), t.keys...),
		values: make(map[string]float64, len(t.values)),
	}
	for k, v := range t.values {
		out.values[k] = v
	}
	return out
}

// Zeroed returns a copy with every value reset.
func (t Timeline) Zeroed() Timeline {
	out := t.Clone()
	for k := range out.values {
		out.values[k] = 0
	}
	return out
}
