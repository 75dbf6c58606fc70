package model

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateKeyLayout is the canonical YYYY-MM-DD day key format.
const DateKeyLayout = "2006-01-02"

var clockPattern = regexp.MustCompile(`^\d{2}:\d{2}$`)

// DateKey returns the calendar day key for t in t's location.
func DateKey(t time.Time) string {
	return t.Format(DateKeyLayout)
}

// ParseDateKey parses a YYYY-MM-DD key into a local midnight time.
func ParseDateKey(key string) (time.Time, error) {
	return time.ParseInLocation(DateKeyLayout, key, time.Local)
}

// ValidDateKey reports whether key parses as YYYY-MM-DD.
func ValidDateKey(key string) bool {
	_, err := time.Parse(DateKeyLayout, key)
	return err == nil
}

// ShiftDateKey returns key moved by deltaDays whole days.
func ShiftDateKey(key string, deltaDays int) string {
	t, err := time.Parse(DateKeyLayout, key)
	if err != nil {
		return key
	}
	return t.AddDate(0, 0, deltaDays).Format(DateKeyLayout)
}

// ValidClock reports whether s matches the HH:MM wire format.
func ValidClock(s string) bool {
	return clockPattern.MatchString(s)
}

// ClockMinutes converts an HH:MM string to minutes since midnight.
// Malformed input counts missing parts as zero, as the source app did.
func ClockMinutes(s string) int {
	parts := strings.SplitN(s, ":", 2)
	hour, _ := strconv.Atoi(parts[0])
	minute := 0
	if len(parts) > 1 {
		minute, _ = strconv.Atoi(parts[1])
	}
	return hour*60 + minute
}

// MinutesOfDay returns minutes since midnight for t in t's location.
func MinutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// DayClock combines a day key and an HH:MM clock into a local instant.
func DayClock(dateKey, clock string) (time.Time, error) {
	day, err := ParseDateKey(dateKey)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(time.Duration(ClockMinutes(clock)) * time.Minute), nil
}

// Timestamp formats t the way the document stores instants.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// WeekStart returns the Monday beginning t's week, at t's midnight.
func WeekStart(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// WeekDates returns the seven days of t's Monday-based week.
func WeekDates(t time.Time) []time.Time {
	start := WeekStart(t)
	dates := make([]time.Time, 7)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	return dates
}

// DateKeyIn returns the day key for t as seen from loc.
func DateKeyIn(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateKeyLayout)
}

// MinutesOfDayIn returns minutes since midnight for t as seen from loc.
func MinutesOfDayIn(t time.Time, loc *time.Location) int {
	local := t.In(loc)
	return local.Hour()*60 + local.Minute()
}
