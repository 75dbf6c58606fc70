package model

import (
	"testing"
	"time"
)

func TestValidClock(t *testing.T) {
	valid := []string{"00:00", "09:30", "23:59"}
	for _, s := range valid {
		if !ValidClock(s) {
			t.Errorf("ValidClock(%q) = false", s)
		}
	}

	invalid := []string{"", "9:30", "0930", "12:3", "12:30:00", "noon"}
	for _, s := range invalid {
		if ValidClock(s) {
			t.Errorf("ValidClock(%q) = true", s)
		}
	}
}

func TestShiftDateKey(t *testing.T) {
	if got := ShiftDateKey("2024-05-01", -2); got != "2024-04-29" {
		t.Fatalf("got %q", got)
	}
	if got := ShiftDateKey("2024-02-28", 1); got != "2024-02-29" {
		t.Fatalf("leap day: got %q", got)
	}
	// Malformed keys pass through untouched.
	if got := ShiftDateKey("garbage", 1); got != "garbage" {
		t.Fatalf("got %q", got)
	}
}

func TestClockMinutes(t *testing.T) {
	cases := map[string]int{
		"00:00": 0,
		"09:30": 570,
		"23:59": 1439,
		"7":     420,
	}
	for input, want := range cases {
		if got := ClockMinutes(input); got != want {
			t.Errorf("ClockMinutes(%q) = %d, want %d", input, got, want)
		}
	}
}

func TestWeekStart_MondayBased(t *testing.T) {
	// Wednesday May 1 2024 belongs to the week starting Monday Apr 29.
	wednesday := time.Date(2024, 5, 1, 15, 0, 0, 0, time.Local)
	if got := DateKey(WeekStart(wednesday)); got != "2024-04-29" {
		t.Fatalf("week start = %q", got)
	}

	// A Monday is its own week start; a Sunday closes the prior week.
	monday := time.Date(2024, 4, 29, 0, 30, 0, 0, time.Local)
	if got := DateKey(WeekStart(monday)); got != "2024-04-29" {
		t.Fatalf("monday week start = %q", got)
	}
	sunday := time.Date(2024, 5, 5, 23, 0, 0, 0, time.Local)
	if got := DateKey(WeekStart(sunday)); got != "2024-04-29" {
		t.Fatalf("sunday week start = %q", got)
	}

	dates := WeekDates(wednesday)
	if len(dates) != 7 || DateKey(dates[6]) != "2024-05-05" {
		t.Fatalf("week dates = %v", dates)
	}
}

func TestDateKeyIn_CrossesMidnightByZone(t *testing.T) {
	// 01:30 UTC on May 2 is still May 1 in New York.
	instant := time.Date(2024, 5, 2, 1, 30, 0, 0, time.UTC)
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	if got := DateKeyIn(instant, ny); got != "2024-05-01" {
		t.Fatalf("got %q", got)
	}
	if got := MinutesOfDayIn(instant, ny); got != 21*60+30 {
		t.Fatalf("minutes = %d", got)
	}
}
