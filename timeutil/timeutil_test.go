package timeutil

import (
	"testing"
	"time"
)

func TestParseLocalTimeRoundTrip(t *testing.T) {
	loc := Location()
	cases := []struct {
		name string
		when time.Time
	}{
		{"winter (CET)", time.Date(2025, 1, 15, 8, 30, 0, 0, loc)},
		{"summer (CEST)", time.Date(2025, 7, 15, 8, 30, 0, 0, loc)},
		{"just before spring transition", time.Date(2025, 3, 30, 1, 59, 0, 0, loc)},
		{"late evening winter", time.Date(2024, 12, 31, 23, 59, 59, 0, loc)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			encoded := tc.when.Format("20060102T150405")
			got := ParseLocalTime(encoded)
			if got != tc.when.Unix() {
				t.Errorf("ParseLocalTime(%q) = %d, want %d", encoded, got, tc.when.Unix())
			}
		})
	}
}

func TestParseLocalTimeWithoutSeparator(t *testing.T) {
	loc := Location()
	want := time.Date(2025, 6, 1, 12, 0, 0, 0, loc).Unix()
	if got := ParseLocalTime("20250601120000"); got != want {
		t.Errorf("ParseLocalTime without T = %d, want %d", got, want)
	}
}

func TestParseLocalTimeMalformed(t *testing.T) {
	cases := []string{
		"",
		"2025",
		"20250101T12",
		"20250101Txxxxxx",
		"abcdefghijklmn",
		"20251301T120000", // month 13
		"20250101T250000", // hour 25
	}
	for _, s := range cases {
		if got := ParseLocalTime(s); got != 0 {
			t.Errorf("ParseLocalTime(%q) = %d, want 0", s, got)
		}
	}
}

func TestLocalMidnight(t *testing.T) {
	loc := Location()
	now := time.Date(2025, 7, 15, 17, 45, 12, 0, loc)
	got := LocalMidnight(now)
	want := time.Date(2025, 7, 15, 0, 0, 0, 0, loc).Unix()
	if got != want {
		t.Errorf("LocalMidnight = %d, want %d", got, want)
	}
	// Midnight is before now and at most 24h earlier.
	if got > now.Unix() || now.Unix()-got > 24*3600 {
		t.Errorf("LocalMidnight %d out of range for now %d", got, now.Unix())
	}
}

func TestServiceDate(t *testing.T) {
	loc := Location()
	now := time.Date(2025, 3, 30, 23, 30, 0, 0, loc)
	if got := ServiceDate(now); got != "20250330" {
		t.Errorf("ServiceDate = %q, want 20250330", got)
	}
}
