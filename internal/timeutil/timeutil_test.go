package timeutil

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDate(t *testing.T) {
	now := time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2020-02-29", date(2020, 2, 29)},
		{"today", date(2024, 3, 15)},
		{"yesterday", date(2024, 3, 14)},
		{"tomorrow", date(2024, 3, 16)},
		{"-30d", date(2024, 2, 14)},
		{"+1w", date(2024, 3, 22)},
		{"-2m", date(2024, 1, 15)},
		{"+1y", date(2025, 3, 15)},
		{" -1d ", date(2024, 3, 14)},
		{"2021-06-01T23:00:00Z", date(2021, 6, 1)},
		{"2021-06-01T23:00:00-05:00", date(2021, 6, 2)},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in, now)
		if err != nil {
			t.Fatalf("ParseDate(%q) error: %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Fatalf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "someday", "2020-13-01", "-3x", "30d", "+d", "-"} {
		if _, err := ParseDate(bad, now); err == nil {
			t.Fatalf("ParseDate(%q) expected error", bad)
		}
	}
}

func TestApplyOffset_CalendarMonths(t *testing.T) {
	got, err := ApplyOffset(date(2024, 1, 31), "+1m")
	if err != nil {
		t.Fatal(err)
	}
	if want := date(2024, 3, 2); !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDay_UsesUTCDate(t *testing.T) {
	local := time.Date(2024, 3, 15, 23, 30, 0, 0, time.FixedZone("x", -2*3600))
	if got := Day(local); !got.Equal(date(2024, 3, 16)) {
		t.Fatalf("got %v", got)
	}
}
