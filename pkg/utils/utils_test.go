package utils

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
)

func TestNormalizeTicker(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"AMZN", "AMZN"},
		{"amzn", "AMZN"},
		{" amd ", "AMD"},
		{"$TSLA", "TSLA"},
		{"brk.b", "BRK.B"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := NormalizeTicker(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeTicker(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestParseTickerList(t *testing.T) {
	got := ParseTickerList("amzn,AMD", "$tsla amzn", " ,")
	want := []string{"AMZN", "AMD", "TSLA"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}

func TestTodayIn(t *testing.T) {
	// 02:00 UTC on June 1 is still May 31 in New York.
	now := time.Date(2024, time.June, 1, 2, 0, 0, 0, time.UTC)
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tz database unavailable: %v", err)
	}
	if got := TodayIn(now, ny); got != (civil.Date{Year: 2024, Month: time.May, Day: 31}) {
		t.Errorf("TodayIn(NY) = %s", got)
	}
	if got := TodayIn(now, time.UTC); got != (civil.Date{Year: 2024, Month: time.June, Day: 1}) {
		t.Errorf("TodayIn(UTC) = %s", got)
	}
}

func TestFixedClock(t *testing.T) {
	d := civil.Date{Year: 2024, Month: time.June, Day: 1}
	if FixedClock(d)() != d {
		t.Error("FixedClock returned a different date")
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	if err != nil {
		t.Fatal(err)
	}
	if d.String() != "2024-02-29" {
		t.Errorf("got %s", d)
	}
	if _, err := ParseDate("2024-13-01"); err == nil {
		t.Error("expected error for invalid month")
	}
}
