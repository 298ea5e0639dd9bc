package usage

import (
	"errors"
	"testing"
	"time"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		want    Period
		wantErr bool
	}{
		{"", PeriodMonth, false},
		{"month", PeriodMonth, false},
		{"day", PeriodDay, false},
		{"total", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParsePeriod(tc.in)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidPeriod) {
					t.Fatalf("expected ErrInvalidPeriod, got %v", err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Errorf("ParsePeriod(%q) = %q, %v", tc.in, got, err)
			}
		})
	}
}

func TestBounds(t *testing.T) {
	now := time.Date(2026, time.December, 31, 23, 30, 0, 0, time.UTC)

	start, end := PeriodDay.Bounds(now)
	if !start.Equal(time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC)) ||
		!end.Equal(time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("day bounds = %s .. %s", start, end)
	}

	start, end = PeriodMonth.Bounds(now)
	if !start.Equal(time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC)) ||
		!end.Equal(time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("month bounds = %s .. %s", start, end)
	}
}

func TestReport_Exhausted(t *testing.T) {
	tests := []struct {
		name string
		r    Report
		want bool
	}{
		{"unlimited", Report{TokensLimit: 0, TokensRemaining: -1}, false},
		{"left", Report{TokensLimit: 100, TokensRemaining: 40}, false},
		{"spent", Report{TokensLimit: 100, TokensRemaining: 0}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.r.Exhausted(); got != tc.want {
				t.Errorf("Exhausted() = %v, want %v", got, tc.want)
			}
		})
	}
}
