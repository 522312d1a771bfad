package isoweek

import (
	"testing"
	"time"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		want    Week
		wantErr bool
	}{
		{
			name: "regular week",
			key:  "2026-W05",
			want: Week{Year: 2026, Number: 5},
		},
		{
			name: "last week of a long year",
			key:  "2020-W53",
			want: Week{Year: 2020, Number: 53},
		},
		{
			name:    "missing zero padding",
			key:     "2026-W5",
			wantErr: true,
		},
		{
			name:    "missing W",
			key:     "2026-05",
			wantErr: true,
		},
		{
			name:    "trailing garbage",
			key:     "2026-W05x",
			wantErr: true,
		},
		{
			name:    "empty",
			key:     "",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseKey(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestWeekKeyRoundTrip(t *testing.T) {
	for year := 2019; year <= 2027; year++ {
		for number := 1; number <= WeeksInYear(year); number++ {
			w := Week{Year: year, Number: number}
			parsed, err := ParseKey(w.String())
			if err != nil {
				t.Fatalf("ParseKey(%q) failed: %v", w.String(), err)
			}
			if !parsed.Equal(w) {
				t.Errorf("round trip of %v yielded %v", w, parsed)
			}
		}
	}
}

func TestWeekStart(t *testing.T) {
	tests := []struct {
		name string
		week Week
		want time.Time
	}{
		{
			name: "week 1 of 2026 starts in 2025",
			week: Week{Year: 2026, Number: 1},
			want: time.Date(2025, 12, 29, 0, 0, 0, 0, time.Local),
		},
		{
			name: "mid-year week",
			week: Week{Year: 2026, Number: 25},
			want: time.Date(2026, 6, 15, 0, 0, 0, 0, time.Local),
		},
		{
			name: "week 53 of 2020",
			week: Week{Year: 2020, Number: 53},
			want: time.Date(2020, 12, 28, 0, 0, 0, 0, time.Local),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.week.Start()
			if !got.Equal(tt.want) {
				t.Errorf("Start() = %v, want %v", got, tt.want)
			}
			if got.Weekday() != time.Monday {
				t.Errorf("Start() is a %v, want Monday", got.Weekday())
			}
		})
	}
}

func TestWeekStartMatchesISOWeek(t *testing.T) {
	// Walk a few years of Mondays and check Start() inverts ISOWeek().
	d := time.Date(2023, 1, 2, 0, 0, 0, 0, time.Local)
	for i := 0; i < 200; i++ {
		w := FromDate(d)
		if got := w.Start(); !got.Equal(d) {
			t.Fatalf("Start() of %v = %v, want %v", w, got, d)
		}
		d = d.AddDate(0, 0, 7)
	}
}

func TestWorkDates(t *testing.T) {
	dates := Week{Year: 2026, Number: 5}.WorkDates()
	if len(dates) != 5 {
		t.Fatalf("expected 5 work dates, got %d", len(dates))
	}
	if FormatDate(dates[0]) != "2026-01-26" {
		t.Errorf("Monday = %s, want 2026-01-26", FormatDate(dates[0]))
	}
	if FormatDate(dates[4]) != "2026-01-30" {
		t.Errorf("Friday = %s, want 2026-01-30", FormatDate(dates[4]))
	}
	if !IsFriday(dates[4]) {
		t.Errorf("last work date should be a Friday")
	}
}

func TestFullDates(t *testing.T) {
	dates := Week{Year: 2026, Number: 5}.FullDates()
	if len(dates) != 7 {
		t.Fatalf("expected 7 dates, got %d", len(dates))
	}
	if !IsWeekend(dates[5]) || !IsWeekend(dates[6]) {
		t.Errorf("last two dates should be weekend days")
	}
}

func TestPreviousNext(t *testing.T) {
	tests := []struct {
		name string
		week Week
		prev Week
		next Week
	}{
		{
			name: "mid-year",
			week: Week{Year: 2026, Number: 20},
			prev: Week{Year: 2026, Number: 19},
			next: Week{Year: 2026, Number: 21},
		},
		{
			name: "wraps into 53-week year",
			week: Week{Year: 2021, Number: 1},
			prev: Week{Year: 2020, Number: 53},
			next: Week{Year: 2021, Number: 2},
		},
		{
			name: "wraps out of 53-week year",
			week: Week{Year: 2026, Number: 53},
			prev: Week{Year: 2026, Number: 52},
			next: Week{Year: 2027, Number: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.week.Previous(); !got.Equal(tt.prev) {
				t.Errorf("Previous() = %v, want %v", got, tt.prev)
			}
			if got := tt.week.Next(); !got.Equal(tt.next) {
				t.Errorf("Next() = %v, want %v", got, tt.next)
			}
		})
	}
}

func TestWeeksInYear(t *testing.T) {
	tests := []struct {
		year int
		want int
	}{
		{2019, 52},
		{2020, 53},
		{2021, 52},
		{2026, 53},
	}
	for _, tt := range tests {
		if got := WeeksInYear(tt.year); got != tt.want {
			t.Errorf("WeeksInYear(%d) = %d, want %d", tt.year, got, tt.want)
		}
	}
}

func TestDateRoundTrip(t *testing.T) {
	dates := []time.Time{
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.Local),
		time.Date(2026, 2, 28, 0, 0, 0, 0, time.Local),
		time.Date(2024, 2, 29, 0, 0, 0, 0, time.Local),
		time.Date(2026, 12, 31, 0, 0, 0, 0, time.Local),
	}
	for _, d := range dates {
		parsed, err := ParseDate(FormatDate(d))
		if err != nil {
			t.Fatalf("ParseDate(%q) failed: %v", FormatDate(d), err)
		}
		py, pm, pd := parsed.Date()
		y, m, dd := d.Date()
		if py != y || pm != m || pd != dd {
			t.Errorf("round trip of %v yielded %v", d, parsed)
		}
	}

	if _, err := ParseDate("2026-13-01"); err == nil {
		t.Errorf("expected error for month 13")
	}
	if _, err := ParseDate("26-01-01"); err == nil {
		t.Errorf("expected error for two-digit year")
	}
}

func TestFromDateYearBoundary(t *testing.T) {
	// 2026-01-01 is a Thursday and belongs to 2026-W01;
	// 2027-01-01 is a Friday and belongs to 2026-W53.
	w := FromDate(time.Date(2027, 1, 1, 0, 0, 0, 0, time.Local))
	if w.String() != "2026-W53" {
		t.Errorf("2027-01-01 mapped to %s, want 2026-W53", w)
	}
	w = FromDate(time.Date(2025, 12, 29, 0, 0, 0, 0, time.Local))
	if w.String() != "2026-W01" {
		t.Errorf("2025-12-29 mapped to %s, want 2026-W01", w)
	}
}
