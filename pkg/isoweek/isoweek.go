package isoweek

import (
	"fmt"
	"regexp"
	"time"
)

// Week identifies one ISO-8601 week: Monday-start, numbered 1-53, where
// week 1 contains January 4th.
type Week struct {
	Year   int
	Number int
}

var ErrInvalidWeekKey = fmt.Errorf("invalid ISO week key")
var ErrInvalidDate = fmt.Errorf("invalid ISO date")

var weekKeyPattern = regexp.MustCompile(`^\d{4}-W\d{2}$`)

// FromDate returns the ISO week containing the given date.
func FromDate(date time.Time) Week {
	year, week := date.ISOWeek()
	return Week{Year: year, Number: week}
}

// ParseKey converts an ISO week key like "2026-W05" to a Week.
func ParseKey(key string) (Week, error) {
	if !weekKeyPattern.MatchString(key) {
		return Week{}, fmt.Errorf("%w: %q", ErrInvalidWeekKey, key)
	}
	var year, number int
	if _, err := fmt.Sscanf(key, "%4d-W%2d", &year, &number); err != nil {
		return Week{}, fmt.Errorf("%w: %q", ErrInvalidWeekKey, key)
	}
	return Week{Year: year, Number: number}, nil
}

// String returns the ISO week key, e.g. "2026-W05".
func (w Week) String() string {
	return fmt.Sprintf("%04d-W%02d", w.Year, w.Number)
}

// Start returns the Monday of the week at midnight local time. It is derived
// from the Monday of week 1 (the week containing January 4th) plus whole
// weeks.
func (w Week) Start() time.Time {
	jan4 := time.Date(w.Year, time.January, 4, 0, 0, 0, 0, time.Local)
	week1Monday := jan4.AddDate(0, 0, -(isoWeekday(jan4) - 1))
	return week1Monday.AddDate(0, 0, (w.Number-1)*7)
}

// WorkDates returns the five weekday dates of the week, Monday through Friday.
func (w Week) WorkDates() []time.Time {
	return w.dates(5)
}

// FullDates returns all seven dates of the week, Monday through Sunday.
func (w Week) FullDates() []time.Time {
	return w.dates(7)
}

func (w Week) dates(n int) []time.Time {
	start := w.Start()
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	return dates
}

// Previous returns the preceding ISO week, wrapping to the last week of the
// previous year at the year boundary.
func (w Week) Previous() Week {
	if w.Number > 1 {
		return Week{Year: w.Year, Number: w.Number - 1}
	}
	return Week{Year: w.Year - 1, Number: WeeksInYear(w.Year - 1)}
}

// Next returns the following ISO week, wrapping to week 1 of the next year
// when the current year's weeks are exhausted.
func (w Week) Next() Week {
	if w.Number < WeeksInYear(w.Year) {
		return Week{Year: w.Year, Number: w.Number + 1}
	}
	return Week{Year: w.Year + 1, Number: 1}
}

// Equal returns true when both the year and week number match.
func (w Week) Equal(other Week) bool {
	return w.Year == other.Year && w.Number == other.Number
}

// WeeksInYear returns the number of ISO weeks in the given year (52 or 53).
// December 28th always falls in the last ISO week of its year.
func WeeksInYear(year int) int {
	dec28 := time.Date(year, time.December, 28, 0, 0, 0, 0, time.Local)
	_, week := dec28.ISOWeek()
	return week
}

// FormatDate renders a date as a local-calendar "YYYY-MM-DD" date key.
func FormatDate(date time.Time) string {
	return date.Format("2006-01-02")
}

// ParseDate parses a "YYYY-MM-DD" date key into a local midnight time, so the
// same key always maps to the same weekday under the local clock.
func ParseDate(key string) (time.Time, error) {
	date, err := time.ParseInLocation("2006-01-02", key, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, key)
	}
	return date, nil
}

// IsFriday reports whether the date falls on a Friday.
func IsFriday(date time.Time) bool {
	return date.Weekday() == time.Friday
}

// IsWeekend reports whether the date falls on a Saturday or Sunday.
func IsWeekend(date time.Time) bool {
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// isoWeekday maps Go's Sunday=0 convention to ISO Monday=1..Sunday=7.
func isoWeekday(date time.Time) int {
	wd := int(date.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}
