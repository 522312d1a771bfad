package timesheet

import (
	"errors"

	"github.com/zeitkonto/zeitkonto/pkg/calc"
	"github.com/zeitkonto/zeitkonto/pkg/entry"
	"github.com/zeitkonto/zeitkonto/pkg/storage"
)

var (
	ErrUnknownEntryType = errors.New("unknown entry type")
	ErrDateOutsideWeek  = errors.New("date does not belong to the requested week")
	ErrWeekendDate      = errors.New("weekend dates cannot hold entries")
	// ErrOpenClockIn blocks a second clock-in while a previous one is still
	// waiting for its clock-out.
	ErrOpenClockIn = errors.New("previous clock-in is still open")
	// ErrNoOpenClockIn blocks a clock-out with no clock-in to close.
	ErrNoOpenClockIn = errors.New("no open clock-in to close")
	// ErrSpecialDay blocks clock events on a date already marked as a
	// whole-day absence or remote-work day.
	ErrSpecialDay = errors.New("date is marked as a special day")
)

// NewEntry is the request to record a clock event or special-day marker.
type NewEntry struct {
	Type  entry.Type
	Time  string
	Hours *float64
}

// DayView is one date of a week view with its computed worked time.
type DayView struct {
	Date    string
	Weekday string
	Entries []entry.Entry
	Result  calc.DayResult
	Special bool
}

// WeekView is the full computed view of one ISO week.
type WeekView struct {
	WeekKey          string
	Days             []DayView
	TotalMinutes     int
	TotalFormatted   string
	BalanceMinutes   int
	BalanceFormatted string
	// FridayExitEstimate suggests when to leave on Friday to hit the Friday
	// target. Only present while Friday has an open clock-in.
	FridayExitEstimate *string
}

// Status reports storage health and backup recency.
type Status struct {
	PrimaryAvailable   bool
	SecondaryAvailable bool
	WeekCount          int
	SaveCount          int64
	LastBackup         storage.BackupInfo
}

// CleanupResult reports what a maintenance cleanup removed. BackupId
// identifies the safety backup taken before deletion.
type CleanupResult struct {
	Removed  int
	Keys     []string
	BackupId int64
}
