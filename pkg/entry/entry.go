package entry

import (
	"time"
)

type Type string

const (
	ClockIn    Type = "clock-in"
	ClockOut   Type = "clock-out"
	RemoteWork Type = "remote-work"
	Absence    Type = "absence"
)

// Recognized returns true for the four known entry types.
func (t Type) Recognized() bool {
	switch t {
	case ClockIn, ClockOut, RemoteWork, Absence:
		return true
	}
	return false
}

// RequiresTime returns true for clock events, which carry a time of day.
func (t Type) RequiresTime() bool {
	return t == ClockIn || t == ClockOut
}

// IsSpecial returns true for whole-day markers, which carry an hour amount.
func (t Type) IsSpecial() bool {
	return t == RemoteWork || t == Absence
}

const (
	// DefaultRemoteHours is credited for a remote-work day Monday through Thursday.
	DefaultRemoteHours = 7.5
	// DefaultRemoteFridayHours is credited for a remote-work Friday.
	DefaultRemoteFridayHours = 6.0
)

// Entry is a single clock event or special-day marker. Exactly one of
// Time/Hours is populated, determined solely by Type.
type Entry struct {
	ID        string
	Type      Type
	Time      *string
	Hours     *float64
	CreatedAt time.Time
}

// New constructs an Entry for the given calendar date. Construction is
// lenient: a missing or malformed time of day is stored as nil rather than
// rejected, so partially filled entries can exist before validation.
// A nil hours value falls back to the type's default for that weekday.
func New(entryType Type, timeOfDay string, hours *float64, date time.Time) Entry {
	e := Entry{
		ID:        newID(),
		Type:      entryType,
		CreatedAt: time.Now(),
	}
	switch {
	case entryType.RequiresTime():
		if ValidTimeOfDay(timeOfDay) {
			e.Time = &timeOfDay
		}
	case entryType.IsSpecial():
		if hours != nil && *hours >= 0 {
			h := *hours
			e.Hours = &h
		} else {
			h := DefaultHours(entryType, date)
			e.Hours = &h
		}
	}
	return e
}

// DefaultHours returns the hours credited for a special day of the given type
// on the given date: 7.5 for remote work Monday-Thursday, 6 on Friday, and 0
// for an absence.
func DefaultHours(entryType Type, date time.Time) float64 {
	if entryType == RemoteWork {
		if date.Weekday() == time.Friday {
			return DefaultRemoteFridayHours
		}
		return DefaultRemoteHours
	}
	return 0
}

// IsValid reports whether the entry would pass full field validation.
func (e Entry) IsValid() bool {
	if !e.Type.Recognized() {
		return false
	}
	if e.Type.RequiresTime() {
		return e.Time != nil && ValidTimeOfDay(*e.Time)
	}
	return e.Hours != nil && *e.Hours >= 0
}

// Update carries a partial mutation of an entry. Nil fields are left alone.
type Update struct {
	Type  *Type
	Time  *string
	Hours *float64
}

// Apply mutates the entry in place. Only the fields relevant to the (possibly
// new) type are applied: switching to a clock type drops the hour amount, and
// switching to a special type drops the time of day.
func (e *Entry) Apply(u Update) {
	if u.Type != nil {
		e.Type = *u.Type
	}
	switch {
	case e.Type.RequiresTime():
		e.Hours = nil
		if u.Time != nil {
			if ValidTimeOfDay(*u.Time) {
				t := *u.Time
				e.Time = &t
			} else {
				e.Time = nil
			}
		}
	case e.Type.IsSpecial():
		e.Time = nil
		if u.Hours != nil && *u.Hours >= 0 {
			h := *u.Hours
			e.Hours = &h
		}
	}
}
