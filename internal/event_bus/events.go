package event_bus

import "time"

const (
	WeekSaved     EventType = "timesheet.week.saved"
	BackupCreated EventType = "timesheet.backup.created"
	DataImported  EventType = "timesheet.data.imported"
	WeeksCleaned  EventType = "timesheet.weeks.cleaned"
)

type WeekSavedEvent struct {
	WeekKey string
	// Entries counts the clock events and special-day markers in the week
	// at the time it was saved.
	Entries int
}

type BackupCreatedEvent struct {
	BackupId  int64
	Timestamp time.Time
	WeekCount int
}

type DataImportedEvent struct {
	Imported int
	Existing int
	Replace  bool
}

type WeeksCleanedEvent struct {
	Removed int
	Keys    []string
}
