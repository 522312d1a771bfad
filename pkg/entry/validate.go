package entry

import (
	"regexp"

	"github.com/google/uuid"
)

var timeOfDayPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ValidTimeOfDay reports whether s is a well-formed 24-hour "HH:MM" string.
func ValidTimeOfDay(s string) bool {
	return timeOfDayPattern.MatchString(s)
}

func newID() string {
	return uuid.NewString()
}
