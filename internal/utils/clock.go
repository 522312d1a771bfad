package utils

import "time"

// Clock abstracts the current time. Backup recency, the reminder threshold
// and stale-week detection all compare against "now", so the repository takes
// a Clock instead of calling time.Now directly and tests pin it to a fixed
// instant.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by the wall clock.
type SystemClock struct{}

func (s SystemClock) Now() time.Time {
	return time.Now()
}

// MockClock returns FixedNow until SetNow moves it. Tests advance it to
// simulate hours or months passing without sleeping.
type MockClock struct {
	FixedNow time.Time
}

func (m *MockClock) Now() time.Time {
	return m.FixedNow
}

// SetNow moves the clock to the given instant.
func (m *MockClock) SetNow(now time.Time) {
	m.FixedNow = now
}
