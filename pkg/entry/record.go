package entry

import (
	"encoding/json"
	"time"
)

// Record is the wire form of an Entry, used by storage and JSON
// export/import. The time field is present (possibly null) exactly when the
// type requires one, so incomplete clock events round-trip; hours is emitted
// only when set.
type Record struct {
	Type  string   `json:"type"`
	Time  *string  `json:"time"`
	Hours *float64 `json:"hours,omitempty"`
}

func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 3)
	out["type"] = r.Type
	if Type(r.Type).RequiresTime() {
		out["time"] = r.Time
	}
	if r.Hours != nil {
		out["hours"] = *r.Hours
	}
	return json.Marshal(out)
}

// ToRecord serializes the entry for persistence or export.
func (e Entry) ToRecord() Record {
	r := Record{Type: string(e.Type)}
	if e.Type.RequiresTime() {
		r.Time = e.Time
	}
	if e.Type.IsSpecial() && e.Hours != nil {
		h := *e.Hours
		r.Hours = &h
	}
	return r
}

// FromRecord reconstitutes a stored entry. The entry gets a fresh identity;
// ids are session-local and never persisted. Malformed time strings degrade
// to nil the same way New does.
func FromRecord(r Record) Entry {
	e := Entry{
		ID:        newID(),
		Type:      Type(r.Type),
		CreatedAt: time.Now(),
	}
	if e.Type.RequiresTime() && r.Time != nil && ValidTimeOfDay(*r.Time) {
		t := *r.Time
		e.Time = &t
	}
	if e.Type.IsSpecial() && r.Hours != nil {
		h := *r.Hours
		e.Hours = &h
	}
	return e
}

// Valid reports whether the record would reconstitute into a valid entry.
// Import treats invalid records as warnings, not hard failures.
func (r Record) Valid() bool {
	t := Type(r.Type)
	if !t.Recognized() {
		return false
	}
	if t.RequiresTime() {
		return r.Time != nil && ValidTimeOfDay(*r.Time)
	}
	return r.Hours != nil && *r.Hours >= 0
}
