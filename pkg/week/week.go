package week

import (
	"fmt"
	"sort"

	"github.com/zeitkonto/zeitkonto/pkg/entry"
	"github.com/zeitkonto/zeitkonto/pkg/isoweek"
)

// Data owns one ISO week's entry collection. It is a transient working copy:
// the storage repository remains the durable owner of weekly data.
//
// A date key maps to either no entries, a single special entry, or any number
// of clock entries; a special entry and a clock entry never coexist on the
// same date.
type Data struct {
	Week    isoweek.Week
	entries map[string][]entry.Entry
}

// New constructs an empty week. The five weekday dates (Monday-Friday) are
// always present as keys; weekend dates are never populated by normal flows.
func New(w isoweek.Week) *Data {
	d := &Data{
		Week:    w,
		entries: make(map[string][]entry.Entry, 5),
	}
	for _, date := range w.WorkDates() {
		d.entries[isoweek.FormatDate(date)] = []entry.Entry{}
	}
	return d
}

// FromRecords reconstitutes a stored week from its serialized payload.
// Records that fail to reconstitute cleanly are kept as-is (incomplete
// entries are representable and reported via IsValid).
func FromRecords(w isoweek.Week, payload map[string][]entry.Record) *Data {
	d := New(w)
	for date, records := range payload {
		entries := make([]entry.Entry, 0, len(records))
		for _, r := range records {
			entries = append(entries, entry.FromRecord(r))
		}
		d.entries[date] = entries
	}
	return d
}

// Key returns the ISO week key, e.g. "2026-W05".
func (d *Data) Key() string {
	return d.Week.String()
}

// Dates returns the date keys present in the week, Monday first.
func (d *Data) Dates() []string {
	dates := make([]string, 0, len(d.entries))
	for _, t := range d.Week.FullDates() {
		key := isoweek.FormatDate(t)
		if _, ok := d.entries[key]; ok {
			dates = append(dates, key)
		}
	}
	// Imported data may carry dates outside the week; keep them visible,
	// in date order so listings stay stable.
	var extras []string
	for key := range d.entries {
		if !contains(dates, key) {
			extras = append(extras, key)
		}
	}
	sort.Strings(extras)
	return append(dates, extras...)
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

// EntriesForDate returns the recorded entries for a date, in recording order.
func (d *Data) EntriesForDate(date string) []entry.Entry {
	return d.entries[date]
}

// AddEntry appends an entry to a date. A special entry replaces everything
// already recorded on that date. A remote-work entry added to a Friday is
// forced to the Friday default hours regardless of what was supplied.
func (d *Data) AddEntry(date string, e entry.Entry) {
	if e.Type.IsSpecial() {
		d.entries[date] = nil
		if e.Type == entry.RemoteWork {
			if day, err := isoweek.ParseDate(date); err == nil && isoweek.IsFriday(day) {
				h := entry.DefaultRemoteFridayHours
				e.Hours = &h
			}
		}
	}
	d.entries[date] = append(d.entries[date], e)
}

// UpdateEntry applies a partial update to the entry at the given position.
// Changing an entry's type to a special one clears all other entries on the
// date and keeps only the updated one. Returns the updated entry and false
// when the date or index does not exist.
func (d *Data) UpdateEntry(date string, index int, u entry.Update) (entry.Entry, bool) {
	entries, ok := d.entries[date]
	if !ok || index < 0 || index >= len(entries) {
		return entry.Entry{}, false
	}

	e := entries[index]
	wasSpecial := e.Type.IsSpecial()
	e.Apply(u)

	if e.Type.IsSpecial() && !wasSpecial {
		d.entries[date] = []entry.Entry{e}
		return e, true
	}
	entries[index] = e
	return e, true
}

// DeleteEntry removes and returns the entry at the given position, or false
// when the date or index does not exist.
func (d *Data) DeleteEntry(date string, index int) (entry.Entry, bool) {
	entries, ok := d.entries[date]
	if !ok || index < 0 || index >= len(entries) {
		return entry.Entry{}, false
	}
	e := entries[index]
	d.entries[date] = append(entries[:index], entries[index+1:]...)
	return e, true
}

// ClearDate removes all entries recorded on a date and returns how many were
// removed.
func (d *Data) ClearDate(date string) int {
	n := len(d.entries[date])
	if _, ok := d.entries[date]; ok {
		d.entries[date] = []entry.Entry{}
	}
	return n
}

// IsSpecialDay reports whether the date holds exactly one entry and it is a
// special-day marker.
func (d *Data) IsSpecialDay(date string) bool {
	entries := d.entries[date]
	return len(entries) == 1 && entries[0].Type.IsSpecial()
}

// HasUnpairedEntries reports whether the clock-in and clock-out counts for a
// date differ. Callers use this to block a clock-out with no open clock-in
// and a clock-in while another is still open; sequencing is enforced by the
// caller, this only reports counts.
func (d *Data) HasUnpairedEntries(date string) bool {
	ins, outs := 0, 0
	for _, e := range d.entries[date] {
		switch e.Type {
		case entry.ClockIn:
			ins++
		case entry.ClockOut:
			outs++
		}
	}
	return ins != outs
}

// IsEmpty reports whether every date maps to zero entries.
func (d *Data) IsEmpty() bool {
	for _, entries := range d.entries {
		if len(entries) > 0 {
			return false
		}
	}
	return true
}

// CountEntries returns the total number of entries across all dates.
func (d *Data) CountEntries() int {
	n := 0
	for _, entries := range d.entries {
		n += len(entries)
	}
	return n
}

// ToRecords serializes the week back to its plain date-to-entries payload.
// Dates without entries are dropped from the payload so empty weeks
// serialize to an empty map.
func (d *Data) ToRecords() map[string][]entry.Record {
	payload := make(map[string][]entry.Record)
	for date, entries := range d.entries {
		if len(entries) == 0 {
			continue
		}
		records := make([]entry.Record, 0, len(entries))
		for _, e := range entries {
			records = append(records, e.ToRecord())
		}
		payload[date] = records
	}
	return payload
}

// String implements fmt.Stringer for logging.
func (d *Data) String() string {
	return fmt.Sprintf("week %s (%d entries)", d.Key(), d.CountEntries())
}
