package timesheet

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeitkonto/zeitkonto/pkg/calc"
	"github.com/zeitkonto/zeitkonto/pkg/entry"
	"github.com/zeitkonto/zeitkonto/pkg/storage"
)

func timePtr(v string) *string { return &v }

func TestRenderAggregate(t *testing.T) {
	renderer := NewCsvRenderer()
	calculator := calc.New(calc.DefaultConfig())

	data := storage.Aggregate{
		"2026-W05": {
			"2026-01-26": []entry.Record{
				{Type: "clock-in", Time: timePtr("08:00")},
				{Type: "clock-out", Time: timePtr("12:00")},
				{Type: "clock-in", Time: timePtr("12:30")},
				{Type: "clock-out", Time: timePtr("16:30")},
			},
			"2026-01-30": []entry.Record{
				{Type: "remote-work", Hours: hoursPtr(6)},
			},
		},
	}

	out, err := renderer.RenderAggregate(data, calculator)
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)

	assert.Equal(t, []string{"Week", "Date", "Entries", "Gross", "Net", "Break"}, rows[0])
	assert.Equal(t, []string{"2026-W05", "2026-01-26", "08:00-12:00 12:30-16:30", "08:00", "07:30", "00:30"}, rows[1])
	assert.Equal(t, []string{"2026-W05", "2026-01-30", "remote-work (6h)", "06:00", "06:00", ""}, rows[2])
	assert.Equal(t, []string{"2026-W05", "Total", "", "", "13:30", ""}, rows[3])
	assert.Equal(t, []string{"SUM", "", "", "", "13:30", ""}, rows[4])
}

func TestRenderAggregateEmpty(t *testing.T) {
	out, err := NewCsvRenderer().RenderAggregate(storage.Aggregate{}, calc.New(calc.DefaultConfig()))
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"SUM", "", "", "", "00:00", ""}, rows[1])
}

func TestRenderEntriesOpenSpan(t *testing.T) {
	entries := []entry.Entry{
		{Type: entry.ClockIn, Time: timePtr("08:00")},
		{Type: entry.ClockOut, Time: timePtr("12:00")},
		{Type: entry.ClockIn, Time: timePtr("12:30")},
	}
	assert.Equal(t, "08:00-12:00 12:30-?", renderEntries(entries))

	assert.Equal(t, "?-16:00", renderEntries([]entry.Entry{
		{Type: entry.ClockOut, Time: timePtr("16:00")},
	}))
}
