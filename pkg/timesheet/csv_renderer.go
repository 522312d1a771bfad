package timesheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/zeitkonto/zeitkonto/pkg/calc"
	"github.com/zeitkonto/zeitkonto/pkg/entry"
	"github.com/zeitkonto/zeitkonto/pkg/isoweek"
	"github.com/zeitkonto/zeitkonto/pkg/storage"
	"github.com/zeitkonto/zeitkonto/pkg/week"
)

type CsvRenderer interface {
	RenderAggregate(data storage.Aggregate, calculator *calc.Calculator) (string, error)
}

type CsvRendererImpl struct {
}

func NewCsvRenderer() *CsvRendererImpl {
	return &CsvRendererImpl{}
}

// RenderAggregate renders the full stored aggregate as CSV: one row per
// recorded date, a total row per week, and a final sum row over all weeks.
func (t *CsvRendererImpl) RenderAggregate(data storage.Aggregate, calculator *calc.Calculator) (string, error) {
	weekKeys := make([]string, 0, len(data))
	for key := range data {
		weekKeys = append(weekKeys, key)
	}
	sort.Strings(weekKeys)

	rows := [][]string{{"Week", "Date", "Entries", "Gross", "Net", "Break"}}
	grandTotal := 0

	for _, weekKey := range weekKeys {
		w, err := isoweek.ParseKey(weekKey)
		if err != nil {
			log.Warnf("skipping malformed week key %q in export", weekKey)
			continue
		}
		wd := week.FromRecords(w, data[weekKey])

		weekTotal := 0
		for _, date := range wd.Dates() {
			entries := wd.EntriesForDate(date)
			if len(entries) == 0 {
				continue
			}
			result := calculator.DayHours(entries)
			weekTotal += result.Minutes

			pause := ""
			if result.PauseApplied {
				pause = calc.MinutesToTime(calculator.Config().BreakMinutes)
			}
			rows = append(rows, []string{
				weekKey,
				date,
				renderEntries(entries),
				calc.MinutesToTime(result.GrossMinutes),
				result.Formatted,
				pause,
			})
		}
		grandTotal += weekTotal
		rows = append(rows, []string{weekKey, "Total", "", "", calc.MinutesToTime(weekTotal), ""})
	}
	rows = append(rows, []string{"SUM", "", "", "", calc.MinutesToTime(grandTotal), ""})

	var b bytes.Buffer
	writer := csv.NewWriter(&b)
	for _, row := range rows {
		err := writer.Write(row)
		if err != nil {
			log.Errorf("Error writing to csv: %v", err)
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		log.Errorf("Error writing to csv: %v", err)
		return "", err
	}

	return b.String(), nil
}

// renderEntries formats a date's entries as a single cell: clock spans like
// "08:00-12:00 12:30-?" in recorded order, or "remote-work (6h)" for a
// special day.
func renderEntries(entries []entry.Entry) string {
	if len(entries) == 1 && entries[0].Type.IsSpecial() {
		hours := 0.0
		if entries[0].Hours != nil {
			hours = *entries[0].Hours
		}
		return fmt.Sprintf("%s (%sh)", entries[0].Type, strconv.FormatFloat(hours, 'f', -1, 64))
	}

	var spans []string
	open := ""
	for _, e := range entries {
		value := "?"
		if e.Time != nil {
			value = *e.Time
		}
		switch e.Type {
		case entry.ClockIn:
			if open != "" {
				spans = append(spans, open+"-?")
			}
			open = value
		case entry.ClockOut:
			if open == "" {
				open = "?"
			}
			spans = append(spans, open+"-"+value)
			open = ""
		}
	}
	if open != "" {
		spans = append(spans, open+"-?")
	}
	return strings.Join(spans, " ")
}
