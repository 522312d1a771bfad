package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"

	log "github.com/sirupsen/logrus"
)

var importWeekKeyPattern = regexp.MustCompile(`^\d{4}-W([0-4]\d|5[0-3])$`)

// ImportResult reports what an import changed and which entries looked
// suspicious. Warnings never block the import; the offending entries are
// kept as-is for the user to fix later.
type ImportResult struct {
	Imported int
	Existing int
	Warnings []string
}

// ParseImport validates and decodes an import payload: a JSON object whose
// top-level keys are week keys, each holding a date-to-entries mapping.
// Structural problems (malformed week keys, non-object week payloads) reject
// the whole import; individually malformed entries only produce warnings.
func ParseImport(data []byte) (Aggregate, []string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("%w: not a JSON object: %v", ErrImportRejected, err)
	}

	var structural []string
	var warnings []string
	imported := Aggregate{}

	for weekKey, rawWeek := range raw {
		if !importWeekKeyPattern.MatchString(weekKey) {
			structural = append(structural, fmt.Sprintf("malformed week key %q", weekKey))
			continue
		}
		var payload WeekPayload
		if err := json.Unmarshal(rawWeek, &payload); err != nil {
			structural = append(structural, fmt.Sprintf("week %s is not a date-to-entries object", weekKey))
			continue
		}
		for date, records := range payload {
			for i, record := range records {
				if !record.Valid() {
					warnings = append(warnings,
						fmt.Sprintf("week %s, %s, entry %d: invalid %s entry", weekKey, date, i, record.Type))
				}
			}
		}
		imported[weekKey] = payload
	}

	if len(structural) > 0 {
		sort.Strings(structural)
		return nil, nil, fmt.Errorf("%w: %v", ErrImportRejected, structural)
	}
	sort.Strings(warnings)
	return imported, warnings, nil
}

// Import applies a parsed payload. In merge mode existing week keys are
// preserved and only previously absent weeks are added; in replace mode the
// entire aggregate is overwritten. Keys outside the payload are never
// touched in merge mode.
func (r *Repository) Import(ctx context.Context, payload Aggregate, merge bool) (ImportResult, error) {
	result := ImportResult{}

	if !merge {
		if err := r.SaveAll(ctx, payload); err != nil {
			return result, err
		}
		result.Imported = len(payload)
		log.Infof("import replaced stored data with %d weeks", result.Imported)
		return result, nil
	}

	current := r.LoadAll(ctx)
	merged := current.Clone()
	for weekKey, weekPayload := range payload {
		if _, exists := merged[weekKey]; exists {
			result.Existing++
			continue
		}
		merged[weekKey] = weekPayload
		result.Imported++
	}

	if result.Imported > 0 {
		if err := r.SaveAll(ctx, merged); err != nil {
			return ImportResult{}, err
		}
	}
	log.Infof("import merged %d new weeks, kept %d existing", result.Imported, result.Existing)
	return result, nil
}

// ExportJSON renders the full aggregate in the import file format.
func (r *Repository) ExportJSON(ctx context.Context) ([]byte, error) {
	data := r.LoadAll(ctx)
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("could not marshal export: %w", err)
	}
	return out, nil
}
