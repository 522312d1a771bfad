package timesheet

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zeitkonto/zeitkonto/internal/event_bus"
	"github.com/zeitkonto/zeitkonto/pkg/calc"
	"github.com/zeitkonto/zeitkonto/pkg/entry"
	"github.com/zeitkonto/zeitkonto/pkg/isoweek"
	"github.com/zeitkonto/zeitkonto/pkg/storage"
	"github.com/zeitkonto/zeitkonto/pkg/week"
)

type Service interface {
	GetWeek(ctx context.Context, weekKey string) (WeekView, error)
	AddEntry(ctx context.Context, weekKey, date string, req NewEntry) (WeekView, error)
	UpdateEntry(ctx context.Context, weekKey, date string, index int, u entry.Update) (WeekView, bool, error)
	DeleteEntry(ctx context.Context, weekKey, date string, index int) (WeekView, bool, error)
	ClearDay(ctx context.Context, weekKey, date string) (WeekView, error)

	ExportJSON(ctx context.Context) ([]byte, error)
	ExportCSV(ctx context.Context) (string, error)
	Import(ctx context.Context, payload []byte, merge bool) (storage.ImportResult, error)

	CreateBackup(ctx context.Context) (storage.Backup, error)
	ListBackups(ctx context.Context) ([]storage.Backup, error)
	LatestBackup(ctx context.Context) (storage.BackupInfo, error)
	RestoreBackup(ctx context.Context, id int64) (bool, error)

	OldWeeks(ctx context.Context, months int) ([]string, error)
	Cleanup(ctx context.Context, months int) (CleanupResult, error)
	Status(ctx context.Context) (Status, error)
}

type ServiceImpl struct {
	repo     *storage.Repository
	calc     *calc.Calculator
	renderer CsvRenderer
	eventBus *event_bus.EventBus
}

func NewService(repo *storage.Repository, calculator *calc.Calculator, renderer CsvRenderer, eventBus *event_bus.EventBus) *ServiceImpl {
	return &ServiceImpl{
		repo:     repo,
		calc:     calculator,
		renderer: renderer,
		eventBus: eventBus,
	}
}

func (s *ServiceImpl) GetWeek(ctx context.Context, weekKey string) (WeekView, error) {
	wd, w, err := s.loadWeek(ctx, weekKey)
	if err != nil {
		return WeekView{}, err
	}
	return s.buildView(wd, w), nil
}

func (s *ServiceImpl) AddEntry(ctx context.Context, weekKey, date string, req NewEntry) (WeekView, error) {
	wd, w, err := s.loadWeek(ctx, weekKey)
	if err != nil {
		return WeekView{}, err
	}
	day, err := s.checkDate(w, date)
	if err != nil {
		return WeekView{}, err
	}
	if !req.Type.Recognized() {
		return WeekView{}, fmt.Errorf("%w: %q", ErrUnknownEntryType, req.Type)
	}

	if req.Type.RequiresTime() {
		if wd.IsSpecialDay(date) {
			return WeekView{}, fmt.Errorf("%w: %s", ErrSpecialDay, date)
		}
		open := wd.HasUnpairedEntries(date)
		if req.Type == entry.ClockIn && open {
			return WeekView{}, fmt.Errorf("%w: %s", ErrOpenClockIn, date)
		}
		if req.Type == entry.ClockOut && !open {
			return WeekView{}, fmt.Errorf("%w: %s", ErrNoOpenClockIn, date)
		}
	}

	wd.AddEntry(date, entry.New(req.Type, req.Time, req.Hours, day))
	if err := s.saveWeek(ctx, wd); err != nil {
		return WeekView{}, err
	}
	return s.buildView(wd, w), nil
}

func (s *ServiceImpl) UpdateEntry(ctx context.Context, weekKey, date string, index int, u entry.Update) (WeekView, bool, error) {
	wd, w, err := s.loadWeek(ctx, weekKey)
	if err != nil {
		return WeekView{}, false, err
	}
	if u.Type != nil && !u.Type.Recognized() {
		return WeekView{}, false, fmt.Errorf("%w: %q", ErrUnknownEntryType, *u.Type)
	}
	if _, ok := wd.UpdateEntry(date, index, u); !ok {
		return WeekView{}, false, nil
	}
	if err := s.saveWeek(ctx, wd); err != nil {
		return WeekView{}, false, err
	}
	return s.buildView(wd, w), true, nil
}

func (s *ServiceImpl) DeleteEntry(ctx context.Context, weekKey, date string, index int) (WeekView, bool, error) {
	wd, w, err := s.loadWeek(ctx, weekKey)
	if err != nil {
		return WeekView{}, false, err
	}
	if _, ok := wd.DeleteEntry(date, index); !ok {
		return WeekView{}, false, nil
	}
	if err := s.saveWeek(ctx, wd); err != nil {
		return WeekView{}, false, err
	}
	return s.buildView(wd, w), true, nil
}

func (s *ServiceImpl) ClearDay(ctx context.Context, weekKey, date string) (WeekView, error) {
	wd, w, err := s.loadWeek(ctx, weekKey)
	if err != nil {
		return WeekView{}, err
	}
	if _, err := s.checkDate(w, date); err != nil {
		return WeekView{}, err
	}
	if wd.ClearDate(date) > 0 {
		if err := s.saveWeek(ctx, wd); err != nil {
			return WeekView{}, err
		}
	}
	return s.buildView(wd, w), nil
}

func (s *ServiceImpl) ExportJSON(ctx context.Context) ([]byte, error) {
	return s.repo.ExportJSON(ctx)
}

func (s *ServiceImpl) ExportCSV(ctx context.Context) (string, error) {
	return s.renderer.RenderAggregate(s.repo.LoadAll(ctx), s.calc)
}

func (s *ServiceImpl) Import(ctx context.Context, payload []byte, merge bool) (storage.ImportResult, error) {
	parsed, warnings, err := storage.ParseImport(payload)
	if err != nil {
		return storage.ImportResult{}, err
	}
	result, err := s.repo.Import(ctx, parsed, merge)
	if err != nil {
		return storage.ImportResult{}, err
	}
	result.Warnings = warnings

	if err := s.eventBus.Publish(event_bus.NewEvent(ctx, event_bus.DataImported, event_bus.DataImportedEvent{
		Imported: result.Imported,
		Existing: result.Existing,
		Replace:  !merge,
	})); err != nil {
		log.Errorf("failed to publish import event: %v", err)
	}
	return result, nil
}

func (s *ServiceImpl) CreateBackup(ctx context.Context) (storage.Backup, error) {
	backup, err := s.repo.CreateBackup(ctx)
	if err != nil {
		return storage.Backup{}, err
	}
	if err := s.eventBus.Publish(event_bus.NewEvent(ctx, event_bus.BackupCreated, event_bus.BackupCreatedEvent{
		BackupId:  backup.ID,
		Timestamp: backup.Timestamp,
		WeekCount: len(backup.Data),
	})); err != nil {
		log.Errorf("failed to publish backup event: %v", err)
	}
	return backup, nil
}

func (s *ServiceImpl) ListBackups(ctx context.Context) ([]storage.Backup, error) {
	return s.repo.ListBackups(ctx)
}

func (s *ServiceImpl) LatestBackup(ctx context.Context) (storage.BackupInfo, error) {
	return s.repo.LastBackupInfo(ctx), nil
}

func (s *ServiceImpl) RestoreBackup(ctx context.Context, id int64) (bool, error) {
	return s.repo.RestoreBackup(ctx, id)
}

func (s *ServiceImpl) OldWeeks(ctx context.Context, months int) ([]string, error) {
	return s.repo.FindOldWeeks(ctx, months), nil
}

// Cleanup removes weeks older than the given number of months. A safety
// backup is always taken before anything is deleted.
func (s *ServiceImpl) Cleanup(ctx context.Context, months int) (CleanupResult, error) {
	keys := s.repo.FindOldWeeks(ctx, months)
	if len(keys) == 0 {
		return CleanupResult{}, nil
	}

	backup, err := s.repo.CreateBackup(ctx)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("refusing to clean without a backup: %w", err)
	}
	removed, err := s.repo.CleanOldData(ctx, keys)
	if err != nil {
		return CleanupResult{}, err
	}

	if err := s.eventBus.Publish(event_bus.NewEvent(ctx, event_bus.WeeksCleaned, event_bus.WeeksCleanedEvent{
		Removed: removed,
		Keys:    keys,
	})); err != nil {
		log.Errorf("failed to publish cleanup event: %v", err)
	}
	return CleanupResult{Removed: removed, Keys: keys, BackupId: backup.ID}, nil
}

func (s *ServiceImpl) Status(ctx context.Context) (Status, error) {
	return Status{
		PrimaryAvailable:   s.repo.PrimaryAvailable(),
		SecondaryAvailable: s.repo.SecondaryAvailable(),
		WeekCount:          len(s.repo.LoadAll(ctx)),
		SaveCount:          s.repo.SaveCount(ctx),
		LastBackup:         s.repo.LastBackupInfo(ctx),
	}, nil
}

func (s *ServiceImpl) loadWeek(ctx context.Context, weekKey string) (*week.Data, isoweek.Week, error) {
	w, err := isoweek.ParseKey(weekKey)
	if err != nil {
		return nil, isoweek.Week{}, err
	}
	payload, found := s.repo.LoadWeek(ctx, weekKey)
	if !found {
		return week.New(w), w, nil
	}
	return week.FromRecords(w, payload), w, nil
}

func (s *ServiceImpl) saveWeek(ctx context.Context, wd *week.Data) error {
	if err := s.repo.SaveWeek(ctx, wd.Key(), wd.ToRecords()); err != nil {
		return err
	}
	if err := s.eventBus.Publish(event_bus.NewEvent(ctx, event_bus.WeekSaved, event_bus.WeekSavedEvent{
		WeekKey: wd.Key(),
		Entries: wd.CountEntries(),
	})); err != nil {
		log.Errorf("failed to publish week saved event: %v", err)
	}
	return nil
}

// checkDate validates that a date string belongs to the week and is not a
// weekend day, returning its parsed form.
func (s *ServiceImpl) checkDate(w isoweek.Week, date string) (time.Time, error) {
	parsed, err := isoweek.ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	if !isoweek.FromDate(parsed).Equal(w) {
		return time.Time{}, fmt.Errorf("%w: %s is not in %s", ErrDateOutsideWeek, date, w)
	}
	if isoweek.IsWeekend(parsed) {
		return time.Time{}, fmt.Errorf("%w: %s", ErrWeekendDate, date)
	}
	return parsed, nil
}

func (s *ServiceImpl) buildView(wd *week.Data, w isoweek.Week) WeekView {
	view := WeekView{WeekKey: wd.Key()}

	total := 0
	for _, date := range wd.Dates() {
		entries := wd.EntriesForDate(date)
		result := s.calc.DayHours(entries)
		total += result.Minutes

		day := DayView{
			Date:    date,
			Entries: entries,
			Result:  result,
			Special: wd.IsSpecialDay(date),
		}
		if parsed, err := isoweek.ParseDate(date); err == nil {
			day.Weekday = parsed.Weekday().String()
		}
		view.Days = append(view.Days, day)
	}

	view.TotalMinutes = total
	view.TotalFormatted = calc.MinutesToTime(total)
	balance := s.calc.Balance(total)
	view.BalanceMinutes = balance.Minutes
	view.BalanceFormatted = balance.Formatted()
	view.FridayExitEstimate = s.fridayEstimate(wd, w)
	return view
}

// fridayEstimate suggests a Friday exit time while the Friday still has an
// open clock-in with a usable time of day. The estimate projects from the
// clock-in that has no matching clock-out yet, not from earlier closed pairs.
func (s *ServiceImpl) fridayEstimate(wd *week.Data, w isoweek.Week) *string {
	friday := isoweek.FormatDate(w.Start().AddDate(0, 0, 4))

	var open *entry.Entry
	for _, e := range wd.EntriesForDate(friday) {
		switch e.Type {
		case entry.ClockIn:
			e := e
			open = &e
		case entry.ClockOut:
			open = nil
		}
	}
	if open == nil || open.Time == nil {
		return nil
	}
	estimate, err := s.calc.EstimateExitTime(*open.Time, s.calc.Config().FridayTargetHours, true)
	if err != nil {
		return nil
	}
	return &estimate
}
