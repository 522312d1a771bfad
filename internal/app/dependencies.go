package app

import (
	"github.com/zeitkonto/zeitkonto/internal/config"
	"github.com/zeitkonto/zeitkonto/internal/event_bus"
	"github.com/zeitkonto/zeitkonto/internal/utils"
	"github.com/zeitkonto/zeitkonto/pkg/calc"
	"github.com/zeitkonto/zeitkonto/pkg/storage"
	"github.com/zeitkonto/zeitkonto/pkg/timesheet"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	EventBus *event_bus.EventBus
	Clock    utils.Clock

	FileStore   *storage.FileStore
	SQLiteStore *storage.SQLiteStore
	Repository  *storage.Repository

	Calculator  *calc.Calculator
	CsvRenderer *timesheet.CsvRendererImpl

	TimesheetService *timesheet.ServiceImpl
	TimesheetHandler *timesheet.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.EventBus = event_bus.NewEventBus()
	deps.Clock = &utils.SystemClock{}

	deps.FileStore = storage.NewFileStore(cfg.Storage.FilePath())
	deps.SQLiteStore = storage.NewSQLiteStore(cfg.Storage.DatabasePath())
	deps.Repository = storage.NewRepository(deps.FileStore, deps.SQLiteStore, deps.Clock, storage.Options{
		BackupRetention: cfg.Storage.BackupRetention,
		StaleMonths:     cfg.Storage.StaleMonths,
	})

	deps.Calculator = calc.New(calc.Config{
		WeeklyTargetMinutes: cfg.Tracking.WeeklyTargetMinutes,
		DailyTargetHours:    cfg.Tracking.DailyTargetHours,
		FridayTargetHours:   cfg.Tracking.FridayTargetHours,
		BreakMinutes:        cfg.Tracking.BreakMinutes,
		BreakThresholdHours: cfg.Tracking.BreakThresholdHours,
	})
	deps.CsvRenderer = timesheet.NewCsvRenderer()

	deps.TimesheetService = timesheet.NewService(deps.Repository, deps.Calculator, deps.CsvRenderer, deps.EventBus)
	deps.TimesheetHandler = timesheet.NewHandler(deps.TimesheetService)

	return deps
}
