package timesheet

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/zeitkonto/zeitkonto/internal/rest"
	"github.com/zeitkonto/zeitkonto/pkg/entry"
	"github.com/zeitkonto/zeitkonto/pkg/isoweek"
	"github.com/zeitkonto/zeitkonto/pkg/storage"
)

type EntryDTO struct {
	Id    string   `json:"id"`
	Type  string   `json:"type"`
	Time  *string  `json:"time,omitempty"`
	Hours *float64 `json:"hours,omitempty"`
}

type NewEntryDTO struct {
	Type  string   `json:"type"`
	Time  string   `json:"time,omitempty"`
	Hours *float64 `json:"hours,omitempty"`
}

type UpdateEntryDTO struct {
	Type  *string  `json:"type,omitempty"`
	Time  *string  `json:"time,omitempty"`
	Hours *float64 `json:"hours,omitempty"`
}

type DayViewDTO struct {
	Date         string     `json:"date"`
	Weekday      string     `json:"weekday"`
	Entries      []EntryDTO `json:"entries"`
	Minutes      int        `json:"minutes"`
	Formatted    string     `json:"formatted"`
	Incomplete   bool       `json:"incomplete,omitempty"`
	PauseApplied bool       `json:"pauseApplied,omitempty"`
	Special      bool       `json:"special,omitempty"`
}

type WeekViewDTO struct {
	WeekKey            string       `json:"weekKey"`
	Days               []DayViewDTO `json:"days"`
	TotalMinutes       int          `json:"totalMinutes"`
	TotalFormatted     string       `json:"totalFormatted"`
	BalanceMinutes     int          `json:"balanceMinutes"`
	BalanceFormatted   string       `json:"balanceFormatted"`
	FridayExitEstimate *string      `json:"fridayExitEstimate,omitempty"`
}

type ImportResultDTO struct {
	Imported int      `json:"imported"`
	Existing int      `json:"existing"`
	Warnings []string `json:"warnings,omitempty"`
}

type BackupDTO struct {
	Id        int64 `json:"id"`
	Timestamp int64 `json:"timestamp"`
}

type StatusDTO struct {
	PrimaryAvailable   bool           `json:"primaryAvailable"`
	SecondaryAvailable bool           `json:"secondaryAvailable"`
	WeekCount          int            `json:"weekCount"`
	SaveCount          int64          `json:"saveCount"`
	LastBackup         *LastBackupDTO `json:"lastBackup,omitempty"`
}

type LastBackupDTO struct {
	Timestamp     int64   `json:"timestamp"`
	HoursSince    float64 `json:"hoursSince"`
	IsRecent      bool    `json:"isRecent"`
	NeedsReminder bool    `json:"needsReminder"`
}

type CleanupResultDTO struct {
	Removed  int      `json:"removed"`
	Keys     []string `json:"keys,omitempty"`
	BackupId int64    `json:"backupId,omitempty"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service}
}

// GetWeek godoc
// @Summary Get a week view
// @Description Get a week's entries with computed daily and weekly totals
// @Tags Timesheet
// @Produce json
// @Success 200 {object} WeekViewDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid week key"
// @Router /api/week/{weekKey} [get]
func (handler *Handler) GetWeek(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	view, err := handler.service.GetWeek(r.Context(), mux.Vars(r)["weekKey"])
	if err != nil {
		handler.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, weekViewToDTO(view))
}

// AddEntry godoc
// @Summary Record an entry
// @Description Record a clock event or special-day marker on a date
// @Tags Timesheet
// @Accept json
// @Produce json
// @Param entry body NewEntryDTO true "Entry"
// @Success 201 {object} WeekViewDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 409 {object} rest.ErrorResponse "Sequencing conflict"
// @Router /api/week/{weekKey}/day/{date}/entries [post]
func (handler *Handler) AddEntry(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	vars := mux.Vars(r)
	var dto NewEntryDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	view, err := handler.service.AddEntry(r.Context(), vars["weekKey"], vars["date"], NewEntry{
		Type:  entry.Type(dto.Type),
		Time:  dto.Time,
		Hours: dto.Hours,
	})
	if err != nil {
		handler.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, weekViewToDTO(view))
}

// UpdateEntry godoc
// @Summary Update an entry
// @Description Partially update the entry at a position within a date
// @Tags Timesheet
// @Accept json
// @Produce json
// @Param entry body UpdateEntryDTO true "Fields to change"
// @Success 200 {object} WeekViewDTO
// @Failure 404 {object} rest.ErrorResponse "Entry not found"
// @Router /api/week/{weekKey}/day/{date}/entries/{index} [put]
func (handler *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid entry index", err.Error())
		return
	}
	var dto UpdateEntryDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	update := entry.Update{Time: dto.Time, Hours: dto.Hours}
	if dto.Type != nil {
		t := entry.Type(*dto.Type)
		update.Type = &t
	}
	view, found, err := handler.service.UpdateEntry(r.Context(), vars["weekKey"], vars["date"], index, update)
	if err != nil {
		handler.writeServiceError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Entry not found", "")
		return
	}
	writeJSON(w, http.StatusOK, weekViewToDTO(view))
}

// DeleteEntry godoc
// @Summary Delete an entry
// @Tags Timesheet
// @Produce json
// @Success 200 {object} WeekViewDTO
// @Failure 404 {object} rest.ErrorResponse "Entry not found"
// @Router /api/week/{weekKey}/day/{date}/entries/{index} [delete]
func (handler *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid entry index", err.Error())
		return
	}
	view, found, err := handler.service.DeleteEntry(r.Context(), vars["weekKey"], vars["date"], index)
	if err != nil {
		handler.writeServiceError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Entry not found", "")
		return
	}
	writeJSON(w, http.StatusOK, weekViewToDTO(view))
}

// ClearDay godoc
// @Summary Clear a day
// @Description Remove all entries recorded on a date
// @Tags Timesheet
// @Produce json
// @Success 200 {object} WeekViewDTO
// @Router /api/week/{weekKey}/day/{date} [delete]
func (handler *Handler) ClearDay(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	vars := mux.Vars(r)
	view, err := handler.service.ClearDay(r.Context(), vars["weekKey"], vars["date"])
	if err != nil {
		handler.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, weekViewToDTO(view))
}

// ExportJSON godoc
// @Summary Export all data as JSON
// @Tags Export
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/export/json [get]
func (handler *Handler) ExportJSON(w http.ResponseWriter, r *http.Request) {
	data, err := handler.service.ExportJSON(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Errorf("failed to write export response: %v", err)
	}
}

// ExportCSV godoc
// @Summary Export all data as CSV
// @Tags Export
// @Produce text/csv
// @Success 200 {string} string
// @Router /api/export/csv [get]
func (handler *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	data, err := handler.service.ExportCSV(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(data)); err != nil {
		log.Errorf("failed to write export response: %v", err)
	}
}

// Import godoc
// @Summary Import timesheet data
// @Description Import a JSON aggregate, merging with or replacing stored data
// @Tags Export
// @Accept json
// @Produce json
// @Param mode query string false "merge (default) or replace"
// @Success 200 {object} ImportResultDTO
// @Failure 400 {object} rest.ErrorResponse "Rejected payload"
// @Router /api/import [post]
func (handler *Handler) Import(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Could not read request body", err.Error())
		return
	}
	merge := r.URL.Query().Get("mode") != "replace"

	result, err := handler.service.Import(r.Context(), body, merge)
	if err != nil {
		handler.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ImportResultDTO{
		Imported: result.Imported,
		Existing: result.Existing,
		Warnings: result.Warnings,
	})
}

// CreateBackup godoc
// @Summary Create a backup
// @Tags Backup
// @Produce json
// @Success 201 {object} BackupDTO
// @Failure 503 {object} rest.ErrorResponse "Backup store unavailable"
// @Router /api/backup [post]
func (handler *Handler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	backup, err := handler.service.CreateBackup(r.Context())
	if err != nil {
		handler.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, BackupDTO{Id: backup.ID, Timestamp: backup.Timestamp.UnixMilli()})
}

// ListBackups godoc
// @Summary List backups
// @Tags Backup
// @Produce json
// @Success 200 {array} BackupDTO
// @Router /api/backup [get]
func (handler *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	backups, err := handler.service.ListBackups(r.Context())
	if err != nil {
		handler.writeServiceError(w, err)
		return
	}
	dtos := make([]BackupDTO, 0, len(backups))
	for _, b := range backups {
		dtos = append(dtos, BackupDTO{Id: b.ID, Timestamp: b.Timestamp.UnixMilli()})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetLatestBackup godoc
// @Summary Latest backup info
// @Description Timestamp and recency of the most recent backup
// @Tags Backup
// @Produce json
// @Success 200 {object} LastBackupDTO
// @Failure 404 {object} rest.ErrorResponse "No backup exists yet"
// @Router /api/backup/latest [get]
func (handler *Handler) GetLatestBackup(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	info, err := handler.service.LatestBackup(r.Context())
	if err != nil {
		handler.writeServiceError(w, err)
		return
	}
	if !info.Exists {
		writeError(w, http.StatusNotFound, "No backup exists yet", "")
		return
	}
	writeJSON(w, http.StatusOK, LastBackupDTO{
		Timestamp:     info.Timestamp,
		HoursSince:    info.HoursSince,
		IsRecent:      info.IsRecent,
		NeedsReminder: info.NeedsReminder,
	})
}

// RestoreBackup godoc
// @Summary Restore a backup
// @Description Replace current data with the identified backup snapshot
// @Tags Backup
// @Produce json
// @Success 204 {string} string "Restored"
// @Failure 404 {object} rest.ErrorResponse "Backup not found"
// @Router /api/backup/{id}/restore [post]
func (handler *Handler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid backup id", err.Error())
		return
	}
	found, err := handler.service.RestoreBackup(r.Context(), id)
	if err != nil {
		handler.writeServiceError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Backup not found", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OldWeeks godoc
// @Summary List old weeks
// @Description List stored weeks older than the given number of months
// @Tags Maintenance
// @Produce json
// @Param months query int false "Age threshold in months (default 3)"
// @Success 200 {array} string
// @Router /api/maintenance/old-weeks [get]
func (handler *Handler) OldWeeks(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	months := parseMonths(r)
	keys, err := handler.service.OldWeeks(r.Context(), months)
	if err != nil {
		handler.writeServiceError(w, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, keys)
}

// Cleanup godoc
// @Summary Remove old weeks
// @Description Back up and then delete weeks older than the given number of months
// @Tags Maintenance
// @Produce json
// @Param months query int false "Age threshold in months (default 3)"
// @Success 200 {object} CleanupResultDTO
// @Failure 503 {object} rest.ErrorResponse "Backup store unavailable"
// @Router /api/maintenance/cleanup [post]
func (handler *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	result, err := handler.service.Cleanup(r.Context(), parseMonths(r))
	if err != nil {
		handler.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CleanupResultDTO(result))
}

// Status godoc
// @Summary Storage status
// @Description Storage availability, save counter, and last-backup recency
// @Tags Maintenance
// @Produce json
// @Success 200 {object} StatusDTO
// @Router /api/status [get]
func (handler *Handler) Status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	status, err := handler.service.Status(r.Context())
	if err != nil {
		handler.writeServiceError(w, err)
		return
	}
	dto := StatusDTO{
		PrimaryAvailable:   status.PrimaryAvailable,
		SecondaryAvailable: status.SecondaryAvailable,
		WeekCount:          status.WeekCount,
		SaveCount:          status.SaveCount,
	}
	if status.LastBackup.Exists {
		dto.LastBackup = &LastBackupDTO{
			Timestamp:     status.LastBackup.Timestamp,
			HoursSince:    status.LastBackup.HoursSince,
			IsRecent:      status.LastBackup.IsRecent,
			NeedsReminder: status.LastBackup.NeedsReminder,
		}
	}
	writeJSON(w, http.StatusOK, dto)
}

func (handler *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, isoweek.ErrInvalidWeekKey):
		writeError(w, http.StatusBadRequest, "Invalid week key", "week key must look like 2026-W05")
	case errors.Is(err, isoweek.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, "Invalid date", "date must look like 2026-01-26")
	case errors.Is(err, ErrUnknownEntryType):
		writeError(w, http.StatusBadRequest, "Unknown entry type", err.Error())
	case errors.Is(err, ErrDateOutsideWeek), errors.Is(err, ErrWeekendDate):
		writeError(w, http.StatusBadRequest, "Invalid date for week", err.Error())
	case errors.Is(err, ErrOpenClockIn), errors.Is(err, ErrNoOpenClockIn), errors.Is(err, ErrSpecialDay):
		writeError(w, http.StatusConflict, "Entry conflicts with recorded entries", err.Error())
	case errors.Is(err, storage.ErrImportRejected):
		writeError(w, http.StatusBadRequest, "Import rejected", err.Error())
	case errors.Is(err, storage.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Storage unavailable", err.Error())
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(rest.ErrorResponse{Error: message, Details: details}); err != nil {
		log.Errorf("failed to encode error response: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

func parseMonths(r *http.Request) int {
	months, err := strconv.Atoi(r.URL.Query().Get("months"))
	if err != nil {
		return 0
	}
	return months
}

func weekViewToDTO(view WeekView) WeekViewDTO {
	days := make([]DayViewDTO, 0, len(view.Days))
	for _, day := range view.Days {
		entries := make([]EntryDTO, 0, len(day.Entries))
		for _, e := range day.Entries {
			entries = append(entries, EntryDTO{
				Id:    e.ID,
				Type:  string(e.Type),
				Time:  e.Time,
				Hours: e.Hours,
			})
		}
		days = append(days, DayViewDTO{
			Date:         day.Date,
			Weekday:      day.Weekday,
			Entries:      entries,
			Minutes:      day.Result.Minutes,
			Formatted:    day.Result.Formatted,
			Incomplete:   day.Result.HasIncomplete,
			PauseApplied: day.Result.PauseApplied,
			Special:      day.Special,
		})
	}
	return WeekViewDTO{
		WeekKey:            view.WeekKey,
		Days:               days,
		TotalMinutes:       view.TotalMinutes,
		TotalFormatted:     view.TotalFormatted,
		BalanceMinutes:     view.BalanceMinutes,
		BalanceFormatted:   view.BalanceFormatted,
		FridayExitEstimate: view.FridayExitEstimate,
	}
}
