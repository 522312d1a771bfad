package timesheet

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeitkonto/zeitkonto/internal/event_bus"
	"github.com/zeitkonto/zeitkonto/internal/utils"
	"github.com/zeitkonto/zeitkonto/pkg/calc"
	"github.com/zeitkonto/zeitkonto/pkg/storage"
)

// setupHandlerTest wires a handler over real service and repository with
// in-memory stub stores, plus a router so mux path variables resolve.
func setupHandlerTest(t *testing.T) *mux.Router {
	t.Helper()
	primary := storage.NewStubStore()
	secondary := storage.NewStubStore()
	clock := &utils.MockClock{FixedNow: time.Date(2026, 1, 28, 12, 0, 0, 0, time.Local)}
	repo := storage.NewRepository(primary, secondary, clock, storage.DefaultOptions())
	require.NoError(t, repo.Init(ctx))

	service := NewService(repo, calc.New(calc.DefaultConfig()), NewCsvRenderer(), event_bus.NewEventBus())
	handler := NewHandler(service)

	r := mux.NewRouter()
	r.HandleFunc("/api/week/{weekKey}", handler.GetWeek).Methods("GET")
	r.HandleFunc("/api/week/{weekKey}/day/{date}/entries", handler.AddEntry).Methods("POST")
	r.HandleFunc("/api/week/{weekKey}/day/{date}/entries/{index}", handler.UpdateEntry).Methods("PUT")
	r.HandleFunc("/api/week/{weekKey}/day/{date}/entries/{index}", handler.DeleteEntry).Methods("DELETE")
	r.HandleFunc("/api/week/{weekKey}/day/{date}", handler.ClearDay).Methods("DELETE")
	r.HandleFunc("/api/export/json", handler.ExportJSON).Methods("GET")
	r.HandleFunc("/api/export/csv", handler.ExportCSV).Methods("GET")
	r.HandleFunc("/api/import", handler.Import).Methods("POST")
	r.HandleFunc("/api/backup", handler.CreateBackup).Methods("POST")
	r.HandleFunc("/api/backup", handler.ListBackups).Methods("GET")
	r.HandleFunc("/api/backup/latest", handler.GetLatestBackup).Methods("GET")
	r.HandleFunc("/api/backup/{id}/restore", handler.RestoreBackup).Methods("POST")
	r.HandleFunc("/api/maintenance/old-weeks", handler.OldWeeks).Methods("GET")
	r.HandleFunc("/api/maintenance/cleanup", handler.Cleanup).Methods("POST")
	r.HandleFunc("/api/status", handler.Status).Methods("GET")
	return r
}

func doRequest(t *testing.T, router *mux.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandlerGetWeek(t *testing.T) {
	router := setupHandlerTest(t)

	w := doRequest(t, router, http.MethodGet, "/api/week/2026-W05", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var view WeekViewDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	assert.Equal(t, "2026-W05", view.WeekKey)
	assert.Len(t, view.Days, 5)
	assert.Equal(t, "-36:00", view.BalanceFormatted)
}

func TestHandlerGetWeekBadKey(t *testing.T) {
	router := setupHandlerTest(t)

	w := doRequest(t, router, http.MethodGet, "/api/week/not-a-week", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var errResponse struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&errResponse))
	assert.Equal(t, "Invalid week key", errResponse.Error)
}

func TestHandlerAddEntry(t *testing.T) {
	router := setupHandlerTest(t)

	w := doRequest(t, router, http.MethodPost, "/api/week/2026-W05/day/2026-01-26/entries",
		NewEntryDTO{Type: "clock-in", Time: "08:00"})
	require.Equal(t, http.StatusCreated, w.Code)

	var view WeekViewDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	require.Len(t, view.Days[0].Entries, 1)
	assert.Equal(t, "08:00", *view.Days[0].Entries[0].Time)
	assert.True(t, view.Days[0].Incomplete)
}

func TestHandlerAddEntryConflicts(t *testing.T) {
	router := setupHandlerTest(t)

	w := doRequest(t, router, http.MethodPost, "/api/week/2026-W05/day/2026-01-26/entries",
		NewEntryDTO{Type: "clock-out", Time: "16:00"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/week/2026-W05/day/2026-01-26/entries",
		NewEntryDTO{Type: "vacation"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerUpdateEntry(t *testing.T) {
	router := setupHandlerTest(t)
	w := doRequest(t, router, http.MethodPost, "/api/week/2026-W05/day/2026-01-26/entries",
		NewEntryDTO{Type: "clock-in", Time: "08:00"})
	require.Equal(t, http.StatusCreated, w.Code)

	newTime := "08:30"
	w = doRequest(t, router, http.MethodPut, "/api/week/2026-W05/day/2026-01-26/entries/0",
		UpdateEntryDTO{Time: &newTime})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodPut, "/api/week/2026-W05/day/2026-01-26/entries/9",
		UpdateEntryDTO{Time: &newTime})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlerDeleteAndClear(t *testing.T) {
	router := setupHandlerTest(t)
	w := doRequest(t, router, http.MethodPost, "/api/week/2026-W05/day/2026-01-26/entries",
		NewEntryDTO{Type: "remote-work"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(t, router, http.MethodDelete, "/api/week/2026-W05/day/2026-01-26/entries/0", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodDelete, "/api/week/2026-W05/day/2026-01-26/entries/0", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, router, http.MethodDelete, "/api/week/2026-W05/day/2026-01-26", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandlerImportAndExport(t *testing.T) {
	router := setupHandlerTest(t)

	payload := map[string]map[string][]map[string]any{
		"2026-W05": {"2026-01-26": {{"type": "remote-work", "hours": 7.5}}},
	}
	w := doRequest(t, router, http.MethodPost, "/api/import?mode=merge", payload)
	require.Equal(t, http.StatusOK, w.Code)

	var result ImportResultDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.Equal(t, 1, result.Imported)

	w = doRequest(t, router, http.MethodGet, "/api/export/json", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "2026-W05")

	w = doRequest(t, router, http.MethodGet, "/api/export/csv", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "Week,Date,Entries"))

	w = doRequest(t, router, http.MethodPost, "/api/import", map[string]any{"nonsense": []int{1}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerBackupLifecycle(t *testing.T) {
	router := setupHandlerTest(t)
	w := doRequest(t, router, http.MethodPost, "/api/week/2026-W05/day/2026-01-26/entries",
		NewEntryDTO{Type: "remote-work"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/backup", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var backup BackupDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&backup))

	w = doRequest(t, router, http.MethodGet, "/api/backup", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodDelete, "/api/week/2026-W05/day/2026-01-26", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/backup/999/restore", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/backup/1/restore", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/week/2026-W05", nil)
	var view WeekViewDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	assert.Len(t, view.Days[0].Entries, 1)
}

func TestHandlerLatestBackup(t *testing.T) {
	router := setupHandlerTest(t)

	w := doRequest(t, router, http.MethodGet, "/api/backup/latest", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/backup", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/backup/latest", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var latest LastBackupDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&latest))
	assert.NotZero(t, latest.Timestamp)
	assert.True(t, latest.IsRecent)
	assert.False(t, latest.NeedsReminder)
}

func TestHandlerStatus(t *testing.T) {
	router := setupHandlerTest(t)

	w := doRequest(t, router, http.MethodGet, "/api/status", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var status StatusDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	assert.True(t, status.PrimaryAvailable)
	assert.Nil(t, status.LastBackup)
}

func TestHandlerMaintenance(t *testing.T) {
	router := setupHandlerTest(t)
	w := doRequest(t, router, http.MethodPost, "/api/week/2025-W40/day/2025-09-29/entries",
		NewEntryDTO{Type: "remote-work"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/maintenance/old-weeks?months=3", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var keys []string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&keys))
	assert.Equal(t, []string{"2025-W40"}, keys)

	w = doRequest(t, router, http.MethodPost, "/api/maintenance/cleanup?months=3", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var result CleanupResultDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.Equal(t, 1, result.Removed)
}
