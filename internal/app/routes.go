package app

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	// Week views and entries
	r.HandleFunc("/api/week/{weekKey}", deps.TimesheetHandler.GetWeek).Methods("GET")
	r.HandleFunc("/api/week/{weekKey}/day/{date}/entries", deps.TimesheetHandler.AddEntry).Methods("POST")
	r.HandleFunc("/api/week/{weekKey}/day/{date}/entries/{index}", deps.TimesheetHandler.UpdateEntry).Methods("PUT")
	r.HandleFunc("/api/week/{weekKey}/day/{date}/entries/{index}", deps.TimesheetHandler.DeleteEntry).Methods("DELETE")
	r.HandleFunc("/api/week/{weekKey}/day/{date}", deps.TimesheetHandler.ClearDay).Methods("DELETE")

	// Import and export
	r.HandleFunc("/api/export/json", deps.TimesheetHandler.ExportJSON).Methods("GET")
	r.HandleFunc("/api/export/csv", deps.TimesheetHandler.ExportCSV).Methods("GET")
	r.HandleFunc("/api/import", deps.TimesheetHandler.Import).Methods("POST")

	// Backups
	r.HandleFunc("/api/backup", deps.TimesheetHandler.CreateBackup).Methods("POST")
	r.HandleFunc("/api/backup", deps.TimesheetHandler.ListBackups).Methods("GET")
	r.HandleFunc("/api/backup/latest", deps.TimesheetHandler.GetLatestBackup).Methods("GET")
	r.HandleFunc("/api/backup/{id}/restore", deps.TimesheetHandler.RestoreBackup).Methods("POST")

	// Maintenance
	r.HandleFunc("/api/maintenance/old-weeks", deps.TimesheetHandler.OldWeeks).Methods("GET")
	r.HandleFunc("/api/maintenance/cleanup", deps.TimesheetHandler.Cleanup).Methods("POST")
	r.HandleFunc("/api/status", deps.TimesheetHandler.Status).Methods("GET")
}
