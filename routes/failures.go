package routes

import (
	"net/http"

	"webpconv/failures"
	"webpconv/logger"

	"github.com/gorilla/mux"
)

// RunFailuresHandler lists the files that failed in a run
func RunFailuresHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	records, err := failures.ListRunFailures(id)
	if err != nil {
		logger.Errorf("Failed to list failures for run %s: %v", id, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []failures.FailureRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":       id,
		"failures": records,
		"count":    len(records),
	})
}
