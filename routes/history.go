package routes

import (
	"net/http"

	"webpconv/logger"
	"webpconv/success"
)

// HistoryHandler lists completed runs, newest first
func HistoryHandler(w http.ResponseWriter, r *http.Request) {
	records, err := success.ListRuns()
	if err != nil {
		logger.Errorf("Failed to list run history: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []success.RunRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  records,
		"count": len(records),
	})
}
