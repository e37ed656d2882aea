package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"webpconv/converter"
	"webpconv/job"
	"webpconv/logger"
	"webpconv/models"

	"github.com/gorilla/mux"
)

// SubmitRunResponse is returned by POST /runs
type SubmitRunResponse struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

// SubmitRunHandler queues a conversion run. Invalid options are a 400.
func (api *API) SubmitRunHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Submit run request: remoteAddr=%s", r.RemoteAddr)

	var req models.RunRequest
	req.Options = models.DefaultOptions()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warnf("Invalid run request body: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	id, err := api.Jobs.Submit(req)
	if err != nil {
		switch {
		case converter.IsConfigError(err):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, job.ErrPublishUnavailable):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			logger.Errorf("Failed to submit run: %v", err)
			http.Error(w, "Failed to submit run", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusAccepted, SubmitRunResponse{ID: id, State: job.JobStatePending.String()})
}

// ListRunsHandler returns every run known to this process
func (api *API) ListRunsHandler(w http.ResponseWriter, r *http.Request) {
	runs := api.Jobs.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetRunHandler returns one run without its event log
func (api *API) GetRunHandler(w http.ResponseWriter, r *http.Request) {
	snap, ok := api.lookup(w, r)
	if !ok {
		return
	}
	snap.Events = nil
	writeJSON(w, http.StatusOK, snap)
}

// RunEventsHandler returns the progress events of a run in arrival order
func (api *API) RunEventsHandler(w http.ResponseWriter, r *http.Request) {
	snap, ok := api.lookup(w, r)
	if !ok {
		return
	}
	events := snap.Events
	if events == nil {
		events = []models.ConversionProgress{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":     snap.ID,
		"state":  snap.State,
		"events": events,
	})
}

// CancelRunHandler cancels a pending or processing run
func (api *API) CancelRunHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	logger.Infof("Attempting to cancel run: %s", id)

	if err := api.Jobs.Cancel(id); err != nil {
		logger.Warnf("Failed to cancel run %s: %v", id, err)
		switch {
		case errors.Is(err, job.ErrNotFound):
			http.Error(w, fmt.Sprintf("Run not found: %s", id), http.StatusNotFound)
		default:
			http.Error(w, fmt.Sprintf("Cannot cancel run: %v", err), http.StatusConflict)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (api *API) lookup(w http.ResponseWriter, r *http.Request) (job.Snapshot, bool) {
	id := mux.Vars(r)["id"]
	snap, err := api.Jobs.Get(id)
	if err != nil {
		logger.Debugf("Run not found: %s", id)
		http.Error(w, fmt.Sprintf("Run not found: %s", id), http.StatusNotFound)
		return job.Snapshot{}, false
	}
	return snap, true
}
