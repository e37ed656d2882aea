package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"webpconv/job"
	"webpconv/logger"
	"webpconv/models"
	"webpconv/utils"

	"github.com/gorilla/mux"
)

// API holds the collaborators the HTTP handlers need
type API struct {
	Jobs   *job.Manager
	Verify utils.VerifyConfig
}

// NewRouter registers every endpoint. Mutating endpoints require a bearer token.
func NewRouter(api *API) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/version", VersionHandler).Methods(http.MethodGet)

	r.HandleFunc("/runs", api.ListRunsHandler).Methods(http.MethodGet)
	r.Handle("/runs", api.requireToken(api.SubmitRunHandler)).Methods(http.MethodPost)
	r.HandleFunc("/runs/{id}", api.GetRunHandler).Methods(http.MethodGet)
	r.Handle("/runs/{id}", api.requireToken(api.CancelRunHandler)).Methods(http.MethodDelete)
	r.HandleFunc("/runs/{id}/events", api.RunEventsHandler).Methods(http.MethodGet)
	r.HandleFunc("/runs/{id}/failures", RunFailuresHandler).Methods(http.MethodGet)

	r.HandleFunc("/history", HistoryHandler).Methods(http.MethodGet)
	r.Handle("/credentials", api.requireToken(RegisterCredentialsHandler)).Methods(http.MethodPost)

	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Warnf("Invalid method %s for %s", r.Method, r.URL.Path)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})
	return r
}

// requireToken rejects requests without a valid "Authorization: Bearer" token
func (api *API) requireToken(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := api.verifyJWT(r)
		if err != nil {
			logger.Warnf("Rejected %s %s from %s: %v", r.Method, r.URL.Path, r.RemoteAddr, err)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		logger.Debugf("Authenticated %s for %s %s", claims.Subject, r.Method, r.URL.Path)
		next(w, r)
	})
}

func (api *API) verifyJWT(r *http.Request) (*models.APIClaims, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, errors.New("authorization header required")
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		return nil, errors.New("invalid authorization header format")
	}
	return utils.VerifyToken(token, api.Verify)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("Failed to encode response: %v", err)
	}
}
