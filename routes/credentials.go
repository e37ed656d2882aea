package routes

import (
	"encoding/json"
	"net/http"

	"webpconv/credentials"
	"webpconv/logger"
	"webpconv/utils"
)

// RegisterCredentialsHandler stores publish access info and returns the
// generated key to reference it by
func RegisterCredentialsHandler(w http.ResponseWriter, r *http.Request) {
	credsBody := make(map[string]string)
	if err := json.NewDecoder(r.Body).Decode(&credsBody); err != nil || len(credsBody) == 0 {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	keyString, err := utils.GenerateRandomHex(16)
	if err != nil {
		http.Error(w, "Failed to generate key", http.StatusInternalServerError)
		return
	}

	if err := credentials.StoreCredentials(keyString, credsBody); err != nil {
		logger.Errorf("Failed to store credentials: %v", err)
		http.Error(w, "Failed to store credentials", http.StatusInternalServerError)
		return
	}

	logger.Infof("Registered credentials %s", keyString)
	writeJSON(w, http.StatusCreated, map[string]string{
		"access_key": keyString,
	})
}
