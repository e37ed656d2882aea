package config

import (
	"os"
	"path/filepath"
)

// DATA_DIR is the directory where webpconv keeps its pebble stores.
// Defaults to "./data" relative to the working directory
var DATA_DIR = getDataDir()

// getDataDir determines the data directory path from environment or default.
// Priority: WEBPCONV_DATA_DIR environment variable > "./data" default
func getDataDir() string {
	return envOr("WEBPCONV_DATA_DIR", "./data")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GetDataDir returns the current data directory path.
// The environment is read on every call so tests and long running
// servers pick up changes without a restart.
func GetDataDir() string {
	return getDataDir()
}

// GetSuccessDBPath returns the path of the completed-run history store.
// Path: {DATA_DIR}/success.db
func GetSuccessDBPath() string {
	return filepath.Join(GetDataDir(), "success.db")
}

// GetFailuresDBPath returns the path of the per-file failure store.
// Path: {DATA_DIR}/failures.db
func GetFailuresDBPath() string {
	return filepath.Join(GetDataDir(), "failures.db")
}

// GetCredentialsDBPath returns the path of the publish credentials store.
// Path: {DATA_DIR}/credentials.db
func GetCredentialsDBPath() string {
	return filepath.Join(GetDataDir(), "credentials.db")
}

// GetQueueDBPath returns the path of the durable run queue.
// Path: {DATA_DIR}/RunQueue.db
func GetQueueDBPath() string {
	return filepath.Join(GetDataDir(), "RunQueue.db")
}

// GetListenAddr returns the HTTP listen address for serve mode
func GetListenAddr() string {
	return envOr("WEBPCONV_LISTEN_ADDR", ":8080")
}

// GetJWTSecret returns the shared HMAC secret for API tokens.
// Empty disables the authenticated endpoints.
func GetJWTSecret() string {
	return os.Getenv("WEBPCONV_JWT_SECRET")
}

// GetEncoderName returns the registered encoder backend to use ("native" or "cwebp")
func GetEncoderName() string {
	return envOr("WEBPCONV_ENCODER", "native")
}

// GetLogLevel returns the configured log level name
func GetLogLevel() string {
	return envOr("WEBPCONV_LOG_LEVEL", "info")
}

// GetLogFile returns the optional log file path
func GetLogFile() string {
	return os.Getenv("WEBPCONV_LOG_FILE")
}
