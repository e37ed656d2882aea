package credentials

import (
	"encoding/json"
	"errors"
	"fmt"

	"webpconv/logger"

	"github.com/cockroachdb/pebble"
)

var (
	ErrNotFound       = errors.New("credentials not found")
	ErrNotInitialized = errors.New("credentials store not initialized")
)

var db *pebble.DB

// OpenDB opens the Pebble DB holding publish credentials
func OpenDB(dbPath string) error {
	var err error
	db, err = pebble.Open(dbPath, &pebble.Options{})
	if err != nil {
		logger.Errorf("Failed to open credentials DB: %v", err)
		return err
	}
	return nil
}

// CloseDB closes the DB
func CloseDB() error {
	if db != nil {
		err := db.Close()
		db = nil
		return err
	}
	return nil
}

// GetCredentials returns the access info stored under key
func GetCredentials(key string) (map[string]string, error) {
	if db == nil {
		return nil, ErrNotInitialized
	}
	value, closer, err := db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, err
	}
	defer closer.Close()

	creds := make(map[string]string)
	if err := json.Unmarshal(value, &creds); err != nil {
		return nil, err
	}
	return creds, nil
}

// StoreCredentials stores the credentials map under the given key
func StoreCredentials(key string, creds map[string]string) error {
	if db == nil {
		return ErrNotInitialized
	}
	if key == "" {
		return errors.New("credentials key is empty")
	}
	encoded, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return db.Set([]byte(key), encoded, pebble.Sync)
}

// DeleteCredentials deletes the credentials for the given key
func DeleteCredentials(key string) error {
	if db == nil {
		return ErrNotInitialized
	}
	return db.Delete([]byte(key), pebble.Sync)
}

// Keys lists the stored credential keys without their values
func Keys() ([]string, error) {
	if db == nil {
		return nil, ErrNotInitialized
	}
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var keys []string
	for iter.First(); iter.Valid(); iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	return keys, iter.Error()
}

// Merge overlays stored credentials for key onto settings. Stored values win.
// An empty key returns settings unchanged.
func Merge(key string, settings map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(settings))
	for k, v := range settings {
		out[k] = v
	}
	if key == "" {
		return out, nil
	}
	creds, err := GetCredentials(key)
	if err != nil {
		return nil, err
	}
	for k, v := range creds {
		out[k] = v
	}
	return out, nil
}
