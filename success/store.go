package success

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"webpconv/models"

	pebble "github.com/cockroachdb/pebble"
)

// RunRecord is the history entry kept for every run that completed
type RunRecord struct {
	ID        string                   `json:"id"`
	Timestamp time.Time                `json:"timestamp"`
	Options   models.ConversionOptions `json:"options"`
	Summary   models.ConversionSummary `json:"summary"`
	Published int                      `json:"published,omitempty"` // files uploaded to the publish target
}

var ErrNotInitialized = errors.New("success store not initialized")

var db *pebble.DB

// Init opens the run history at dbPath
func Init(dbPath string) error {
	var err error
	db, err = pebble.Open(dbPath, &pebble.Options{})
	if err != nil {
		return fmt.Errorf("failed to open success store: %w", err)
	}
	return nil
}

// Close closes the run history
func Close() error {
	if db != nil {
		err := db.Close()
		db = nil
		return err
	}
	return nil
}

// StoreRun records a completed run under its ID
func StoreRun(record RunRecord) error {
	if db == nil {
		return ErrNotInitialized
	}
	if record.ID == "" {
		return errors.New("run record has no id")
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal run record: %w", err)
	}
	return db.Set([]byte(record.ID), data, pebble.Sync)
}

// GetRun returns the record for id, or nil when there is none
func GetRun(id string) (*RunRecord, error) {
	if db == nil {
		return nil, ErrNotInitialized
	}

	data, closer, err := db.Get([]byte(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	defer closer.Close()

	var record RunRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run record: %w", err)
	}
	return &record, nil
}

// DeleteRun removes a run record
func DeleteRun(id string) error {
	if db == nil {
		return ErrNotInitialized
	}
	return db.Delete([]byte(id), pebble.Sync)
}

// ListRuns returns every recorded run, newest first
func ListRuns() ([]RunRecord, error) {
	if db == nil {
		return nil, ErrNotInitialized
	}

	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var records []RunRecord
	for iter.First(); iter.Valid(); iter.Next() {
		var record RunRecord
		if err := json.Unmarshal(iter.Value(), &record); err != nil {
			continue // skip invalid records
		}
		records = append(records, record)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iteration error: %w", err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	return records, nil
}

// CleanupOldRecords removes run records older than maxAge and reports how many went
func CleanupOldRecords(maxAge time.Duration) (int, error) {
	if db == nil {
		return 0, ErrNotInitialized
	}

	cutoff := time.Now().Add(-maxAge)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, err
	}

	var stale [][]byte
	for iter.First(); iter.Valid(); iter.Next() {
		var record RunRecord
		if err := json.Unmarshal(iter.Value(), &record); err != nil {
			continue
		}
		if record.Timestamp.Before(cutoff) {
			key := make([]byte, len(iter.Key()))
			copy(key, iter.Key())
			stale = append(stale, key)
		}
	}
	if err := iter.Close(); err != nil {
		return 0, err
	}

	batch := db.NewBatch()
	defer batch.Close()
	for _, key := range stale {
		if err := batch.Delete(key, nil); err != nil {
			return 0, err
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, fmt.Errorf("failed to delete old run records: %w", err)
	}
	return len(stale), nil
}

// CheckHealth verifies the history database answers reads
func CheckHealth() error {
	if db == nil {
		return ErrNotInitialized
	}
	_, closer, err := db.Get([]byte("__health_check__"))
	if err != nil && !errors.Is(err, pebble.ErrNotFound) {
		return fmt.Errorf("database health check failed: %w", err)
	}
	if closer != nil {
		closer.Close()
	}
	return nil
}
