package failures

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"webpconv/converter"
	"webpconv/logger"
	"webpconv/models"

	pebble "github.com/cockroachdb/pebble"
)

// FailureRecord is one file that could not be converted during a run
type FailureRecord struct {
	RunID      string    `json:"run_id"`
	InputFile  string    `json:"input_file"`
	OutputFile string    `json:"output_file"`
	Error      string    `json:"error"`
	Timestamp  time.Time `json:"timestamp"`
}

var ErrNotInitialized = errors.New("failure store not initialized")

// keys are "<run id>|<input display name>" so one run's failures are contiguous
const keySep = "|"

var db *pebble.DB

// Init opens the failure store at dbPath
func Init(dbPath string) error {
	var err error
	db, err = pebble.Open(dbPath, &pebble.Options{})
	if err != nil {
		return fmt.Errorf("failed to open failure store: %w", err)
	}
	return nil
}

// Close closes the failure store
func Close() error {
	if db != nil {
		err := db.Close()
		db = nil
		return err
	}
	return nil
}

func recordKey(runID, inputFile string) []byte {
	return []byte(runID + keySep + inputFile)
}

// runBounds returns the key range covering every record of runID
func runBounds(runID string) (lower, upper []byte) {
	lower = []byte(runID + keySep)
	upper = []byte(runID + string(rune(keySep[0]+1)))
	return lower, upper
}

// StoreFailure records a failed file for runID
func StoreFailure(runID string, p models.ConversionProgress) error {
	if db == nil {
		return ErrNotInitialized
	}

	record := FailureRecord{
		RunID:      runID,
		InputFile:  p.InputFileName,
		OutputFile: p.OutputFileName,
		Error:      p.Message,
		Timestamp:  time.Now(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal failure record: %w", err)
	}
	return db.Set(recordKey(runID, p.InputFileName), data, pebble.Sync)
}

// GetFailure returns the failure recorded for one file of a run, or nil
func GetFailure(runID, inputFile string) (*FailureRecord, error) {
	if db == nil {
		return nil, ErrNotInitialized
	}

	data, closer, err := db.Get(recordKey(runID, inputFile))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get failure: %w", err)
	}
	defer closer.Close()

	var record FailureRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal failure record: %w", err)
	}
	return &record, nil
}

// ListRunFailures returns the failures of one run ordered by input file
func ListRunFailures(runID string) ([]FailureRecord, error) {
	lower, upper := runBounds(runID)
	return list(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
}

// ListFailures returns every stored failure
func ListFailures() ([]FailureRecord, error) {
	return list(&pebble.IterOptions{})
}

func list(opts *pebble.IterOptions) ([]FailureRecord, error) {
	if db == nil {
		return nil, ErrNotInitialized
	}

	iter, err := db.NewIter(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	var records []FailureRecord
	for iter.First(); iter.Valid(); iter.Next() {
		var record FailureRecord
		if err := json.Unmarshal(iter.Value(), &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iteration error: %w", err)
	}
	return records, nil
}

// DeleteRunFailures drops every failure recorded for runID
func DeleteRunFailures(runID string) error {
	if db == nil {
		return ErrNotInitialized
	}
	lower, upper := runBounds(runID)
	return db.DeleteRange(lower, upper, pebble.Sync)
}

// Recorder returns a sink that stores every Failed event of runID
func Recorder(runID string) converter.Sink {
	return converter.SinkFunc(func(p models.ConversionProgress) {
		if p.State != models.StateFailed {
			return
		}
		if err := StoreFailure(runID, p); err != nil {
			logger.Errorf("Failed to record failure of %s in run %s: %v", p.InputFileName, runID, err)
		}
	})
}

// CleanupOldRecords removes failures recorded more than maxAge ago
func CleanupOldRecords(maxAge time.Duration) (int, error) {
	if db == nil {
		return 0, ErrNotInitialized
	}

	cutoff := time.Now().Add(-maxAge)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, err
	}

	batch := db.NewBatch()
	defer batch.Close()
	removed := 0
	for iter.First(); iter.Valid(); iter.Next() {
		var record FailureRecord
		if err := json.Unmarshal(iter.Value(), &record); err != nil {
			continue
		}
		if !record.Timestamp.Before(cutoff) {
			continue
		}
		// batch.Delete copies the key
		if err := batch.Delete(iter.Key(), nil); err != nil {
			iter.Close()
			return 0, err
		}
		removed++
	}
	if err := iter.Close(); err != nil {
		return 0, err
	}

	if removed == 0 {
		return 0, nil
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, fmt.Errorf("failed to delete old failure records: %w", err)
	}
	return removed, nil
}
