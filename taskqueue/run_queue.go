package taskqueue

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"webpconv/models"
)

// QueuedRun is a submitted run that has not finished yet. It survives a
// restart so the server can pick it up again.
type QueuedRun struct {
	ID          string            `json:"id"`
	Request     models.RunRequest `json:"request"`
	SubmittedAt time.Time         `json:"submitted_at"`
}

var ErrNotOpen = errors.New("run queue is not open")

var RunQueue *DBQueue

func OpenRunQueueDB(dataFile string) error {
	q, err := OpenQueue(dataFile)
	if err != nil {
		return err
	}
	RunQueue = q
	return nil
}

func CloseRunQueueDB() error {
	if RunQueue == nil {
		return nil
	}
	err := RunQueue.Close()
	RunQueue = nil
	return err
}

// Enqueue persists run until Dequeue is called for its ID
func Enqueue(run QueuedRun) error {
	if RunQueue == nil {
		return ErrNotOpen
	}
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode queued run %s: %w", run.ID, err)
	}
	return RunQueue.Add(run.ID, data)
}

func Dequeue(id string) error {
	if RunQueue == nil {
		return ErrNotOpen
	}
	return RunQueue.Delete(id)
}

// Pending returns the queued runs in submission order
func Pending() ([]QueuedRun, error) {
	if RunQueue == nil {
		return nil, ErrNotOpen
	}
	entries, err := RunQueue.List()
	if err != nil {
		return nil, err
	}

	runs := make([]QueuedRun, 0, len(entries))
	for _, e := range entries {
		var run QueuedRun
		if err := json.Unmarshal(e.Value, &run); err != nil {
			continue
		}
		runs = append(runs, run)
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].SubmittedAt.Before(runs[j].SubmittedAt)
	})
	return runs, nil
}
