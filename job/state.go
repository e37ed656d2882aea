package job

import (
	"fmt"
	"time"

	"webpconv/models"
)

// JobState represents the current state of a run
type JobState int

const (
	JobStatePending JobState = iota
	JobStateProcessing
	JobStateCompleted
	JobStateFailed
	JobStateCancelled
)

func (s JobState) String() string {
	switch s {
	case JobStatePending:
		return "pending"
	case JobStateProcessing:
		return "processing"
	case JobStateCompleted:
		return "completed"
	case JobStateFailed:
		return "failed"
	case JobStateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func (s JobState) Finished() bool {
	return s == JobStateCompleted || s == JobStateFailed || s == JobStateCancelled
}

func (s JobState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *JobState) UnmarshalText(text []byte) error {
	for st := JobStatePending; st <= JobStateCancelled; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown job state %q", text)
}

// Snapshot is a point-in-time copy of a run
type Snapshot struct {
	ID            string                      `json:"id"`
	State         JobState                    `json:"state"`
	Options       models.ConversionOptions    `json:"options"`
	Publish       bool                        `json:"publish,omitempty"`
	SubmittedAt   time.Time                   `json:"submitted_at"`
	StartedAt     time.Time                   `json:"started_at,omitzero"`
	FinishedAt    time.Time                   `json:"finished_at,omitzero"`
	Summary       *models.ConversionSummary   `json:"summary,omitempty"`
	Error         string                      `json:"error,omitempty"`
	Published     int                         `json:"published,omitempty"`
	PublishFailed int                         `json:"publish_failed,omitempty"`
	Events        []models.ConversionProgress `json:"events,omitempty"`
}
