package models

import (
	"fmt"
	"time"
)

// ConversionOptions describes one folder conversion run. It is passed by value
// and never mutated once a run has started.
type ConversionOptions struct {
	InputFolder       string `json:"inputFolder" yaml:"input_folder"`
	OutputFolder      string `json:"outputFolder" yaml:"output_folder"`
	Quality           int    `json:"quality" yaml:"quality"` // 1–100
	OverwriteExisting bool   `json:"overwriteExisting" yaml:"overwrite_existing"`
	IncludeSubfolders bool   `json:"includeSubfolders" yaml:"include_subfolders"`
	MaxWidth          int    `json:"maxWidth,omitempty" yaml:"max_width"`   // 0 = unbounded
	MaxHeight         int    `json:"maxHeight,omitempty" yaml:"max_height"` // 0 = unbounded
}

// DefaultQuality is the WebP quality used when none is configured
const DefaultQuality = 85

// DefaultOptions returns the options the console front-end starts from
func DefaultOptions() ConversionOptions {
	return ConversionOptions{
		Quality:           DefaultQuality,
		IncludeSubfolders: true,
	}
}

// ConversionState is the lifecycle of a single file within a run
type ConversionState int

const (
	StatePending ConversionState = iota
	StateProcessing
	StateSucceeded
	StateSkipped
	StateFailed
)

func (s ConversionState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateProcessing:
		return "processing"
	case StateSucceeded:
		return "succeeded"
	case StateSkipped:
		return "skipped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further events follow for the file
func (s ConversionState) Terminal() bool {
	return s == StateSucceeded || s == StateSkipped || s == StateFailed
}

// MarshalText lets states travel as strings in JSON payloads
func (s ConversionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ConversionState) UnmarshalText(text []byte) error {
	for st := StatePending; st <= StateFailed; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown conversion state %q", text)
}

// ConversionProgress is a single per-file status event. File names are paths
// relative to the input/output roots using forward slashes.
type ConversionProgress struct {
	InputFileName  string          `json:"inputFileName"`
	OutputFileName string          `json:"outputFileName"`
	State          ConversionState `json:"state"`
	Message        string          `json:"message"`
}

// ConversionSummary is the frozen result of a completed run
type ConversionSummary struct {
	Total       int       `json:"total"`
	Converted   int       `json:"converted"`
	Skipped     int       `json:"skipped"`
	Failed      int       `json:"failed"`
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`
}

// Duration is the wall time between run start and completion
func (s ConversionSummary) Duration() time.Duration {
	return s.CompletedAt.Sub(s.StartedAt)
}
