package converter

import (
	"context"
	"errors"
	"fmt"
)

// Configuration errors, returned before any conversion work starts
var (
	ErrInvalidInput      = errors.New("invalid input folder")
	ErrInvalidOutput     = errors.New("invalid output folder")
	ErrInvalidQuality    = errors.New("quality must be between 1 and 100")
	ErrInvalidDimensions = errors.New("maximum dimensions must not be negative")
)

// Per-file errors. They are reported as Failed progress events and never abort a run.
var (
	ErrDecode = errors.New("cannot decode image")
	ErrEncode = errors.New("cannot encode webp")
	ErrIO     = errors.New("cannot write output")
)

// ErrCancelled is returned instead of a summary when a run is stopped
// through its context. It always wraps the context error as well.
var ErrCancelled = errors.New("conversion cancelled")

// IsConfigError reports whether err came from option validation
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidOutput) ||
		errors.Is(err, ErrInvalidQuality) ||
		errors.Is(err, ErrInvalidDimensions)
}

// IsCancelled reports whether err is the cancellation outcome of a run
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

func checkCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return nil
}
