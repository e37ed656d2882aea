package converter

import (
	"fmt"
	"os"
	"strings"

	"webpconv/models"
)

// Validate rejects options that cannot produce a run. The only file system
// access is a stat of the input folder.
func Validate(opts models.ConversionOptions) error {
	if strings.TrimSpace(opts.InputFolder) == "" {
		return fmt.Errorf("%w: path is empty", ErrInvalidInput)
	}
	info, err := os.Stat(opts.InputFolder)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s does not exist or is not a directory", ErrInvalidInput, opts.InputFolder)
	}

	if strings.TrimSpace(opts.OutputFolder) == "" {
		return fmt.Errorf("%w: path is empty", ErrInvalidOutput)
	}

	if opts.Quality < 1 || opts.Quality > 100 {
		return fmt.Errorf("%w: got %d", ErrInvalidQuality, opts.Quality)
	}

	if opts.MaxWidth < 0 || opts.MaxHeight < 0 {
		return fmt.Errorf("%w: got %dx%d", ErrInvalidDimensions, opts.MaxWidth, opts.MaxHeight)
	}
	return nil
}
