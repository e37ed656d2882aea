package converter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"webpconv/models"
)

// OutputExtension replaces the source extension of every converted file
const OutputExtension = ".webp"

// FilePaths are the resolved locations for one file of a run
type FilePaths struct {
	Input         string // absolute source path
	Output        string // absolute destination path
	InputDisplay  string // relative to the input root, forward slashes
	OutputDisplay string // relative to the output root, forward slashes
}

// MapPaths mirrors input's position below the input folder into the output
// folder and swaps the extension for .webp
func MapPaths(opts models.ConversionOptions, input string) (FilePaths, error) {
	inRoot, err := filepath.Abs(opts.InputFolder)
	if err != nil {
		return FilePaths{}, fmt.Errorf("resolve input folder: %w", err)
	}
	outRoot, err := filepath.Abs(opts.OutputFolder)
	if err != nil {
		return FilePaths{}, fmt.Errorf("resolve output folder: %w", err)
	}
	absInput, err := filepath.Abs(input)
	if err != nil {
		return FilePaths{}, fmt.Errorf("resolve %s: %w", input, err)
	}

	rel, err := filepath.Rel(inRoot, absInput)
	if err != nil {
		return FilePaths{}, fmt.Errorf("relative path of %s: %w", input, err)
	}
	outRel := strings.TrimSuffix(rel, filepath.Ext(rel)) + OutputExtension

	return FilePaths{
		Input:         absInput,
		Output:        filepath.Join(outRoot, outRel),
		InputDisplay:  filepath.ToSlash(rel),
		OutputDisplay: filepath.ToSlash(outRel),
	}, nil
}

// EnsureDir creates the parent directory of the output file
func (p FilePaths) EnsureDir() error {
	dir := filepath.Dir(p.Output)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory %s: %w", dir, err)
	}
	return nil
}

func (p FilePaths) progress(state models.ConversionState, message string) models.ConversionProgress {
	return models.ConversionProgress{
		InputFileName:  p.InputDisplay,
		OutputFileName: p.OutputDisplay,
		State:          state,
		Message:        message,
	}
}
