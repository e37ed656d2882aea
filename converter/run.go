package converter

import (
	"context"
	"fmt"
	"os"
	"time"

	"webpconv/encoder"
	"webpconv/logger"
	"webpconv/models"
)

// Progress messages attached to per-file events
const (
	MessageSkipped    = "already exists, skipped"
	MessageConverting = "converting"
	MessageDone       = "done"
)

// Converter runs folder conversions with one encoder backend
type Converter struct {
	encode encoder.EncodeFunc
	method int
}

// New returns a Converter using encode, or the in-process encoder when nil
func New(encode encoder.EncodeFunc) *Converter {
	if encode == nil {
		encode = encoder.EncodeNative
	}
	return &Converter{encode: encode, method: encoder.DefaultMethod}
}

// Run converts every supported file below opts.InputFolder and returns the
// run summary. Configuration problems are returned before any file is
// touched. A cancelled ctx yields an error wrapping ErrCancelled and no
// summary. Cancellation is only observed between files.
func (c *Converter) Run(ctx context.Context, opts models.ConversionOptions, sink Sink) (models.ConversionSummary, error) {
	if err := Validate(opts); err != nil {
		return models.ConversionSummary{}, err
	}
	return c.run(ctx, opts, sink)
}

// tally accumulates counts for a single run; only the run goroutine touches it
type tally struct {
	total, converted, skipped, failed int
	startedAt                         time.Time
}

func (t *tally) count(state models.ConversionState) {
	switch state {
	case models.StateSucceeded:
		t.converted++
	case models.StateSkipped:
		t.skipped++
	case models.StateFailed:
		t.failed++
	}
}

func (t *tally) freeze() models.ConversionSummary {
	return models.ConversionSummary{
		Total:       t.total,
		Converted:   t.converted,
		Skipped:     t.skipped,
		Failed:      t.failed,
		StartedAt:   t.startedAt,
		CompletedAt: time.Now(),
	}
}

func (c *Converter) run(ctx context.Context, opts models.ConversionOptions, sink Sink) (models.ConversionSummary, error) {
	if sink == nil {
		sink = NopSink
	}
	if err := checkCancelled(ctx); err != nil {
		logger.Infof("Conversion of %s cancelled before start", opts.InputFolder)
		return models.ConversionSummary{}, err
	}

	acc := &tally{startedAt: time.Now()}

	files, err := Enumerate(opts)
	if err != nil {
		return models.ConversionSummary{}, err
	}
	acc.total = len(files)
	logger.Infof("Converting %d files from %s to %s (quality=%d)", acc.total, opts.InputFolder, opts.OutputFolder, opts.Quality)

	if err := os.MkdirAll(opts.OutputFolder, 0755); err != nil {
		return models.ConversionSummary{}, fmt.Errorf("create output folder %s: %w", opts.OutputFolder, err)
	}

	for _, file := range files {
		if err := checkCancelled(ctx); err != nil {
			logger.Infof("Conversion of %s cancelled after %d of %d files", opts.InputFolder,
				acc.converted+acc.skipped+acc.failed, acc.total)
			return models.ConversionSummary{}, err
		}

		paths, err := MapPaths(opts, file)
		if err != nil {
			return models.ConversionSummary{}, err
		}
		if err := paths.EnsureDir(); err != nil {
			return models.ConversionSummary{}, err
		}

		acc.count(c.processFile(ctx, paths, opts, sink))
	}

	summary := acc.freeze()
	logger.Infof("Conversion finished: total=%d converted=%d skipped=%d failed=%d in %v",
		summary.Total, summary.Converted, summary.Skipped, summary.Failed, summary.Duration())
	return summary, nil
}

// processFile drives one file through Pending → Skipped | Processing → Succeeded | Failed
// and returns the terminal state
func (c *Converter) processFile(ctx context.Context, paths FilePaths, opts models.ConversionOptions, sink Sink) models.ConversionState {
	if !opts.OverwriteExisting {
		if _, err := os.Stat(paths.Output); err == nil {
			deliver(sink, paths.progress(models.StateSkipped, MessageSkipped))
			return models.StateSkipped
		}
	}

	deliver(sink, paths.progress(models.StateProcessing, MessageConverting))

	// a file that has started always runs to completion; cancellation is seen at the next boundary
	if err := c.ConvertFile(context.WithoutCancel(ctx), paths.Input, paths.Output, opts); err != nil {
		logger.Warnf("Failed to convert %s: %v", paths.InputDisplay, err)
		deliver(sink, paths.progress(models.StateFailed, err.Error()))
		return models.StateFailed
	}

	deliver(sink, paths.progress(models.StateSucceeded, MessageDone))
	return models.StateSucceeded
}

// Handle tracks a run executing in the background
type Handle struct {
	cancel  context.CancelFunc
	done    chan struct{}
	summary models.ConversionSummary
	err     error
}

// Start validates opts synchronously and then runs the conversion on its own
// goroutine. Configuration errors are returned here, never through the Handle.
func (c *Converter) Start(ctx context.Context, opts models.ConversionOptions, sink Sink) (*Handle, error) {
	if err := Validate(opts); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		defer cancel()
		h.summary, h.err = c.run(runCtx, opts, sink)
	}()
	return h, nil
}

// Done is closed when the run has finished, failed or been cancelled
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the run ends and returns its outcome
func (h *Handle) Wait() (models.ConversionSummary, error) {
	<-h.done
	return h.summary, h.err
}

// Cancel asks the run to stop at the next file boundary
func (h *Handle) Cancel() {
	h.cancel()
}
