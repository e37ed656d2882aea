package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"webpconv/config"
	"webpconv/converter"
	"webpconv/failures"
	"webpconv/logger"
	"webpconv/models"
	"webpconv/success"
	"webpconv/writerbackends"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/google/uuid"
)

// runReport is what convert and watch print after a finished run
type runReport struct {
	RunID         string                      `json:"run_id"`
	Options       models.ConversionOptions    `json:"options"`
	Summary       models.ConversionSummary    `json:"summary"`
	Duration      string                      `json:"duration"`
	Failures      []models.ConversionProgress `json:"failures,omitempty"`
	Published     int                         `json:"published,omitempty"`
	PublishFailed int                         `json:"publish_failed,omitempty"`
}

func runConvert(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	flags := addConversionFlags(fs)
	configPath := fs.String("config", "", "settings file (YAML)")
	publish := fs.Bool("publish", false, "upload converted files to the configured publish backend")
	noHistory := fs.Bool("no-history", false, "do not record the run in the history store")
	jsonOut := fs.Bool("json", false, "print JSON output")

	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	flags.markSet(fs)

	settings, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	opts := flags.resolve(settings.Defaults)
	if *flags.input == "" {
		if !stdinIsTTY() {
			return errors.New("--input is required in non-interactive mode")
		}
		fmt.Fprintln(stdout, titleStyle.Render("=== Batch image to WebP converter ==="))
		opts, err = promptOptions(newPrompter(os.Stdin, stdout), opts)
		if err != nil {
			return err
		}
	}

	encode, err := selectEncoder(settings.Encoder)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runID := uuid.NewString()
	collector := &converter.Collector{}
	sinks := converter.MultiSink{collector}
	if !*jsonOut {
		sinks = append(sinks, printSink(stdout, false))
	}

	var publisher *writerbackends.Publisher
	if *publish {
		target, err := publishTarget(settings.Publish)
		if err != nil {
			return err
		}
		publisher = writerbackends.NewPublisher(ctx, target, opts.OutputFolder)
		sinks = append(sinks, publisher)
	}

	notifier, err := connectNotifier(ctx, settings.Redis)
	if err != nil {
		return err
	}
	if notifier != nil {
		defer notifier.Close()
		sinks = append(sinks, notifier.Sink(ctx, runID))
	}

	recorded := false
	if !*noHistory {
		closeHistory, err := openHistory()
		if err != nil {
			logger.Warnf("Run history disabled: %v", err)
		} else {
			defer closeHistory()
			recorded = true
			sinks = append(sinks, failures.Recorder(runID))
		}
	}

	summary, err := converter.New(encode).Run(ctx, opts, sinks)
	if err != nil {
		if converter.IsCancelled(err) {
			fmt.Fprintln(stdout, warnStyle.Render("cancelled"))
			return nil
		}
		return err
	}

	report := newReport(runID, opts, summary, collector, publisher)
	if recorded {
		record := success.RunRecord{ID: runID, Options: opts, Summary: summary, Published: report.Published}
		if err := success.StoreRun(record); err != nil {
			logger.Warnf("Failed to record run %s: %v", runID, err)
		}
	}

	if *jsonOut {
		return printJSON(report)
	}
	fmt.Fprintln(stdout)
	fmt.Fprint(stdout, renderReport(report))
	return nil
}

// promptOptions asks for every option, starting from defaults
func promptOptions(p *prompter, defaults models.ConversionOptions) (models.ConversionOptions, error) {
	opts := defaults

	input, err := p.required("Source folder: ")
	if err != nil {
		return opts, err
	}
	if info, statErr := os.Stat(input); statErr != nil || !info.IsDir() {
		return opts, fmt.Errorf("folder %s does not exist", input)
	}
	opts.InputFolder = input

	output, err := p.line("Output folder (blank uses the source folder): ")
	if err != nil {
		return opts, err
	}
	opts.OutputFolder = output
	if output == "" {
		opts.OutputFolder = input
	}

	if opts.Quality < 1 || opts.Quality > 100 {
		opts.Quality = models.DefaultQuality
	}
	if opts.Quality, err = p.quality(fmt.Sprintf("WebP quality (1-100, default %d): ", opts.Quality), opts.Quality); err != nil {
		return opts, err
	}

	if opts.IncludeSubfolders, err = p.yesNo("Include subfolders? "+yesNoHint(opts.IncludeSubfolders), opts.IncludeSubfolders); err != nil {
		return opts, err
	}
	if opts.OverwriteExisting, err = p.yesNo("Overwrite existing files? "+yesNoHint(opts.OverwriteExisting), opts.OverwriteExisting); err != nil {
		return opts, err
	}

	if opts.MaxWidth, err = p.limit("Max width (pixels, blank for no limit): "); err != nil {
		return opts, err
	}
	if opts.MaxHeight, err = p.limit("Max height (pixels, blank for no limit): "); err != nil {
		return opts, err
	}
	return opts, nil
}

func yesNoHint(def bool) string {
	if def {
		return "(Y/n): "
	}
	return "(y/N): "
}

// printSink writes one line per progress event
func printSink(w io.Writer, hideSkipped bool) converter.Sink {
	return converter.SinkFunc(func(p models.ConversionProgress) {
		if hideSkipped && p.State == models.StateSkipped {
			return
		}
		fmt.Fprintf(w, "%s -> %s: %s - %s\n", p.InputFileName, p.OutputFileName, styleState(p.State), p.Message)
	})
}

func styleState(s models.ConversionState) string {
	switch s {
	case models.StateSucceeded:
		return okStyle.Render(s.String())
	case models.StateFailed:
		return errorStyle.Render(s.String())
	case models.StateSkipped:
		return mutedStyle.Render(s.String())
	default:
		return s.String()
	}
}

func newReport(runID string, opts models.ConversionOptions, summary models.ConversionSummary, events *converter.Collector, publisher *writerbackends.Publisher) runReport {
	report := runReport{
		RunID:    runID,
		Options:  opts,
		Summary:  summary,
		Duration: summary.Duration().Round(time.Millisecond).String(),
	}
	for _, ev := range events.Events() {
		if ev.State == models.StateFailed {
			report.Failures = append(report.Failures, ev)
		}
	}
	if publisher != nil {
		report.Published, report.PublishFailed = publisher.Stats()
	}
	return report
}

func renderReport(r runReport) string {
	headers := []string{"Total", "Converted", "Skipped", "Failed", "Duration"}
	row := []string{
		strconv.Itoa(r.Summary.Total),
		strconv.Itoa(r.Summary.Converted),
		strconv.Itoa(r.Summary.Skipped),
		strconv.Itoa(r.Summary.Failed),
		r.Duration,
	}
	if r.Published > 0 || r.PublishFailed > 0 {
		headers = append(headers, "Published")
		row = append(row, fmt.Sprintf("%d/%d", r.Published, r.Published+r.PublishFailed))
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return titleStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...).
		Row(row...)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Conversion summary"))
	b.WriteString("\n")
	b.WriteString(t.String())
	b.WriteString("\n")
	if len(r.Failures) > 0 {
		b.WriteString(errorStyle.Render("Failed files:"))
		b.WriteString("\n")
		for _, f := range r.Failures {
			fmt.Fprintf(&b, "  %s: %s\n", f.InputFileName, f.Message)
		}
	}
	return b.String()
}
