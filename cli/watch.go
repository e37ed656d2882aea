package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"webpconv/config"
	"webpconv/converter"
	"webpconv/logger"
	"webpconv/watch"
	"webpconv/writerbackends"

	"github.com/google/uuid"
)

func runWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	flags := addConversionFlags(fs)
	configPath := fs.String("config", "", "settings file (YAML)")
	debounce := fs.Duration("debounce", 0, "quiet period after the last change before converting (default from config)")
	publish := fs.Bool("publish", false, "upload converted files to the configured publish backend")

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
	if opts.InputFolder == "" {
		return errors.New("--input is required")
	}
	if err := converter.Validate(opts); err != nil {
		return err
	}

	encode, err := selectEncoder(settings.Encoder)
	if err != nil {
		return err
	}

	var target *writerbackends.Target
	if *publish {
		t, err := publishTarget(settings.Publish)
		if err != nil {
			return err
		}
		target = &t
	}

	wait := *debounce
	if wait == 0 {
		wait = time.Duration(settings.Watch.DebounceMillis) * time.Millisecond
	}
	w, err := watch.New(opts, wait)
	if err != nil {
		return err
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier, err := connectNotifier(ctx, settings.Redis)
	if err != nil {
		return err
	}
	if notifier != nil {
		defer notifier.Close()
	}

	c := converter.New(encode)
	fmt.Fprintln(stdout, titleStyle.Render("Watching "+opts.InputFolder), mutedStyle.Render("(Ctrl+C to stop)"))

	err = w.Run(ctx, func(ctx context.Context) {
		runID := uuid.NewString()
		collector := &converter.Collector{}
		sinks := converter.MultiSink{collector, printSink(stdout, true)}
		var publisher *writerbackends.Publisher
		if target != nil {
			publisher = writerbackends.NewPublisher(ctx, *target, opts.OutputFolder)
			sinks = append(sinks, publisher)
		}
		if notifier != nil {
			sinks = append(sinks, notifier.Sink(ctx, runID))
		}

		summary, err := c.Run(ctx, opts, sinks)
		if err != nil {
			if !converter.IsCancelled(err) {
				logger.Errorf("Watch run failed: %v", err)
			}
			return
		}
		// nothing new since the last pass
		if summary.Converted == 0 && summary.Failed == 0 {
			return
		}
		fmt.Fprint(stdout, renderReport(newReport(runID, opts, summary, collector, publisher)))
	})
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(stdout, warnStyle.Render("stopped"))
		return nil
	}
	return err
}
