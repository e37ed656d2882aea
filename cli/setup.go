package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"webpconv/config"
	"webpconv/credentials"
	"webpconv/encoder"
	"webpconv/failures"
	"webpconv/models"
	"webpconv/notify"
	"webpconv/success"
	"webpconv/writerbackends"
)

// conversionFlags are the option flags shared by convert and watch
type conversionFlags struct {
	input      *string
	output     *string
	quality    *int
	overwrite  *bool
	subfolders *bool
	maxWidth   *int
	maxHeight  *int

	set map[string]bool
}

func addConversionFlags(fs *flag.FlagSet) *conversionFlags {
	return &conversionFlags{
		input:      fs.String("input", "", "folder with the source images"),
		output:     fs.String("output", "", "destination folder (default: the input folder)"),
		quality:    fs.Int("quality", 0, "WebP quality 1-100 (default from config, else 85)"),
		overwrite:  fs.Bool("overwrite", false, "replace existing .webp files"),
		subfolders: fs.Bool("subfolders", true, "include subfolders and mirror them in the output"),
		maxWidth:   fs.Int("max-width", 0, "maximum output width in pixels (0 = no limit)"),
		maxHeight:  fs.Int("max-height", 0, "maximum output height in pixels (0 = no limit)"),
	}
}

// markSet records which flags were given explicitly. Call after Parse.
func (f *conversionFlags) markSet(fs *flag.FlagSet) {
	f.set = map[string]bool{}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
}

// resolve layers explicit flags over defaults. A blank output folder means
// the input folder.
func (f *conversionFlags) resolve(defaults models.ConversionOptions) models.ConversionOptions {
	opts := defaults
	if *f.input != "" {
		opts.InputFolder = *f.input
	}
	if *f.output != "" {
		opts.OutputFolder = *f.output
	}
	if f.set["quality"] {
		opts.Quality = *f.quality
	}
	if f.set["overwrite"] {
		opts.OverwriteExisting = *f.overwrite
	}
	if f.set["subfolders"] {
		opts.IncludeSubfolders = *f.subfolders
	}
	if f.set["max-width"] {
		opts.MaxWidth = *f.maxWidth
	}
	if f.set["max-height"] {
		opts.MaxHeight = *f.maxHeight
	}

	if opts.Quality == 0 {
		opts.Quality = models.DefaultQuality
	}
	if strings.TrimSpace(opts.OutputFolder) == "" {
		opts.OutputFolder = opts.InputFolder
	}
	return opts
}

func selectEncoder(name string) (encoder.EncodeFunc, error) {
	encoder.RegisterDefaults()
	encode, ok := encoder.Get(name)
	if !ok {
		return nil, fmt.Errorf("encoder %q is not available (have: %s)", name, strings.Join(encoder.Names(), ", "))
	}
	return encode, nil
}

// publishTarget resolves the configured target. Stored credentials are read
// once and the credentials store is closed again.
func publishTarget(cfg config.PublishConfig) (writerbackends.Target, error) {
	if !cfg.Enabled() {
		return writerbackends.Target{}, errors.New("no publish backend configured")
	}

	settings := cfg.Settings
	if cfg.CredentialsKey != "" {
		if err := credentials.OpenDB(config.GetCredentialsDBPath()); err != nil {
			return writerbackends.Target{}, err
		}
		defer credentials.CloseDB()
	}
	info, err := credentials.Merge(cfg.CredentialsKey, settings)
	if err != nil {
		return writerbackends.Target{}, fmt.Errorf("load credentials %q: %w", cfg.CredentialsKey, err)
	}
	return writerbackends.Target{Backend: cfg.Backend, Prefix: cfg.Prefix, AccessInfo: info}, nil
}

// connectNotifier returns nil when no Redis address is configured
func connectNotifier(ctx context.Context, cfg config.RedisConfig) (*notify.Notifier, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	return notify.NewNotifier(ctx, notify.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		Channel:  cfg.Channel,
	})
}

// openHistory opens the success and failure stores under the data dir
func openHistory() (func(), error) {
	if err := os.MkdirAll(config.GetDataDir(), 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if err := success.Init(config.GetSuccessDBPath()); err != nil {
		return nil, err
	}
	if err := failures.Init(config.GetFailuresDBPath()); err != nil {
		success.Close()
		return nil, err
	}
	return func() {
		failures.Close()
		success.Close()
	}, nil
}
