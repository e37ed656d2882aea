package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"webpconv/converter"
	"webpconv/logger"
	"webpconv/models"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last change before a run starts
const DefaultDebounce = 500 * time.Millisecond

// Watcher triggers a conversion whenever supported images appear or change
// under the input folder
type Watcher struct {
	opts     models.ConversionOptions
	debounce time.Duration
	watcher  *fsnotify.Watcher
	fire     chan struct{}
}

// New watches opts.InputFolder, and every subfolder when opts.IncludeSubfolders is set
func New(opts models.ConversionOptions, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		opts:     opts,
		debounce: debounce,
		watcher:  fsWatcher,
		fire:     make(chan struct{}, 1),
	}
	if err := w.addTree(opts.InputFolder); err != nil {
		fsWatcher.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	if !w.opts.IncludeSubfolders {
		if err := w.watcher.Add(root); err != nil {
			return fmt.Errorf("failed to watch folder %s: %w", root, err)
		}
		logger.Debugf("Watching folder: %s", root)
		return nil
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch folder %s: %w", path, err)
		}
		logger.Debugf("Watching folder: %s", path)
		return nil
	})
}

// relevant reports whether ev may change the outcome of a run
func relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(ev.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return converter.IsSupported(ev.Name)
}

// Run calls convert once, then again after every debounced batch of changes,
// until ctx is done. Calls never overlap.
func (w *Watcher) Run(ctx context.Context, convert func(context.Context)) error {
	convert(ctx)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) && w.opts.IncludeSubfolders {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(ev.Name); err != nil {
						logger.Warnf("Watcher: %v", err)
					}
					continue
				}
			}
			if !relevant(ev) {
				continue
			}
			logger.Debugf("Change detected: %s", ev.Name)
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case w.fire <- struct{}{}:
				default:
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("Watcher error: %v", err)

		case <-w.fire:
			convert(ctx)
		}
	}
}

// Close stops watching
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
