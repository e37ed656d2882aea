package encoder

import (
	"context"
	"image"
	"io"
	"os/exec"
	"sort"
	"sync"

	"webpconv/logger"
)

// DefaultMethod is the balanced effort setting shared by libwebp based encoders (0=fast, 6=slowest)
const DefaultMethod = 4

// EncodeFunc is the function signature for any WebP encoder backend
type EncodeFunc func(ctx context.Context, img image.Image, w io.Writer, opts EncodeOptions) error

type EncodeOptions struct {
	Quality int // 1–100
	Method  int // encoder speed/efficiency tradeoff
}

var (
	// Registry maps backend name → encoder function
	Registry   = map[string]EncodeFunc{}
	registryMu sync.RWMutex
)

// Register adds a backend if the underlying command exists, logs status.
// An empty cmdName registers unconditionally.
func Register(name string, cmdName string, fn EncodeFunc) {
	if cmdName != "" {
		if _, err := exec.LookPath(cmdName); err != nil {
			logger.Warnf("encoder [%s] skipped: command '%s' not found in PATH", name, cmdName)
			return
		}
	}
	registryMu.Lock()
	Registry[name] = fn
	registryMu.Unlock()
	if cmdName == "" {
		logger.Debugf("encoder [%s] registered (no command required)", name)
	} else {
		logger.Debugf("encoder [%s] registered (command: %s)", name, cmdName)
	}
}

// Get looks up an encoder by backend name
func Get(name string) (EncodeFunc, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fn, ok := Registry[name]
	return fn, ok
}

// Names lists the registered backends
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterDefaults registers the in-process encoder and, when installed, cwebp
func RegisterDefaults() {
	Register("native", "", EncodeNative)
	Register("cwebp", "cwebp", EncodeCWebP)
}
