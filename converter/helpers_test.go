package converter

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"testing"

	"webpconv/encoder"
	"webpconv/models"

	"github.com/disintegration/imaging"
	xwebp "golang.org/x/image/webp"
)

// fixture holds a fresh input/output folder pair per test
type fixture struct {
	in, out string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()
	f := fixture{in: filepath.Join(root, "input"), out: filepath.Join(root, "output")}
	if err := os.MkdirAll(f.in, 0755); err != nil {
		t.Fatalf("create input folder: %v", err)
	}
	return f
}

func (f fixture) options() models.ConversionOptions {
	opts := models.DefaultOptions()
	opts.InputFolder = f.in
	opts.OutputFolder = f.out
	return opts
}

// image writes a solid w x h image; the encoding follows the file extension
func (f fixture) image(t *testing.T, name string, w, h int) string {
	t.Helper()
	path := filepath.Join(f.in, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("create dir for %s: %v", name, err)
	}
	img := imaging.New(w, h, color.NRGBA{R: 255, A: 255})
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("save %s: %v", name, err)
	}
	return path
}

func (f fixture) file(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(f.in, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("create dir for %s: %v", name, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func (f fixture) output(name string) string {
	return filepath.Join(f.out, filepath.FromSlash(name))
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func webpSize(t *testing.T, path string) (int, int) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	cfg, err := xwebp.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode webp config of %s: %v", path, err)
	}
	return cfg.Width, cfg.Height
}

func checkTotals(t *testing.T, s models.ConversionSummary) {
	t.Helper()
	if s.Total != s.Converted+s.Skipped+s.Failed {
		t.Errorf("total %d != converted %d + skipped %d + failed %d", s.Total, s.Converted, s.Skipped, s.Failed)
	}
}

// gateEncoder blocks each encode until released and reports when it starts
type gateEncoder struct {
	started chan string
	release chan struct{}
}

func newGateEncoder() *gateEncoder {
	return &gateEncoder{started: make(chan string, 16), release: make(chan struct{})}
}

func (g *gateEncoder) encode(ctx context.Context, img image.Image, w io.Writer, opts encoder.EncodeOptions) error {
	g.started <- "encode"
	<-g.release
	return encoder.EncodeNative(ctx, img, w, opts)
}
