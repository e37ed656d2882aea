package encoder

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/gen2brain/webp"
)

// EncodeNative encodes in-process with the bundled libwebp build
func EncodeNative(ctx context.Context, img image.Image, w io.Writer, o EncodeOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return webp.Encode(w, img, webp.Options{
		Quality: o.Quality,
		Method:  o.Method,
	})
}

// EncodeCWebP hands the image to the cwebp binary through a lossless PNG
// intermediate in a scratch directory
func EncodeCWebP(ctx context.Context, img image.Image, w io.Writer, o EncodeOptions) error {
	dir, err := os.MkdirTemp("", "webpconv-cwebp-*")
	if err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.webp")

	f, err := os.Create(in)
	if err != nil {
		return fmt.Errorf("create intermediate: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("write intermediate: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close intermediate: %w", err)
	}

	args := []string{
		"-quiet",
		"-q", fmt.Sprint(o.Quality),
		"-m", fmt.Sprint(o.Method),
		in, "-o", out,
	}
	cmd := exec.CommandContext(ctx, "cwebp", args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("cwebp: %w: %s", err, output)
	}

	res, err := os.Open(out)
	if err != nil {
		return err
	}
	defer res.Close()
	_, err = io.Copy(w, res)
	return err
}
