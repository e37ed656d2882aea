package converter

import (
	"context"
	"fmt"
	"image"
	"math"

	"webpconv/encoder"
	"webpconv/models"

	"github.com/disintegration/imaging"
	"github.com/google/renameio/v2"
)

// ConvertFile decodes in, shrinks it to the configured bounds and writes it
// to out as WebP, replacing any existing file atomically
func (c *Converter) ConvertFile(ctx context.Context, in, out string, opts models.ConversionOptions) error {
	img, err := imaging.Open(in)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}

	img = resizeToFit(img, opts.MaxWidth, opts.MaxHeight)

	pending, err := renameio.NewPendingFile(out, renameio.WithPermissions(0644))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	defer pending.Cleanup()

	encOpts := encoder.EncodeOptions{Quality: opts.Quality, Method: c.method}
	if err := c.encode(ctx, img, pending, encOpts); err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

// resizeToFit scales img down uniformly so it fits maxW x maxH. A zero bound
// leaves that axis unconstrained; images are never enlarged.
func resizeToFit(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	w, h, ok := FitWithin(b.Dx(), b.Dy(), maxW, maxH)
	if !ok {
		return img
	}
	return imaging.Resize(img, w, h, imaging.CatmullRom)
}

// FitWithin computes the target size for a w x h image under the bounds.
// ok is false when the image already fits.
func FitWithin(w, h, maxW, maxH int) (tw, th int, ok bool) {
	if (maxW <= 0 && maxH <= 0) || w <= 0 || h <= 0 {
		return w, h, false
	}
	if maxW <= 0 {
		maxW = w
	}
	if maxH <= 0 {
		maxH = h
	}

	ratio := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	if ratio >= 1 {
		return w, h, false
	}

	tw = max(1, int(math.RoundToEven(float64(w)*ratio)))
	th = max(1, int(math.RoundToEven(float64(h)*ratio)))
	return tw, th, true
}
