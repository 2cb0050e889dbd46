// Package engine wraps the palette quantizer behind a small cancellable
// interface.
package engine

import (
	"bytes"
	"context"
	"image"
	"image/draw"
	"image/png"

	"github.com/nfnt/resize"
	"github.com/soniakeys/quant/median"
)

const (
	// minOpacity is the alpha at or above which restricted-alpha mode
	// rounds a pixel to fully opaque.
	minOpacity = 65

	// minSampleEdge keeps palette sampling meaningful on small images.
	minSampleEdge = 64
)

// MedianCut quantizes with a median-cut palette and optional
// Floyd-Steinberg dithering, and encodes the result as PNG.
type MedianCut struct{}

func (MedianCut) Quantize(ctx context.Context, src *image.NRGBA, opts Options) (Result, error) {
	if src == nil || src.Bounds().Empty() {
		return Result{}, &Error{Kind: ErrCreateImage}
	}
	opts = opts.Normalize()
	if opts.Colors > 256 {
		return Result{}, &Error{Kind: ErrQuantize, Code: CodeValueOutOfRange}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	work := src
	if opts.RestrictedAlpha {
		work = RestrictAlpha(src, minOpacity)
	}

	sample := paletteSample(work, opts.Speed)
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	palette := median.Quantizer(opts.Colors).Paletted(sample).Palette
	if len(palette) == 0 {
		return Result{}, &Error{Kind: ErrQuantize, Code: CodeQualityTooLow}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	bounds := work.Bounds()
	dst := image.NewPaletted(bounds, palette)
	var drawer draw.Drawer = draw.Src
	if opts.Dithered {
		drawer = draw.FloydSteinberg
	}
	drawer.Draw(dst, bounds, work, bounds.Min)
	if len(dst.Pix) < bounds.Dx()*bounds.Dy() {
		return Result{}, &Error{Kind: ErrRemap, Code: CodeBufferTooSmall}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	encoded, err := EncodePNG(dst)
	if err != nil {
		return Result{}, err
	}

	return Result{Image: dst, Encoded: encoded, Colors: len(palette)}, nil
}

// EncodePNG writes img as a maximally compressed PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, &Error{Kind: ErrEncode, Err: err}
	}
	return buf.Bytes(), nil
}

// paletteSample returns the image the palette is built from. Higher speeds
// sample a smaller copy; remapping always uses the full image.
func paletteSample(img *image.NRGBA, speed int) image.Image {
	if speed <= 1 {
		return img
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	long := w
	if h > long {
		long = h
	}
	target := long / speed
	if target < minSampleEdge {
		target = minSampleEdge
	}
	if target >= long {
		return img
	}
	if w >= h {
		return resize.Resize(uint(target), 0, img, resize.NearestNeighbor)
	}
	return resize.Resize(0, uint(target), img, resize.NearestNeighbor)
}
