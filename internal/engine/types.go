package engine

import (
	"context"
	"image"
)

const (
	DefaultColors = 256
	DefaultSpeed  = 3
	MinSpeed      = 1
	MaxSpeed      = 10

	// passThrough is the colour count that means "use the original".
	passThrough = 257
)

// Options is an immutable snapshot of the user's quantization settings.
type Options struct {
	Colors          int
	Dithered        bool
	RestrictedAlpha bool
	Speed           int
}

// DefaultOptions mirrors a fresh document: 256 colours, no dithering,
// full alpha, speed 3.
func DefaultOptions() Options {
	return Options{Colors: DefaultColors, Speed: DefaultSpeed}
}

// PassThrough reports whether the options ask for the original image.
func (o Options) PassThrough() bool {
	return o.Colors > 256
}

// Normalize clamps every field into its valid range.
func (o Options) Normalize() Options {
	if o.Colors < 2 {
		o.Colors = 2
	}
	if o.Colors > passThrough {
		o.Colors = passThrough
	}
	if o.Speed < MinSpeed || o.Speed > MaxSpeed {
		o.Speed = DefaultSpeed
	}
	return o
}

// Result is what a successful quantization produces.
type Result struct {
	Image   image.Image
	Encoded []byte
	Colors  int
}

// Engine turns a straight-alpha pixel buffer into a quantized image and its
// encoded bytes. Implementations should return ctx.Err() when cancelled but
// are not required to stop promptly.
type Engine interface {
	Quantize(ctx context.Context, src *image.NRGBA, opts Options) (Result, error)
}

// Func adapts a plain function to the Engine interface.
type Func func(ctx context.Context, src *image.NRGBA, opts Options) (Result, error)

func (f Func) Quantize(ctx context.Context, src *image.NRGBA, opts Options) (Result, error) {
	return f(ctx, src, opts)
}
