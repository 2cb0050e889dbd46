// Package geometry holds the pure zoom, fit and offset maths shared by the
// viewport and the gesture arbiter.
package geometry

import (
	"math"
	"strconv"
)

const (
	MinZoom = 1.0 / 128.0
	MaxZoom = 16.0

	// MinMagnifyZoom is the floor applied by pinch/magnify gestures only.
	MinMagnifyZoom = 0.25

	// MaxFitZoom caps fit-to-window when the view is larger than the image.
	MaxFitZoom = 4.0

	// OffsetMargin is how much of the image stays inside the view when it
	// is dragged against an edge.
	OffsetMargin = 15.0

	MinSplit = 0.05
	MaxSplit = 0.95

	// PassThroughColors means "keep the original, do not quantize".
	PassThroughColors = 257
	MinColors         = 2
	MaxColors         = 256
)

type Point struct {
	X float64
	Y float64
}

func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Dist returns the euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

type Size struct {
	W float64
	H float64
}

// Empty reports whether either dimension is not positive.
func (s Size) Empty() bool { return s.W <= 0 || s.H <= 0 }

// Scale returns s multiplied by z on both axes.
func (s Size) Scale(z float64) Size { return Size{W: s.W * z, H: s.H * z} }

// Rect is an axis-aligned rectangle given by its minimum corner and size.
type Rect struct {
	Min  Point
	Size Size
}

func (r Rect) Max() Point { return Point{X: r.Min.X + r.Size.W, Y: r.Min.Y + r.Size.H} }

// Contains reports whether p lies in r, edges included.
func (r Rect) Contains(p Point) bool {
	max := r.Max()
	return p.X >= r.Min.X && p.Y >= r.Min.Y && p.X <= max.X && p.Y <= max.Y
}

// SliderToZoom maps the non-linear zoom slider to a zoom factor. Values
// below 3 select fractions (1/4, 1/3, 1/2), 3 and above select integer
// magnifications.
func SliderToZoom(s float64) float64 {
	if s < 3 {
		return 1 / (4 - s)
	}
	return s - 2
}

// ZoomToSlider is the inverse of SliderToZoom.
func ZoomToSlider(z float64) float64 {
	if z < 1 {
		return math.Max(0, 4-1/z)
	}
	return z + 2
}

var fractionLabels = [3]string{"½×", "⅓×", "¼×"}

// ZoomLabel renders z for display: "4×" for magnifications, a fraction
// for reductions. Anything below a quarter shows as "¼×".
func ZoomLabel(z float64) string {
	if z >= 1 {
		return strconv.Itoa(int(z)) + "×"
	}
	idx := int(math.Round(1/z)) - 2
	if idx < 0 {
		idx = 0
	}
	if idx > 2 {
		idx = 2
	}
	return fractionLabels[idx]
}

// FitScale returns the zoom that fits image into view, multiplied by
// factor. Fits above 1 are floored and capped at MaxFitZoom so small images
// land on a whole magnification; fits at or below 1 pass through. ok is
// false when either size is empty.
func FitScale(image, view Size, factor float64) (zoom float64, ok bool) {
	if image.Empty() || view.Empty() {
		return 0, false
	}
	z := math.Min(view.W/image.W, view.H/image.H) * factor
	if z > 1 {
		z = math.Min(MaxFitZoom, math.Floor(z))
	}
	return z, true
}

// ClampOffset keeps at least OffsetMargin units of the image visible on
// each axis.
func ClampOffset(offset Point, image, view Size, zoom float64) Point {
	w := (view.W + image.W*zoom) / 2
	h := (view.H + image.H*zoom) / 2
	return Point{
		X: clamp(offset.X, -w+OffsetMargin, w-OffsetMargin),
		Y: clamp(offset.Y, -h+OffsetMargin, h-OffsetMargin),
	}
}

// ClampZoom limits z to [MinZoom, MaxZoom].
func ClampZoom(z float64) float64 {
	return clamp(z, MinZoom, MaxZoom)
}

// ClampSplit limits a divider fraction to [MinSplit, MaxSplit].
func ClampSplit(f float64) float64 {
	return clamp(f, MinSplit, MaxSplit)
}

// ImageFrame is the on-screen rectangle of an image of the given size,
// centred in view and shifted by offset.
func ImageFrame(image, view Size, zoom float64, offset Point) Rect {
	scaled := image.Scale(zoom)
	return Rect{
		Min: Point{
			X: offset.X + view.W/2 - scaled.W/2,
			Y: offset.Y + view.H/2 - scaled.H/2,
		},
		Size: scaled,
	}
}

// HitRect is the grab area around an image. It never shrinks below 50
// units on either axis so tiny zoomed-out images stay grabbable.
func HitRect(image, view Size, zoom float64, offset Point) Rect {
	w := math.Max(50, image.W*zoom+15) / 2
	h := math.Max(50, image.H*zoom+15) / 2
	cx := offset.X + view.W/2
	cy := offset.Y + view.H/2
	return Rect{
		Min:  Point{X: cx - w, Y: cy - h},
		Size: Size{W: 2 * w, H: 2 * h},
	}
}

// BitDepthSlider maps a colour count to the 1..9 bit-depth slider, where 9
// stands for pass-through.
func BitDepthSlider(colors int) float64 {
	if colors > MaxColors {
		return 9
	}
	if colors <= MinColors {
		return 1
	}
	return math.Log2(float64(colors))
}

// ColorsForBitDepth is the setter side of BitDepthSlider.
func ColorsForBitDepth(v float64) int {
	depth := int(math.Round(v))
	switch {
	case depth > 8:
		return PassThroughColors
	case depth <= 1:
		return MinColors
	default:
		return int(math.Round(math.Pow(2, float64(depth))))
	}
}

// ClampColors limits a colour count to [MinColors, PassThroughColors].
func ClampColors(n int) int {
	if n < MinColors {
		return MinColors
	}
	if n > PassThroughColors {
		return PassThroughColors
	}
	return n
}

// ColorsLabel is the user-facing colour count, "24-bit" for pass-through.
func ColorsLabel(colors int) string {
	if colors > MaxColors {
		return "24-bit"
	}
	return strconv.Itoa(colors)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
