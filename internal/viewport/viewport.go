// Package viewport owns zoom, pan, fit mode and split-compare state for one
// processed/original image pair, and turns that state into render
// geometry.
package viewport

import (
	"math"

	"imgalpha/internal/geometry"
)

// Viewport is not safe for concurrent use; it belongs to the UI loop.
type Viewport struct {
	view     geometry.Size
	original geometry.Size
	display  geometry.Size

	zoom   float64
	offset geometry.Point
	// fill is the fit factor while fitting to the window, 0 for an
	// explicit zoom.
	fill float64

	split   float64
	splitOn bool

	showOriginal bool
	override     bool
}

// New returns a viewport in fit mode with no images.
func New() *Viewport {
	return &Viewport{zoom: 1, fill: 1}
}

func (v *Viewport) Zoom() float64          { return v.zoom }
func (v *Viewport) Offset() geometry.Point { return v.offset }
func (v *Viewport) View() geometry.Size    { return v.view }

// Filling reports whether the zoom follows the window size.
func (v *Viewport) Filling() bool { return v.fill != 0 }

// FillFactor is the active fit factor, 0 when an explicit zoom is set.
func (v *Viewport) FillFactor() float64 { return v.fill }

// HasImage reports whether either image slot is occupied.
func (v *Viewport) HasImage() bool {
	return !v.original.Empty() || !v.display.Empty()
}

// imageSize is the size every layout uses. The original wins so that
// toggling between the two images never moves the frame.
func (v *Viewport) imageSize() geometry.Size {
	if !v.original.Empty() {
		return v.original
	}
	return v.display
}

// SetView applies a new view size, re-fitting in fit mode and re-clamping
// the offset otherwise.
func (v *Viewport) SetView(size geometry.Size) {
	v.view = size
	if v.fill != 0 {
		v.ZoomToFill(v.fill)
		return
	}
	v.clampOffset()
}

// SetOriginal installs a new original image. The offset resets and the
// viewport re-enters fit mode at factor 1. A zero size clears the slot.
func (v *Viewport) SetOriginal(size geometry.Size) {
	v.original = size
	v.offset = geometry.Point{}
	v.ZoomToFill(1)
}

// SetDisplay installs a new processed image without touching the user's
// pan or zoom, except to re-fit while filling.
func (v *Viewport) SetDisplay(size geometry.Size) {
	v.display = size
	if v.fill != 0 {
		v.ZoomToFill(v.fill)
		return
	}
	v.clampOffset()
}

// SetZoom sets an explicit zoom and leaves fit mode.
func (v *Viewport) SetZoom(z float64) {
	v.fill = 0
	v.applyZoom(z)
}

// ZoomToFill enters fit mode with the given factor. Without an image or a
// view size only the mode changes.
func (v *Viewport) ZoomToFill(factor float64) {
	v.fill = factor
	z, ok := geometry.FitScale(v.imageSize(), v.view, factor)
	if !ok {
		return
	}
	v.applyZoom(z)
}

func (v *Viewport) ZoomIn()  { v.SetZoom(v.zoom * 2) }
func (v *Viewport) ZoomOut() { v.SetZoom(v.zoom / 2) }

// ToggleFit is the double-click action: recentre, then switch between 100%
// and fit-to-window.
func (v *Viewport) ToggleFit() {
	v.offset = geometry.Point{}
	if v.fill != 0 {
		v.SetZoom(1)
		return
	}
	v.ZoomToFill(1)
}

// Magnify applies a pinch delta. Above 1× the response is linear, below
// it is reciprocal, and crossing 1× in either direction stops exactly at
// 1×.
func (v *Viewport) Magnify(amount float64) {
	old := v.zoom
	var z float64
	if old+amount > 1 {
		z = (old/20 + amount/4) * 20
	} else {
		z = 1 / (1/old - amount)
	}
	if (z > 1 && old < 1) || (z < 1 && old > 1) {
		z = 1
	}
	v.SetZoom(math.Max(geometry.MinMagnifyZoom, z))
}

// PanBy moves the image by delta, keeping part of it inside the view.
func (v *Viewport) PanBy(delta geometry.Point) {
	if !v.HasImage() {
		return
	}
	v.offset = v.offset.Add(delta)
	v.clampOffset()
}

// SetOffset moves the image to an absolute offset, clamped.
func (v *Viewport) SetOffset(offset geometry.Point) {
	v.offset = offset
	v.clampOffset()
}

func (v *Viewport) applyZoom(z float64) {
	v.zoom = geometry.ClampZoom(z)
	v.clampOffset()
}

func (v *Viewport) clampOffset() {
	if !v.HasImage() {
		return
	}
	v.offset = geometry.ClampOffset(v.offset, v.imageSize(), v.view, v.zoom)
}

// Frame is the on-screen rectangle shared by both images.
func (v *Viewport) Frame() geometry.Rect {
	return geometry.ImageFrame(v.imageSize(), v.view, v.zoom, v.offset)
}

// HitTest reports whether p is on the image's grab area.
func (v *Viewport) HitTest(p geometry.Point) bool {
	size := v.display
	if size.Empty() {
		size = v.original
	}
	if size.Empty() {
		return false
	}
	return geometry.HitRect(size, v.view, v.zoom, v.offset).Contains(p)
}
