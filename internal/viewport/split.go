package viewport

import (
	"math"

	"imgalpha/internal/geometry"
)

// DividerTolerance is how close, in view units, a pointer must be to the
// split divider to grab it.
const DividerTolerance = 8.0

// SetCompare turns split-compare on or off. Turning it on keeps a previous
// divider position, starting at the middle the first time.
func (v *Viewport) SetCompare(on bool) {
	if on && !v.splitOn {
		if v.split == 0 {
			v.split = 0.5
		}
		v.split = geometry.ClampSplit(v.split)
	}
	v.splitOn = on
}

// Comparing reports whether split-compare is active.
func (v *Viewport) Comparing() bool { return v.splitOn }

// Split returns the divider fraction and whether a divider is shown.
func (v *Viewport) Split() (float64, bool) {
	if !v.splitOn {
		return 0, false
	}
	return v.split, true
}

// SetSplit moves the divider to fraction f of the view width, clamped.
func (v *Viewport) SetSplit(f float64) {
	if math.IsNaN(f) {
		return
	}
	v.split = geometry.ClampSplit(f)
}

// SetSplitAt moves the divider under a pointer at view x coordinate x.
// Pointers outside the view still land inside the clamp range.
func (v *Viewport) SetSplitAt(x float64) {
	if v.view.W <= 0 {
		v.SetSplit(geometry.MinSplit)
		return
	}
	v.SetSplit(x / v.view.W)
}

// DividerX is the divider's x position in view coordinates.
func (v *Viewport) DividerX() (float64, bool) {
	f, ok := v.Split()
	if !ok {
		return 0, false
	}
	return f * v.view.W, true
}

// NearDivider reports whether x is within DividerTolerance of the divider.
func (v *Viewport) NearDivider(x float64) bool {
	dx, ok := v.DividerX()
	if !ok {
		return false
	}
	return math.Abs(x-dx) <= DividerTolerance
}

// SetShowOriginal sets the user's show-original toggle. It has no effect
// while comparing.
func (v *Viewport) SetShowOriginal(show bool) {
	if v.splitOn {
		return
	}
	v.showOriginal = show
}

// ShowOriginalToggle returns the toggle state, ignoring any override.
func (v *Viewport) ShowOriginalToggle() bool { return v.showOriginal }

// SetOverride forces the original on screen for the duration of a
// transient gesture. Clearing it restores whatever the toggle says.
func (v *Viewport) SetOverride(on bool) { v.override = on }

// ShowingOriginal reports which image fills the frame outside a split.
func (v *Viewport) ShowingOriginal() bool {
	return v.override || v.showOriginal
}

// Layout is everything a renderer needs for one frame.
type Layout struct {
	View  geometry.Size
	Frame geometry.Rect
	Zoom  float64
	// Original selects the original image for the whole frame.
	Original bool
	// Split is set while comparing; pixels left of DividerX show the
	// original and pixels right of it the processed image, both inside
	// the same Frame.
	Split    bool
	DividerX float64
}

// Layout snapshots the current render geometry.
func (v *Viewport) Layout() Layout {
	l := Layout{
		View:     v.view,
		Frame:    v.Frame(),
		Zoom:     v.zoom,
		Original: v.ShowingOriginal(),
	}
	if x, ok := v.DividerX(); ok {
		l.Split = true
		l.DividerX = x
		l.Original = v.override
	}
	return l
}

// SourceAt reports whether a renderer should sample the original at view x.
func (l Layout) SourceAt(x float64) (original bool) {
	if l.Split && !l.Original {
		return x < l.DividerX
	}
	return l.Original
}
