// Package gesture turns raw pointer and touch input into mutually
// exclusive viewport interactions.
package gesture

import (
	"imgalpha/internal/geometry"
	"imgalpha/internal/viewport"
)

const (
	// ExportThreshold is how far a press on the image must travel before
	// it turns into a drag-out export.
	ExportThreshold = 4.0

	showOriginalTouches = 3
)

// Handler is implemented by the owner of the arbiter. It is called on the
// same goroutine that feeds events.
type Handler interface {
	// ExportBytes returns the latest encoded result, nil if none.
	ExportBytes() []byte
	// Export starts a drag-out with data.
	Export(data []byte)
	// BackgroundMovable reports whether the background can be repositioned.
	BackgroundMovable() bool
	MoveBackground(delta geometry.Point)
	// ShowOriginalChanged is called when a transient override starts or ends.
	ShowOriginalChanged(show bool)
}

type Arbiter struct {
	view    *viewport.Viewport
	handler Handler
	session Session

	buttonOverride bool
	touchOverride  bool
	overridden     bool
}

func New(view *viewport.Viewport, handler Handler) *Arbiter {
	return &Arbiter{view: view, handler: handler}
}

// Session returns the current interaction. Kind is KindNone between
// interactions.
func (a *Arbiter) Session() Session { return a.session }

// Handle feeds one event.
func (a *Arbiter) Handle(ev Event) {
	switch ev := ev.(type) {
	case Down:
		a.down(ev)
	case Move:
		a.move(ev)
	case Up:
		a.up(ev)
	case Touches:
		a.touches(ev)
	case Scroll:
		if ev.DeltaY > 0 {
			a.view.ZoomIn()
		} else if ev.DeltaY < 0 {
			a.view.ZoomOut()
		}
	case Magnify:
		a.view.Magnify(ev.Amount)
	}
}

func (a *Arbiter) down(ev Down) {
	if ev.Button != ButtonPrimary {
		a.setButtonOverride(true)
		return
	}

	a.session = Session{}
	if ev.Clicks&3 == 2 {
		a.view.ToggleFit()
		return
	}

	a.session = Session{Kind: a.classify(ev), Start: ev.At, Last: ev.At}
}

// classify picks the session kind for a press. The order matters: the
// split divider wins, then the background, then drag-out, then pan.
func (a *Arbiter) classify(ev Down) Kind {
	if a.view.NearDivider(ev.At.X) {
		return KindSplit
	}

	inside := a.view.HitTest(ev.At)
	if a.handler.BackgroundMovable() {
		outside := !inside
		if ev.Mods.Inverting() {
			outside = !outside
		}
		if outside {
			return KindBackground
		}
	}

	if inside && len(a.handler.ExportBytes()) > 0 {
		return KindExportPending
	}
	return KindPan
}

func (a *Arbiter) move(ev Move) {
	s := &a.session
	if s.Kind == KindNone {
		return
	}
	delta := ev.At.Sub(s.Last)
	s.Last = ev.At

	switch s.Kind {
	case KindSplit:
		a.view.SetSplitAt(ev.At.X)
	case KindBackground:
		a.handler.MoveBackground(delta)
	case KindPan:
		a.view.PanBy(delta)
	case KindExportPending:
		if ev.At.Dist(s.Start) <= ExportThreshold {
			return
		}
		data := a.handler.ExportBytes()
		if len(data) == 0 {
			return
		}
		s.Kind = KindExportActive
		a.handler.Export(data)
	}
}

func (a *Arbiter) up(ev Up) {
	if ev.Button != ButtonPrimary {
		a.setButtonOverride(false)
		return
	}
	a.session = Session{}
}

func (a *Arbiter) touches(ev Touches) {
	show := ev.Stationary >= showOriginalTouches
	if show == a.touchOverride {
		return
	}
	a.touchOverride = show
	a.applyOverride()
}

func (a *Arbiter) setButtonOverride(on bool) {
	if on == a.buttonOverride {
		return
	}
	a.buttonOverride = on
	a.applyOverride()
}

func (a *Arbiter) applyOverride() {
	on := a.buttonOverride || a.touchOverride
	if on == a.overridden {
		return
	}
	a.overridden = on
	a.view.SetOverride(on)
	a.handler.ShowOriginalChanged(on)
}
