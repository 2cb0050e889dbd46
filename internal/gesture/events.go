package gesture

import "imgalpha/internal/geometry"

type Button int

const (
	ButtonPrimary Button = iota
	ButtonSecondary
	ButtonMiddle
)

type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModAlt
	ModCommand
)

// Inverting reports whether the modifiers flip the background/image
// decision.
func (m Modifiers) Inverting() bool {
	return m&(ModShift|ModAlt|ModCommand) != 0
}

// Event is one input from the pointer/touch stream.
type Event interface{ isEvent() }

type Down struct {
	At     geometry.Point
	Button Button
	Mods   Modifiers
	// Clicks is the click count within the double-click interval.
	Clicks int
}

type Move struct {
	At geometry.Point
}

type Up struct {
	At     geometry.Point
	Button Button
}

// Touches reports how many contacts are resting on a trackpad.
type Touches struct {
	Stationary int
}

type Scroll struct {
	DeltaY float64
}

type Magnify struct {
	Amount float64
}

func (Down) isEvent()    {}
func (Move) isEvent()    {}
func (Up) isEvent()      {}
func (Touches) isEvent() {}
func (Scroll) isEvent()  {}
func (Magnify) isEvent() {}

type Kind int

const (
	KindNone Kind = iota
	KindPan
	KindBackground
	KindSplit
	KindExportPending
	KindExportActive
)

func (k Kind) String() string {
	switch k {
	case KindPan:
		return "pan"
	case KindBackground:
		return "background"
	case KindSplit:
		return "split"
	case KindExportPending:
		return "export-pending"
	case KindExportActive:
		return "export"
	default:
		return "none"
	}
}

// Session is the state of one pointer-down..pointer-up interaction.
type Session struct {
	Kind  Kind
	Start geometry.Point
	Last  geometry.Point
}
