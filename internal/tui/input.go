package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"imgalpha/internal/geometry"
	"imgalpha/internal/gesture"
)

// doubleClickInterval bounds the gap between presses of a multi-click.
const doubleClickInterval = 400 * time.Millisecond

// mouseMapper converts terminal mouse reports on the canvas into gesture
// events. A text cell is one view unit wide and two tall, matching the
// half-block renderer.
type mouseMapper struct {
	now func() time.Time

	lastPress time.Time
	lastCell  [2]int
	clicks    int
	pressed   tea.MouseButton
}

func newMouseMapper() *mouseMapper {
	return &mouseMapper{now: time.Now}
}

func cellPoint(x, y int) geometry.Point {
	return geometry.Point{X: float64(x), Y: float64(y * 2)}
}

// Map returns the gesture event for msg, or nil when there is none. x and y
// are relative to the canvas origin.
func (mm *mouseMapper) Map(msg tea.MouseMsg, x, y int) gesture.Event {
	at := cellPoint(x, y)

	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			return gesture.Scroll{DeltaY: 1}
		case tea.MouseButtonWheelDown:
			return gesture.Scroll{DeltaY: -1}
		case tea.MouseButtonWheelLeft, tea.MouseButtonWheelRight:
			return nil
		}
		mm.pressed = msg.Button
		return gesture.Down{
			At:     at,
			Button: mapButton(msg.Button),
			Mods:   mapMods(msg),
			Clicks: mm.countClick(x, y),
		}
	case tea.MouseActionMotion:
		if mm.pressed == tea.MouseButtonNone {
			return nil
		}
		return gesture.Move{At: at}
	case tea.MouseActionRelease:
		// Some terminals report releases without a button.
		button := msg.Button
		if button == tea.MouseButtonNone {
			button = mm.pressed
		}
		mm.pressed = tea.MouseButtonNone
		return gesture.Up{At: at, Button: mapButton(button)}
	}
	return nil
}

func (mm *mouseMapper) countClick(x, y int) int {
	now := mm.now()
	cell := [2]int{x, y}
	if cell == mm.lastCell && now.Sub(mm.lastPress) <= doubleClickInterval {
		mm.clicks++
	} else {
		mm.clicks = 1
	}
	mm.lastPress = now
	mm.lastCell = cell
	return mm.clicks
}

func mapButton(b tea.MouseButton) gesture.Button {
	switch b {
	case tea.MouseButtonRight:
		return gesture.ButtonSecondary
	case tea.MouseButtonMiddle:
		return gesture.ButtonMiddle
	default:
		return gesture.ButtonPrimary
	}
}

func mapMods(msg tea.MouseMsg) gesture.Modifiers {
	var m gesture.Modifiers
	if msg.Shift {
		m |= gesture.ModShift
	}
	if msg.Alt {
		m |= gesture.ModAlt
	}
	if msg.Ctrl {
		m |= gesture.ModCommand
	}
	return m
}
