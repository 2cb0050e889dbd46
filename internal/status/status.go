// Package status builds the one-line summary shown under the viewport.
package status

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	Idle       = "To get started, open a PNG image"
	Processing = "Processing..."
)

var printer = message.NewPrinter(language.English)

// Line describes the sizes that go into a status summary. Zero values for
// SourceSize and SourceColors mean "unknown".
type Line struct {
	DerivedSize  int64
	SourceSize   int64
	SourceColors int
	ColorsLabel  string
}

// Format renders l. With both source figures known the line compares the
// two sides; with only a source size the derived side is elided; with no
// source size only the derived side is shown.
func Format(l Line) string {
	switch {
	case l.SourceSize > 0 && l.SourceColors > 0:
		return printer.Sprintf("Original: %d colours, %d bytes. %s (%s).",
			l.SourceColors, l.SourceSize, quantized(l), delta(l.DerivedSize, l.SourceSize))
	case l.SourceSize > 0:
		return printer.Sprintf("Original: %d bytes. Quantized: ...", l.SourceSize)
	default:
		return quantized(l) + "."
	}
}

// Error turns a failure into status text.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return "Error: " + err.Error()
}

func quantized(l Line) string {
	if l.ColorsLabel == "" {
		return printer.Sprintf("Quantized: %d bytes", l.DerivedSize)
	}
	return printer.Sprintf("Quantized: %s colours, %d bytes", l.ColorsLabel, l.DerivedSize)
}

func delta(derived, source int64) string {
	diff := derived - source
	if diff < 0 {
		diff = -diff
	}
	pct := diff * 100 / source
	if derived <= source {
		return printer.Sprintf("%d%% smaller", pct)
	}
	return printer.Sprintf("%d%% bigger", pct)
}
