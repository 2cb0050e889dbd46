package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorInk       = lipgloss.Color("#E5E9F0")
	ColorDim       = lipgloss.Color("#7A8291")
	ColorAccent    = lipgloss.Color("#88C0D0")
	ColorAccentAlt = lipgloss.Color("#81A1C1")
	ColorSuccess   = lipgloss.Color("#A3BE8C")
	ColorWarn      = lipgloss.Color("#EBCB8B")
	ColorError     = lipgloss.Color("#BF616A")
	ColorPanel     = lipgloss.Color("#2E3440")
)

// Canvas colours, as hex for go-colorful.
const (
	checkerLight = "#CCCCCC"
	checkerDark  = "#999999"
	dividerHex   = "#EBCB8B"
	emptyHex     = "#1E222A"
)
