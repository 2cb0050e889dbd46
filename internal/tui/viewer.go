package tui

import (
	"fmt"
	"io"
	"log"
	"math"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"imgalpha/internal/document"
	"imgalpha/internal/engine"
	"imgalpha/internal/geometry"
	"imgalpha/internal/gesture"
	"imgalpha/internal/pipeline"
	"imgalpha/internal/viewport"
)

const (
	sidebarWidth = 30
	statusRows   = 1

	// panStep is how far an arrow key moves the image, in view units.
	panStep = 8
	// magnifyStep stands in for one pinch increment.
	magnifyStep = 0.1
)

type ViewerConfig struct {
	Pipeline  *pipeline.Pipeline
	Options   engine.Options
	OutputDir string
	// Open is loaded on start when set.
	Open   string
	Logger *log.Logger
}

// Viewer is the interactive editor. Its Update loop is the only place UI
// state changes; pipeline results arrive as messages.
type Viewer struct {
	pipe        *pipeline.Pipeline
	snaps       <-chan pipeline.Snapshot
	unsubscribe func()
	logger      *log.Logger
	outputDir   string
	open        string

	opts    engine.Options
	snap    pipeline.Snapshot
	view    *viewport.Viewport
	arbiter *gesture.Arbiter
	mouse   *mouseMapper

	background Background
	bgOffset   geometry.Point

	width  int
	height int

	prompting bool
	input     []rune

	notice        string
	noticeIsError bool
	pendingExport []byte
	quitting      bool
}

type snapshotMsg pipeline.Snapshot

type pipelineClosedMsg struct{}

type loadedMsg struct {
	src *pipeline.Source
	err error
}

type savedMsg struct {
	path string
	err  error
}

func NewViewer(cfg ViewerConfig) *Viewer {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	opts := cfg.Options
	if opts == (engine.Options{}) {
		opts = engine.DefaultOptions()
	}
	outputDir := cfg.OutputDir
	if outputDir == "" {
		outputDir = "."
	}

	v := &Viewer{
		pipe:      cfg.Pipeline,
		logger:    logger,
		outputDir: outputDir,
		open:      cfg.Open,
		opts:      opts.Normalize(),
		view:      viewport.New(),
		mouse:     newMouseMapper(),
	}
	v.arbiter = gesture.New(v.view, v)
	v.snaps, v.unsubscribe = cfg.Pipeline.Subscribe()
	v.pipe.SetOptions(v.opts)
	return v
}

// Options returns the options currently selected in the UI.
func (v *Viewer) Options() engine.Options { return v.opts }

func (v *Viewer) Init() tea.Cmd {
	cmds := []tea.Cmd{listenForSnapshots(v.snaps)}
	if v.open != "" {
		cmds = append(cmds, loadCmd([]string{v.open}))
	}
	return tea.Batch(cmds...)
}

func (v *Viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width, v.height = msg.Width, msg.Height
		v.view.SetView(v.canvasSize())
		return v, nil
	case snapshotMsg:
		v.applySnapshot(pipeline.Snapshot(msg))
		return v, listenForSnapshots(v.snaps)
	case pipelineClosedMsg:
		v.quitting = true
		return v, tea.Quit
	case loadedMsg:
		if msg.err != nil {
			v.logger.Printf("open failed: %v", msg.err)
			v.setNotice("Error: "+msg.err.Error(), true)
			return v, nil
		}
		v.logger.Printf("opened %s (%dx%d)", msg.src.Name, msg.src.Pixels.Bounds().Dx(), msg.src.Pixels.Bounds().Dy())
		v.setNotice("", false)
		v.pipe.SetSource(msg.src)
		return v, nil
	case savedMsg:
		if msg.err != nil {
			v.setNotice("Error: "+msg.err.Error(), true)
		} else {
			v.setNotice("Saved "+msg.path, false)
		}
		return v, nil
	case tea.MouseMsg:
		return v, v.handleMouse(msg)
	case tea.KeyMsg:
		if v.prompting {
			return v, v.handlePrompt(msg)
		}
		return v, v.handleKey(msg)
	}
	return v, nil
}

func (v *Viewer) applySnapshot(s pipeline.Snapshot) {
	if s.Source != v.snap.Source {
		var size geometry.Size
		if s.Source != nil {
			size = sizeOf(s.Source.Pixels.Bounds().Dx(), s.Source.Pixels.Bounds().Dy())
		}
		v.view.SetOriginal(size)
	}
	if s.Image != v.snap.Image {
		var size geometry.Size
		if s.Image != nil {
			size = sizeOf(s.Image.Bounds().Dx(), s.Image.Bounds().Dy())
		}
		v.view.SetDisplay(size)
	}
	v.snap = s
}

func sizeOf(w, h int) geometry.Size {
	return geometry.Size{W: float64(w), H: float64(h)}
}

func (v *Viewer) canvasSize() geometry.Size {
	cols := max(0, v.width-sidebarWidth)
	rows := max(0, v.height-statusRows)
	return geometry.Size{W: float64(cols), H: float64(rows * 2)}
}

func (v *Viewer) handleMouse(msg tea.MouseMsg) tea.Cmd {
	size := v.canvasSize()
	if msg.Action == tea.MouseActionPress && (msg.X >= int(size.W) || msg.Y*2 >= int(size.H)) {
		return nil
	}
	ev := v.mouse.Map(msg, msg.X, msg.Y)
	if ev == nil {
		return nil
	}
	v.arbiter.Handle(ev)

	if v.pendingExport == nil {
		return nil
	}
	data := v.pendingExport
	v.pendingExport = nil
	return saveCmd(v.exportPath(), data)
}

func (v *Viewer) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c", "q":
		v.quitting = true
		v.unsubscribe()
		return tea.Quit

	case "+", "=":
		v.view.ZoomIn()
	case "-", "_":
		v.view.ZoomOut()
	case "0":
		v.view.ToggleFit()
	case "1":
		v.view.SetZoom(1)
	case "z":
		v.stepZoomSlider(-1)
	case "Z":
		v.stepZoomSlider(1)
	case ">":
		v.arbiter.Handle(gesture.Magnify{Amount: magnifyStep})
	case "<":
		v.arbiter.Handle(gesture.Magnify{Amount: -magnifyStep})
	case "up":
		v.view.PanBy(geometry.Point{Y: -panStep})
	case "down":
		v.view.PanBy(geometry.Point{Y: panStep})
	case "left":
		v.view.PanBy(geometry.Point{X: -panStep})
	case "right":
		v.view.PanBy(geometry.Point{X: panStep})

	case "[":
		v.stepBitDepth(-1)
	case "]":
		v.stepBitDepth(1)
	case ",":
		v.setColors(v.opts.Colors - 1)
	case ".":
		v.setColors(v.opts.Colors + 1)
	case "d":
		v.opts.Dithered = !v.opts.Dithered
		v.pipe.SetOptions(v.opts)
	case "a":
		v.opts.RestrictedAlpha = !v.opts.RestrictedAlpha
		v.pipe.SetOptions(v.opts)

	case " ", "space":
		v.view.SetShowOriginal(!v.view.ShowOriginalToggle())
	case "c":
		v.view.SetCompare(!v.view.Comparing())
	case "b":
		v.background = v.background.next()

	case "o":
		v.prompting = true
		v.input = v.input[:0]
	case "s":
		if !v.snap.HasResult() {
			return nil
		}
		return saveCmd(v.exportPath(), v.snap.Encoded)
	}
	return nil
}

func (v *Viewer) handlePrompt(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter:
		v.prompting = false
		paths := splitPaths(string(v.input))
		if len(paths) == 0 {
			return nil
		}
		return loadCmd(paths)
	case tea.KeyEsc, tea.KeyCtrlC:
		v.prompting = false
	case tea.KeyBackspace:
		if len(v.input) > 0 {
			v.input = v.input[:len(v.input)-1]
		}
	case tea.KeySpace:
		v.input = append(v.input, ' ')
	case tea.KeyRunes:
		v.input = append(v.input, msg.Runes...)
	}
	return nil
}

// splitPaths breaks a pasted or typed list of paths apart. Terminals quote
// dropped paths that contain spaces.
func splitPaths(s string) []string {
	var paths []string
	for _, f := range strings.Fields(s) {
		if p := strings.Trim(f, `'"`); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

func (v *Viewer) stepZoomSlider(delta float64) {
	s := math.Round(geometry.ZoomToSlider(v.view.Zoom())) + delta
	s = math.Max(0, math.Min(geometry.ZoomToSlider(geometry.MaxZoom), s))
	v.view.SetZoom(geometry.SliderToZoom(s))
}

func (v *Viewer) stepBitDepth(delta float64) {
	depth := math.Round(geometry.BitDepthSlider(v.opts.Colors)) + delta
	depth = math.Max(1, math.Min(9, depth))
	v.setColors(geometry.ColorsForBitDepth(depth))
}

func (v *Viewer) setColors(n int) {
	n = geometry.ClampColors(n)
	if n == v.opts.Colors {
		return
	}
	v.opts.Colors = n
	v.pipe.SetOptions(v.opts)
}

func (v *Viewer) setNotice(s string, isErr bool) {
	v.notice = s
	v.noticeIsError = isErr
}

func (v *Viewer) exportPath() string {
	return filepath.Join(v.outputDir, document.ExportName(v.snap.Source))
}

// gesture.Handler

func (v *Viewer) ExportBytes() []byte { return v.snap.Encoded }

func (v *Viewer) Export(data []byte) {
	v.pendingExport = data
}

func (v *Viewer) BackgroundMovable() bool {
	return v.snap.Source != nil && v.background.Movable()
}

func (v *Viewer) MoveBackground(delta geometry.Point) {
	v.bgOffset = v.bgOffset.Add(delta)
}

func (v *Viewer) ShowOriginalChanged(show bool) {
	v.logger.Printf("show original override: %v", show)
}

func listenForSnapshots(snaps <-chan pipeline.Snapshot) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-snaps
		if !ok {
			return pipelineClosedMsg{}
		}
		return snapshotMsg(s)
	}
}

func loadCmd(paths []string) tea.Cmd {
	return func() tea.Msg {
		src, err := document.LoadFirst(paths)
		return loadedMsg{src: src, err: err}
	}
}

func saveCmd(path string, data []byte) tea.Cmd {
	return func() tea.Msg {
		return savedMsg{path: path, err: document.Save(path, data, 0)}
	}
}

func (v *Viewer) View() string {
	if v.quitting || v.width == 0 || v.height == 0 {
		return ""
	}

	size := v.canvasSize()
	scene := Scene{
		Layout:           v.view.Layout(),
		Processed:        v.snap.Image,
		Background:       v.background,
		BackgroundOffset: v.bgOffset,
	}
	if v.snap.Source != nil {
		scene.Original = v.snap.Source.Pixels
	}

	rows := int(size.H) / 2
	canvas := lipgloss.NewStyle().Width(int(size.W)).Height(rows).Render(HalfBlocks(Composite(scene)))
	body := lipgloss.JoinHorizontal(lipgloss.Top, canvas, v.sidebarView(rows))
	return lipgloss.JoinVertical(lipgloss.Left, body, v.statusView())
}

func (v *Viewer) sidebarView(height int) string {
	name := "No image"
	if v.snap.Source != nil {
		name = v.snap.Source.Name
	}

	zoom := geometry.ZoomLabel(v.view.Zoom())
	if v.view.Filling() {
		zoom += " (fit)"
	}
	mode := "processed"
	switch {
	case v.view.Comparing():
		mode = "compare"
	case v.view.ShowingOriginal():
		mode = "original"
	}

	lines := []string{
		sidebarTitleStyle.Render("imgalpha"),
		truncate(name, sidebarWidth-2),
		"",
		field("Colours", geometry.ColorsLabel(v.opts.Colors)),
		field("Depth", slider(geometry.BitDepthSlider(v.opts.Colors)-1, 8, 10)),
		field("Dither", onOff(v.opts.Dithered)),
		field("Alpha", alphaMode(v.opts.RestrictedAlpha)),
		field("Speed", fmt.Sprint(v.opts.Speed)),
		"",
		field("Zoom", zoom),
		field("", slider(geometry.ZoomToSlider(v.view.Zoom()), geometry.ZoomToSlider(geometry.MaxZoom), 10)),
		field("View", mode),
		field("Backdrop", v.background.String()),
		"",
		helpStyle.Render("o open   s save   q quit"),
		helpStyle.Render("[ ] depth   , . ±1"),
		helpStyle.Render("d dither   a alpha"),
		helpStyle.Render("+ - zoom   z Z steps"),
		helpStyle.Render("0 fit   1 actual"),
		helpStyle.Render("space original"),
		helpStyle.Render("c compare   b backdrop"),
	}
	return sidebarStyle.Height(max(height, 0)).Render(strings.Join(lines, "\n"))
}

func (v *Viewer) statusView() string {
	if v.prompting {
		return promptStyle.Render("Open: ") + labelStyle.Render(string(v.input)) + "█"
	}

	line := v.snap.Status
	style := statusStyle
	if v.snap.Err != nil {
		style = errorStyle
	}
	out := style.Render(line)
	if v.notice != "" {
		ns := noticeStyle
		if v.noticeIsError {
			ns = errorStyle
		}
		out += "  " + ns.Render(v.notice)
	}
	return lipgloss.NewStyle().MaxWidth(max(v.width, 1)).Render(out)
}

func field(label, value string) string {
	return fieldLabelStyle.Render(fmt.Sprintf("%-9s", label)) + labelStyle.Render(value)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func alphaMode(restricted bool) string {
	if restricted {
		return "restricted"
	}
	return "full"
}

// slider draws pos out of span as a bar width cells wide.
func slider(pos, span float64, width int) string {
	if span <= 0 {
		return strings.Repeat("─", width)
	}
	at := int(math.Round(pos / span * float64(width-1)))
	at = max(0, min(width-1, at))
	return strings.Repeat("─", at) + "●" + strings.Repeat("─", width-1-at)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

var (
	sidebarStyle      = lipgloss.NewStyle().Width(sidebarWidth).Padding(0, 1).Background(ColorPanel).Foreground(ColorInk)
	sidebarTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	fieldLabelStyle   = lipgloss.NewStyle().Foreground(ColorAccentAlt)
	helpStyle         = lipgloss.NewStyle().Foreground(ColorDim)
	statusStyle       = lipgloss.NewStyle().Foreground(ColorInk)
	noticeStyle       = lipgloss.NewStyle().Foreground(ColorSuccess)
	errorStyle        = lipgloss.NewStyle().Foreground(ColorError)
	promptStyle       = lipgloss.NewStyle().Bold(true).Foreground(ColorWarn)
)
