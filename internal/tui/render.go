package tui

import (
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"
	xdraw "golang.org/x/image/draw"

	"imgalpha/internal/geometry"
	"imgalpha/internal/viewport"
)

// Background is what shows through transparent pixels.
type Background int

const (
	BackgroundChecker Background = iota
	BackgroundRed
	BackgroundGreen
	BackgroundBlue
	backgroundCount
)

// checkerCell is the size of one checkerboard square in view units.
const checkerCell = 8

func (b Background) String() string {
	switch b {
	case BackgroundRed:
		return "red"
	case BackgroundGreen:
		return "green"
	case BackgroundBlue:
		return "blue"
	default:
		return "checkerboard"
	}
}

// Movable reports whether the background follows drags.
func (b Background) Movable() bool { return b == BackgroundChecker }

func (b Background) next() Background { return (b + 1) % backgroundCount }

var solidBackgrounds = map[Background]colorful.Color{
	BackgroundRed:   {R: 1},
	BackgroundGreen: {G: 1},
	BackgroundBlue:  {B: 1},
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

var (
	checkerA = mustHex(checkerLight)
	checkerB = mustHex(checkerDark)
	divider  = mustHex(dividerHex)
	empty    = mustHex(emptyHex)
)

// Scene is everything drawn onto the canvas for one frame.
type Scene struct {
	Layout     viewport.Layout
	Original   image.Image
	Processed  image.Image
	Background Background
	// BackgroundOffset shifts the checkerboard.
	BackgroundOffset geometry.Point
}

// Composite renders s into an opaque RGBA image of the view size, one
// pixel per view unit.
func Composite(s Scene) *image.RGBA {
	w := int(math.Round(s.Layout.View.W))
	h := int(math.Round(s.Layout.View.H))
	canvas := image.NewRGBA(image.Rect(0, 0, max(w, 0), max(h, 0)))
	if canvas.Bounds().Empty() {
		return canvas
	}

	paintBackground(canvas, s)

	frame := frameRect(s.Layout.Frame)
	scaler := xdraw.Interpolator(xdraw.NearestNeighbor)
	if s.Layout.Zoom < 1 {
		scaler = xdraw.ApproxBiLinear
	}

	processed := s.Processed
	if processed == nil {
		processed = s.Original
	}

	switch {
	case s.Layout.Split && !s.Layout.Original:
		cut := int(math.Round(s.Layout.DividerX))
		left := canvas.Bounds().Intersect(image.Rect(math.MinInt32, math.MinInt32, cut, math.MaxInt32))
		right := canvas.Bounds().Intersect(image.Rect(cut, math.MinInt32, math.MaxInt32, math.MaxInt32))
		drawImage(canvas, left, frame, s.Original, scaler)
		drawImage(canvas, right, frame, processed, scaler)
		paintDivider(canvas, cut)
	case s.Layout.Original:
		drawImage(canvas, canvas.Bounds(), frame, s.Original, scaler)
	default:
		drawImage(canvas, canvas.Bounds(), frame, processed, scaler)
	}
	return canvas
}

func frameRect(r geometry.Rect) image.Rectangle {
	origin := image.Pt(int(math.Floor(r.Min.X)), int(math.Floor(r.Min.Y)))
	size := image.Pt(max(1, int(math.Round(r.Size.W))), max(1, int(math.Round(r.Size.H))))
	return image.Rectangle{Min: origin, Max: origin.Add(size)}
}

// drawImage scales img into frame, touching only the clip part of canvas.
func drawImage(canvas *image.RGBA, clip, frame image.Rectangle, img image.Image, scaler xdraw.Interpolator) {
	if img == nil || clip.Empty() {
		return
	}
	dst, ok := canvas.SubImage(clip).(*image.RGBA)
	if !ok {
		return
	}
	scaler.Scale(dst, frame, img, img.Bounds(), xdraw.Over, nil)
}

func paintBackground(canvas *image.RGBA, s Scene) {
	b := canvas.Bounds()
	if s.Original != nil || s.Processed != nil {
		if solid, ok := solidBackgrounds[s.Background]; ok {
			xdraw.Draw(canvas, b, image.NewUniform(toRGBA(solid)), image.Point{}, xdraw.Src)
			return
		}
		a, c := toRGBA(checkerA), toRGBA(checkerB)
		off := s.BackgroundOffset
		for y := b.Min.Y; y < b.Max.Y; y++ {
			cy := int(math.Floor((float64(y) - off.Y) / checkerCell))
			for x := b.Min.X; x < b.Max.X; x++ {
				cx := int(math.Floor((float64(x) - off.X) / checkerCell))
				if (cx+cy)&1 == 0 {
					canvas.SetRGBA(x, y, a)
				} else {
					canvas.SetRGBA(x, y, c)
				}
			}
		}
		return
	}
	xdraw.Draw(canvas, b, image.NewUniform(toRGBA(empty)), image.Point{}, xdraw.Src)
}

func paintDivider(canvas *image.RGBA, x int) {
	b := canvas.Bounds()
	if x < b.Min.X || x >= b.Max.X {
		x = min(max(x, b.Min.X), b.Max.X-1)
	}
	c := toRGBA(divider)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		canvas.SetRGBA(x, y, c)
	}
}

func toRGBA(c colorful.Color) color.RGBA {
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// HalfBlocks turns a canvas into terminal rows, two canvas rows per text
// row. Runs of identical cells share one style.
func HalfBlocks(canvas *image.RGBA) string {
	b := canvas.Bounds()
	var out strings.Builder
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		if y > b.Min.Y {
			out.WriteByte('\n')
		}
		var runTop, runBottom color.RGBA
		run := 0
		flush := func() {
			if run == 0 {
				return
			}
			style := lipgloss.NewStyle().
				Foreground(lipgloss.Color(hexOf(runTop))).
				Background(lipgloss.Color(hexOf(runBottom)))
			out.WriteString(style.Render(strings.Repeat("▀", run)))
			run = 0
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			top := canvas.RGBAAt(x, y)
			bottom := top
			if y+1 < b.Max.Y {
				bottom = canvas.RGBAAt(x, y+1)
			}
			if run > 0 && (top != runTop || bottom != runBottom) {
				flush()
			}
			runTop, runBottom = top, bottom
			run++
		}
		flush()
	}
	return out.String()
}

func hexOf(c color.RGBA) string {
	cc, _ := colorful.MakeColor(c)
	return cc.Hex()
}
