package engine

import (
	"image"
	"image/draw"
)

// ToNRGBA converts img to a straight-alpha buffer with its origin at 0,0.
// Premultiplied sources are un-premultiplied by the conversion.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Bounds().Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// RestrictAlpha returns a copy of src where every pixel with alpha at or
// above threshold is fully opaque.
func RestrictAlpha(src *image.NRGBA, threshold uint8) *image.NRGBA {
	dst := &image.NRGBA{
		Pix:    make([]uint8, len(src.Pix)),
		Stride: src.Stride,
		Rect:   src.Rect,
	}
	copy(dst.Pix, src.Pix)
	for i := 3; i < len(dst.Pix); i += 4 {
		if dst.Pix[i] >= threshold {
			dst.Pix[i] = 0xff
		}
	}
	return dst
}

// CountColors returns the number of distinct RGBA values in img.
func CountColors(img *image.NRGBA) int {
	b := img.Bounds()
	seen := make(map[uint32]struct{})
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		row := img.Pix[off : off+b.Dx()*4]
		for i := 0; i < len(row); i += 4 {
			key := uint32(row[i])<<24 | uint32(row[i+1])<<16 | uint32(row[i+2])<<8 | uint32(row[i+3])
			seen[key] = struct{}{}
		}
	}
	return len(seen)
}
