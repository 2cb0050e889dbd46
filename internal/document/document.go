// Package document loads source images for the pipeline and writes
// exported results.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"imgalpha/internal/engine"
	"imgalpha/internal/pipeline"
	"imgalpha/pkg/imgutil"
)

var ErrNoFiles = errors.New("no files to open")

// Load reads and decodes path. A decode failure returns an error and
// nothing else; callers keep their previous document.
func Load(path string) (*pipeline.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(filepath.Base(path), data)
}

// LoadFirst loads the first of a dropped list of paths and ignores the
// rest.
func LoadFirst(paths []string) (*pipeline.Source, error) {
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p != "" {
			return Load(p)
		}
	}
	return nil, ErrNoFiles
}

// Decode builds a source from encoded file bytes.
func Decode(name string, data []byte) (*pipeline.Source, error) {
	kind, err := imgutil.SniffReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if kind == imgutil.KindUnknown {
		return nil, fmt.Errorf("%s: unsupported image format", name)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: decode %s: %w", name, kind, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%s: image has no pixels", name)
	}

	pixels := engine.ToNRGBA(img)
	// Exports are always PNG, so a 24-bit export of any other format needs
	// its own encoding.
	encoded := data
	if kind != imgutil.KindPNG {
		if encoded, err = engine.EncodePNG(pixels); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return &pipeline.Source{
		Name:    name,
		Pixels:  pixels,
		Encoded: encoded,
		Size:    int64(len(data)),
		Colors:  engine.CountColors(pixels),
	}, nil
}

// ExportName is the file name an export of src is written under.
func ExportName(src *pipeline.Source) string {
	if src == nil || src.Name == "" {
		return "untitled.png"
	}
	base := strings.TrimSuffix(src.Name, filepath.Ext(src.Name))
	return base + ".png"
}
