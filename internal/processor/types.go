package processor

import (
	"imgalpha/internal/document"
	"imgalpha/internal/engine"
	"imgalpha/pkg/imgutil"
)

type Mode int

const (
	ModeInfo Mode = iota
	ModeQuantize
)

type Options struct {
	Mode      Mode
	Quantize  engine.Options
	Engine    engine.Engine
	InPlace   bool
	OutputDir string
}

type Job struct {
	Path    string
	RelPath string
	Display string
}

type Result struct {
	Path       string
	RelPath    string
	Display    string
	Supported  bool
	Err        error
	BytesSaved int64
	Report     FileReport
}

type Summary struct {
	Total      int
	Processed  int
	Errors     int
	Quantized  int
	BytesSaved int64
}

// FileReport describes one supported image. Output fields are only set in
// ModeQuantize.
type FileReport struct {
	Path         string
	Kind         imgutil.Kind
	Width        int
	Height       int
	Colors       int
	Size         int64
	Metadata     document.Metadata
	OutputPath   string
	OutputSize   int64
	OutputColors int
	Err          error
}

type ProgressUpdate struct {
	TotalDelta      int
	ProcessedDelta  int
	ErrorDelta      int
	QuantizedDelta  int
	BytesSavedDelta int64
}
