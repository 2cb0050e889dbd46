package engine

import "fmt"

type ErrorKind int

const (
	ErrCreateAttr ErrorKind = iota
	ErrCreateImage
	ErrQuantize
	ErrRemap
	ErrPixelData
	ErrEncode
)

// Error is an engine failure. Code carries the backend's own status value
// for the quantize and remap stages and is zero otherwise.
type Error struct {
	Kind ErrorKind
	Code int
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrCreateAttr:
		return "Failed to create quantization attributes"
	case ErrCreateImage:
		return "Failed to create quantization image"
	case ErrQuantize:
		return fmt.Sprintf("Quantization failed (%d)", e.Code)
	case ErrRemap:
		return fmt.Sprintf("Remapping failed (%d)", e.Code)
	case ErrPixelData:
		return "Failed to get pixel data from image"
	case ErrEncode:
		return "Failed to create PNG data"
	default:
		return "unknown engine error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Setup reports whether the failure happened before any pixels were
// processed.
func (e *Error) Setup() bool {
	return e.Kind == ErrCreateAttr || e.Kind == ErrCreateImage || e.Kind == ErrPixelData
}

// Backend status codes reported in Error.Code.
const (
	CodeOK              = 0
	CodeQualityTooLow   = 99
	CodeValueOutOfRange = 100
	CodeBufferTooSmall  = 104
)
