package document

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"

	"imgalpha/pkg/imgutil"
)

var pngSignature = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}

// Metadata summarises the identifying metadata found in a source file.
// Quantized output is a fresh PNG, so none of it survives an export.
type Metadata struct {
	HasGPS       bool
	GPSCount     int
	HasModel     bool
	HasTimestamp bool
	SerialCount  int
	TextChunks   int
}

// Categories lists the kinds of metadata present.
func (m Metadata) Categories() []string {
	cats := []string{}
	if m.HasGPS {
		cats = append(cats, "GPS")
	}
	if m.HasModel {
		cats = append(cats, "Device Model")
	}
	if m.HasTimestamp {
		cats = append(cats, "Timestamp")
	}
	if m.SerialCount > 0 {
		cats = append(cats, "Serial Number")
	}
	return cats
}

// ScanMetadata inspects rs according to kind. Files without metadata
// return a zero Metadata and no error.
func ScanMetadata(rs io.ReadSeeker, kind imgutil.Kind) (Metadata, error) {
	switch kind {
	case imgutil.KindPNG:
		return scanPNG(rs)
	case imgutil.KindJPEG, imgutil.KindTIFF, imgutil.KindWebP:
		return scanExif(rs)
	default:
		return Metadata{}, nil
	}
}

// ScanBytes is ScanMetadata for an in-memory file.
func ScanBytes(data []byte) (Metadata, error) {
	kind, err := imgutil.SniffReader(bytes.NewReader(data))
	if err != nil {
		return Metadata{}, err
	}
	return ScanMetadata(bytes.NewReader(data), kind)
}

func scanExif(rs io.ReadSeeker) (Metadata, error) {
	m := Metadata{}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return m, err
	}

	tags, _, err := exif.GetFlatExifDataUniversalSearchWithReadSeeker(rs, nil, true)
	if err != nil {
		if isNoExif(err) {
			return m, nil
		}
		return m, err
	}
	applyExifTags(&m, tags)
	return m, nil
}

func applyExifTags(m *Metadata, tags []exif.ExifTag) {
	for _, tag := range tags {
		name := tag.TagName
		if strings.HasPrefix(name, "GPS") || strings.Contains(tag.IfdPath, "GPS") {
			m.HasGPS = true
			m.GPSCount++
		}
		switch name {
		case "Model", "Make", "CameraModelName":
			m.HasModel = true
		case "DateTimeOriginal", "DateTimeDigitized", "DateTime":
			m.HasTimestamp = true
		}
		if strings.Contains(strings.ToLower(name), "serial") {
			m.SerialCount++
		}
	}
}

func isNoExif(err error) bool {
	if errors.Is(err, exif.ErrNoExif) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no exif")
}

func scanPNG(rs io.ReadSeeker) (Metadata, error) {
	m := Metadata{}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return m, err
	}
	br := bufio.NewReader(rs)

	sig := make([]byte, len(pngSignature))
	if _, err := io.ReadFull(br, sig); err != nil {
		return m, err
	}
	if !bytes.Equal(sig, pngSignature) {
		return m, errors.New("invalid PNG signature")
	}

	head := make([]byte, 8)
	for {
		if _, err := io.ReadFull(br, head); err != nil {
			if errors.Is(err, io.EOF) {
				return m, nil
			}
			return m, err
		}
		length := int64(binary.BigEndian.Uint32(head[:4]))
		chunk := string(head[4:8])

		switch chunk {
		case "tEXt", "zTXt", "iTXt", "eXIf":
			data := make([]byte, length)
			if _, err := io.ReadFull(br, data); err != nil {
				return m, err
			}
			if _, err := br.Discard(4); err != nil {
				return m, err
			}
			if chunk == "eXIf" {
				if tags, _, err := exif.GetFlatExifData(data, nil); err == nil {
					applyExifTags(&m, tags)
				}
				continue
			}
			m.TextChunks++
			if key, _, ok := bytes.Cut(data, []byte{0}); ok && len(key) > 0 {
				applyTextKey(&m, string(key))
			}
		case "tIME":
			m.HasTimestamp = true
			if _, err := io.CopyN(io.Discard, br, length+4); err != nil {
				return m, err
			}
		default:
			if _, err := io.CopyN(io.Discard, br, length+4); err != nil {
				return m, err
			}
		}

		if chunk == "IEND" {
			return m, nil
		}
	}
}

func applyTextKey(m *Metadata, key string) {
	lower := strings.ToLower(key)
	if strings.Contains(lower, "gps") || strings.Contains(lower, "latitude") || strings.Contains(lower, "longitude") {
		m.HasGPS = true
	}
	if strings.Contains(lower, "model") || strings.Contains(lower, "make") {
		m.HasModel = true
	}
	if strings.Contains(lower, "date") || strings.Contains(lower, "time") {
		m.HasTimestamp = true
	}
	if strings.Contains(lower, "serial") {
		m.SerialCount++
	}
}
