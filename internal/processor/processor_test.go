package processor

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"imgalpha/internal/engine"
	"imgalpha/pkg/imgutil"
)

func TestInfoReportsImages(t *testing.T) {
	dir := t.TempDir()
	if err := buildPNGWithMetadata(filepath.Join(dir, "sample.png")); err != nil {
		t.Fatalf("build PNG: %v", err)
	}
	if err := buildJPEGWithExif(filepath.Join(dir, "nested", "broken.jpg")); err != nil {
		t.Fatalf("build JPEG: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not an image at all"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	summary, reports, err := Run(context.Background(), dir, Options{Mode: ModeInfo}, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Total != 2 || summary.Errors != 1 || summary.Quantized != 0 {
		t.Fatalf("summary %+v", summary)
	}
	if len(reports) != 2 {
		t.Fatalf("reports %+v", reports)
	}

	// Sorted by path: the nested JPEG first.
	jpeg, pngReport := reports[0], reports[1]
	if jpeg.Kind != imgutil.KindJPEG || jpeg.Err == nil {
		t.Fatalf("expected JPEG decode failure, got %+v", jpeg)
	}
	if !jpeg.Metadata.HasModel || !jpeg.Metadata.HasTimestamp {
		t.Fatalf("expected JPEG metadata, got %+v", jpeg.Metadata)
	}

	if pngReport.Path != "sample.png" || pngReport.Err != nil {
		t.Fatalf("png report %+v", pngReport)
	}
	if pngReport.Width != 1 || pngReport.Height != 1 || pngReport.Colors != 1 {
		t.Fatalf("png dims %+v", pngReport)
	}
	if !pngReport.Metadata.HasModel || !pngReport.Metadata.HasTimestamp {
		t.Fatalf("png metadata %+v", pngReport.Metadata)
	}
	if pngReport.OutputPath != "" {
		t.Fatalf("info mode wrote output")
	}
}

func TestQuantizeWritesOutputTree(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	out := filepath.Join(dir, "out")
	writeTestPNG(t, filepath.Join(in, "a.png"))
	writeTestPNG(t, filepath.Join(in, "sub", "b.png"))

	var calls atomic.Int32
	eng := engine.Func(func(ctx context.Context, src *image.NRGBA, opts engine.Options) (engine.Result, error) {
		calls.Add(1)
		if opts.Colors != 16 {
			t.Errorf("colours %d", opts.Colors)
		}
		return engine.Result{Encoded: []byte("tiny"), Colors: 2}, nil
	})

	updates := make(chan ProgressUpdate, 64)
	summary, reports, err := Run(context.Background(), in, Options{
		Mode:      ModeQuantize,
		Quantize:  engine.Options{Colors: 16},
		Engine:    eng,
		OutputDir: out,
	}, updates)
	close(updates)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if calls.Load() != 2 || summary.Quantized != 2 || summary.Errors != 0 {
		t.Fatalf("calls %d summary %+v", calls.Load(), summary)
	}

	got, err := os.ReadFile(filepath.Join(out, "sub", "b.png"))
	if err != nil || string(got) != "tiny" {
		t.Fatalf("output %q, %v", got, err)
	}
	for _, r := range reports {
		if r.OutputColors != 2 || r.OutputSize != 4 {
			t.Fatalf("report %+v", r)
		}
	}

	total := ProgressUpdate{}
	for u := range updates {
		total.TotalDelta += u.TotalDelta
		total.ProcessedDelta += u.ProcessedDelta
		total.QuantizedDelta += u.QuantizedDelta
		total.BytesSavedDelta += u.BytesSavedDelta
	}
	if total.TotalDelta != 2 || total.ProcessedDelta != 2 || total.QuantizedDelta != 2 {
		t.Fatalf("updates %+v", total)
	}
	if total.BytesSavedDelta != summary.BytesSaved {
		t.Fatalf("bytes saved %d vs %d", total.BytesSavedDelta, summary.BytesSaved)
	}
}

func TestQuantizePassThroughSkipsEngine(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.png")
	writeTestPNG(t, src)

	eng := engine.Func(func(context.Context, *image.NRGBA, engine.Options) (engine.Result, error) {
		t.Errorf("engine called for pass-through")
		return engine.Result{}, nil
	})
	_, reports, err := Run(context.Background(), src, Options{
		Mode:      ModeQuantize,
		Quantize:  engine.Options{Colors: 257},
		Engine:    eng,
		OutputDir: filepath.Join(dir, "out"),
	}, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(reports) != 1 || reports[0].OutputColors != 2 {
		t.Fatalf("reports %+v", reports)
	}
	data, err := os.ReadFile(filepath.Join(dir, "out", "photo.png"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
}

func TestQuantizeSkipsOutputInsideRoot(t *testing.T) {
	dir := t.TempDir()
	writeTestPNG(t, filepath.Join(dir, "a.png"))
	writeTestPNG(t, filepath.Join(dir, "quantized", "old.png"))

	eng := engine.Func(func(context.Context, *image.NRGBA, engine.Options) (engine.Result, error) {
		return engine.Result{Encoded: []byte("x"), Colors: 2}, nil
	})
	summary, _, err := Run(context.Background(), dir, Options{
		Mode:      ModeQuantize,
		Quantize:  engine.DefaultOptions(),
		Engine:    eng,
		OutputDir: filepath.Join(dir, "quantized"),
	}, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Total != 1 {
		t.Fatalf("output dir was walked: %+v", summary)
	}
}

func TestResolveDestination(t *testing.T) {
	job := Job{Path: "/src/dir/photo.jpg", RelPath: "dir/photo.jpg"}

	got, err := resolveDestination(job, "photo.png", Options{InPlace: true})
	if err != nil || got != filepath.Join("/src/dir", "photo.png") {
		t.Fatalf("in place: %q, %v", got, err)
	}

	got, err = resolveDestination(job, "photo.png", Options{OutputDir: "/out"})
	if err != nil || got != filepath.Join("/out", "dir", "photo.png") {
		t.Fatalf("output: %q, %v", got, err)
	}

	if _, err := resolveDestination(job, "photo.png", Options{}); err == nil {
		t.Fatalf("expected error without output dir")
	}

	same := Job{Path: "/src/photo.png", RelPath: "photo.png"}
	if _, err := resolveDestination(same, "photo.png", Options{OutputDir: "/src"}); err == nil {
		t.Fatalf("expected error when output equals input")
	}
}

func writeTestPNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if (x+y)%2 == 0 {
				img.SetNRGBA(x, y, color.NRGBA{R: 0xff, A: 0xff})
			} else {
				img.SetNRGBA(x, y, color.NRGBA{B: 0xff, A: 0xff})
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func buildJPEGWithExif(path string) error {
	exifData := buildExifTIFF()
	exif := append([]byte("Exif\x00\x00"), exifData...)

	var buf bytes.Buffer
	buf.Write([]byte{0xff, 0xd8})
	buf.Write([]byte{0xff, 0xe1})
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(exif)+2))
	buf.Write(exif)
	buf.Write([]byte{0xff, 0xd9})

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func buildExifTIFF() []byte {
	var tiff bytes.Buffer
	tiff.Write([]byte{0x49, 0x49, 0x2a, 0x00})
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(8))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(2))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(0x0110))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(2))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(8))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(38))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(0x0132))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(2))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(20))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(46))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(0))
	tiff.Write([]byte("TestCam\x00"))
	tiff.Write([]byte("2024:01:02 03:04:05\x00"))
	return tiff.Bytes()
}

func buildPNGWithMetadata(path string) error {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.RGBA{R: 0xff, A: 0xff})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return err
	}
	data := buf.Bytes()
	if len(data) < 12 || string(data[len(data)-8:len(data)-4]) != "IEND" {
		return os.ErrInvalid
	}

	textChunk := buildPNGChunk("tEXt", []byte("Model\x00TestCam"))
	timeChunk := buildPNGChunk("tIME", []byte{0x07, 0xE8, 0x01, 0x02, 0x03, 0x04, 0x05})
	exifChunk := buildPNGChunk("eXIf", buildExifTIFF())

	insertAt := len(data) - 12
	out := append([]byte{}, data[:insertAt]...)
	out = append(out, textChunk...)
	out = append(out, timeChunk...)
	out = append(out, exifChunk...)
	out = append(out, data[insertAt:]...)

	return os.WriteFile(path, out, 0o644)
}

func buildPNGChunk(chunkType string, data []byte) []byte {
	typeBytes := []byte(chunkType)
	chunk := make([]byte, 0, 12+len(data))
	chunk = binary.BigEndian.AppendUint32(chunk, uint32(len(data)))
	chunk = append(chunk, typeBytes...)
	chunk = append(chunk, data...)
	chunk = binary.BigEndian.AppendUint32(chunk, crc32.ChecksumIEEE(append(typeBytes, data...)))
	return chunk
}
