// Package processor runs the batch modes over a file or directory tree
// with a worker pool.
package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"imgalpha/internal/document"
	"imgalpha/internal/engine"
	"imgalpha/pkg/imgutil"
)

func Run(ctx context.Context, root string, opts Options, updates chan<- ProgressUpdate) (Summary, []FileReport, error) {
	summary := Summary{}
	var reports []FileReport

	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Engine == nil {
		opts.Engine = engine.MedianCut{}
	}
	opts.Quantize = opts.Quantize.Normalize()

	info, err := os.Stat(root)
	if err != nil {
		return summary, nil, err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return summary, nil, err
	}

	var outputAbs string
	var outputInsideRoot bool
	if opts.Mode == ModeQuantize && !opts.InPlace && opts.OutputDir != "" {
		if absOut, outErr := filepath.Abs(opts.OutputDir); outErr == nil {
			outputAbs = absOut
			absRootClean := filepath.Clean(absRoot)
			outputClean := filepath.Clean(outputAbs)
			if outputClean != absRootClean && isWithin(outputClean, absRootClean) {
				outputInsideRoot = true
			}
		}
	}

	jobs := make(chan Job)
	results := make(chan Result)

	workers := runtime.NumCPU()
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			worker(ctx, jobs, results, opts, updates)
		}()
	}

	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for res := range results {
			if res.Supported {
				summary.Total++
				summary.Processed++
				send(updates, ProgressUpdate{ProcessedDelta: 1})
			}
			if res.Err != nil {
				summary.Errors++
				send(updates, ProgressUpdate{ErrorDelta: 1})
			} else if opts.Mode == ModeQuantize && res.Supported {
				summary.Quantized++
				send(updates, ProgressUpdate{QuantizedDelta: 1})
			}
			if res.BytesSaved != 0 {
				summary.BytesSaved += res.BytesSaved
				send(updates, ProgressUpdate{BytesSavedDelta: res.BytesSaved})
			}
			if res.Supported {
				report := res.Report
				report.Path = res.Display
				report.Err = res.Err
				reports = append(reports, report)
			}
		}
	}()

	producerErr := make(chan error, 1)
	go func() {
		defer close(jobs)

		sendJob := func(job Job) error {
			select {
			case jobs <- job:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if !info.IsDir() {
			producerErr <- sendJob(Job{
				Path:    absRoot,
				RelPath: filepath.Base(absRoot),
				Display: filepath.Base(absRoot),
			})
			return
		}

		fsys := os.DirFS(absRoot)
		err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				if outputInsideRoot && isWithin(filepath.Join(absRoot, path), outputAbs) {
					return fs.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			return sendJob(Job{
				Path:    filepath.Join(absRoot, path),
				RelPath: path,
				Display: path,
			})
		})
		producerErr <- err
	}()

	wg.Wait()
	close(results)
	<-collectorDone

	sort.Slice(reports, func(i, j int) bool { return reports[i].Path < reports[j].Path })

	if err := <-producerErr; err != nil {
		return summary, reports, err
	}
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return summary, reports, err
	}

	return summary, reports, nil
}

func send(updates chan<- ProgressUpdate, u ProgressUpdate) {
	if updates != nil {
		updates <- u
	}
}

func worker(ctx context.Context, jobs <-chan Job, results chan<- Result, opts Options, updates chan<- ProgressUpdate) {
	for job := range jobs {
		if ctx.Err() != nil {
			return
		}

		res := Result{Path: job.Path, RelPath: job.RelPath, Display: job.Display}

		data, err := os.ReadFile(job.Path)
		if err != nil {
			res.Err = err
			results <- res
			continue
		}

		kind, err := imgutil.SniffReader(bytes.NewReader(data))
		if err != nil || kind == imgutil.KindUnknown {
			// Short or foreign files are not images; skip them silently.
			continue
		}

		res.Supported = true
		res.Report.Kind = kind
		res.Report.Size = int64(len(data))
		send(updates, ProgressUpdate{TotalDelta: 1})

		res.BytesSaved, res.Err = processFile(ctx, job, kind, data, opts, &res.Report)
		results <- res
	}
}

func processFile(ctx context.Context, job Job, kind imgutil.Kind, data []byte, opts Options, report *FileReport) (int64, error) {
	meta, err := document.ScanMetadata(bytes.NewReader(data), kind)
	if err != nil {
		return 0, fmt.Errorf("metadata: %w", err)
	}
	report.Metadata = meta

	src, err := document.Decode(filepath.Base(job.Path), data)
	if err != nil {
		return 0, err
	}
	report.Width = src.Pixels.Bounds().Dx()
	report.Height = src.Pixels.Bounds().Dy()
	report.Colors = src.Colors

	switch opts.Mode {
	case ModeInfo:
		return 0, nil
	case ModeQuantize:
	default:
		return 0, fmt.Errorf("unknown mode")
	}

	var encoded []byte
	if opts.Quantize.PassThrough() {
		encoded = src.Encoded
		report.OutputColors = src.Colors
	} else {
		var res engine.Result
		res, err = opts.Engine.Quantize(ctx, src.Pixels, opts.Quantize)
		encoded = res.Encoded
		report.OutputColors = res.Colors
	}
	if err != nil {
		return 0, err
	}

	destPath, err := resolveDestination(job, document.ExportName(src), opts)
	if err != nil {
		return 0, err
	}

	mode := os.FileMode(0o644)
	if fi, statErr := os.Stat(job.Path); statErr == nil {
		mode = fi.Mode().Perm()
	}
	if err := document.Save(destPath, encoded, mode); err != nil {
		return 0, err
	}

	report.OutputPath = destPath
	report.OutputSize = int64(len(encoded))
	return report.Size - report.OutputSize, nil
}

// resolveDestination maps a job to the PNG it is exported as. In-place
// exports land beside the input, replacing it only when it is a PNG.
func resolveDestination(job Job, name string, opts Options) (string, error) {
	if opts.InPlace {
		return filepath.Join(filepath.Dir(job.Path), name), nil
	}
	if opts.OutputDir == "" {
		return "", fmt.Errorf("output directory required when not using --inplace")
	}

	destPath := filepath.Join(opts.OutputDir, filepath.Dir(job.RelPath), name)
	if filepath.Clean(destPath) == filepath.Clean(job.Path) {
		return "", fmt.Errorf("output path resolves to input path; use --inplace or a different --output")
	}
	return destPath, nil
}

func isWithin(path string, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return !strings.HasPrefix(rel, "..")
}
