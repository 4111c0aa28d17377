// Package fileproc provides concurrent file processing utilities.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/panbanda/insight/pkg/parser"
	"github.com/panbanda/insight/pkg/source"
	"github.com/sourcegraph/conc/pool"
)

// ProcessingError represents an error that occurred while processing a file.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// ProcessingErrors collects multiple file processing errors.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors returns true if any errors were collected.
func (e *ProcessingErrors) HasErrors() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for worker count.
// 2x is optimal for mixed I/O and CGO workloads.
const DefaultWorkerMultiplier = 2

// ProgressFunc is called after each file is processed.
type ProgressFunc func()

// ErrorFunc is called when a file processing error occurs.
type ErrorFunc func(path string, err error)

type options struct {
	workers    int
	onProgress ProgressFunc
	onError    ErrorFunc
}

// Option configures MapFiles.
type Option func(*options)

// WithWorkers sets the worker count. Values <= 0 mean 2x NumCPU.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithProgress sets a callback invoked once per file.
func WithProgress(fn ProgressFunc) Option {
	return func(o *options) {
		o.onProgress = fn
	}
}

// WithErrorHandler sets a callback invoked for each failed file.
func WithErrorHandler(fn ErrorFunc) Option {
	return func(o *options) {
		o.onError = fn
	}
}

// MapFiles processes files in parallel, giving each task a dedicated parser.
// Results keep the input order; files whose fn returned an error are omitted
// and reported in the returned ProcessingErrors (nil when none failed).
// Once ctx is cancelled the remaining files are recorded with ctx.Err().
func MapFiles[T any](ctx context.Context, files []source.File, fn func(*parser.Parser, source.File) (T, error), opts ...Option) ([]T, *ProcessingErrors) {
	if len(files) == 0 {
		return nil, nil
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers <= 0 {
		o.workers = runtime.NumCPU() * DefaultWorkerMultiplier
	}

	slots := make([]T, len(files))
	ok := make([]bool, len(files))
	errs := &ProcessingErrors{}

	fail := func(path string, err error) {
		errs.Add(path, err)
		if o.onError != nil {
			o.onError(path, err)
		}
	}

	p := pool.New().WithMaxGoroutines(o.workers)
	for i, f := range files {
		p.Go(func() {
			defer func() {
				if o.onProgress != nil {
					o.onProgress()
				}
			}()

			if err := ctx.Err(); err != nil {
				fail(f.Path, err)
				return
			}

			psr := parser.New()
			defer psr.Close()

			result, err := fn(psr, f)
			if err != nil {
				fail(f.Path, err)
				return
			}
			slots[i] = result
			ok[i] = true
		})
	}
	p.Wait()

	results := make([]T, 0, len(files))
	for i := range slots {
		if ok[i] {
			results = append(results, slots[i])
		}
	}

	if !errs.HasErrors() {
		return results, nil
	}
	return results, errs
}

// ParsePython parses a Python source file with the given parser.
func ParsePython(ctx context.Context, psr *parser.Parser, f source.File) (*parser.ParseResult, error) {
	return psr.ParsePython(ctx, []byte(f.Text), f.Path)
}
