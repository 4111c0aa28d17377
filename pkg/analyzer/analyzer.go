package analyzer

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/panbanda/insight/pkg/source"
)

// SourceAnalyzer is the interface every code intelligence analyzer implements.
type SourceAnalyzer[T any] interface {
	// Analyze processes the file set and returns the analysis result.
	// A returned error is either a *Failure or a context error.
	Analyze(ctx context.Context, files []source.File) (T, error)
}

// Failure kinds.
var (
	ErrUnavailable      = errors.New("capability unavailable")
	ErrInsufficientData = errors.New("insufficient data")
)

// Failure is a structured analysis failure that is reported as data
// rather than aborting sibling analyses.
type Failure struct {
	Kind    error  `json:"-" toon:"-"`
	Err     string `json:"error" toon:"error"`
	Message string `json:"message" toon:"message"`
}

// Unavailable builds a Failure for a missing capability.
func Unavailable(err, message string) *Failure {
	return &Failure{Kind: ErrUnavailable, Err: err, Message: message}
}

// Insufficient builds a Failure for too little input.
func Insufficient(err, message string) *Failure {
	return &Failure{Kind: ErrInsufficientData, Err: err, Message: message}
}

func (f *Failure) Error() string {
	if f.Message == "" {
		return f.Err
	}
	return f.Err + ": " + f.Message
}

func (f *Failure) Unwrap() error {
	return f.Kind
}

// Outcome holds either an analysis value or a Failure.
type Outcome[T any] struct {
	Value   *T
	Failure *Failure
}

// Succeeded wraps a populated result.
func Succeeded[T any](v *T) Outcome[T] {
	return Outcome[T]{Value: v}
}

// Failed wraps a failure.
func Failed[T any](f *Failure) Outcome[T] {
	return Outcome[T]{Failure: f}
}

// OutcomeOf converts an analyzer return pair. Non-Failure errors become an
// "analysis failed" Failure carrying the error text.
func OutcomeOf[T any](v *T, err error) Outcome[T] {
	if err == nil {
		return Succeeded(v)
	}
	var f *Failure
	if errors.As(err, &f) {
		return Failed[T](f)
	}
	return Failed[T](&Failure{Err: "analysis failed", Message: err.Error()})
}

// OK reports whether the outcome carries a value.
func (o Outcome[T]) OK() bool {
	return o.Failure == nil && o.Value != nil
}

// Skipped reports whether the analysis was not requested.
func (o Outcome[T]) Skipped() bool {
	return o.Failure == nil && o.Value == nil
}

// MarshalJSON emits the value, the {error, message} pair, or null.
func (o Outcome[T]) MarshalJSON() ([]byte, error) {
	if o.Failure != nil {
		return json.Marshal(o.Failure)
	}
	return json.Marshal(o.Value)
}

// Data returns the value or failure for serializers that do not use
// MarshalJSON (TOON, templates).
func (o Outcome[T]) Data() any {
	if o.Failure != nil {
		return o.Failure
	}
	if o.Value == nil {
		return nil
	}
	return o.Value
}
