// Package progress draws stderr spinners around long-running CLI steps.
package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

type settings struct {
	w       io.Writer
	animate bool
}

// Option configures a Spinner.
type Option func(*settings)

// WithWriter sends the spinner and its finish messages to w. Writers other
// than a terminal get finish messages only.
func WithWriter(w io.Writer) Option {
	return func(s *settings) {
		s.w = w
		s.animate = isTerminal(w)
	}
}

// Quiet suppresses the animation but keeps finish messages.
func Quiet() Option {
	return func(s *settings) {
		s.animate = false
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// Spinner shows an indeterminate bar while a step runs.
type Spinner struct {
	bar   *progressbar.ProgressBar
	w     io.Writer
	label string
}

// NewSpinner starts a spinner labelled label on stderr.
func NewSpinner(label string, opts ...Option) *Spinner {
	s := settings{w: os.Stderr, animate: isTerminal(os.Stderr)}
	for _, opt := range opts {
		opt(&s)
	}

	sp := &Spinner{w: s.w, label: label}
	if s.animate {
		sp.bar = progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(s.w),
			progressbar.OptionSetWidth(20),
			progressbar.OptionSetDescription(label),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionClearOnFinish(),
		)
	}
	return sp
}

// Describe replaces the spinner label.
func (s *Spinner) Describe(label string) {
	s.label = label
	if s.bar != nil {
		s.bar.Describe(label)
	}
}

func (s *Spinner) stop() {
	if s.bar == nil {
		return
	}
	s.bar.Finish()
	s.bar.Clear()
}

// FinishSuccess clears the spinner without output.
func (s *Spinner) FinishSuccess() {
	s.stop()
}

// FinishSkipped clears the spinner and reports why the step was skipped.
func (s *Spinner) FinishSkipped(reason string) {
	s.stop()
	fmt.Fprintf(s.w, "  %s skipped (%s)\n", s.label, reason)
}

// FinishError clears the spinner and reports err.
func (s *Spinner) FinishError(err error) {
	s.stop()
	fmt.Fprintf(s.w, "  %s error: %v\n", s.label, err)
}
