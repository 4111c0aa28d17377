// Package security runs the Bandit scanner over Python sources and
// normalizes its JSON report.
package security

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Timeouts for the external scanner.
const (
	VersionTimeout = 5 * time.Second
	ScanTimeout    = 300 * time.Second
)

// ErrNotInstalled is returned when the bandit executable cannot be run.
var ErrNotInstalled = errors.New("bandit is not installed, install it with: pip install bandit[toml]")

// ErrTimeout is returned when a scan exceeds ScanTimeout.
var ErrTimeout = errors.New("security scan timed out after 5 minutes")

// Runner executes an external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Levels accepted for severity and confidence filters.
var Levels = []string{"LOW", "MEDIUM", "HIGH"}

// Options filter a scan.
type Options struct {
	Severity   string
	Confidence string
	Categories []string
	Exclude    []string
}

// Scanner wraps the bandit command line.
type Scanner struct {
	runner  Runner
	binary  string
	timeout time.Duration
	now     func() time.Time
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithRunner replaces the command runner.
func WithRunner(r Runner) Option {
	return func(s *Scanner) {
		s.runner = r
	}
}

// WithTimeout overrides the scan timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Scanner) {
		s.timeout = d
	}
}

// WithClock sets the clock used for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) {
		s.now = now
	}
}

// NewScanner creates a Scanner that runs "bandit" from PATH.
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{
		runner:  ExecRunner{},
		binary:  "bandit",
		timeout: ScanTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available checks that bandit runs.
func (s *Scanner) Available(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, VersionTimeout)
	defer cancel()
	if _, err := s.runner.Run(ctx, s.binary, "--version"); err != nil {
		return fmt.Errorf("%w: %v", ErrNotInstalled, err)
	}
	return nil
}

// Args builds the bandit command line for a scan writing its report to out.
func Args(dir, out string, opts Options) []string {
	args := []string{
		"-r",
		"-f", "json",
		"-o", out,
		"--severity-level", strings.ToLower(levelOr(opts.Severity)),
		"--confidence-level", strings.ToLower(levelOr(opts.Confidence)),
	}
	if len(opts.Categories) > 0 {
		args = append(args, "-t", strings.Join(opts.Categories, ","))
	}
	for _, pattern := range opts.Exclude {
		args = append(args, "-x", pattern)
	}
	return append(args, dir)
}

func levelOr(level string) string {
	if level == "" {
		return "MEDIUM"
	}
	return level
}

// ValidateLevel reports whether level is LOW, MEDIUM or HIGH.
func ValidateLevel(level string) error {
	for _, l := range Levels {
		if strings.EqualFold(l, level) {
			return nil
		}
	}
	return fmt.Errorf("invalid level %q (want one of %s)", level, strings.Join(Levels, ", "))
}

// Scan runs bandit recursively over dir and parses the report.
func (s *Scanner) Scan(ctx context.Context, dir string, opts Options) (*Report, error) {
	for _, level := range []string{levelOr(opts.Severity), levelOr(opts.Confidence)} {
		if err := ValidateLevel(level); err != nil {
			return nil, err
		}
	}
	if err := s.Available(ctx); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp("", "insight-bandit-*.json")
	if err != nil {
		return nil, fmt.Errorf("creating report file: %w", err)
	}
	out := tmp.Name()
	tmp.Close()
	defer os.Remove(out)

	scanCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	output, runErr := s.runner.Run(scanCtx, s.binary, Args(dir, out, opts)...)
	log.Debug().Str("output", string(output)).Msg("bandit output")
	if errors.Is(scanCtx.Err(), context.DeadlineExceeded) {
		return nil, ErrTimeout
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// bandit exits non-zero when it finds issues; the report decides.
	raw, err := os.ReadFile(out)
	if err != nil || len(raw) == 0 {
		if runErr != nil {
			return nil, fmt.Errorf("error during security scan: %w", runErr)
		}
		return nil, errors.New("bandit wrote no report")
	}

	return ParseReport(raw, dir, s.now())
}
