// Package analysis orchestrates the code intelligence analyzers for the
// command line, MCP and HTTP surfaces.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/panbanda/insight/pkg/analyzer"
	"github.com/panbanda/insight/pkg/analyzer/callgraph"
	"github.com/panbanda/insight/pkg/analyzer/complexity"
	"github.com/panbanda/insight/pkg/analyzer/orphan"
	"github.com/panbanda/insight/pkg/analyzer/patterns"
	"github.com/panbanda/insight/pkg/analyzer/similarity"
	"github.com/panbanda/insight/pkg/capability"
	"github.com/panbanda/insight/pkg/config"
	"github.com/panbanda/insight/pkg/source"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"github.com/spf13/afero"
)

// Kind names one analysis.
type Kind string

const (
	KindComplexity Kind = "complexity"
	KindOrphan     Kind = "orphan"
	KindPatterns   Kind = "patterns"
	KindSimilarity Kind = "similarity"
)

// AllKinds lists every analysis in report order.
var AllKinds = []Kind{KindComplexity, KindOrphan, KindPatterns, KindSimilarity}

// ParseKinds validates analysis names. "orphans" and "pattern" are accepted
// as aliases; duplicates are dropped.
func ParseKinds(names []string) ([]Kind, error) {
	seen := make(map[Kind]bool, len(names))
	var kinds []Kind
	for _, name := range names {
		var k Kind
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "complexity":
			k = KindComplexity
		case "orphan", "orphans":
			k = KindOrphan
		case "patterns", "pattern":
			k = KindPatterns
		case "similarity":
			k = KindSimilarity
		default:
			return nil, fmt.Errorf("unknown analysis %q", name)
		}
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	return kinds, nil
}

// Service orchestrates code analysis operations.
type Service struct {
	config *config.Config
	caps   capability.Set
	fs     afero.Fs
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// WithCapabilities sets the capability set handed to every analyzer.
func WithCapabilities(caps capability.Set) Option {
	return func(s *Service) {
		s.caps = caps
	}
}

// WithFilesystem sets the filesystem used by LoadFiles (for testing).
func WithFilesystem(fs afero.Fs) Option {
	return func(s *Service) {
		s.fs = fs
	}
}

// New creates a new analysis service. Without WithCapabilities the graph and
// metrics switches follow the configuration and no embedder is attached.
func New(opts ...Option) *Service {
	s := &Service{fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(s)
	}
	if s.config == nil {
		s.config = config.LoadOrDefault()
	}
	if !s.caps.Graph && !s.caps.Metrics && s.caps.Embedder == nil {
		s.caps = capability.Set{
			Graph:   s.config.Capabilities.Graph,
			Metrics: s.config.Capabilities.Metrics,
		}
	}
	return s
}

// Config returns the active configuration.
func (s *Service) Config() *config.Config {
	return s.config
}

// Capabilities returns the capability set.
func (s *Service) Capabilities() capability.Set {
	return s.caps
}

// EnabledKinds returns the analyses switched on in the configuration.
func (s *Service) EnabledKinds() []Kind {
	a := s.config.Analysis
	var kinds []Kind
	if a.Complexity {
		kinds = append(kinds, KindComplexity)
	}
	if a.Orphan {
		kinds = append(kinds, KindOrphan)
	}
	if a.Patterns {
		kinds = append(kinds, KindPatterns)
	}
	if a.Similarity {
		kinds = append(kinds, KindSimilarity)
	}
	return kinds
}

// LoadFiles reads the source files under root using the source settings.
func (s *Service) LoadFiles(ctx context.Context, root string) ([]source.File, error) {
	src := s.config.Source
	loader := source.NewLoader(s.fs,
		source.WithExtensions(src.Extensions),
		source.WithExcludeSubstrings(src.ExcludeSubstrings),
		source.WithGitignore(src.Gitignore),
		source.WithMaxFileSize(s.config.Analysis.MaxFileSize),
	)
	files, err := loader.Load(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", root, err)
	}
	return files, nil
}

// BuildCallGraph builds the cross-file call graph.
func (s *Service) BuildCallGraph(ctx context.Context, files []source.File) (*callgraph.Graph, error) {
	return s.builder().Analyze(ctx, files)
}

// AnalyzeComplexity computes per-function and per-module metrics.
func (s *Service) AnalyzeComplexity(ctx context.Context, files []source.File) (*complexity.Analysis, error) {
	return complexity.New(s.caps,
		complexity.WithComplexThreshold(s.config.Thresholds.ComplexFunction),
		complexity.WithWorkers(s.config.Analysis.Workers),
	).Analyze(ctx, files)
}

// AnalyzeOrphans detects definitions nothing calls.
func (s *Service) AnalyzeOrphans(ctx context.Context, files []source.File) (*orphan.Analysis, error) {
	th := s.config.Thresholds
	return orphan.New(s.caps,
		orphan.WithLimits(th.OrphanLimit, th.EntryPointLimit),
		orphan.WithBuilder(s.builder()),
	).Analyze(ctx, files)
}

// AnalyzePatterns mines function patterns and anti-patterns.
func (s *Service) AnalyzePatterns(ctx context.Context, files []source.File) (*patterns.Analysis, error) {
	th := s.config.Thresholds
	return patterns.New(
		patterns.WithCommonLimit(th.CommonPatternLimit),
		patterns.WithMinFrequency(th.MinPatternFrequency),
		patterns.WithWorkers(s.config.Analysis.Workers),
	).Analyze(ctx, files)
}

// AnalyzeSimilarity clusters function embeddings.
func (s *Service) AnalyzeSimilarity(ctx context.Context, files []source.File) (*similarity.Analysis, error) {
	th := s.config.Thresholds
	return similarity.New(s.caps,
		similarity.WithThreshold(th.Similarity),
		similarity.WithPairLimit(th.SimilarPairLimit),
		similarity.WithConcurrency(s.config.Embedding.Concurrency),
		similarity.WithWorkers(s.config.Analysis.Workers),
	).Analyze(ctx, files)
}

func (s *Service) builder() *callgraph.Builder {
	return callgraph.New(s.caps, callgraph.WithWorkers(s.config.Analysis.Workers))
}

// Report is the combined result of one Run. Analyses that were not
// requested are omitted from the serialized form.
type Report struct {
	RunID       string
	GeneratedAt time.Time
	Files       int
	Complexity  analyzer.Outcome[complexity.Analysis]
	Orphan      analyzer.Outcome[orphan.Analysis]
	Patterns    analyzer.Outcome[patterns.Analysis]
	Similarity  analyzer.Outcome[similarity.Analysis]
}

// Data returns the report as a map for serializers. Each analysis value is
// either its result or an {error, message} failure.
func (r *Report) Data() map[string]any {
	data := map[string]any{
		"run_id":       r.RunID,
		"generated_at": r.GeneratedAt.UTC().Format(time.RFC3339),
		"files":        r.Files,
	}
	put := func(key string, skipped bool, v any) {
		if !skipped {
			data[key] = v
		}
	}
	put(string(KindComplexity), r.Complexity.Skipped(), r.Complexity.Data())
	put(string(KindOrphan), r.Orphan.Skipped(), r.Orphan.Data())
	put(string(KindPatterns), r.Patterns.Skipped(), r.Patterns.Data())
	put(string(KindSimilarity), r.Similarity.Skipped(), r.Similarity.Data())
	return data
}

// MarshalJSON emits Data.
func (r *Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Data())
}

// Failures lists the analyses that failed, keyed by kind.
func (r *Report) Failures() map[Kind]*analyzer.Failure {
	out := make(map[Kind]*analyzer.Failure)
	if r.Complexity.Failure != nil {
		out[KindComplexity] = r.Complexity.Failure
	}
	if r.Orphan.Failure != nil {
		out[KindOrphan] = r.Orphan.Failure
	}
	if r.Patterns.Failure != nil {
		out[KindPatterns] = r.Patterns.Failure
	}
	if r.Similarity.Failure != nil {
		out[KindSimilarity] = r.Similarity.Failure
	}
	return out
}

// guarded runs one analysis into out. A panic becomes an "analysis failed"
// Failure for that analysis alone.
func guarded[T any](out *analyzer.Outcome[T], run func() (*T, error)) func() {
	return func() {
		var pc panics.Catcher
		pc.Try(func() { *out = analyzer.OutcomeOf(run()) })
		if r := pc.Recovered(); r != nil {
			*out = analyzer.Failed[T](&analyzer.Failure{Err: "analysis failed", Message: fmt.Sprint(r.Value)})
		}
	}
}

// Run executes the requested analyses concurrently over the same file set.
// A failing or panicking analysis is reported in its Outcome and does not
// affect the others. The returned error is non-nil only when ctx was
// cancelled.
func (s *Service) Run(ctx context.Context, files []source.File, kinds []Kind) (*Report, error) {
	report := &Report{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now(),
		Files:       len(files),
	}
	logger := log.With().Str("run_id", report.RunID).Logger()

	timed := func(kind Kind, run func()) func() {
		return func() {
			start := time.Now()
			run()
			logger.Debug().Str("analysis", string(kind)).Dur("elapsed", time.Since(start)).Msg("analysis finished")
		}
	}

	want := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}

	var wg conc.WaitGroup
	for _, kind := range AllKinds {
		if !want[kind] {
			continue
		}
		switch kind {
		case KindComplexity:
			wg.Go(timed(kind, guarded(&report.Complexity, func() (*complexity.Analysis, error) {
				return s.AnalyzeComplexity(ctx, files)
			})))
		case KindOrphan:
			wg.Go(timed(kind, guarded(&report.Orphan, func() (*orphan.Analysis, error) {
				return s.AnalyzeOrphans(ctx, files)
			})))
		case KindPatterns:
			wg.Go(timed(kind, guarded(&report.Patterns, func() (*patterns.Analysis, error) {
				return s.AnalyzePatterns(ctx, files)
			})))
		case KindSimilarity:
			wg.Go(timed(kind, guarded(&report.Similarity, func() (*similarity.Analysis, error) {
				return s.AnalyzeSimilarity(ctx, files)
			})))
		}
	}
	if r := wg.WaitAndRecover(); r != nil {
		logger.Error().Str("panic", r.String()).Msg("analysis run panicked")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for kind, f := range report.Failures() {
		logger.Warn().Str("analysis", string(kind)).Str("error", f.Err).Msg(f.Message)
	}
	return report, nil
}
