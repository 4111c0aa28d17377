// Package patterns mines structural token patterns from Python functions,
// labels common ones and flags anti-patterns.
package patterns

import (
	"cmp"
	"context"
	"math"
	"slices"

	"github.com/panbanda/insight/internal/fileproc"
	"github.com/panbanda/insight/pkg/analyzer"
	"github.com/panbanda/insight/pkg/parser"
	"github.com/panbanda/insight/pkg/source"
	"github.com/rs/zerolog/log"
)

// Defaults for the common pattern report.
const (
	DefaultCommonLimit  = 20
	DefaultMinFrequency = 0.005
)

// Compile-time check that Analyzer implements SourceAnalyzer.
var _ analyzer.SourceAnalyzer[*Analysis] = (*Analyzer)(nil)

// Analyzer extracts and aggregates function patterns.
type Analyzer struct {
	commonLimit  int
	minFrequency float64
	workers      int
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithCommonLimit caps the common pattern list.
func WithCommonLimit(n int) Option {
	return func(a *Analyzer) {
		a.commonLimit = n
	}
}

// WithMinFrequency sets the minimum share of functions a pattern needs.
func WithMinFrequency(f float64) Option {
	return func(a *Analyzer) {
		a.minFrequency = f
	}
}

// WithWorkers sets the parse worker count (0 = default).
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		a.workers = n
	}
}

// New creates a pattern analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		commonLimit:  DefaultCommonLimit,
		minFrequency: DefaultMinFrequency,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze extracts patterns from every parseable file and aggregates them.
func (a *Analyzer) Analyze(ctx context.Context, files []source.File) (*Analysis, error) {
	results, errs := fileproc.MapFiles(ctx, files, func(psr *parser.Parser, f source.File) (fileExtractResult, error) {
		res, err := fileproc.ParsePython(ctx, psr, f)
		if err != nil {
			return fileExtractResult{}, err
		}
		defer res.Close()
		return extractFile(res), nil
	}, fileproc.WithWorkers(a.workers))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if errs != nil {
		for _, e := range errs.Errors {
			log.Debug().Str("file", e.Path).Err(e.Err).Msg("skipping file in pattern analysis")
		}
	}

	var functions []FunctionPattern
	var classes []ClassPattern
	for _, r := range results {
		functions = append(functions, r.functions...)
		classes = append(classes, r.classes...)
	}
	return a.Aggregate(functions, classes), nil
}

// Aggregate builds the report from extracted patterns.
func (a *Analyzer) Aggregate(functions []FunctionPattern, classes []ClassPattern) *Analysis {
	analysis := &Analysis{
		CommonPatterns: make([]CommonPattern, 0),
		AntiPatterns:   make([]AntiPattern, 0),
		TotalPatterns:  len(functions) + len(classes),
		TotalFunctions: len(functions),
		TotalClasses:   len(classes),
	}

	type group struct {
		pattern Pattern
		count   int
	}
	var groups []*group
	index := make(map[string]*group)
	for _, fp := range functions {
		k := fp.Pattern.key()
		g, ok := index[k]
		if !ok {
			g = &group{pattern: fp.Pattern}
			index[k] = g
			groups = append(groups, g)
		}
		g.count++

		analysis.AntiPatterns = append(analysis.AntiPatterns, DetectAntiPatterns(fp)...)
	}

	var meaningful []*group
	for _, g := range groups {
		if g.count == 1 {
			analysis.RarePatterns++
		}
		if IsMeaningful(g.pattern, g.count, len(functions), a.minFrequency) {
			meaningful = append(meaningful, g)
		}
	}
	slices.SortStableFunc(meaningful, func(x, y *group) int {
		return cmp.Compare(y.count, x.count)
	})
	if len(meaningful) > a.commonLimit {
		meaningful = meaningful[:a.commonLimit]
	}
	for _, g := range meaningful {
		analysis.CommonPatterns = append(analysis.CommonPatterns, CommonPattern{
			Pattern:        g.pattern,
			Count:          g.count,
			Percentage:     round2(float64(g.count) / float64(len(functions)) * 100),
			Classification: Classify(g.pattern),
		})
	}

	if len(classes) > 0 {
		methods := 0
		for _, c := range classes {
			methods += c.MethodCount
			if c.HasInit {
				analysis.ClassStats.WithInit++
			}
		}
		analysis.ClassStats.AvgMethods = float64(methods) / float64(len(classes))
	}

	return analysis
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
