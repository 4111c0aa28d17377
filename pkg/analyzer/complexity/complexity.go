// Package complexity computes cyclomatic complexity per function and a
// maintainability index per module for Python sources.
package complexity

import (
	"context"
	"math"
	"strings"

	"github.com/panbanda/insight/internal/fileproc"
	"github.com/panbanda/insight/pkg/analyzer"
	"github.com/panbanda/insight/pkg/capability"
	"github.com/panbanda/insight/pkg/parser"
	"github.com/panbanda/insight/pkg/source"
	"github.com/rs/zerolog/log"
	sitter "github.com/smacker/go-tree-sitter"
)

// DefaultComplexThreshold marks functions above it as complex.
const DefaultComplexThreshold = 10

// Compile-time check that Analyzer implements SourceAnalyzer.
var _ analyzer.SourceAnalyzer[*Analysis] = (*Analyzer)(nil)

// Analyzer computes complexity metrics.
type Analyzer struct {
	caps             capability.Set
	complexThreshold uint32
	workers          int
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithComplexThreshold sets the cyclomatic value above which a function is complex.
func WithComplexThreshold(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.complexThreshold = uint32(n)
		}
	}
}

// WithWorkers sets the parse worker count (0 = default).
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		a.workers = n
	}
}

// New creates a new complexity analyzer.
func New(caps capability.Set, opts ...Option) *Analyzer {
	a := &Analyzer{
		caps:             caps,
		complexThreshold: DefaultComplexThreshold,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// fileResult holds the metrics of one module.
type fileResult struct {
	path      string
	functions []FunctionMetrics
	module    ModuleMetrics
}

// Analyze measures every .py file. Files that fail are logged and excluded.
func (a *Analyzer) Analyze(ctx context.Context, files []source.File) (*Analysis, error) {
	if !a.caps.Metrics {
		return nil, analyzer.Unavailable(
			"complexity metrics not available",
			"Complexity analysis requires the metrics capability (capabilities.metrics = true).",
		)
	}

	pyFiles := make([]source.File, 0, len(files))
	for _, f := range files {
		if strings.HasSuffix(f.Path, ".py") {
			pyFiles = append(pyFiles, f)
		}
	}

	results, _ := fileproc.MapFiles(ctx, pyFiles, func(psr *parser.Parser, f source.File) (fileResult, error) {
		return analyzeFile(ctx, psr, f)
	}, fileproc.WithWorkers(a.workers), fileproc.WithErrorHandler(func(path string, err error) {
		log.Warn().Str("file", path).Err(err).Msg("complexity analysis failed")
	}))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return a.buildAnalysis(results), nil
}

func (a *Analyzer) buildAnalysis(results []fileResult) *Analysis {
	analysis := &Analysis{
		FunctionMetrics: make([]FunctionMetrics, 0),
		ModuleMetrics:   make(map[string]ModuleMetrics, len(results)),
	}

	var total uint32
	for _, r := range results {
		for _, fn := range r.functions {
			analysis.FunctionMetrics = append(analysis.FunctionMetrics, fn)
			total += fn.CyclomaticComplexity
			if fn.CyclomaticComplexity > a.complexThreshold {
				analysis.Summary.ComplexFunctions++
			}
		}
		analysis.ModuleMetrics[r.path] = r.module
	}

	analysis.Summary.TotalFunctions = len(analysis.FunctionMetrics)
	analysis.Summary.TotalModules = len(analysis.ModuleMetrics)
	if analysis.Summary.TotalFunctions > 0 {
		analysis.Summary.AvgComplexity = round2(float64(total) / float64(analysis.Summary.TotalFunctions))
	}
	return analysis
}

func analyzeFile(ctx context.Context, psr *parser.Parser, f source.File) (fileResult, error) {
	result, err := fileproc.ParsePython(ctx, psr, f)
	if err != nil {
		return fileResult{}, err
	}
	defer result.Close()

	root := result.Root()
	fr := fileResult{path: f.Path}

	var summed int
	for _, fn := range measuredFunctions(root, result.Source) {
		cc := Cyclomatic(fn.Node, result.Source)
		summed += int(cc)
		fr.functions = append(fr.functions, FunctionMetrics{
			File:                 f.Path,
			Function:             fn.Name,
			CyclomaticComplexity: cc,
			LineStart:            fn.StartLine,
			LineEnd:              fn.EndLine,
			LOC:                  max(int(fn.EndLine)-int(fn.StartLine)+1, 1),
		})
	}

	lines := CountLines(root, result.Source)
	volume := Halstead(root, result.Source).Volume
	fr.module = ModuleMetrics{
		MaintainabilityIndex: round2(MaintainabilityIndex(volume, summed, lines.SLOC, lines.CommentPercent())),
		LOC:                  lines.LOC,
	}
	return fr, nil
}

// measuredFunctions returns module-level functions and methods of any class.
// Functions nested inside another function are folded into their parent.
func measuredFunctions(root *sitter.Node, source []byte) []parser.FunctionNode {
	var fns []parser.FunctionNode
	parser.WalkTyped(root, source, func(n *sitter.Node, nodeType string, src []byte) bool {
		if nodeType == parser.NodeFunctionDef {
			fns = append(fns, parser.NewFunctionNode(n, src))
			return false
		}
		return true
	})
	return fns
}

// decisionTypes are the Python node types that add a branch.
var decisionTypes = map[string]bool{
	"if_statement":           true,
	"elif_clause":            true,
	"for_statement":          true,
	"while_statement":        true,
	"except_clause":          true,
	"with_statement":         true,
	"for_in_clause":          true,
	"if_clause":              true,
	"conditional_expression": true,
	"case_clause":            true,
}

// Cyclomatic returns 1 + the number of decision points under node.
func Cyclomatic(node *sitter.Node, source []byte) uint32 {
	return 1 + CountDecisionPoints(node, source)
}

// CountDecisionPoints counts branching constructs and boolean operators.
func CountDecisionPoints(node *sitter.Node, source []byte) uint32 {
	var count uint32
	parser.WalkTyped(node, source, func(n *sitter.Node, nodeType string, _ []byte) bool {
		if decisionTypes[nodeType] {
			count++
		}
		if nodeType == "boolean_operator" {
			if op := n.ChildByFieldName("operator"); op != nil && (op.Type() == "and" || op.Type() == "or") {
				count++
			}
		}
		return true
	})
	return count
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
