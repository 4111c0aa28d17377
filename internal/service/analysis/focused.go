package analysis

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/panbanda/insight/pkg/analyzer/callgraph"
	"github.com/panbanda/insight/pkg/analyzer/complexity"
	"github.com/panbanda/insight/pkg/analyzer/patterns"
	"github.com/panbanda/insight/pkg/source"
)

// Focus resolution errors.
var (
	ErrNotFound       = errors.New("focus target not found")
	ErrAmbiguousMatch = errors.New("focus target is ambiguous")
)

// FocusedTarget identifies the resolved target.
type FocusedTarget struct {
	Type   string                `json:"type" toon:"type"` // "file" or "symbol"
	Path   string                `json:"path,omitempty" toon:"path,omitempty"`
	Symbol *callgraph.Definition `json:"symbol,omitempty" toon:"symbol,omitempty"`
}

// FocusedContextResult contains the focused context for a file or symbol.
type FocusedContextResult struct {
	Target          FocusedTarget                `json:"target" toon:"target"`
	Callers         []string                     `json:"callers,omitempty" toon:"callers,omitempty"`
	Callees         []string                     `json:"callees,omitempty" toon:"callees,omitempty"`
	Complexity      []complexity.FunctionMetrics `json:"complexity,omitempty" toon:"complexity,omitempty"`
	Maintainability *complexity.ModuleMetrics    `json:"maintainability,omitempty" toon:"maintainability,omitempty"`
	AntiPatterns    []patterns.AntiPattern       `json:"anti_patterns,omitempty" toon:"anti_patterns,omitempty"`
	Candidates      []callgraph.Definition       `json:"candidates,omitempty" toon:"candidates,omitempty"`
}

// FocusedContext gathers everything known about one file or one definition.
// focus is a relative file path, a qualified name ("path::name") or a bare
// definition name. A bare name matching several definitions returns the
// candidates together with ErrAmbiguousMatch.
func (s *Service) FocusedContext(ctx context.Context, files []source.File, focus string) (*FocusedContextResult, error) {
	path := filepath.ToSlash(filepath.Clean(focus))
	for _, f := range files {
		if f.Path == path {
			return s.focusedContextForFile(ctx, f)
		}
	}

	g, err := s.BuildCallGraph(ctx, files)
	if err != nil {
		return nil, err
	}

	var matches []callgraph.Definition
	if def, ok := g.Registry().Lookup(focus); ok {
		matches = append(matches, def)
	} else {
		for _, def := range g.Nodes() {
			if def.Name == focus {
				matches = append(matches, def)
			}
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, focus)
	case 1:
	default:
		return &FocusedContextResult{Candidates: matches}, ErrAmbiguousMatch
	}

	sym := matches[0]
	result := &FocusedContextResult{
		Target:  FocusedTarget{Type: "symbol", Symbol: &sym},
		Callers: g.Callers(sym.QualifiedName),
	}
	for _, e := range g.Edges() {
		if e.From == sym.QualifiedName {
			result.Callees = append(result.Callees, e.To)
		}
	}

	file := fileByPath(files, sym.File)
	if cx, err := s.AnalyzeComplexity(ctx, file); err == nil {
		for _, fm := range cx.FunctionMetrics {
			if fm.Function == sym.Name && fm.LineStart == sym.Line {
				result.Complexity = append(result.Complexity, fm)
			}
		}
	}
	if pa, err := s.AnalyzePatterns(ctx, file); err == nil {
		for _, ap := range pa.AntiPatterns {
			if ap.Function == sym.Name && ap.Line == sym.Line {
				result.AntiPatterns = append(result.AntiPatterns, ap)
			}
		}
	}
	return result, nil
}

func (s *Service) focusedContextForFile(ctx context.Context, f source.File) (*FocusedContextResult, error) {
	result := &FocusedContextResult{
		Target: FocusedTarget{Type: "file", Path: f.Path},
	}
	file := []source.File{f}

	if cx, err := s.AnalyzeComplexity(ctx, file); err == nil {
		result.Complexity = cx.FunctionMetrics
		if mm, ok := cx.ModuleMetrics[f.Path]; ok {
			result.Maintainability = &mm
		}
	}
	if pa, err := s.AnalyzePatterns(ctx, file); err == nil {
		result.AntiPatterns = pa.AntiPatterns
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func fileByPath(files []source.File, path string) []source.File {
	for _, f := range files {
		if f.Path == path {
			return []source.File{f}
		}
	}
	return nil
}
