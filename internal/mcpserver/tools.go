package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/insight/internal/output"
	"github.com/panbanda/insight/internal/service/analysis"
	"github.com/panbanda/insight/pkg/analyzer"
	"github.com/panbanda/insight/pkg/analyzer/complexity"
	"github.com/panbanda/insight/pkg/security"
	"github.com/panbanda/insight/pkg/source"
)

// Common input structures for tools

// AnalyzeInput is the base input for all analyze tools.
type AnalyzeInput struct {
	Path   string `json:"path,omitempty" jsonschema:"Directory or GitHub repository (owner/repo[@ref]) to analyze. Defaults to the current directory."`
	Format string `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
}

// ComplexityInput adds complexity-specific options.
type ComplexityInput struct {
	AnalyzeInput
	Top int `json:"top,omitempty" jsonschema:"Return only the N most complex functions. Default all."`
}

// OrphanInput adds orphan-specific options.
type OrphanInput struct {
	AnalyzeInput
	ClassesOnly bool `json:"classes_only,omitempty" jsonschema:"Return only orphan classes and the summary."`
}

// PatternsInput adds pattern-specific options.
type PatternsInput struct {
	AnalyzeInput
	Severity string `json:"severity,omitempty" jsonschema:"Only return anti-patterns of this severity: HIGH, MEDIUM or LOW."`
}

// SimilarityInput adds similarity-specific options.
type SimilarityInput struct {
	AnalyzeInput
}

// AllInput selects analyses for analyze_all.
type AllInput struct {
	AnalyzeInput
	Analyses []string `json:"analyses,omitempty" jsonschema:"Analyses to run: complexity, orphan, patterns, similarity. Defaults to the configured set."`
}

// FocusInput names the file or definition to focus on.
type FocusInput struct {
	AnalyzeInput
	Focus string `json:"focus" jsonschema:"Relative file path, qualified name (path::name) or bare definition name."`
}

// SecurityInput adds scanner filters.
type SecurityInput struct {
	AnalyzeInput
	Severity   string   `json:"severity,omitempty" jsonschema:"Minimum severity: LOW, MEDIUM (default) or HIGH."`
	Confidence string   `json:"confidence,omitempty" jsonschema:"Minimum confidence: LOW, MEDIUM (default) or HIGH."`
	Categories []string `json:"categories,omitempty" jsonschema:"Bandit test IDs to run, e.g. B101."`
	Exclude    []string `json:"exclude,omitempty" jsonschema:"Paths to exclude from the scan."`
}

// Helper functions

func getFormat(input AnalyzeInput) output.Format {
	switch input.Format {
	case "json":
		return output.FormatJSON
	case "markdown", "md":
		return output.FormatMarkdown
	default:
		return output.FormatTOON
	}
}

func formatOutput(data any, format output.Format) (string, error) {
	switch format {
	case output.FormatJSON:
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", err
		}
		return string(out), nil
	case output.FormatMarkdown:
		out, err := output.MarshalTOON(data)
		if err != nil {
			return "", err
		}
		return "```\n" + out + "\n```", nil
	default:
		return output.MarshalTOON(data)
	}
}

func toolResult(data any, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(data, format)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

// analysisError reports an analyzer failure as its {error, message} payload.
func analysisError(err error, format output.Format) (*mcp.CallToolResult, any, error) {
	var f *analyzer.Failure
	if !errors.As(err, &f) {
		return toolError(err.Error())
	}
	res, _, ferr := toolResult(f, format)
	if ferr != nil {
		return nil, nil, ferr
	}
	res.IsError = true
	return res, nil, nil
}

func (s *Server) load(ctx context.Context, input AnalyzeInput) ([]source.File, string, error) {
	return s.svc.LoadPath(ctx, input.Path, nil)
}

// Tool handlers

func (s *Server) handleAnalyzeComplexity(ctx context.Context, req *mcp.CallToolRequest, input ComplexityInput) (*mcp.CallToolResult, any, error) {
	format := getFormat(input.AnalyzeInput)
	files, _, err := s.load(ctx, input.AnalyzeInput)
	if err != nil {
		return toolError(err.Error())
	}

	result, err := s.svc.AnalyzeComplexity(ctx, files)
	if err != nil {
		return analysisError(err, format)
	}

	if input.Top > 0 {
		out := struct {
			Functions []complexity.FunctionMetrics `json:"functions" toon:"functions"`
			Summary   complexity.Summary           `json:"summary" toon:"summary"`
		}{result.MostComplex(input.Top), result.Summary}
		return toolResult(out, format)
	}
	return toolResult(result, format)
}

func (s *Server) handleAnalyzeOrphans(ctx context.Context, req *mcp.CallToolRequest, input OrphanInput) (*mcp.CallToolResult, any, error) {
	format := getFormat(input.AnalyzeInput)
	files, _, err := s.load(ctx, input.AnalyzeInput)
	if err != nil {
		return toolError(err.Error())
	}

	result, err := s.svc.AnalyzeOrphans(ctx, files)
	if err != nil {
		return analysisError(err, format)
	}

	if input.ClassesOnly {
		out := struct {
			OrphanClasses any `json:"orphan_classes" toon:"orphan_classes"`
			Summary       any `json:"summary" toon:"summary"`
		}{result.OrphanClasses, result.Summary}
		return toolResult(out, format)
	}
	return toolResult(result, format)
}

func (s *Server) handleAnalyzePatterns(ctx context.Context, req *mcp.CallToolRequest, input PatternsInput) (*mcp.CallToolResult, any, error) {
	format := getFormat(input.AnalyzeInput)
	files, _, err := s.load(ctx, input.AnalyzeInput)
	if err != nil {
		return toolError(err.Error())
	}

	result, err := s.svc.AnalyzePatterns(ctx, files)
	if err != nil {
		return analysisError(err, format)
	}

	if input.Severity != "" {
		if err := security.ValidateLevel(input.Severity); err != nil {
			return toolError(err.Error())
		}
		filtered := *result
		filtered.AntiPatterns = filtered.AntiPatterns[:0:0]
		for _, ap := range result.AntiPatterns {
			if strings.EqualFold(ap.Severity.String(), input.Severity) {
				filtered.AntiPatterns = append(filtered.AntiPatterns, ap)
			}
		}
		return toolResult(&filtered, format)
	}
	return toolResult(result, format)
}

func (s *Server) handleAnalyzeSimilarity(ctx context.Context, req *mcp.CallToolRequest, input SimilarityInput) (*mcp.CallToolResult, any, error) {
	format := getFormat(input.AnalyzeInput)
	files, _, err := s.load(ctx, input.AnalyzeInput)
	if err != nil {
		return toolError(err.Error())
	}

	result, err := s.svc.AnalyzeSimilarity(ctx, files)
	if err != nil {
		return analysisError(err, format)
	}
	return toolResult(result, format)
}

func (s *Server) handleAnalyzeAll(ctx context.Context, req *mcp.CallToolRequest, input AllInput) (*mcp.CallToolResult, any, error) {
	format := getFormat(input.AnalyzeInput)

	kinds := s.svc.EnabledKinds()
	if len(input.Analyses) > 0 {
		parsed, err := analysis.ParseKinds(input.Analyses)
		if err != nil {
			return toolError(err.Error())
		}
		kinds = parsed
	}

	files, _, err := s.load(ctx, input.AnalyzeInput)
	if err != nil {
		return toolError(err.Error())
	}

	report, err := s.svc.Run(ctx, files, kinds)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(report.Data(), format)
}

func (s *Server) handleFocusedContext(ctx context.Context, req *mcp.CallToolRequest, input FocusInput) (*mcp.CallToolResult, any, error) {
	format := getFormat(input.AnalyzeInput)
	if input.Focus == "" {
		return toolError("focus is required")
	}

	files, _, err := s.load(ctx, input.AnalyzeInput)
	if err != nil {
		return toolError(err.Error())
	}

	result, err := s.svc.FocusedContext(ctx, files, input.Focus)
	switch {
	case errors.Is(err, analysis.ErrAmbiguousMatch):
		res, _, ferr := toolResult(result, format)
		if ferr != nil {
			return nil, nil, ferr
		}
		res.IsError = true
		return res, nil, nil
	case err != nil:
		return analysisError(err, format)
	}
	return toolResult(result, format)
}

func (s *Server) handleScanSecurity(ctx context.Context, req *mcp.CallToolRequest, input SecurityInput) (*mcp.CallToolResult, any, error) {
	format := getFormat(input.AnalyzeInput)

	dir, err := s.svc.Resolve(ctx, input.Path, nil)
	if err != nil {
		return toolError(err.Error())
	}

	defaults := s.svc.Config().Security
	opts := security.Options{
		Severity:   or(input.Severity, defaults.Severity),
		Confidence: or(input.Confidence, defaults.Confidence),
		Categories: input.Categories,
		Exclude:    input.Exclude,
	}
	if len(opts.Categories) == 0 {
		opts.Categories = defaults.Categories
	}
	if len(opts.Exclude) == 0 {
		opts.Exclude = defaults.Exclude
	}

	report, err := s.scanner.Scan(ctx, dir, opts)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(report, format)
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
