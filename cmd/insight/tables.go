package main

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/panbanda/insight/internal/output"
	"github.com/panbanda/insight/pkg/analyzer"
	"github.com/panbanda/insight/pkg/analyzer/callgraph"
	"github.com/panbanda/insight/pkg/analyzer/complexity"
	"github.com/panbanda/insight/pkg/analyzer/orphan"
	"github.com/panbanda/insight/pkg/analyzer/patterns"
	"github.com/panbanda/insight/pkg/analyzer/similarity"
)

// Maintainability index bands.
const (
	miLow    = 20.0
	miMedium = 50.0
)

func paint(colored bool, c func(string, ...any) string, format string, args ...any) string {
	if colored {
		return c(format, args...)
	}
	return fmt.Sprintf(format, args...)
}

func failureSection(title string, f *analyzer.Failure) output.Renderable {
	return &output.Section{Title: title, Content: "Error: " + f.Error(), Data: f}
}

func complexityTables(a *complexity.Analysis, threshold, top int, colored bool) []output.Renderable {
	var rows [][]string
	for _, fm := range a.MostComplex(top) {
		cc := strconv.Itoa(int(fm.CyclomaticComplexity))
		if int(fm.CyclomaticComplexity) > threshold {
			cc = paint(colored, color.RedString, "%d", fm.CyclomaticComplexity)
		}
		rows = append(rows, []string{
			fm.File,
			fm.Function,
			fmt.Sprintf("%d-%d", fm.LineStart, fm.LineEnd),
			cc,
			strconv.Itoa(fm.LOC),
		})
	}
	functions := output.NewTable(
		"Function Complexity",
		[]string{"File", "Function", "Lines", "Cyclomatic", "LOC"},
		rows,
		[]string{
			fmt.Sprintf("Functions: %d", a.Summary.TotalFunctions),
			fmt.Sprintf("Complex (>%d): %d", threshold, a.Summary.ComplexFunctions),
			"",
			fmt.Sprintf("Avg: %.2f", a.Summary.AvgComplexity),
			"",
		},
		a.FunctionMetrics,
	)

	var moduleRows [][]string
	for _, path := range slices.Sorted(maps.Keys(a.ModuleMetrics)) {
		mm := a.ModuleMetrics[path]
		mi := fmt.Sprintf("%.2f", mm.MaintainabilityIndex)
		switch {
		case mm.MaintainabilityIndex < miLow:
			mi = paint(colored, color.RedString, "%s", mi)
		case mm.MaintainabilityIndex < miMedium:
			mi = paint(colored, color.YellowString, "%s", mi)
		}
		moduleRows = append(moduleRows, []string{path, mi, strconv.Itoa(mm.LOC)})
	}
	modules := output.NewTable(
		"Module Maintainability",
		[]string{"File", "Maintainability", "LOC"},
		moduleRows,
		[]string{fmt.Sprintf("Modules: %d", a.Summary.TotalModules), "", ""},
		a.ModuleMetrics,
	)

	return []output.Renderable{functions, modules}
}

func orphanRows(infos []orphan.Info) [][]string {
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, []string{info.Name, info.File, strconv.Itoa(int(info.Line))})
	}
	return rows
}

func orphanTables(a *orphan.Analysis) []output.Renderable {
	headers := []string{"Name", "File", "Line"}
	summary := fmt.Sprintf("Orphans: %d of %d definitions (%.2f%%)",
		a.Summary.TotalOrphans, a.Summary.TotalDefinitions, a.Summary.OrphanPercentage)

	return []output.Renderable{
		output.NewTable("Orphan Functions", headers, orphanRows(a.OrphanFunctions), nil, a.OrphanFunctions),
		output.NewTable("Orphan Classes", headers, orphanRows(a.OrphanClasses), nil, a.OrphanClasses),
		output.NewTable("Entry Points", headers, orphanRows(a.EntryPoints), nil, a.EntryPoints),
		&output.Section{Title: "Orphan Summary", Content: summary, Data: a.Summary},
	}
}

func patternTables(a *patterns.Analysis, colored bool) []output.Renderable {
	var commonRows [][]string
	for _, cp := range a.CommonPatterns {
		commonRows = append(commonRows, []string{
			truncate(strings.Join(cp.Pattern, " > "), 80),
			strconv.Itoa(cp.Count),
			fmt.Sprintf("%.2f%%", cp.Percentage),
			cp.Classification,
		})
	}
	common := output.NewTable(
		"Common Patterns",
		[]string{"Pattern", "Count", "Share", "Classification"},
		commonRows,
		[]string{fmt.Sprintf("Patterns: %d", a.TotalPatterns), fmt.Sprintf("Rare: %d", a.RarePatterns), "", ""},
		a.CommonPatterns,
	)

	var antiRows [][]string
	for _, ap := range a.AntiPatterns {
		severity := ap.Severity.String()
		if colored {
			severity = output.SeverityColor(severity, severity)
		}
		antiRows = append(antiRows, []string{
			severity,
			ap.Type,
			ap.Function,
			fmt.Sprintf("%s:%d", ap.File, ap.Line),
			ap.Details,
		})
	}
	counts := a.CountBySeverity()
	anti := output.NewTable(
		"Anti-Patterns",
		[]string{"Severity", "Type", "Function", "Location", "Details"},
		antiRows,
		[]string{
			fmt.Sprintf("High: %d", counts[patterns.SeverityHigh]),
			fmt.Sprintf("Medium: %d", counts[patterns.SeverityMedium]),
			fmt.Sprintf("Low: %d", counts[patterns.SeverityLow]),
			"",
			"",
		},
		a.AntiPatterns,
	)

	classes := &output.Section{
		Title: "Classes",
		Content: fmt.Sprintf("Functions: %d, classes: %d, average methods per class: %.2f, classes with __init__: %d",
			a.TotalFunctions, a.TotalClasses, a.ClassStats.AvgMethods, a.ClassStats.WithInit),
		Data: a.ClassStats,
	}
	return []output.Renderable{common, anti, classes}
}

func similarityTables(a *similarity.Analysis) []output.Renderable {
	var pairRows [][]string
	for _, p := range a.SimilarPairs {
		pairRows = append(pairRows, []string{p.Func1, p.Func2, fmt.Sprintf("%.3f", p.Similarity)})
	}
	pairs := output.NewTable(
		"Similar Pairs",
		[]string{"Function 1", "Function 2", "Similarity"},
		pairRows,
		[]string{fmt.Sprintf("Pairs: %d", a.Stats.SimilarPairsCount), "", ""},
		a.SimilarPairs,
	)

	labels := slices.SortedFunc(maps.Keys(a.Clusters), func(x, y string) int {
		xi, _ := strconv.Atoi(x)
		yi, _ := strconv.Atoi(y)
		return cmp.Compare(xi, yi)
	})
	var clusterRows [][]string
	for _, label := range labels {
		members := a.Clusters[label]
		clusterRows = append(clusterRows, []string{
			label,
			strconv.Itoa(len(members)),
			truncate(strings.Join(members, ", "), 100),
		})
	}
	clusters := output.NewTable(
		"Clusters",
		[]string{"Cluster", "Size", "Functions"},
		clusterRows,
		[]string{
			fmt.Sprintf("Clusters: %d", a.NumClusters),
			fmt.Sprintf("Avg size: %.2f", a.Stats.AvgClusterSize),
			fmt.Sprintf("Functions: %d", a.TotalFunctions),
		},
		a.Clusters,
	)
	return []output.Renderable{pairs, clusters}
}

func callGraphTable(r *callgraph.Report) output.Renderable {
	rows := make([][]string, 0, len(r.Edges))
	for _, e := range r.Edges {
		rows = append(rows, []string{e.From, e.To})
	}
	return output.NewTable(
		"Call Graph",
		[]string{"Caller", "Callee"},
		rows,
		[]string{
			fmt.Sprintf("Nodes: %d (%d functions, %d classes)", r.Summary.TotalNodes, r.Summary.TotalFunctions, r.Summary.TotalClasses),
			fmt.Sprintf("Edges: %d", r.Summary.TotalEdges),
		},
		r.Edges,
	)
}
