package complexity

import (
	"cmp"
	"slices"
)

// FunctionMetrics holds the complexity record for one function or method.
type FunctionMetrics struct {
	File                 string `json:"file" toon:"file"`
	Function             string `json:"function" toon:"function"`
	CyclomaticComplexity uint32 `json:"cyclomatic_complexity" toon:"cyclomatic_complexity"`
	LineStart            uint32 `json:"line_start" toon:"line_start"`
	LineEnd              uint32 `json:"line_end" toon:"line_end"`
	LOC                  int    `json:"loc" toon:"loc"`
}

// ModuleMetrics holds the per-file record.
type ModuleMetrics struct {
	MaintainabilityIndex float64 `json:"maintainability_index" toon:"maintainability_index"`
	LOC                  int     `json:"loc" toon:"loc"`
}

// Summary provides aggregate statistics.
type Summary struct {
	AvgComplexity    float64 `json:"avg_complexity" toon:"avg_complexity"`
	ComplexFunctions int     `json:"complex_functions" toon:"complex_functions"`
	TotalFunctions   int     `json:"total_functions" toon:"total_functions"`
	TotalModules     int     `json:"total_modules" toon:"total_modules"`
}

// Analysis represents the full complexity result.
type Analysis struct {
	FunctionMetrics []FunctionMetrics        `json:"function_metrics" toon:"function_metrics"`
	ModuleMetrics   map[string]ModuleMetrics `json:"module_metrics" toon:"module_metrics"`
	Summary         Summary                  `json:"summary" toon:"summary"`
}

// MostComplex returns up to n functions ordered by descending complexity.
// Ties keep discovery order.
func (a *Analysis) MostComplex(n int) []FunctionMetrics {
	sorted := slices.Clone(a.FunctionMetrics)
	slices.SortStableFunc(sorted, func(x, y FunctionMetrics) int {
		return cmp.Compare(y.CyclomaticComplexity, x.CyclomaticComplexity)
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
