package patterns

import (
	"fmt"
	"slices"
)

// Classification labels.
const (
	LabelWebScraping    = "Web Scraping"
	LabelRegex          = "Regex Extraction"
	LabelDefensive      = "Defensive Programming"
	LabelHighComplexity = "High Complexity"
	LabelLoopHeavy      = "Loop-Heavy Processing"
	LabelStandard       = "Standard Logic"
)

// Anti-pattern types.
const (
	AntiHighComplexity = "HIGH_COMPLEXITY"
	AntiMissingReturn  = "MISSING_RETURN"
	AntiNestedLoops    = "NESTED_LOOPS"
)

// ClassificationRule labels a pattern when Match holds.
type ClassificationRule struct {
	Label string
	Match func(Pattern) bool
}

// ClassificationRules are evaluated in order; the first match wins.
var ClassificationRules = []ClassificationRule{
	{LabelWebScraping, func(p Pattern) bool { return p.CallsContaining("download") }},
	{LabelRegex, func(p Pattern) bool { return p.CallsContaining("regex") }},
	{LabelDefensive, func(p Pattern) bool { return p.Count(TokenTryExcept) >= 2 }},
	{LabelHighComplexity, func(p Pattern) bool { return p.Count(TokenConditional) > 10 }},
	{LabelLoopHeavy, func(p Pattern) bool { return p.Loops() > 3 }},
}

// Classify returns the purpose label of a pattern.
func Classify(p Pattern) string {
	for _, r := range ClassificationRules {
		if r.Match(p) {
			return r.Label
		}
	}
	return LabelStandard
}

// AntiPatternRule flags a function when Match holds.
type AntiPatternRule struct {
	Type     string
	Severity Severity
	Match    func(Pattern) bool
	Details  func(Pattern) string
}

// AntiPatternRules are evaluated independently for every function.
// NESTED_LOOPS counts loop constructs; it does not measure nesting depth.
var AntiPatternRules = []AntiPatternRule{
	{
		Type:     AntiHighComplexity,
		Severity: SeverityHigh,
		Match:    func(p Pattern) bool { return p.Count(TokenConditional) > 5 },
		Details: func(p Pattern) string {
			return fmt.Sprintf("Function has %d conditionals.", p.Count(TokenConditional))
		},
	},
	{
		Type:     AntiMissingReturn,
		Severity: SeverityLow,
		Match:    func(p Pattern) bool { return p.Count(TokenReturn) == 0 && !p.HasCalls() },
		Details:  func(Pattern) string { return "Function has no explicit return statement." },
	},
	{
		Type:     AntiNestedLoops,
		Severity: SeverityMedium,
		Match:    func(p Pattern) bool { return p.Loops() > 2 },
		Details:  func(Pattern) string { return "Potential nested loops detected." },
	},
}

// DetectAntiPatterns applies every anti-pattern rule to one function.
func DetectAntiPatterns(fp FunctionPattern) []AntiPattern {
	var found []AntiPattern
	for _, r := range AntiPatternRules {
		if !r.Match(fp.Pattern) {
			continue
		}
		found = append(found, AntiPattern{
			Type:     r.Type,
			File:     fp.File,
			Line:     fp.Line,
			Function: fp.Name,
			Severity: r.Severity,
			Details:  r.Details(fp.Pattern),
		})
	}
	return found
}

// degenerate sequences are never reported as common patterns.
var degenerate = []Pattern{
	{TokenReturn},
	{TokenConditional},
	{},
	{CallPrefix + "super"},
}

// IsMeaningful reports whether a sequence seen count times among total
// functions belongs in the common pattern report.
func IsMeaningful(p Pattern, count, total int, minFrequency float64) bool {
	if len(p) <= 1 {
		return false
	}
	if total > 0 && float64(count)/float64(total) < minFrequency {
		return false
	}
	return !slices.ContainsFunc(degenerate, func(d Pattern) bool {
		return slices.Equal(p, d)
	})
}
