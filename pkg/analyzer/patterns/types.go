package patterns

import (
	"slices"
	"strings"
)

// Structural tokens.
const (
	TokenForLoop        = "FOR_LOOP"
	TokenWhileLoop      = "WHILE_LOOP"
	TokenConditional    = "CONDITIONAL"
	TokenTryExcept      = "TRY_EXCEPT"
	TokenContextManager = "CONTEXT_MANAGER"
	TokenReturn         = "RETURN"
	TokenRaise          = "RAISE"

	// CallPrefix starts a CALL:<name> token.
	CallPrefix = "CALL:"
)

// Pattern is the ordered token summary of a function.
type Pattern []string

// Count returns how many times tok occurs.
func (p Pattern) Count(tok string) int {
	n := 0
	for _, t := range p {
		if t == tok {
			n++
		}
	}
	return n
}

// Loops returns the number of loop tokens.
func (p Pattern) Loops() int {
	return p.Count(TokenForLoop) + p.Count(TokenWhileLoop)
}

// HasCalls reports whether any CALL token is present.
func (p Pattern) HasCalls() bool {
	return slices.ContainsFunc(p, func(t string) bool {
		return strings.HasPrefix(t, CallPrefix)
	})
}

// CallsContaining reports whether a CALL token's name contains substr,
// ignoring case.
func (p Pattern) CallsContaining(substr string) bool {
	substr = strings.ToLower(substr)
	return slices.ContainsFunc(p, func(t string) bool {
		return strings.HasPrefix(t, CallPrefix) && strings.Contains(strings.ToLower(t), substr)
	})
}

// key returns a value-equality key for grouping. Tokens never contain NUL.
func (p Pattern) key() string {
	return strings.Join(p, "\x00")
}

// FunctionPattern is the extracted pattern of one function.
type FunctionPattern struct {
	File    string  `json:"file" toon:"file"`
	Name    string  `json:"name" toon:"name"`
	Line    uint32  `json:"line" toon:"line"`
	Pattern Pattern `json:"pattern" toon:"pattern"`
}

// ClassPattern summarizes the shape of one class.
type ClassPattern struct {
	File        string   `json:"file" toon:"file"`
	Name        string   `json:"name" toon:"name"`
	Line        uint32   `json:"line" toon:"line"`
	MethodCount int      `json:"method_count" toon:"method_count"`
	HasInit     bool     `json:"has_init" toon:"has_init"`
	Methods     []string `json:"methods" toon:"methods"`
}

// Severity of an anti-pattern finding.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// String returns the string representation.
func (s Severity) String() string {
	return string(s)
}

// AntiPattern is one rule violation flagged against a function.
type AntiPattern struct {
	Type     string   `json:"type" toon:"type"`
	File     string   `json:"file" toon:"file"`
	Line     uint32   `json:"line" toon:"line"`
	Function string   `json:"function" toon:"function"`
	Severity Severity `json:"severity" toon:"severity"`
	Details  string   `json:"details" toon:"details"`
}

// CommonPattern is a frequent token sequence with its purpose label.
type CommonPattern struct {
	Pattern        Pattern `json:"pattern" toon:"pattern"`
	Count          int     `json:"count" toon:"count"`
	Percentage     float64 `json:"percentage" toon:"percentage"`
	Classification string  `json:"classification" toon:"classification"`
}

// ClassStats aggregates class shapes.
type ClassStats struct {
	AvgMethods float64 `json:"avg_methods" toon:"avg_methods"`
	WithInit   int     `json:"with_init" toon:"with_init"`
}

// Analysis is the pattern mining result.
type Analysis struct {
	CommonPatterns []CommonPattern `json:"common_patterns" toon:"common_patterns"`
	RarePatterns   int             `json:"rare_patterns" toon:"rare_patterns"`
	AntiPatterns   []AntiPattern   `json:"anti_patterns" toon:"anti_patterns"`
	TotalPatterns  int             `json:"total_patterns" toon:"total_patterns"`
	TotalFunctions int             `json:"total_functions" toon:"total_functions"`
	TotalClasses   int             `json:"total_classes" toon:"total_classes"`
	ClassStats     ClassStats      `json:"class_stats" toon:"class_stats"`
}

// CountBySeverity tallies anti-pattern findings.
func (a *Analysis) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int, 3)
	for _, ap := range a.AntiPatterns {
		counts[ap.Severity]++
	}
	return counts
}
