package complexity

import (
	"math"

	"github.com/panbanda/insight/pkg/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

// halsteadOperatorTypes contains Python node types that represent operators.
var halsteadOperatorTypes = map[string]bool{
	"binary_operator":        true,
	"comparison_operator":    true,
	"boolean_operator":       true,
	"not_operator":           true,
	"unary_operator":         true,
	"assignment":             true,
	"augmented_assignment":   true,
	"conditional_expression": true,
	// Control flow
	"if_statement":       true,
	"elif_clause":        true,
	"for_statement":      true,
	"while_statement":    true,
	"try_statement":      true,
	"except_clause":      true,
	"with_statement":     true,
	"return_statement":   true,
	"raise_statement":    true,
	"break_statement":    true,
	"continue_statement": true,
	// Calls and access
	"call":      true,
	"attribute": true,
	"subscript": true,
	"lambda":    true,
}

// halsteadOperatorSymbols contains symbols that are operators.
var halsteadOperatorSymbols = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true, "**": true, "//": true, "@": true,
	"=": true, "==": true, "!=": true, "<": true, ">": true,
	"<=": true, ">=": true,
	"&": true, "|": true, "^": true, "~": true,
	"<<": true, ">>": true,
	"+=": true, "-=": true, "*=": true, "/=": true, "%=": true, "//=": true, "**=": true,
	"&=": true, "|=": true, "^=": true, "<<=": true, ">>=": true,
	":=": true, "->": true,
	".": true, ":": true,
	"[": true, "]": true,
	"(": true, ")": true,
}

// halsteadKeywords contains Python keywords counted as operators.
var halsteadKeywords = map[string]bool{
	"if": true, "elif": true, "else": true, "for": true, "while": true,
	"break": true, "continue": true, "return": true,
	"try": true, "except": true, "finally": true, "raise": true,
	"with": true, "as": true, "in": true, "yield": true, "lambda": true,
	"and": true, "or": true, "not": true, "is": true,
	"assert": true, "pass": true, "await": true, "del": true,
}

// halsteadOperandTypes contains node types that represent operands.
var halsteadOperandTypes = map[string]bool{
	"identifier": true,
	"integer":    true,
	"float":      true,
	"string":     true,
	"true":       true,
	"false":      true,
	"none":       true,
}

// halsteadNonOperandTypes contains structural node types that are never operands.
var halsteadNonOperandTypes = map[string]bool{
	"module":                   true,
	"function_definition":      true,
	"class_definition":         true,
	"decorated_definition":     true,
	"decorator":                true,
	"block":                    true,
	"expression_statement":     true,
	"comment":                  true,
	"parameters":               true,
	"argument_list":            true,
	"import_statement":         true,
	"import_from_statement":    true,
	"dotted_name":              true,
	"parenthesized_expression": true,
	"string_start":             true,
	"string_content":           true,
	"string_end":               true,
	"else_clause":              true,
	"finally_clause":           true,
	"pass_statement":           true,
}

// HalsteadMetrics represents Halstead software science metrics.
type HalsteadMetrics struct {
	OperatorsUnique uint32  `json:"operators_unique" toon:"operators_unique"` // n1
	OperandsUnique  uint32  `json:"operands_unique" toon:"operands_unique"`   // n2
	OperatorsTotal  uint32  `json:"operators_total" toon:"operators_total"`   // N1
	OperandsTotal   uint32  `json:"operands_total" toon:"operands_total"`     // N2
	Vocabulary      uint32  `json:"vocabulary" toon:"vocabulary"`             // n = n1 + n2
	Length          uint32  `json:"length" toon:"length"`                     // N = N1 + N2
	Volume          float64 `json:"volume" toon:"volume"`                     // V = N * log2(n)
	Difficulty      float64 `json:"difficulty" toon:"difficulty"`             // D = (n1/2) * (N2/n2)
	Effort          float64 `json:"effort" toon:"effort"`                     // E = D * V
}

// NewHalsteadMetrics creates Halstead metrics from base counts and calculates derived values.
func NewHalsteadMetrics(operatorsUnique, operandsUnique, operatorsTotal, operandsTotal uint32) HalsteadMetrics {
	h := HalsteadMetrics{
		OperatorsUnique: operatorsUnique,
		OperandsUnique:  operandsUnique,
		OperatorsTotal:  operatorsTotal,
		OperandsTotal:   operandsTotal,
	}
	if operatorsUnique == 0 || operandsUnique == 0 {
		return h
	}

	h.Vocabulary = operatorsUnique + operandsUnique
	h.Length = operatorsTotal + operandsTotal
	h.Volume = float64(h.Length) * math.Log2(float64(h.Vocabulary))
	h.Difficulty = (float64(operatorsUnique) / 2.0) * (float64(operandsTotal) / float64(operandsUnique))
	h.Effort = h.Volume * h.Difficulty
	return h
}

// halsteadCounter accumulates distinct operators and operands.
type halsteadCounter struct {
	operators map[string]int
	operands  map[string]int
}

// Halstead computes Halstead metrics for a subtree.
func Halstead(node *sitter.Node, source []byte) HalsteadMetrics {
	h := halsteadCounter{
		operators: make(map[string]int),
		operands:  make(map[string]int),
	}
	parser.WalkTyped(node, source, func(n *sitter.Node, nodeType string, src []byte) bool {
		text := parser.GetNodeText(n, src)
		if isOperatorNode(nodeType, text) {
			h.operators[text]++
		} else if isOperandNode(nodeType, text) {
			h.operands[text]++
		}
		return true
	})

	var operatorsTotal, operandsTotal uint32
	for _, count := range h.operators {
		operatorsTotal += uint32(count)
	}
	for _, count := range h.operands {
		operandsTotal += uint32(count)
	}
	return NewHalsteadMetrics(uint32(len(h.operators)), uint32(len(h.operands)), operatorsTotal, operandsTotal)
}

func isOperatorNode(nodeType, text string) bool {
	return halsteadOperatorTypes[nodeType] || halsteadOperatorSymbols[text] || halsteadKeywords[text]
}

func isOperandNode(nodeType, text string) bool {
	if halsteadOperandTypes[nodeType] {
		return true
	}
	if len(text) == 0 || isOperatorNode(nodeType, text) {
		return false
	}
	return !halsteadNonOperandTypes[nodeType]
}
