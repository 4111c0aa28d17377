package patterns

import (
	"github.com/panbanda/insight/pkg/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

// structuralTokens maps Python node types to pattern tokens.
var structuralTokens = map[string]string{
	"for_statement":    TokenForLoop,
	"while_statement":  TokenWhileLoop,
	"if_statement":     TokenConditional,
	"elif_clause":      TokenConditional,
	"try_statement":    TokenTryExcept,
	"with_statement":   TokenContextManager,
	"return_statement": TokenReturn,
	"raise_statement":  TokenRaise,
}

// Extract walks the decorators of a function definition and then its whole
// subtree, nested definitions included, emitting tokens in pre-order. Only
// calls whose callee is a bare name produce CALL tokens.
func Extract(fn *sitter.Node, source []byte) Pattern {
	tokens := Pattern{}
	visit := func(n *sitter.Node, nodeType string, src []byte) bool {
		if tok, ok := structuralTokens[nodeType]; ok {
			tokens = append(tokens, tok)
			return true
		}
		if nodeType == parser.NodeCall {
			if name, attr := parser.CallName(n, src); name != "" && !attr {
				tokens = append(tokens, CallPrefix+name)
			}
		}
		return true
	}

	if p := fn.Parent(); p != nil && p.Type() == parser.NodeDecorated {
		for i := range int(p.ChildCount()) {
			if d := p.Child(i); d.Type() == parser.NodeDecorator {
				parser.WalkTyped(d, source, visit)
			}
		}
	}
	parser.WalkTyped(fn, source, visit)
	return tokens
}

// fileExtractResult holds the patterns found in one file.
type fileExtractResult struct {
	functions []FunctionPattern
	classes   []ClassPattern
}

func extractFile(result *parser.ParseResult) fileExtractResult {
	var out fileExtractResult
	parser.WalkTyped(result.Root(), result.Source, func(n *sitter.Node, nodeType string, src []byte) bool {
		switch nodeType {
		case parser.NodeFunctionDef:
			out.functions = append(out.functions, FunctionPattern{
				File:    result.Path,
				Name:    parser.DefinitionName(n, src),
				Line:    n.StartPoint().Row + 1,
				Pattern: Extract(n, src),
			})
		}
		return true
	})

	for _, cls := range parser.GetClasses(result) {
		cp := ClassPattern{
			File:    result.Path,
			Name:    cls.Name,
			Line:    cls.StartLine,
			Methods: make([]string, 0, len(cls.Methods)),
		}
		for _, m := range cls.Methods {
			cp.Methods = append(cp.Methods, m.Name)
			if m.Name == "__init__" {
				cp.HasInit = true
			}
		}
		cp.MethodCount = len(cp.Methods)
		out.classes = append(out.classes, cp)
	}
	return out
}
