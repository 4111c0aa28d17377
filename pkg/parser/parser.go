package parser

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Language represents a supported programming language.
type Language string

const (
	LangPython  Language = "python"
	LangUnknown Language = "unknown"
)

// ErrSyntax is returned when a source file contains syntax errors.
var ErrSyntax = errors.New("syntax error")

// Python node types used across analyzers.
const (
	NodeModule      = "module"
	NodeFunctionDef = "function_definition"
	NodeClassDef    = "class_definition"
	NodeDecorated   = "decorated_definition"
	NodeDecorator   = "decorator"
	NodeCall        = "call"
	NodeIdentifier  = "identifier"
	NodeAttribute   = "attribute"
	NodeBlock       = "block"
	NodeComment     = "comment"
	NodeString      = "string"
)

// Parser wraps tree-sitter for Python parsing.
type Parser struct {
	parser *sitter.Parser
}

// ParseResult contains the parsed AST and metadata.
type ParseResult struct {
	Tree     *sitter.Tree
	Language Language
	Source   []byte
	Path     string
}

// New creates a new parser instance.
func New() *Parser {
	return &Parser{
		parser: sitter.NewParser(),
	}
}

// Parse parses source code with a specified language.
// A tree containing ERROR or MISSING nodes is reported as ErrSyntax so that
// callers can drop the whole file.
func (p *Parser) Parse(ctx context.Context, source []byte, lang Language, path string) (*ParseResult, error) {
	tsLang, err := GetTreeSitterLanguage(lang)
	if err != nil {
		return nil, err
	}

	p.parser.SetLanguage(tsLang)
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse: %w", err)
	}
	if tree.RootNode().HasError() {
		tree.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrSyntax)
	}

	return &ParseResult{
		Tree:     tree,
		Language: lang,
		Source:   source,
		Path:     path,
	}, nil
}

// ParsePython is shorthand for Parse with LangPython.
func (p *Parser) ParsePython(ctx context.Context, source []byte, path string) (*ParseResult, error) {
	return p.Parse(ctx, source, LangPython, path)
}

// GetTreeSitterLanguage returns the tree-sitter language for a Language enum.
func GetTreeSitterLanguage(lang Language) (*sitter.Language, error) {
	switch lang {
	case LangPython:
		return python.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
}

// DetectLanguage determines the language from a file path.
func DetectLanguage(path string) Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py", ".pyw", ".pyi":
		return LangPython
	default:
		return LangUnknown
	}
}

// Close releases parser resources.
func (p *Parser) Close() {
	p.parser.Close()
}

// Close releases the syntax tree.
func (r *ParseResult) Close() {
	if r != nil && r.Tree != nil {
		r.Tree.Close()
	}
}

// Root returns the module node.
func (r *ParseResult) Root() *sitter.Node {
	return r.Tree.RootNode()
}

// NodeVisitor is a function that visits AST nodes.
type NodeVisitor func(node *sitter.Node, source []byte) bool

// TypedNodeVisitor visits AST nodes with pre-cached node type to avoid CGO overhead.
type TypedNodeVisitor func(node *sitter.Node, nodeType string, source []byte) bool

// Walk traverses the AST in pre-order calling visitor for each node.
func Walk(node *sitter.Node, source []byte, visitor NodeVisitor) {
	if node == nil {
		return
	}

	if !visitor(node, source) {
		return
	}

	for i := range int(node.ChildCount()) {
		Walk(node.Child(i), source, visitor)
	}
}

// WalkTyped traverses the AST with cached node types to reduce CGO overhead.
func WalkTyped(node *sitter.Node, source []byte, visitor TypedNodeVisitor) {
	if node == nil {
		return
	}

	nodeType := node.Type()
	if !visitor(node, nodeType, source) {
		return
	}

	for i := range int(node.ChildCount()) {
		WalkTyped(node.Child(i), source, visitor)
	}
}

// FindNodesByType returns all nodes of a specific type in pre-order.
func FindNodesByType(root *sitter.Node, source []byte, nodeType string) []*sitter.Node {
	var results []*sitter.Node
	WalkTyped(root, source, func(n *sitter.Node, t string, _ []byte) bool {
		if t == nodeType {
			results = append(results, n)
		}
		return true
	})
	return results
}

// GetNodeText extracts the source text for a node.
// Returns empty string if node is nil or byte offsets are out of bounds.
func GetNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	start := node.StartByte()
	end := node.EndByte()
	if start > end || end > uint32(len(source)) {
		return ""
	}
	return string(source[start:end])
}

// DefinitionName returns the name field of a function or class definition.
func DefinitionName(node *sitter.Node, source []byte) string {
	return GetNodeText(node.ChildByFieldName("name"), source)
}

// CallName returns the identifier a call expression names. Plain calls
// (foo()) return ("foo", false); attribute calls (obj.foo()) return the
// trailing name and true. Any other callee shape returns "".
func CallName(call *sitter.Node, source []byte) (name string, attribute bool) {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return "", false
	}
	switch fn.Type() {
	case NodeIdentifier:
		return GetNodeText(fn, source), false
	case NodeAttribute:
		return GetNodeText(fn.ChildByFieldName("attribute"), source), true
	}
	return "", false
}

// FunctionNode represents a parsed function.
type FunctionNode struct {
	Name      string
	StartLine uint32
	EndLine   uint32
	Async     bool
	Node      *sitter.Node
	Body      *sitter.Node
}

// GetFunctions extracts every function definition, including methods and
// nested functions, in pre-order.
func GetFunctions(result *ParseResult) []FunctionNode {
	var functions []FunctionNode
	WalkTyped(result.Root(), result.Source, func(node *sitter.Node, nodeType string, source []byte) bool {
		if nodeType == NodeFunctionDef {
			functions = append(functions, NewFunctionNode(node, source))
		}
		return true
	})
	return functions
}

// NewFunctionNode builds a FunctionNode from a function_definition node.
func NewFunctionNode(node *sitter.Node, source []byte) FunctionNode {
	fn := FunctionNode{
		Name:      DefinitionName(node, source),
		StartLine: node.StartPoint().Row + 1,
		EndLine:   node.EndPoint().Row + 1,
		Node:      node,
		Body:      node.ChildByFieldName("body"),
	}
	if node.ChildCount() > 0 && node.Child(0).Type() == "async" {
		fn.Async = true
	}
	return fn
}

// ClassNode represents a parsed class.
type ClassNode struct {
	Name      string
	StartLine uint32
	EndLine   uint32
	Methods   []FunctionNode
}

// GetClasses extracts all class definitions, including nested classes.
// Methods are the functions declared directly in the class body.
func GetClasses(result *ParseResult) []ClassNode {
	var classes []ClassNode
	WalkTyped(result.Root(), result.Source, func(node *sitter.Node, nodeType string, source []byte) bool {
		if nodeType == NodeClassDef {
			classes = append(classes, extractClass(node, source))
		}
		return true
	})
	return classes
}

func extractClass(node *sitter.Node, source []byte) ClassNode {
	cls := ClassNode{
		Name:      DefinitionName(node, source),
		StartLine: node.StartPoint().Row + 1,
		EndLine:   node.EndPoint().Row + 1,
	}
	body := node.ChildByFieldName("body")
	if body == nil {
		return cls
	}
	for i := range int(body.NamedChildCount()) {
		child := body.NamedChild(i)
		switch child.Type() {
		case NodeFunctionDef:
			cls.Methods = append(cls.Methods, NewFunctionNode(child, source))
		case NodeDecorated:
			if def := child.ChildByFieldName("definition"); def != nil && def.Type() == NodeFunctionDef {
				cls.Methods = append(cls.Methods, NewFunctionNode(def, source))
			}
		}
	}
	return cls
}
