// Package callgraph builds a name-resolved call graph over Python sources.
package callgraph

import (
	"context"
	"slices"

	"github.com/panbanda/insight/internal/fileproc"
	"github.com/panbanda/insight/pkg/analyzer"
	"github.com/panbanda/insight/pkg/capability"
	"github.com/panbanda/insight/pkg/parser"
	"github.com/panbanda/insight/pkg/source"
	"github.com/rs/zerolog/log"
	sitter "github.com/smacker/go-tree-sitter"
	"gonum.org/v1/gonum/graph/simple"
)

// Graph is a directed call graph whose nodes are registry positions.
// Adjacency lives in gonum; metadata lives in the Registry.
type Graph struct {
	reg       *Registry
	g         *simple.DirectedGraph
	selfLoops map[int64]struct{}
	edges     []Edge
	skipped   int
}

func newGraph(reg *Registry) *Graph {
	g := &Graph{
		reg:       reg,
		g:         simple.NewDirectedGraph(),
		selfLoops: make(map[int64]struct{}),
	}
	for i := range reg.Len() {
		g.g.AddNode(simple.Node(int64(i)))
	}
	return g
}

// addEdge records a call edge. Repeated edges collapse into one.
func (g *Graph) addEdge(from, to int) {
	uid, vid := int64(from), int64(to)
	if uid == vid {
		// simple.DirectedGraph rejects self edges
		if _, ok := g.selfLoops[uid]; ok {
			return
		}
		g.selfLoops[uid] = struct{}{}
	} else {
		if g.g.HasEdgeFromTo(uid, vid) {
			return
		}
		g.g.SetEdge(g.g.NewEdge(simple.Node(uid), simple.Node(vid)))
	}
	g.edges = append(g.edges, Edge{
		From: g.reg.At(from).QualifiedName,
		To:   g.reg.At(to).QualifiedName,
	})
}

// Registry returns the definition registry backing the graph.
func (g *Graph) Registry() *Registry {
	return g.reg
}

// Nodes returns all definitions in registry order.
func (g *Graph) Nodes() []Definition {
	return g.reg.Definitions()
}

// Edges returns call edges in the order they were resolved.
func (g *Graph) Edges() []Edge {
	return slices.Clone(g.edges)
}

// NodeCount returns the number of definitions.
func (g *Graph) NodeCount() int {
	return g.reg.Len()
}

// EdgeCount returns the number of distinct call edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// SkippedFiles returns how many files were dropped for parse failures.
func (g *Graph) SkippedFiles() int {
	return g.skipped
}

// InDegree returns the number of distinct callers of a definition.
// A self-call counts once.
func (g *Graph) InDegree(qualifiedName string) int {
	pos, ok := g.reg.Position(qualifiedName)
	if !ok {
		return 0
	}
	return g.inDegree(int64(pos))
}

// OutDegree returns the number of distinct callees of a definition.
func (g *Graph) OutDegree(qualifiedName string) int {
	pos, ok := g.reg.Position(qualifiedName)
	if !ok {
		return 0
	}
	return g.outDegree(int64(pos))
}

func (g *Graph) inDegree(id int64) int {
	n := g.g.To(id).Len()
	if _, ok := g.selfLoops[id]; ok {
		n++
	}
	return n
}

func (g *Graph) outDegree(id int64) int {
	n := g.g.From(id).Len()
	if _, ok := g.selfLoops[id]; ok {
		n++
	}
	return n
}

// Callers returns the qualified names calling a definition, in registry order.
func (g *Graph) Callers(qualifiedName string) []string {
	pos, ok := g.reg.Position(qualifiedName)
	if !ok {
		return nil
	}
	id := int64(pos)

	var ids []int64
	nodes := g.g.To(id)
	for nodes.Next() {
		ids = append(ids, nodes.Node().ID())
	}
	if _, ok := g.selfLoops[id]; ok {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	callers := make([]string, len(ids))
	for i, cid := range ids {
		callers[i] = g.reg.At(int(cid)).QualifiedName
	}
	return callers
}

// Report returns the serializable view of the graph.
func (g *Graph) Report() *Report {
	r := &Report{
		Nodes: g.Nodes(),
		Edges: g.Edges(),
		Summary: Summary{
			TotalNodes:   g.NodeCount(),
			TotalEdges:   g.EdgeCount(),
			SkippedFiles: g.skipped,
		},
	}
	if r.Edges == nil {
		r.Edges = []Edge{}
	}
	for _, d := range r.Nodes {
		switch d.Kind {
		case KindFunction:
			r.Summary.TotalFunctions++
		case KindClass:
			r.Summary.TotalClasses++
		}
	}
	return r
}

// Builder constructs call graphs.
type Builder struct {
	caps    capability.Set
	workers int
}

// Option is a functional option for configuring Builder.
type Option func(*Builder)

// WithWorkers sets the parse worker count (0 = default).
func WithWorkers(n int) Option {
	return func(b *Builder) {
		b.workers = n
	}
}

// New creates a call graph builder.
func New(caps capability.Set, opts ...Option) *Builder {
	b := &Builder{caps: caps}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Compile-time check that Builder implements SourceAnalyzer.
var _ analyzer.SourceAnalyzer[*Graph] = (*Builder)(nil)

// callSite is a call expression inside a function body.
type callSite struct {
	caller string
	name   string
}

// fileGraphData holds definitions and call sites for a single file.
type fileGraphData struct {
	defs  []Definition
	calls []callSite
}

// Analyze builds the call graph. All definitions from every file are
// registered before any call is resolved, so calls into files later in the
// input order still resolve. Files that fail to parse are skipped.
func (b *Builder) Analyze(ctx context.Context, files []source.File) (*Graph, error) {
	if !b.caps.Graph {
		return nil, analyzer.Unavailable(
			"graph backend not available",
			"Call graph analysis requires the graph capability (capabilities.graph = true).",
		)
	}

	results, errs := fileproc.MapFiles(ctx, files, func(psr *parser.Parser, f source.File) (fileGraphData, error) {
		return extractFile(ctx, psr, f)
	}, fileproc.WithWorkers(b.workers))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reg := NewRegistry()
	for _, fd := range results {
		for _, d := range fd.defs {
			reg.Add(d)
		}
	}

	g := newGraph(reg)
	if errs != nil {
		g.skipped = len(errs.Errors)
		for _, e := range errs.Errors {
			log.Debug().Str("file", e.Path).Err(e.Err).Msg("skipping file in call graph")
		}
	}

	for _, fd := range results {
		for _, c := range fd.calls {
			callee, ok := Resolve(c.name, reg)
			if !ok {
				continue
			}
			from, ok := reg.Position(c.caller)
			if !ok {
				continue
			}
			to, _ := reg.Position(callee.QualifiedName)
			g.addEdge(from, to)
		}
	}

	return g, nil
}

func extractFile(ctx context.Context, psr *parser.Parser, f source.File) (fileGraphData, error) {
	result, err := fileproc.ParsePython(ctx, psr, f)
	if err != nil {
		return fileGraphData{}, err
	}
	defer result.Close()

	var data fileGraphData
	root := result.Root()

	parser.WalkTyped(root, result.Source, func(node *sitter.Node, nodeType string, src []byte) bool {
		var kind Kind
		switch nodeType {
		case parser.NodeFunctionDef:
			kind = KindFunction
		case parser.NodeClassDef:
			kind = KindClass
		default:
			return true
		}
		name := parser.DefinitionName(node, src)
		data.defs = append(data.defs, Definition{
			QualifiedName: QualifiedName(f.Path, name),
			Name:          name,
			Kind:          kind,
			File:          f.Path,
			Line:          node.StartPoint().Row + 1,
		})
		return true
	})

	collectCalls(root, result.Source, f.Path, "", &data.calls)
	return data, nil
}

// collectCalls records every call made inside a function body, attributed to
// the innermost enclosing function. Decorator calls belong to the function
// they decorate. Calls at module or class level are ignored.
func collectCalls(node *sitter.Node, src []byte, file, current string, out *[]callSite) {
	switch node.Type() {
	case parser.NodeDecorated:
		def := node.ChildByFieldName("definition")
		if def == nil || def.Type() != parser.NodeFunctionDef {
			break
		}
		decorated := QualifiedName(file, parser.DefinitionName(def, src))
		for i := range int(node.ChildCount()) {
			child := node.Child(i)
			if child.Type() == parser.NodeDecorator {
				collectCalls(child, src, file, decorated, out)
			} else {
				collectCalls(child, src, file, current, out)
			}
		}
		return
	case parser.NodeFunctionDef:
		current = QualifiedName(file, parser.DefinitionName(node, src))
	case parser.NodeCall:
		if current != "" {
			if name, _ := parser.CallName(node, src); name != "" {
				*out = append(*out, callSite{caller: current, name: name})
			}
		}
	}
	for i := range int(node.ChildCount()) {
		collectCalls(node.Child(i), src, file, current, out)
	}
}
