// Package orphan finds definitions that nothing in the codebase calls.
package orphan

import (
	"context"
	"math"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/panbanda/insight/pkg/analyzer"
	"github.com/panbanda/insight/pkg/analyzer/callgraph"
	"github.com/panbanda/insight/pkg/capability"
	"github.com/panbanda/insight/pkg/source"
)

// Default list caps.
const (
	DefaultOrphanLimit     = 50
	DefaultEntryPointLimit = 20
)

// Detector classifies call graph nodes with no incoming edges.
type Detector struct {
	builder         *callgraph.Builder
	orphanLimit     int
	entryPointLimit int
}

// Option is a functional option for configuring Detector.
type Option func(*Detector)

// WithLimits sets the orphan list and entry point list caps.
func WithLimits(orphans, entryPoints int) Option {
	return func(d *Detector) {
		d.orphanLimit = orphans
		d.entryPointLimit = entryPoints
	}
}

// WithBuilder replaces the call graph builder.
func WithBuilder(b *callgraph.Builder) Option {
	return func(d *Detector) {
		d.builder = b
	}
}

// New creates an orphan detector.
func New(caps capability.Set, opts ...Option) *Detector {
	d := &Detector{
		builder:         callgraph.New(caps),
		orphanLimit:     DefaultOrphanLimit,
		entryPointLimit: DefaultEntryPointLimit,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Compile-time check that Detector implements SourceAnalyzer.
var _ analyzer.SourceAnalyzer[*Analysis] = (*Detector)(nil)

// Analyze builds the call graph and classifies its nodes.
func (d *Detector) Analyze(ctx context.Context, files []source.File) (*Analysis, error) {
	g, err := d.builder.Analyze(ctx, files)
	if err != nil {
		return nil, err
	}
	return d.Detect(g), nil
}

// IsSpecial reports whether a name is exempt from orphan classification:
// dunder-prefixed names and main.
func IsSpecial(name string) bool {
	return strings.HasPrefix(name, "__") || name == "main"
}

// Detect classifies nodes of an existing graph. Lists keep registry order.
func (d *Detector) Detect(g *callgraph.Graph) *Analysis {
	reg := g.Registry()

	// called holds every node with an incoming edge, calling every node with
	// an outgoing one.
	called := roaring.New()
	calling := roaring.New()
	for _, e := range g.Edges() {
		from, _ := reg.Position(e.From)
		to, _ := reg.Position(e.To)
		calling.Add(uint32(from))
		called.Add(uint32(to))
	}

	a := &Analysis{
		OrphanFunctions: []Info{},
		OrphanClasses:   []Info{},
		EntryPoints:     []Info{},
	}

	orphans := 0
	for pos, def := range g.Nodes() {
		if called.Contains(uint32(pos)) {
			continue
		}
		info := Info{
			Name:     def.Name,
			FullName: def.QualifiedName,
			File:     def.File,
			Line:     def.Line,
			Type:     def.Kind.String(),
			CalledBy: g.InDegree(def.QualifiedName),
		}

		if !IsSpecial(def.Name) {
			switch def.Kind {
			case callgraph.KindFunction:
				orphans++
				a.OrphanFunctions = appendCapped(a.OrphanFunctions, info, d.orphanLimit)
			case callgraph.KindClass:
				orphans++
				a.OrphanClasses = appendCapped(a.OrphanClasses, info, d.orphanLimit)
			}
		}

		if calling.Contains(uint32(pos)) {
			a.EntryPoints = appendCapped(a.EntryPoints, info, d.entryPointLimit)
		}
	}

	total := g.NodeCount()
	a.Summary = Summary{
		TotalDefinitions: total,
		TotalOrphans:     orphans,
		OrphanPercentage: round2(float64(orphans) / float64(max(total, 1)) * 100),
	}
	return a
}

func appendCapped(list []Info, info Info, limit int) []Info {
	if len(list) >= limit {
		return list
	}
	return append(list, info)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
