// Package similarity clusters Python functions by the cosine similarity of
// their embeddings and reports near-duplicate pairs.
package similarity

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/panbanda/insight/internal/fileproc"
	"github.com/panbanda/insight/pkg/analyzer"
	"github.com/panbanda/insight/pkg/capability"
	"github.com/panbanda/insight/pkg/parser"
	"github.com/panbanda/insight/pkg/source"
	"github.com/rs/zerolog/log"
	sitter "github.com/smacker/go-tree-sitter"
	"golang.org/x/sync/errgroup"
)

// Defaults for similarity analysis.
const (
	DefaultThreshold   = 0.60
	DefaultPairLimit   = 20
	DefaultConcurrency = 4

	// MinCodeLength is the minimum trimmed length of a function to embed.
	MinCodeLength = 20
	// PreviewLength is the number of characters kept for pair previews.
	PreviewLength = 200

	maxClusters = 10
)

// Pair is two functions in the same cluster above the similarity threshold.
type Pair struct {
	Func1      string  `json:"func1" toon:"func1"`
	Func2      string  `json:"func2" toon:"func2"`
	Similarity float64 `json:"similarity" toon:"similarity"`
	Code1      string  `json:"code1" toon:"code1"`
	Code2      string  `json:"code2" toon:"code2"`
}

// Stats summarizes the clustering.
type Stats struct {
	AvgClusterSize    float64 `json:"avg_cluster_size" toon:"avg_cluster_size"`
	SimilarPairsCount int     `json:"similar_pairs_count" toon:"similar_pairs_count"`
}

// Analysis is the similarity clustering result. Clusters maps a cluster id
// to its member functions in discovery order.
type Analysis struct {
	Clusters       map[string][]string `json:"clusters" toon:"clusters"`
	SimilarPairs   []Pair              `json:"similar_pairs" toon:"similar_pairs"`
	TotalFunctions int                 `json:"total_functions" toon:"total_functions"`
	NumClusters    int                 `json:"num_clusters" toon:"num_clusters"`
	Stats          Stats               `json:"stats" toon:"stats"`
}

// Function is a candidate for embedding.
type Function struct {
	Name string
	Code string
}

var _ analyzer.SourceAnalyzer[*Analysis] = (*Analyzer)(nil)

// Analyzer embeds and clusters functions.
type Analyzer struct {
	caps        capability.Set
	threshold   float64
	pairLimit   int
	concurrency int
	workers     int
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithThreshold sets the cosine similarity a pair must exceed.
func WithThreshold(t float64) Option {
	return func(a *Analyzer) {
		a.threshold = t
	}
}

// WithPairLimit caps the reported pair list.
func WithPairLimit(n int) Option {
	return func(a *Analyzer) {
		a.pairLimit = n
	}
}

// WithConcurrency sets the number of in-flight embedding requests.
func WithConcurrency(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithWorkers sets the parse worker count (0 = default).
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		a.workers = n
	}
}

// New creates a similarity analyzer.
func New(caps capability.Set, opts ...Option) *Analyzer {
	a := &Analyzer{
		caps:        caps,
		threshold:   DefaultThreshold,
		pairLimit:   DefaultPairLimit,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze embeds every qualifying function, clusters the embeddings and
// collects similar pairs within each cluster.
func (a *Analyzer) Analyze(ctx context.Context, files []source.File) (*Analysis, error) {
	if a.caps.Embedder == nil {
		return nil, analyzer.Unavailable("embedding model not available",
			"configure embedding.provider and make sure the model is reachable")
	}

	functions, err := a.collect(ctx, files)
	if err != nil {
		return nil, err
	}

	names, codes, vectors, err := a.embed(ctx, functions)
	if err != nil {
		return nil, err
	}
	if len(vectors) < 2 {
		return nil, analyzer.Insufficient("Not enough functions found",
			fmt.Sprintf("Found only %d functions. Need at least 2 for similarity analysis.", len(vectors)))
	}

	k := ClusterCount(len(vectors))
	labels, _ := DefaultKMeans(k).Fit(vectors)

	var pairs []Pair
	for c := range k {
		var members []int
		for i, l := range labels {
			if l == c {
				members = append(members, i)
			}
		}
		for x := 0; x < len(members); x++ {
			for y := x + 1; y < len(members); y++ {
				i, j := members[x], members[y]
				sim := Cosine(vectors[i], vectors[j])
				if sim <= a.threshold {
					continue
				}
				pairs = append(pairs, Pair{
					Func1:      names[i],
					Func2:      names[j],
					Similarity: round(sim, 3),
					Code1:      preview(codes[i]),
					Code2:      preview(codes[j]),
				})
			}
		}
	}
	slices.SortStableFunc(pairs, func(x, y Pair) int {
		return cmp.Compare(y.Similarity, x.Similarity)
	})

	analysis := &Analysis{
		Clusters:       make(map[string][]string, k),
		SimilarPairs:   make([]Pair, 0, min(len(pairs), a.pairLimit)),
		TotalFunctions: len(vectors),
		NumClusters:    k,
		Stats: Stats{
			AvgClusterSize:    round(float64(len(vectors))/float64(k), 2),
			SimilarPairsCount: len(pairs),
		},
	}
	analysis.SimilarPairs = append(analysis.SimilarPairs, pairs[:min(len(pairs), a.pairLimit)]...)
	for i, l := range labels {
		id := strconv.Itoa(l)
		analysis.Clusters[id] = append(analysis.Clusters[id], names[i])
	}
	return analysis, nil
}

// ClusterCount returns floor(n/3) clamped to [2, 10].
func ClusterCount(n int) int {
	return max(2, min(maxClusters, n/3))
}

// collect extracts embeddable functions from Python files in input order.
func (a *Analyzer) collect(ctx context.Context, files []source.File) ([]Function, error) {
	var py []source.File
	for _, f := range files {
		if filepath.Ext(f.Path) == ".py" {
			py = append(py, f)
		}
	}

	results, errs := fileproc.MapFiles(ctx, py, func(psr *parser.Parser, f source.File) ([]Function, error) {
		res, err := fileproc.ParsePython(ctx, psr, f)
		if err != nil {
			return nil, err
		}
		defer res.Close()
		return Functions(res), nil
	}, fileproc.WithWorkers(a.workers))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if errs != nil {
		for _, e := range errs.Errors {
			log.Debug().Str("file", e.Path).Err(e.Err).Msg("skipping file in similarity analysis")
		}
	}

	var out []Function
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// Functions returns the functions of a parsed file whose trimmed source is
// at least MinCodeLength characters, named "<path>::<name>".
func Functions(res *parser.ParseResult) []Function {
	var out []Function
	parser.WalkTyped(res.Root(), res.Source, func(n *sitter.Node, nodeType string, src []byte) bool {
		if nodeType != parser.NodeFunctionDef {
			return true
		}
		code := parser.GetNodeText(n, src)
		if len(strings.TrimSpace(code)) >= MinCodeLength {
			out = append(out, Function{
				Name: res.Path + "::" + parser.DefinitionName(n, src),
				Code: code,
			})
		}
		return true
	})
	return out
}

// embed requests embeddings concurrently. Functions whose embedding fails
// are logged and dropped. A repeated name keeps its first position and
// takes the later function's code and vector.
func (a *Analyzer) embed(ctx context.Context, functions []Function) ([]string, []string, [][]float64, error) {
	vectors := make([][]float64, len(functions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, fn := range functions {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("embedding %s panicked: %v", fn.Name, r)
				}
			}()
			v, err := a.caps.Embedder.Embed(gctx, fn.Code)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Warn().Str("function", fn.Name).Err(err).Msg("embedding failed")
				return nil
			}
			vectors[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}

	var names, codes []string
	var kept [][]float64
	index := make(map[string]int)
	dim := -1
	for i, fn := range functions {
		v := vectors[i]
		if v == nil {
			continue
		}
		if dim < 0 {
			dim = len(v)
		}
		if len(v) != dim {
			log.Warn().Str("function", fn.Name).Int("dim", len(v)).Int("expected", dim).Msg("embedding dimension mismatch")
			continue
		}
		if j, ok := index[fn.Name]; ok {
			codes[j], kept[j] = fn.Code, v
			continue
		}
		index[fn.Name] = len(names)
		names = append(names, fn.Name)
		codes = append(codes, fn.Code)
		kept = append(kept, v)
	}
	return names, codes, kept, nil
}

// preview returns the first PreviewLength characters of code.
func preview(code string) string {
	n := 0
	for i := range code {
		if n == PreviewLength {
			return code[:i]
		}
		n++
	}
	return code
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
