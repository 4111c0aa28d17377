package similarity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"testing"

	"github.com/panbanda/insight/pkg/analyzer"
	"github.com/panbanda/insight/pkg/capability"
	"github.com/panbanda/insight/pkg/parser"
	"github.com/panbanda/insight/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defName = regexp.MustCompile(`def\s+(\w+)`)

// tableEmbedder returns a fixed vector per function name.
type tableEmbedder struct {
	vectors map[string][]float64
	fail    map[string]bool
}

func (e *tableEmbedder) Name() string                        { return "table" }
func (e *tableEmbedder) Available(ctx context.Context) error { return nil }

func (e *tableEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	m := defName.FindStringSubmatch(text)
	if m == nil {
		return nil, errors.New("no function name")
	}
	if e.fail[m[1]] {
		return nil, fmt.Errorf("embedding %s failed", m[1])
	}
	if v, ok := e.vectors[m[1]]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("no vector for %s", m[1])
}

// shapeEmbedder embeds code by counting a few structural markers, so bodies
// that differ only in their names embed identically.
type shapeEmbedder struct{}

func (shapeEmbedder) Name() string                        { return "shape" }
func (shapeEmbedder) Available(ctx context.Context) error { return nil }

func (shapeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	markers := []string{"read(", "parse(", "return", "for ", "if "}
	v := make([]float64, len(markers))
	for i, m := range markers {
		v[i] = float64(strings.Count(text, m))
	}
	return v, nil
}

func defs(names ...string) string {
	var b strings.Builder
	for _, n := range names {
		fmt.Fprintf(&b, "def %s(value):\n    return transform(value)\n\n", n)
	}
	return b.String()
}

func groupedEmbedder() *tableEmbedder {
	return &tableEmbedder{vectors: map[string][]float64{
		"a1": {1, 0.1, 0},
		"a2": {1, 0.2, 0},
		"a3": {1, 0, 0.1},
		"b1": {0.1, 1, 0},
		"b2": {0, 1, 0.2},
		"b3": {0.2, 1, 0.1},
	}}
}

func TestAnalyze_NearIdenticalPair(t *testing.T) {
	files := source.FromMap(map[string]string{
		"m.py": `def load_a(path):
    data = read(path)
    return parse(data)

def load_b(path):
    data = read(path)
    return parse(data)
`,
	})

	a, err := New(capability.All(shapeEmbedder{})).Analyze(context.Background(), files)
	require.NoError(t, err)

	require.Len(t, a.SimilarPairs, 1)
	pair := a.SimilarPairs[0]
	assert.Equal(t, "m.py::load_a", pair.Func1)
	assert.Equal(t, "m.py::load_b", pair.Func2)
	assert.Equal(t, 1.0, pair.Similarity)
	assert.True(t, strings.HasPrefix(pair.Code1, "def load_a(path):"))

	assert.Equal(t, 2, a.TotalFunctions)
	assert.Equal(t, 2, a.NumClusters)
	assert.Equal(t, map[string][]string{"0": {"m.py::load_a", "m.py::load_b"}}, a.Clusters)
	assert.Equal(t, Stats{AvgClusterSize: 1, SimilarPairsCount: 1}, a.Stats)
}

func TestAnalyze_TwoDistinctVectorsNeverPair(t *testing.T) {
	emb := &tableEmbedder{vectors: map[string][]float64{
		"near1": {1, 0, 0},
		"near2": {0.99, 0.01, 0},
	}}
	require.Greater(t, Cosine(emb.vectors["near1"], emb.vectors["near2"]), DefaultThreshold)

	a, err := New(capability.All(emb)).Analyze(context.Background(), source.FromMap(map[string]string{
		"m.py": defs("near1", "near2"),
	}))
	require.NoError(t, err)

	assert.Equal(t, 2, a.NumClusters)
	assert.ElementsMatch(t, [][]string{{"m.py::near1"}, {"m.py::near2"}}, [][]string{a.Clusters["0"], a.Clusters["1"]})
	assert.Empty(t, a.SimilarPairs)
	assert.Equal(t, 0, a.Stats.SimilarPairsCount)
}

func TestAnalyze_SeparatesGroups(t *testing.T) {
	files := source.FromMap(map[string]string{"m.py": defs("a1", "b1", "a2", "b2", "a3", "b3")})

	a, err := New(capability.All(groupedEmbedder())).Analyze(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, 6, a.TotalFunctions)
	assert.Equal(t, 2, a.NumClusters)
	assert.Equal(t, 3.0, a.Stats.AvgClusterSize)
	assert.Equal(t, 6, a.Stats.SimilarPairsCount)
	require.Len(t, a.SimilarPairs, 6)

	var groups [][]string
	for _, members := range a.Clusters {
		groups = append(groups, members)
	}
	assert.ElementsMatch(t, [][]string{
		{"m.py::a1", "m.py::a2", "m.py::a3"},
		{"m.py::b1", "m.py::b2", "m.py::b3"},
	}, groups)

	sims := make([]float64, len(a.SimilarPairs))
	for i, p := range a.SimilarPairs {
		sims[i] = p.Similarity
		assert.Equal(t, p.Func1[len("m.py::")], p.Func2[len("m.py::")], "pairs stay within a cluster")
		assert.Greater(t, p.Similarity, DefaultThreshold)
	}
	assert.True(t, slices.IsSortedFunc(sims, func(x, y float64) int {
		switch {
		case x > y:
			return -1
		case x < y:
			return 1
		}
		return 0
	}))

	limited, err := New(capability.All(groupedEmbedder()), WithPairLimit(2)).Analyze(context.Background(), files)
	require.NoError(t, err)
	assert.Len(t, limited.SimilarPairs, 2)
	assert.Equal(t, 6, limited.Stats.SimilarPairsCount)
}

func TestAnalyze_DissimilarFunctionsHaveNoPairs(t *testing.T) {
	emb := &tableEmbedder{vectors: map[string][]float64{"x": {1, 0}, "y": {0, 1}}}
	a, err := New(capability.All(emb)).Analyze(context.Background(), source.FromMap(map[string]string{"m.py": defs("x", "y")}))
	require.NoError(t, err)
	assert.Empty(t, a.SimilarPairs)
	assert.Len(t, a.Clusters, 2)
}

func TestAnalyze_EmbeddingUnavailable(t *testing.T) {
	_, err := New(capability.Set{Graph: true, Metrics: true}).Analyze(context.Background(), source.FromMap(map[string]string{"m.py": defs("a1", "a2")}))
	require.Error(t, err)
	assert.ErrorIs(t, err, analyzer.ErrUnavailable)
}

func TestAnalyze_InsufficientData(t *testing.T) {
	emb := &tableEmbedder{
		vectors: map[string][]float64{"a1": {1, 0}, "a2": {1, 0}},
		fail:    map[string]bool{"a2": true},
	}
	files := source.FromMap(map[string]string{
		"m.py":      defs("a1", "a2") + "def f():\n    pass\n",
		"notes.txt": defs("a3"),
	})

	_, err := New(capability.All(emb)).Analyze(context.Background(), files)
	require.Error(t, err)
	assert.ErrorIs(t, err, analyzer.ErrInsufficientData)

	var f *analyzer.Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, "Not enough functions found", f.Err)
	assert.Equal(t, "Found only 1 functions. Need at least 2 for similarity analysis.", f.Message)
}

func TestAnalyze_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(capability.All(groupedEmbedder())).Analyze(ctx, source.FromMap(map[string]string{"m.py": defs("a1", "a2")}))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFunctions(t *testing.T) {
	psr := parser.New()
	defer psr.Close()
	res, err := psr.ParsePython(context.Background(), []byte(`def f():
    pass

def g(x):
    return x+1

class C:
    async def fetch(self):
        return await get(self)
`), "pkg/m.py")
	require.NoError(t, err)
	defer res.Close()

	fns := Functions(res)
	require.Len(t, fns, 2)
	assert.Equal(t, "pkg/m.py::g", fns[0].Name)
	assert.Equal(t, "def g(x):\n    return x+1", fns[0].Code)
	assert.Equal(t, "pkg/m.py::fetch", fns[1].Name)
}

func TestClusterCount(t *testing.T) {
	tests := []struct{ n, want int }{
		{2, 2}, {5, 2}, {6, 2}, {9, 3}, {20, 6}, {30, 10}, {300, 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClusterCount(tt.n), "n=%d", tt.n)
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"scaled", []float64{1, 2}, []float64{2, 4}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1},
		{"zero vector", []float64{0, 0}, []float64{1, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-9)
		})
	}
}

func TestKMeans(t *testing.T) {
	points := [][]float64{{0, 0}, {10, 10}, {0.2, 0.1}, {10.1, 9.9}, {0.1, 0.3}}
	labels, inertia := DefaultKMeans(2).Fit(points)
	require.Len(t, labels, 5)
	assert.Equal(t, labels[0], labels[2])
	assert.Equal(t, labels[0], labels[4])
	assert.Equal(t, labels[1], labels[3])
	assert.NotEqual(t, labels[0], labels[1])
	assert.Less(t, inertia, 1.0)

	again, _ := DefaultKMeans(2).Fit(points)
	assert.Equal(t, labels, again)

	same := [][]float64{{1, 1}, {1, 1}, {1, 1}}
	collapsed, zero := DefaultKMeans(2).Fit(same)
	assert.Equal(t, []int{0, 0, 0}, collapsed)
	assert.Zero(t, zero)

	empty, _ := DefaultKMeans(2).Fit(nil)
	assert.Nil(t, empty)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short"))
	long := strings.Repeat("é", 250)
	assert.Equal(t, strings.Repeat("é", PreviewLength), preview(long))
}
