package callgraph

import (
	"context"
	"errors"
	"testing"

	"github.com/panbanda/insight/pkg/analyzer"
	"github.com/panbanda/insight/pkg/capability"
	"github.com/panbanda/insight/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, files map[string]string) *Graph {
	t.Helper()
	g, err := New(capability.Set{Graph: true}).Analyze(context.Background(), source.FromMap(files))
	require.NoError(t, err)
	return g
}

func TestAnalyze_ThreeFileScenario(t *testing.T) {
	g := build(t, map[string]string{
		"a.py": "def foo():\n    bar()\n",
		"b.py": "def bar():\n    return 1\n",
		"c.py": "def baz():\n    pass\n",
	})

	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, []Edge{{From: "a.py::foo", To: "b.py::bar"}}, g.Edges())

	assert.Equal(t, 0, g.InDegree("a.py::foo"))
	assert.Equal(t, 1, g.OutDegree("a.py::foo"))
	assert.Equal(t, 1, g.InDegree("b.py::bar"))
	assert.Equal(t, 0, g.InDegree("c.py::baz"))
	assert.Equal(t, []string{"a.py::foo"}, g.Callers("b.py::bar"))
}

func TestAnalyze_Definitions(t *testing.T) {
	g := build(t, map[string]string{
		"m.py": `class Service:
    def __init__(self):
        self.x = 1

    def run(self):
        def inner():
            return 2
        return inner()

async def fetch():
    return 3
`,
	})

	var names []string
	for _, d := range g.Nodes() {
		names = append(names, d.QualifiedName)
	}
	assert.Equal(t, []string{"m.py::Service", "m.py::__init__", "m.py::run", "m.py::inner", "m.py::fetch"}, names)

	svc, ok := g.Registry().Lookup("m.py::Service")
	require.True(t, ok)
	assert.Equal(t, KindClass, svc.Kind)
	assert.Equal(t, uint32(1), svc.Line)

	fetch, ok := g.Registry().Lookup("m.py::fetch")
	require.True(t, ok)
	assert.Equal(t, KindFunction, fetch.Kind)
	assert.Equal(t, uint32(10), fetch.Line)

	assert.Equal(t, []Edge{{From: "m.py::run", To: "m.py::inner"}}, g.Edges())
}

func TestAnalyze_CallResolution(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  []Edge
	}{
		{
			name:  "module level call makes no edge",
			files: map[string]string{"m.py": "def helper():\n    pass\n\nhelper()\n"},
			want:  nil,
		},
		{
			name:  "class level call makes no edge",
			files: map[string]string{"m.py": "def helper():\n    return 1\n\nclass K:\n    x = helper()\n"},
			want:  nil,
		},
		{
			name:  "attribute call resolves by trailing name",
			files: map[string]string{"m.py": "def save():\n    pass\n\ndef main(db):\n    db.save()\n"},
			want:  []Edge{{From: "m.py::main", To: "m.py::save"}},
		},
		{
			name:  "unknown names are ignored",
			files: map[string]string{"m.py": "def main():\n    print('x')\n    len([])\n"},
			want:  nil,
		},
		{
			name: "first definition in path order wins",
			files: map[string]string{
				"a.py": "def util():\n    pass\n",
				"b.py": "def util():\n    pass\n",
				"c.py": "def caller():\n    util()\n",
			},
			want: []Edge{{From: "c.py::caller", To: "a.py::util"}},
		},
		{
			name:  "repeated calls collapse",
			files: map[string]string{"m.py": "def f():\n    pass\n\ndef g():\n    f()\n    f()\n"},
			want:  []Edge{{From: "m.py::g", To: "m.py::f"}},
		},
		{
			name:  "nested function calls belong to the inner function",
			files: map[string]string{"m.py": "def a():\n    pass\n\ndef b():\n    pass\n\ndef outer():\n    def inner():\n        a()\n    b()\n"},
			want: []Edge{
				{From: "m.py::inner", To: "m.py::a"},
				{From: "m.py::outer", To: "m.py::b"},
			},
		},
		{
			name:  "class instantiation targets the class",
			files: map[string]string{"m.py": "class Repo:\n    pass\n\ndef make():\n    return Repo()\n"},
			want:  []Edge{{From: "m.py::make", To: "m.py::Repo"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := build(t, tt.files)
			if tt.want == nil {
				assert.Empty(t, g.Edges())
				return
			}
			assert.Equal(t, tt.want, g.Edges())
		})
	}
}

func TestAnalyze_Recursion(t *testing.T) {
	g := build(t, map[string]string{
		"m.py": "def fact(n):\n    if n <= 1:\n        return 1\n    return n * fact(n - 1)\n",
	})

	assert.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, 1, g.InDegree("m.py::fact"))
	assert.Equal(t, 1, g.OutDegree("m.py::fact"))
	assert.Equal(t, []string{"m.py::fact"}, g.Callers("m.py::fact"))
}

func TestAnalyze_DecoratorCallsBelongToDecoratedFunction(t *testing.T) {
	g := build(t, map[string]string{
		"m.py": `def retry(n):
    def wrap(f):
        return f
    return wrap

@retry(3)
def fetch():
    return 1

@staticmethod
def plain():
    return 2

def main():
    fetch()
`,
	})

	assert.ElementsMatch(t, []Edge{
		{From: "m.py::fetch", To: "m.py::retry"},
		{From: "m.py::main", To: "m.py::fetch"},
	}, g.Edges())
	assert.Equal(t, []string{"m.py::fetch"}, g.Callers("m.py::retry"))
	assert.Equal(t, 0, g.OutDegree("m.py::plain"))

	fetch, ok := g.Registry().Lookup("m.py::fetch")
	require.True(t, ok)
	assert.Equal(t, uint32(7), fetch.Line)
}

func TestAnalyze_DecoratedMethodCalls(t *testing.T) {
	g := build(t, map[string]string{
		"m.py": `def route(path):
    return lambda f: f

class API:
    @route("/items")
    def items(self):
        return []
`,
	})

	assert.Equal(t, []Edge{{From: "m.py::items", To: "m.py::route"}}, g.Edges())
}

func TestAnalyze_DuplicateNameInFile(t *testing.T) {
	g := build(t, map[string]string{
		"m.py": "def handler():\n    return 1\n\ndef other():\n    pass\n\ndef handler():\n    return 2\n",
	})

	assert.Equal(t, 2, g.NodeCount())
	d, ok := g.Registry().Lookup("m.py::handler")
	require.True(t, ok)
	assert.Equal(t, uint32(7), d.Line)
	assert.Equal(t, "m.py::handler", g.Nodes()[0].QualifiedName)
}

func TestAnalyze_SkipsUnparseableFiles(t *testing.T) {
	g := build(t, map[string]string{
		"bad.py":  "def broken(:\n    pass\n",
		"good.py": "def ok():\n    broken()\n",
	})

	assert.Equal(t, 1, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())
	assert.Equal(t, 1, g.SkippedFiles())
	assert.Equal(t, 1, g.Report().Summary.SkippedFiles)
}

func TestAnalyze_Empty(t *testing.T) {
	g := build(t, nil)
	assert.Equal(t, 0, g.NodeCount())

	r := g.Report()
	assert.Empty(t, r.Nodes)
	assert.NotNil(t, r.Edges)
	assert.Equal(t, Summary{}, r.Summary)
}

func TestAnalyze_GraphUnavailable(t *testing.T) {
	g, err := New(capability.Set{}).Analyze(context.Background(), nil)
	assert.Nil(t, g)
	require.Error(t, err)
	assert.True(t, errors.Is(err, analyzer.ErrUnavailable))

	var f *analyzer.Failure
	require.True(t, errors.As(err, &f))
	assert.Equal(t, "graph backend not available", f.Err)
}

func TestAnalyze_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(capability.Set{Graph: true}).Analyze(ctx, source.FromMap(map[string]string{"a.py": "def a():\n    pass\n"}))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReport_Summary(t *testing.T) {
	g := build(t, map[string]string{
		"m.py": "class A:\n    def m(self):\n        helper()\n\ndef helper():\n    pass\n",
	})

	r := g.Report()
	assert.Equal(t, Summary{TotalNodes: 3, TotalEdges: 1, TotalFunctions: 2, TotalClasses: 1}, r.Summary)
}

func TestResolve(t *testing.T) {
	reg := NewRegistry()
	reg.Add(Definition{QualifiedName: "b.py::x", Name: "x", Kind: KindFunction, File: "b.py"})
	reg.Add(Definition{QualifiedName: "a.py::x", Name: "x", Kind: KindFunction, File: "a.py"})

	d, ok := Resolve("x", reg)
	require.True(t, ok)
	assert.Equal(t, "b.py::x", d.QualifiedName)

	_, ok = Resolve("y", reg)
	assert.False(t, ok)
	assert.True(t, reg.HasName("x"))
	assert.False(t, reg.HasName("y"))
}
