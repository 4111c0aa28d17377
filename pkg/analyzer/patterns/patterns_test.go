package patterns

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/panbanda/insight/pkg/parser"
	"github.com/panbanda/insight/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyze(t *testing.T, files map[string]string, opts ...Option) *Analysis {
	t.Helper()
	a, err := New(opts...).Analyze(context.Background(), source.FromMap(files))
	require.NoError(t, err)
	return a
}

func extractOne(t *testing.T, code string) Pattern {
	t.Helper()
	psr := parser.New()
	defer psr.Close()
	res, err := psr.ParsePython(context.Background(), []byte(code), "x.py")
	require.NoError(t, err)
	defer res.Close()

	fns := parser.GetFunctions(res)
	require.NotEmpty(t, fns)
	return Extract(fns[0].Node, res.Source)
}

func ifChain(n int) string {
	var b strings.Builder
	b.WriteString("def branches(x):\n    y = 0\n")
	for i := range n {
		fmt.Fprintf(&b, "    if x == %d:\n        y = %d\n", i, i)
	}
	b.WriteString("    return y\n")
	return b.String()
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		code string
		want Pattern
	}{
		{
			name: "no constructs gives empty pattern",
			code: "def noop(a, b):\n    x = a + b\n",
			want: Pattern{},
		},
		{
			name: "attribute calls are not tokenized",
			code: "def f(s):\n    s.strip()\n    print(s)\n",
			want: Pattern{"CALL:print"},
		},
		{
			name: "pre-order over nested definitions",
			code: "def outer():\n    def inner():\n        return helper()\n    return inner()\n",
			want: Pattern{"RETURN", "CALL:helper", "RETURN", "CALL:inner"},
		},
		{
			name: "all structural tokens",
			code: `def full(items):
    for i in items:
        while i:
            i -= 1
    if items:
        pass
    elif not items:
        raise ValueError("empty")
    try:
        pass
    except KeyError:
        pass
    with lock:
        pass
    return len(items)
`,
			want: Pattern{
				"FOR_LOOP", "WHILE_LOOP", "CONDITIONAL", "CONDITIONAL", "RAISE", "CALL:ValueError",
				"TRY_EXCEPT", "CONTEXT_MANAGER", "RETURN", "CALL:len",
			},
		},
		{
			name: "decorator calls come first",
			code: "@cache(1)\ndef g(x):\n    return x\n",
			want: Pattern{"CALL:cache", "RETURN"},
		},
		{
			name: "bare and attribute decorators add nothing",
			code: "@staticmethod\n@app.route(\"/\")\ndef h():\n    return 1\n",
			want: Pattern{"RETURN"},
		},
		{
			name: "async functions",
			code: "async def fetch(url):\n    return await get(url)\n",
			want: Pattern{"RETURN", "CALL:get"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractOne(t, tt.code))
		})
	}
}

func TestAnalyze_HighComplexityBoundary(t *testing.T) {
	six := analyze(t, map[string]string{"six.py": ifChain(6)})
	require.Len(t, six.AntiPatterns, 1)
	assert.Equal(t, AntiPattern{
		Type:     AntiHighComplexity,
		File:     "six.py",
		Line:     1,
		Function: "branches",
		Severity: SeverityHigh,
		Details:  "Function has 6 conditionals.",
	}, six.AntiPatterns[0])
	assert.Contains(t, six.AntiPatterns[0].Details, "6")

	five := analyze(t, map[string]string{"five.py": ifChain(5)})
	assert.Empty(t, five.AntiPatterns)
}

func TestAnalyze_DecoratorCallSuppressesMissingReturn(t *testing.T) {
	a := analyze(t, map[string]string{
		"m.py": "@register(\"job\")\ndef job():\n    x = 1\n\ndef idle():\n    x = 2\n",
	})

	require.Len(t, a.AntiPatterns, 1)
	assert.Equal(t, AntiMissingReturn, a.AntiPatterns[0].Type)
	assert.Equal(t, "idle", a.AntiPatterns[0].Function)
}

func TestAnalyze_EmptyPatternIsNeverCommon(t *testing.T) {
	var b strings.Builder
	for i := range 5 {
		fmt.Fprintf(&b, "def noop%d(a):\n    x = a\n\n", i)
	}
	a := analyze(t, map[string]string{"m.py": b.String()})

	assert.Equal(t, 5, a.TotalFunctions)
	assert.Empty(t, a.CommonPatterns)
	assert.Equal(t, 0, a.RarePatterns)
	require.Len(t, a.AntiPatterns, 5)
	for _, ap := range a.AntiPatterns {
		assert.Equal(t, AntiMissingReturn, ap.Type)
		assert.Equal(t, SeverityLow, ap.Severity)
		assert.Equal(t, "Function has no explicit return statement.", ap.Details)
	}
}

func TestAnalyze_NestedLoopsCountsSiblingLoops(t *testing.T) {
	// three sibling loops trigger the rule even though nothing is nested
	siblings := "def walk(a, b, c):\n    for x in a:\n        pass\n    for y in b:\n        pass\n    while c:\n        c -= 1\n    return c\n"
	a := analyze(t, map[string]string{"s.py": siblings})
	require.Len(t, a.AntiPatterns, 1)
	assert.Equal(t, AntiNestedLoops, a.AntiPatterns[0].Type)
	assert.Equal(t, SeverityMedium, a.AntiPatterns[0].Severity)
	assert.Equal(t, "Potential nested loops detected.", a.AntiPatterns[0].Details)

	// two truly nested loops do not
	nested := "def grid(rows):\n    for r in rows:\n        for c in r:\n            pass\n    return rows\n"
	assert.Empty(t, analyze(t, map[string]string{"n.py": nested}).AntiPatterns)
}

const commonSource = `def a1():
    return fetch()

def a2():
    return fetch()

def a3():
    return fetch()

def d1(urls):
    for u in urls:
        download_file(u)

def d2(urls):
    for u in urls:
        download_file(u)

def safe():
    try:
        x = 1
    except ValueError:
        raise
    try:
        y = 2
    except KeyError:
        pass
    return 0
`

func TestAnalyze_CommonPatterns(t *testing.T) {
	a := analyze(t, map[string]string{"m.py": commonSource})

	assert.Equal(t, 6, a.TotalFunctions)
	assert.Equal(t, 1, a.RarePatterns)
	assert.Empty(t, a.AntiPatterns)
	assert.Equal(t, []CommonPattern{
		{Pattern: Pattern{"RETURN", "CALL:fetch"}, Count: 3, Percentage: 50, Classification: LabelStandard},
		{Pattern: Pattern{"FOR_LOOP", "CALL:download_file"}, Count: 2, Percentage: 33.33, Classification: LabelWebScraping},
		{Pattern: Pattern{"TRY_EXCEPT", "RAISE", "TRY_EXCEPT", "RETURN"}, Count: 1, Percentage: 16.67, Classification: LabelDefensive},
	}, a.CommonPatterns)

	limited := analyze(t, map[string]string{"m.py": commonSource}, WithCommonLimit(1))
	require.Len(t, limited.CommonPatterns, 1)
	assert.Equal(t, 3, limited.CommonPatterns[0].Count)

	strict := analyze(t, map[string]string{"m.py": commonSource}, WithMinFrequency(0.4))
	require.Len(t, strict.CommonPatterns, 1)
}

func TestAnalyze_ClassStats(t *testing.T) {
	a := analyze(t, map[string]string{
		"c.py": `class A:
    def __init__(self):
        self.x = 1

    def run(self):
        return self.x

class B:
    @staticmethod
    def make():
        return B()
`,
	})

	assert.Equal(t, 2, a.TotalClasses)
	assert.Equal(t, 3, a.TotalFunctions)
	assert.Equal(t, 5, a.TotalPatterns)
	assert.Equal(t, ClassStats{AvgMethods: 1.5, WithInit: 1}, a.ClassStats)

	require.Len(t, a.AntiPatterns, 1)
	assert.Equal(t, "__init__", a.AntiPatterns[0].Function)
	assert.Equal(t, uint32(2), a.AntiPatterns[0].Line)
}

func TestAnalyze_EmptyAndBroken(t *testing.T) {
	empty := analyze(t, nil)
	assert.NotNil(t, empty.CommonPatterns)
	assert.NotNil(t, empty.AntiPatterns)
	assert.Equal(t, 0, empty.TotalPatterns)
	assert.Equal(t, ClassStats{}, empty.ClassStats)

	broken := analyze(t, map[string]string{
		"bad.py":  "def broken(:\n",
		"good.py": "def ok():\n    return 1\n",
	})
	assert.Equal(t, 1, broken.TotalFunctions)
}

func TestAnalyze_Idempotent(t *testing.T) {
	files := map[string]string{"m.py": commonSource, "six.py": ifChain(6)}
	first := analyze(t, files)
	second := analyze(t, files)
	assert.Equal(t, first.CommonPatterns, second.CommonPatterns)
	assert.Equal(t, first.AntiPatterns, second.AntiPatterns)
	assert.Equal(t, first.TotalPatterns, second.TotalPatterns)
}

func TestClassify(t *testing.T) {
	repeat := func(tok string, n int) Pattern {
		p := Pattern{}
		for range n {
			p = append(p, tok)
		}
		return p
	}

	tests := []struct {
		name    string
		pattern Pattern
		want    string
	}{
		{"download wins over regex", Pattern{"CALL:regex_find", "CALL:download"}, LabelWebScraping},
		{"regex ignores case", Pattern{"CALL:apply_REGEX", "RETURN"}, LabelRegex},
		{"two try blocks", Pattern{"TRY_EXCEPT", "TRY_EXCEPT"}, LabelDefensive},
		{"defensive before complexity", append(repeat("CONDITIONAL", 11), "TRY_EXCEPT", "TRY_EXCEPT"), LabelDefensive},
		{"eleven conditionals", repeat("CONDITIONAL", 11), LabelHighComplexity},
		{"ten conditionals", repeat("CONDITIONAL", 10), LabelStandard},
		{"four loops", Pattern{"FOR_LOOP", "FOR_LOOP", "WHILE_LOOP", "WHILE_LOOP"}, LabelLoopHeavy},
		{"three loops", Pattern{"FOR_LOOP", "FOR_LOOP", "WHILE_LOOP"}, LabelStandard},
		{"non-call download token", Pattern{"download", "RETURN"}, LabelStandard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.pattern))
		})
	}
}

func TestIsMeaningful(t *testing.T) {
	tests := []struct {
		name    string
		pattern Pattern
		count   int
		total   int
		want    bool
	}{
		{"empty", Pattern{}, 10, 10, false},
		{"single return", Pattern{"RETURN"}, 10, 10, false},
		{"super call", Pattern{"CALL:super"}, 10, 10, false},
		{"too rare", Pattern{"RETURN", "RETURN"}, 1, 1000, false},
		{"frequent enough", Pattern{"RETURN", "RETURN"}, 5, 1000, true},
		{"zero total", Pattern{"RETURN", "CALL:x"}, 1, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsMeaningful(tt.pattern, tt.count, tt.total, DefaultMinFrequency))
		})
	}
}

func TestDetectAntiPatterns_Multiple(t *testing.T) {
	p := Pattern{}
	for range 6 {
		p = append(p, TokenConditional)
	}
	p = append(p, TokenForLoop, TokenForLoop, TokenWhileLoop)

	found := DetectAntiPatterns(FunctionPattern{File: "f.py", Name: "busy", Line: 3, Pattern: p})
	require.Len(t, found, 3)
	assert.Equal(t, AntiHighComplexity, found[0].Type)
	assert.Equal(t, AntiMissingReturn, found[1].Type)
	assert.Equal(t, AntiNestedLoops, found[2].Type)

	counts := (&Analysis{AntiPatterns: found}).CountBySeverity()
	assert.Equal(t, map[Severity]int{SeverityHigh: 1, SeverityLow: 1, SeverityMedium: 1}, counts)
}
