package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"slices"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/insight/internal/output"
	"github.com/panbanda/insight/internal/service/analysis"
	"github.com/panbanda/insight/pkg/capability"
	"github.com/panbanda/insight/pkg/config"
	"github.com/panbanda/insight/pkg/security"
	"github.com/panbanda/insight/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var projectFiles = map[string]string{
	"app.py":  "def main():\n    helper()\n\ndef helper():\n    return 1\n",
	"util.py": "def helper():\n    return 2\n\ndef unused():\n    pass\n",
}

func newTestServer(t *testing.T, opts ...Option) (*Server, string) {
	t.Helper()
	root := testutil.OSTree(t, projectFiles)
	svc := analysis.New(analysis.WithConfig(config.DefaultConfig()), analysis.WithCapabilities(capability.All(nil)))
	return NewServer("test", svc, opts...), root
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", res.Content[0])
	return tc.Text
}

func decode(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &out))
	return out
}

func TestNewServer(t *testing.T) {
	s, _ := newTestServer(t)
	require.NotNil(t, s.server)
	assert.NotNil(t, s.scanner)

	assert.NotNil(t, NewServer("", analysis.New(analysis.WithConfig(config.DefaultConfig()))))
}

func TestToolDescriptions(t *testing.T) {
	descriptions := map[string]func() string{
		"complexity": describeComplexity,
		"orphans":    describeOrphans,
		"patterns":   describePatterns,
		"similarity": describeSimilarity,
		"all":        describeAll,
		"focus":      describeFocusedContext,
		"security":   describeSecurity,
	}
	for name, fn := range descriptions {
		t.Run(name, func(t *testing.T) {
			desc := fn()
			assert.Contains(t, desc, "USE WHEN:")
			assert.Contains(t, desc, "INTERPRETING RESULTS:")
			assert.Contains(t, desc, "METRICS RETURNED:")
		})
	}
}

func TestGetFormat(t *testing.T) {
	tests := []struct {
		in   string
		want output.Format
	}{
		{"", output.FormatTOON},
		{"toon", output.FormatTOON},
		{"json", output.FormatJSON},
		{"md", output.FormatMarkdown},
		{"markdown", output.FormatMarkdown},
		{"yaml", output.FormatTOON},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, getFormat(AnalyzeInput{Format: tt.in}))
		})
	}
}

func TestFormatOutput(t *testing.T) {
	data := map[string]int{"total": 2}

	js, err := formatOutput(data, output.FormatJSON)
	require.NoError(t, err)
	assert.JSONEq(t, `{"total": 2}`, js)

	tn, err := formatOutput(data, output.FormatTOON)
	require.NoError(t, err)
	assert.Contains(t, tn, "total: 2")

	md, err := formatOutput(data, output.FormatMarkdown)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(md, "```\n"))
	assert.True(t, strings.HasSuffix(md, "\n```"))
}

func TestToolError(t *testing.T) {
	res, extra, err := toolError("boom")
	require.NoError(t, err)
	assert.Nil(t, extra)
	assert.True(t, res.IsError)
	assert.Equal(t, "Error: boom", text(t, res))
}

func TestHandleComplexity(t *testing.T) {
	s, root := newTestServer(t)

	res, _, err := s.handleAnalyzeComplexity(context.Background(), nil, ComplexityInput{
		AnalyzeInput: AnalyzeInput{Path: root, Format: "json"},
		Top:          1,
	})
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))

	out := decode(t, res)
	assert.Len(t, out["functions"], 1)
	summary := out["summary"].(map[string]any)
	assert.Equal(t, float64(4), summary["total_functions"])
}

func TestHandleOrphans(t *testing.T) {
	s, root := newTestServer(t)

	res, _, err := s.handleAnalyzeOrphans(context.Background(), nil, OrphanInput{
		AnalyzeInput: AnalyzeInput{Path: root, Format: "json"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))

	out := decode(t, res)
	summary := out["summary"].(map[string]any)
	assert.Equal(t, float64(2), summary["total_orphans"])
	assert.Len(t, out["orphan_functions"], 2)
}

func TestHandlePatterns_SeverityFilter(t *testing.T) {
	s, root := newTestServer(t)
	in := PatternsInput{AnalyzeInput: AnalyzeInput{Path: root, Format: "json"}, Severity: "low"}

	res, _, err := s.handleAnalyzePatterns(context.Background(), nil, in)
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))

	aps := decode(t, res)["anti_patterns"].([]any)
	require.Len(t, aps, 1)
	assert.Equal(t, "unused", aps[0].(map[string]any)["function"])

	in.Severity = "critical"
	res, _, err = s.handleAnalyzePatterns(context.Background(), nil, in)
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleSimilarity_Unavailable(t *testing.T) {
	s, root := newTestServer(t)

	res, _, err := s.handleAnalyzeSimilarity(context.Background(), nil, SimilarityInput{
		AnalyzeInput: AnalyzeInput{Path: root, Format: "json"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, map[string]any{
		"error":   "embedding model not available",
		"message": "configure embedding.provider and make sure the model is reachable",
	}, decode(t, res))
}

func TestHandleAll(t *testing.T) {
	s, root := newTestServer(t)

	res, _, err := s.handleAnalyzeAll(context.Background(), nil, AllInput{
		AnalyzeInput: AnalyzeInput{Path: root, Format: "json"},
		Analyses:     []string{"complexity", "similarity"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))

	out := decode(t, res)
	assert.Contains(t, out, "complexity")
	assert.Contains(t, out, "run_id")
	assert.NotContains(t, out, "orphan")
	assert.Equal(t, "embedding model not available", out["similarity"].(map[string]any)["error"])

	res, _, err = s.handleAnalyzeAll(context.Background(), nil, AllInput{Analyses: []string{"churn"}})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleFocusedContext(t *testing.T) {
	s, root := newTestServer(t)
	base := AnalyzeInput{Path: root, Format: "json"}

	res, _, err := s.handleFocusedContext(context.Background(), nil, FocusInput{AnalyzeInput: base})
	require.NoError(t, err)
	assert.Equal(t, "Error: focus is required", text(t, res))

	res, _, err = s.handleFocusedContext(context.Background(), nil, FocusInput{AnalyzeInput: base, Focus: "app.py::helper"})
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))
	assert.Equal(t, []any{"app.py::main"}, decode(t, res)["callers"])

	res, _, err = s.handleFocusedContext(context.Background(), nil, FocusInput{AnalyzeInput: base, Focus: "helper"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Len(t, decode(t, res)["candidates"], 2)
}

type banditStub struct{}

func (banditStub) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if i := slices.Index(args, "-o"); i >= 0 {
		report := `{"version": "1.7.9", "metrics": {"_totals": {"loc": 12, "SEVERITY.LOW": 1}}, "results": [
			{"filename": "app.py", "line_number": 3, "issue_severity": "LOW", "issue_confidence": "HIGH",
			 "test_name": "assert_used", "issue_text": "Use of assert detected."}]}`
		return nil, os.WriteFile(args[i+1], []byte(report), 0o600)
	}
	return []byte("bandit 1.7.9"), nil
}

func TestHandleScanSecurity(t *testing.T) {
	s, root := newTestServer(t, WithScanner(security.NewScanner(security.WithRunner(banditStub{}))))

	res, _, err := s.handleScanSecurity(context.Background(), nil, SecurityInput{
		AnalyzeInput: AnalyzeInput{Path: root, Format: "json"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))

	out := decode(t, res)
	assert.Len(t, out["vulnerabilities"], 1)
	assert.Equal(t, float64(1), out["summary"].(map[string]any)["low_severity"])
}

func TestParseFrontmatter(t *testing.T) {
	fm, body := parseFrontmatter([]byte("---\ndescription: Demo\narguments:\n  - name: path\n    required: true\n---\nBody {{path}}\n"))
	assert.Equal(t, "Demo", fm.Description)
	assert.Equal(t, []promptArgument{{Name: "path", Required: true}}, fm.Arguments)
	assert.Equal(t, "Body {{path}}\n", body)

	fm, body = parseFrontmatter([]byte("no frontmatter"))
	assert.Empty(t, fm.Description)
	assert.Equal(t, "no frontmatter", body)

	_, body = parseFrontmatter([]byte("---\nunterminated"))
	assert.Equal(t, "---\nunterminated", body)
}

func TestSubstituteArgs(t *testing.T) {
	assert.Equal(t, "scan .", substituteArgs("scan {{path}}", nil))
	assert.Equal(t, "scan .", substituteArgs("scan {{path}}", map[string]string{"path": ""}))
	assert.Equal(t, "scan owner/repo", substituteArgs("scan {{path}}", map[string]string{"path": "owner/repo"}))
	assert.Equal(t, "a {{other}}", substituteArgs("a {{other}}", nil))
}

func TestEmbeddedPrompts(t *testing.T) {
	entries, err := promptFiles.ReadDir("prompts")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for _, entry := range entries {
		t.Run(entry.Name(), func(t *testing.T) {
			content, err := promptFiles.ReadFile("prompts/" + entry.Name())
			require.NoError(t, err)

			fm, body := parseFrontmatter(content)
			assert.NotEmpty(t, fm.Description)
			require.NotEmpty(t, fm.Arguments)
			assert.Equal(t, "path", fm.Arguments[0].Name)

			res, err := makePromptHandler(fm.Description, body)(context.Background(), &mcp.GetPromptRequest{
				Params: &mcp.GetPromptParams{Arguments: map[string]string{"path": "owner/repo"}},
			})
			require.NoError(t, err)
			require.Len(t, res.Messages, 1)
			assert.EqualValues(t, "user", res.Messages[0].Role)
			msg := res.Messages[0].Content.(*mcp.TextContent).Text
			assert.Contains(t, msg, "owner/repo")
			assert.NotContains(t, msg, "{{path}}")
		})
	}
}
