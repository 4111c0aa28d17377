package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.True(t, cfg.Analysis.Complexity)
	assert.True(t, cfg.Analysis.Orphan)
	assert.True(t, cfg.Analysis.Patterns)
	assert.False(t, cfg.Analysis.Similarity)

	assert.Equal(t, 10, cfg.Thresholds.ComplexFunction)
	assert.Equal(t, 50, cfg.Thresholds.OrphanLimit)
	assert.Equal(t, 20, cfg.Thresholds.EntryPointLimit)
	assert.Equal(t, 20, cfg.Thresholds.CommonPatternLimit)
	assert.InDelta(t, 0.005, cfg.Thresholds.MinPatternFrequency, 1e-9)
	assert.InDelta(t, 0.60, cfg.Thresholds.Similarity, 1e-9)

	assert.Equal(t, []string{"test", "example", "__pycache__"}, cfg.Source.ExcludeSubstrings)
	assert.Equal(t, []string{".py"}, cfg.Source.Extensions)
	assert.True(t, cfg.Capabilities.Graph)
	assert.True(t, cfg.Capabilities.Metrics)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, 1500, cfg.Chunker.ChunkSize)
	assert.Equal(t, 10, cfg.Chunker.OverlapLines)
	assert.Equal(t, "text", cfg.Output.Format)

	require.NoError(t, Validate(cfg))
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "toml",
			file: "insight.toml",
			content: `
[analysis]
similarity = true

[thresholds]
complex_function = 15

[source]
exclude_substrings = ["vendor"]
`,
		},
		{
			name: "yaml",
			file: "insight.yaml",
			content: `
analysis:
  similarity: true
thresholds:
  complex_function: 15
source:
  exclude_substrings: ["vendor"]
`,
		},
		{
			name:    "json",
			file:    "insight.json",
			content: `{"analysis": {"similarity": true}, "thresholds": {"complex_function": 15}, "source": {"exclude_substrings": ["vendor"]}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.file, tt.content))
			require.NoError(t, err)

			assert.True(t, cfg.Analysis.Similarity)
			assert.Equal(t, 15, cfg.Thresholds.ComplexFunction)
			assert.Equal(t, []string{"vendor"}, cfg.Source.ExcludeSubstrings)
			// untouched keys keep their defaults
			assert.True(t, cfg.Analysis.Complexity)
			assert.Equal(t, 50, cfg.Thresholds.OrphanLimit)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoad_InvalidTOML(t *testing.T) {
	_, err := Load(writeConfig(t, "insight.toml", "[analysis\ncomplexity = "))
	assert.Error(t, err)
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, Find(dir))

	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".insight"), 0o755))
	nested := filepath.Join(dir, ".insight", "insight.yaml")
	require.NoError(t, os.WriteFile(nested, []byte("output:\n  format: json\n"), 0o600))
	assert.Equal(t, nested, Find(dir))

	top := filepath.Join(dir, "insight.toml")
	require.NoError(t, os.WriteFile(top, []byte(""), 0o600))
	assert.Equal(t, top, Find(dir))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad format", func(c *Config) { c.Output.Format = "xml" }, true},
		{"bad severity", func(c *Config) { c.Security.Severity = "CRITICAL" }, true},
		{"frequency above one", func(c *Config) { c.Thresholds.MinPatternFrequency = 2 }, true},
		{"extension without dot", func(c *Config) { c.Source.Extensions = []string{"py"} }, true},
		{"zero concurrency", func(c *Config) { c.Embedding.Concurrency = 0 }, true},
		{"negative overlap", func(c *Config) { c.Chunker.OverlapLines = -1 }, true},
		{"toon output", func(c *Config) { c.Output.Format = "toon" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMarshalTOML_RoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Thresholds.ComplexFunction = 12
	cfg.Output.Format = "markdown"

	data, err := cfg.MarshalTOML()
	require.NoError(t, err)
	assert.Contains(t, string(data), "complex_function = 12")

	loaded, err := Load(writeConfig(t, "insight.toml", string(data)))
	require.NoError(t, err)
	assert.Equal(t, 12, loaded.Thresholds.ComplexFunction)
	assert.Equal(t, "markdown", loaded.Output.Format)
	assert.Equal(t, cfg.Source.ExcludeSubstrings, loaded.Source.ExcludeSubstrings)
}
