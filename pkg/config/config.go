package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	ktoml "github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pelletier/go-toml"
)

// Config holds all configuration options for insight.
type Config struct {
	// Analysis settings
	Analysis AnalysisConfig `koanf:"analysis" toml:"analysis" json:"analysis"`

	// Thresholds and caps applied by the analyzers
	Thresholds ThresholdConfig `koanf:"thresholds" toml:"thresholds" json:"thresholds"`

	// Source loading rules
	Source SourceConfig `koanf:"source" toml:"source" json:"source"`

	// Optional capability switches
	Capabilities CapabilityConfig `koanf:"capabilities" toml:"capabilities" json:"capabilities"`

	// Embedding backend for similarity clustering
	Embedding EmbeddingConfig `koanf:"embedding" toml:"embedding" json:"embedding"`

	// Security scanner defaults
	Security SecurityConfig `koanf:"security" toml:"security" json:"security"`

	// Retrieval chunking policy
	Chunker ChunkerConfig `koanf:"chunker" toml:"chunker" json:"chunker"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output" json:"output"`
}

// AnalysisConfig controls which analyzers run.
type AnalysisConfig struct {
	Complexity  bool  `koanf:"complexity" toml:"complexity" json:"complexity"`
	Orphan      bool  `koanf:"orphan" toml:"orphan" json:"orphan"`
	Patterns    bool  `koanf:"patterns" toml:"patterns" json:"patterns"`
	Similarity  bool  `koanf:"similarity" toml:"similarity" json:"similarity"`
	MaxFileSize int64 `koanf:"max_file_size" toml:"max_file_size" json:"max_file_size"`
	Workers     int   `koanf:"workers" toml:"workers" json:"workers"`
}

// ThresholdConfig defines metric thresholds and report caps.
type ThresholdConfig struct {
	ComplexFunction     int     `koanf:"complex_function" toml:"complex_function" json:"complex_function"`
	OrphanLimit         int     `koanf:"orphan_limit" toml:"orphan_limit" json:"orphan_limit"`
	EntryPointLimit     int     `koanf:"entry_point_limit" toml:"entry_point_limit" json:"entry_point_limit"`
	CommonPatternLimit  int     `koanf:"common_pattern_limit" toml:"common_pattern_limit" json:"common_pattern_limit"`
	MinPatternFrequency float64 `koanf:"min_pattern_frequency" toml:"min_pattern_frequency" json:"min_pattern_frequency"`
	Similarity          float64 `koanf:"similarity" toml:"similarity" json:"similarity"`
	SimilarPairLimit    int     `koanf:"similar_pair_limit" toml:"similar_pair_limit" json:"similar_pair_limit"`
}

// SourceConfig defines which files are loaded.
type SourceConfig struct {
	Extensions        []string `koanf:"extensions" toml:"extensions" json:"extensions"`
	ExcludeSubstrings []string `koanf:"exclude_substrings" toml:"exclude_substrings" json:"exclude_substrings"`
	Gitignore         bool     `koanf:"gitignore" toml:"gitignore" json:"gitignore"`
	CacheDir          string   `koanf:"cache_dir" toml:"cache_dir" json:"cache_dir"`
}

// CapabilityConfig switches optional analysis backends on or off.
type CapabilityConfig struct {
	Graph   bool `koanf:"graph" toml:"graph" json:"graph"`
	Metrics bool `koanf:"metrics" toml:"metrics" json:"metrics"`
}

// EmbeddingConfig configures the embedding model endpoint.
type EmbeddingConfig struct {
	Provider       string `koanf:"provider" toml:"provider" json:"provider"`
	BaseURL        string `koanf:"base_url" toml:"base_url" json:"base_url"`
	Model          string `koanf:"model" toml:"model" json:"model"`
	TimeoutSeconds int    `koanf:"timeout_seconds" toml:"timeout_seconds" json:"timeout_seconds"`
	Concurrency    int    `koanf:"concurrency" toml:"concurrency" json:"concurrency"`
}

// SecurityConfig holds scanner filter defaults.
type SecurityConfig struct {
	Severity   string   `koanf:"severity" toml:"severity" json:"severity"`
	Confidence string   `koanf:"confidence" toml:"confidence" json:"confidence"`
	Categories []string `koanf:"categories" toml:"categories" json:"categories"`
	Exclude    []string `koanf:"exclude" toml:"exclude" json:"exclude"`
}

// ChunkerConfig holds the chunk size policy.
type ChunkerConfig struct {
	ChunkSize    int `koanf:"chunk_size" toml:"chunk_size" json:"chunk_size"`
	OverlapLines int `koanf:"overlap_lines" toml:"overlap_lines" json:"overlap_lines"`
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format string `koanf:"format" toml:"format" json:"format"` // text, json, markdown, toon
	Color  bool   `koanf:"color" toml:"color" json:"color"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Complexity: true,
			Orphan:     true,
			Patterns:   true,
			Similarity: false,
		},
		Thresholds: ThresholdConfig{
			ComplexFunction:     10,
			OrphanLimit:         50,
			EntryPointLimit:     20,
			CommonPatternLimit:  20,
			MinPatternFrequency: 0.005,
			Similarity:          0.60,
			SimilarPairLimit:    20,
		},
		Source: SourceConfig{
			Extensions:        []string{".py"},
			ExcludeSubstrings: []string{"test", "example", "__pycache__"},
			Gitignore:         true,
			CacheDir:          "cache",
		},
		Capabilities: CapabilityConfig{
			Graph:   true,
			Metrics: true,
		},
		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			BaseURL:        "http://localhost:11434",
			Model:          "nomic-embed-text",
			TimeoutSeconds: 300,
			Concurrency:    4,
		},
		Security: SecurityConfig{
			Severity:   "MEDIUM",
			Confidence: "MEDIUM",
		},
		Chunker: ChunkerConfig{
			ChunkSize:    1500,
			OverlapLines: 10,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
	}
}

// Load loads configuration from a file on top of the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = ktoml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// configNames are searched in order by Find.
var configNames = []string{
	"insight.toml",
	"insight.yaml",
	"insight.yml",
	"insight.json",
	".insight.toml",
	".insight.yaml",
	".insight.yml",
	".insight.json",
}

// Find returns the first config file found in dir or dir/.insight.
func Find(dir string) string {
	for _, d := range []string{dir, filepath.Join(dir, ".insight")} {
		for _, name := range configNames {
			path := filepath.Join(d, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() *Config {
	if path := Find("."); path != "" {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	return DefaultConfig()
}

// MarshalTOML renders the configuration as a TOML document.
func (c *Config) MarshalTOML() ([]byte, error) {
	return toml.Marshal(*c)
}
