// Package capability describes which optional analysis backends are usable
// in the current process.
package capability

import (
	"context"
	"time"

	"github.com/panbanda/insight/pkg/config"
	"github.com/panbanda/insight/pkg/embedding"
	"github.com/rs/zerolog/log"
)

// Set is the capability descriptor injected into analyzers.
type Set struct {
	Graph    bool
	Metrics  bool
	Embedder embedding.Embedder
}

// All returns a Set with every capability enabled and the given embedder.
func All(e embedding.Embedder) Set {
	return Set{Graph: true, Metrics: true, Embedder: e}
}

// HasEmbeddings reports whether similarity clustering can run.
func (s Set) HasEmbeddings() bool {
	return s.Embedder != nil
}

// Status describes one capability for display.
type Status struct {
	Name      string `json:"name" toon:"name"`
	Available bool   `json:"available" toon:"available"`
	Detail    string `json:"detail,omitempty" toon:"detail,omitempty"`
}

// Describe lists the capabilities in a stable order.
func (s Set) Describe() []Status {
	emb := Status{Name: "embeddings"}
	if s.Embedder != nil {
		emb.Available = true
		emb.Detail = s.Embedder.Name()
	}
	return []Status{
		{Name: "graph", Available: s.Graph},
		{Name: "metrics", Available: s.Metrics},
		emb,
	}
}

// Detect probes optional backends once. Graph and metrics follow the
// configuration switches; the embedder is kept only when it answers.
func Detect(ctx context.Context, cfg *config.Config) Set {
	set := Set{
		Graph:   cfg.Capabilities.Graph,
		Metrics: cfg.Capabilities.Metrics,
	}
	log.Info().Bool("available", set.Graph).Msg("capability graph")
	log.Info().Bool("available", set.Metrics).Msg("capability metrics")

	emb := NewEmbedder(cfg.Embedding)
	if emb == nil {
		log.Info().Bool("available", false).Str("provider", cfg.Embedding.Provider).Msg("capability embeddings")
		return set
	}
	if err := emb.Available(ctx); err != nil {
		log.Info().Bool("available", false).Err(err).Str("backend", emb.Name()).Msg("capability embeddings")
		return set
	}
	log.Info().Bool("available", true).Str("backend", emb.Name()).Msg("capability embeddings")
	set.Embedder = embedding.NewMemo(emb)
	return set
}

// NewEmbedder builds the configured embedding backend, or nil when the
// provider is disabled or unknown.
func NewEmbedder(cfg config.EmbeddingConfig) embedding.Embedder {
	switch cfg.Provider {
	case "ollama":
		return embedding.NewOllamaClient(cfg.BaseURL, cfg.Model, time.Duration(cfg.TimeoutSeconds)*time.Second)
	default:
		return nil
	}
}
