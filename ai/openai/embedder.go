package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/recall/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
type Embedder struct {
	embedder   embeddings.Embedder
	dimensions int
	logger     *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

// newEmbedder is an internal constructor that returns the concrete type.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(config.APIToken),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder:   embedder,
		dimensions: config.Dimensions,
		logger:     slog.Default().With("component", "openai-embedder"),
	}, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText generates a unit-normalized embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string, task ai.TaskType) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ai.ErrEmptyInput
	}

	e.logger.Debug("generating embedding for single text", "length", len(text), "task", task)

	vec, err := e.embed(ctx, text, task)
	if err != nil {
		e.logger.Error("failed to generate embedding", "err", err)
		return nil, fmt.Errorf("%w: %w", ai.ErrProvider, err)
	}

	return ai.Normalize(vec), nil
}

// EmbedTexts generates unit-normalized embeddings for multiple texts in one
// provider call. Blank texts are filtered out before the request; each
// result carries the index of its source text in the input slice.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string, task ai.TaskType) ([]ai.Embedding, error) {
	if len(texts) == 0 {
		return nil, ai.ErrEmptyInput
	}

	// Pair the non-blank texts with their original positions up front so the
	// provider response can never desynchronize from the caller's slice.
	indices := make([]int, 0, len(texts))
	valid := make([]string, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		indices = append(indices, i)
		valid = append(valid, text)
	}
	if len(valid) == 0 {
		return nil, ai.ErrEmptyInput
	}

	e.logger.Debug("generating embeddings for texts", "count", len(valid), "task", task)

	vectors, err := e.embedBatch(ctx, valid, task)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(valid), "err", err)
		return nil, fmt.Errorf("%w: %w", ai.ErrProvider, err)
	}
	if len(vectors) != len(valid) {
		return nil, fmt.Errorf("%w: embedding count mismatch: expected %d, got %d",
			ai.ErrProvider, len(valid), len(vectors))
	}

	results := make([]ai.Embedding, len(vectors))
	for i, vec := range vectors {
		results[i] = ai.Embedding{
			Index:  indices[i],
			Vector: ai.Normalize(vec),
		}
	}
	return results, nil
}

// EmbedQuery generates a unit-normalized embedding for a search query.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.EmbedText(ctx, text, ai.TaskQuery)
}

// Dimensions returns the configured embedding dimensionality.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// embed routes a single text through the task-appropriate langchaingo call.
// Query embeddings go through EmbedQuery so retrieval-tuned models receive
// the query-side treatment; everything else is embedded as a document.
func (e *Embedder) embed(ctx context.Context, text string, task ai.TaskType) ([]float32, error) {
	if task == ai.TaskQuery {
		return e.embedder.EmbedQuery(ctx, text)
	}
	vectors, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned empty result")
	}
	return vectors[0], nil
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string, task ai.TaskType) ([][]float32, error) {
	if task == ai.TaskQuery {
		// Queries are embedded one at a time; the query side of a
		// retrieval model has no batch entry point in langchaingo.
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vec, err := e.embedder.EmbedQuery(ctx, text)
			if err != nil {
				return nil, err
			}
			vectors[i] = vec
		}
		return vectors, nil
	}
	return e.embedder.EmbedDocuments(ctx, texts)
}
