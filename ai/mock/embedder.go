package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/poiesic/recall/ai"
)

// DefaultDimensions is the vector length used by the default deterministic
// behavior.
const DefaultDimensions = 64

// MockEmbedder is a test double for ai.Embedder.
// It allows custom behavior injection via function fields.
type MockEmbedder struct {
	// EmbedTextFunc is called by EmbedText if set.
	// If nil, uses default deterministic behavior.
	EmbedTextFunc func(ctx context.Context, text string, task ai.TaskType) ([]float32, error)

	// EmbedTextsFunc is called by EmbedTexts if set.
	// If nil, uses default deterministic behavior.
	EmbedTextsFunc func(ctx context.Context, texts []string, task ai.TaskType) ([]ai.Embedding, error)

	// Dim overrides the default vector dimensionality when > 0.
	Dim int

	callCount int
}

var _ ai.Embedder = (*MockEmbedder)(nil)

// NewMockEmbedder creates a mock embedder with default deterministic behavior.
// Note: Returns concrete type to allow behavior injection and assertions.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

// EmbedText generates a deterministic embedding based on text hash.
func (m *MockEmbedder) EmbedText(ctx context.Context, text string, task ai.TaskType) ([]float32, error) {
	m.callCount++

	if m.EmbedTextFunc != nil {
		return m.EmbedTextFunc(ctx, text, task)
	}

	if strings.TrimSpace(text) == "" {
		return nil, ai.ErrEmptyInput
	}
	return DeterministicVector(text, m.dimensions()), nil
}

// EmbedTexts generates deterministic embeddings for multiple texts, with the
// same blank-filtering and index-pairing contract as the real client.
func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string, task ai.TaskType) ([]ai.Embedding, error) {
	m.callCount++

	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts, task)
	}

	if len(texts) == 0 {
		return nil, ai.ErrEmptyInput
	}
	results := make([]ai.Embedding, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		results = append(results, ai.Embedding{
			Index:  i,
			Vector: DeterministicVector(text, m.dimensions()),
		})
	}
	if len(results) == 0 {
		return nil, ai.ErrEmptyInput
	}
	return results, nil
}

// EmbedQuery generates a deterministic embedding with the query task type.
func (m *MockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return m.EmbedText(ctx, text, ai.TaskQuery)
}

// Dimensions returns the mock's vector dimensionality.
func (m *MockEmbedder) Dimensions() int {
	return m.dimensions()
}

// CallCount returns the number of times any embedding method was called.
func (m *MockEmbedder) CallCount() int {
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockEmbedder) Reset() {
	m.callCount = 0
	m.EmbedTextFunc = nil
	m.EmbedTextsFunc = nil
}

func (m *MockEmbedder) dimensions() int {
	if m.Dim > 0 {
		return m.Dim
	}
	return DefaultDimensions
}

// DeterministicVector creates a unit-normalized embedding vector from text.
// It uses FNV hashing to ensure the same text always produces the same
// vector. Texts sharing whitespace-separated words produce correlated
// vectors, which gives similarity tests a weak but usable semantic signal.
func DeterministicVector(text string, dim int) []float32 {
	vector := make([]float32, dim)

	// Accumulate one pseudo-random unit contribution per word so that
	// overlapping vocabularies yield higher cosine similarity.
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word))
		seed := h.Sum32()
		for i := 0; i < dim; i++ {
			seed = seed*1664525 + 1013904223 // LCG constants
			vector[i] += float32(int32(seed%2001)-1000) / 1000.0
		}
	}

	// Normalize to unit length
	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares > 0 {
		norm := float32(math.Sqrt(sumSquares))
		for i := range vector {
			vector[i] /= norm
		}
	}

	return vector
}
