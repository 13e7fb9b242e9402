// Package mock provides test double implementations of the embedding interfaces.
//
// This package contains a mock implementation of ai.Embedder for use in unit
// tests. The mock allows tests to run without an external embedding service
// and enables controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	embedder := mock.NewMockEmbedder()
//	vec, err := embedder.EmbedText(ctx, "test", ai.TaskDocument)
//
//	// Custom behavior injection
//	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string, task ai.TaskType) ([]ai.Embedding, error) {
//	    return nil, errors.New("provider down")
//	}
//
//	// Check call counts
//	count := embedder.CallCount()
//
// # Default Behavior
//
// The default behavior returns unit-normalized deterministic vectors derived
// from a hash of the input text, so identical texts always embed to identical
// vectors and similarity comparisons are repeatable across runs.
package mock
