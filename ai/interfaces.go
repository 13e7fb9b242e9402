package ai

import "context"

// TaskType selects the provider-side embedding mode for a piece of text.
// Stored documents and search queries may live in slightly different
// sub-spaces, so callers must never conflate them.
type TaskType int

const (
	// TaskDocument embeds text that will be stored and retrieved later.
	TaskDocument TaskType = iota + 1
	// TaskQuery embeds a search query that will be compared against
	// stored document embeddings.
	TaskQuery
	// TaskSimilarity embeds text for direct pairwise comparison.
	TaskSimilarity
)

// Embedding pairs a vector with the index of the input text that produced
// it. EmbedTexts filters blank inputs before calling the provider; Index
// always refers to the position in the caller's ORIGINAL slice, so callers
// map results back without re-deriving positions.
type Embedding struct {
	Index  int
	Vector []float32
}

// Embedder generates vector embeddings from text for semantic similarity
// search. Implementations must be thread-safe for concurrent use, and must
// unit-normalize every returned vector (zero vectors pass through unchanged).
//
// Every call is a billed network request; batch through EmbedTexts whenever
// more than one text is pending.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns ErrEmptyInput if the text is blank, or an error wrapping
	// ErrProvider on transport or provider failure (not retried here).
	EmbedText(ctx context.Context, text string, task TaskType) ([]float32, error)

	// EmbedTexts generates embeddings for multiple texts in one provider
	// call. Blank texts are filtered out before the request and produce no
	// result entry; each returned Embedding carries the index of its source
	// text in the input slice. Returns ErrEmptyInput if the input is empty
	// or every text is blank.
	EmbedTexts(ctx context.Context, texts []string, task TaskType) ([]Embedding, error)

	// EmbedQuery is EmbedText with the task fixed to TaskQuery. Use it for
	// all search queries so query and document embeddings are never mixed.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the fixed length of every vector produced by this
	// embedder.
	Dimensions() int
}
