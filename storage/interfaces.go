package storage

import (
	"context"
	"time"

	"github.com/poiesic/recall/core"
)

// VectorWrite is one item of a batch vector write, addressing a record by
// its immutable source ref within an owner's corpus.
type VectorWrite struct {
	SourceRef string
	Vector    []float32
}

// RecordStore provides owner-scoped operations for activity records and
// their embedding vectors. Implementations must be thread-safe.
type RecordStore interface {
	// AddRecords inserts records for an owner, skipping any whose SourceRef
	// already exists for that owner. One record's failure must not block
	// the others. Returns how many were inserted and how many skipped.
	AddRecords(ctx context.Context, ownerID string, records []*core.Record) (inserted, skipped int, err error)

	// GetMissingEmbeddings returns up to limit records for the owner that
	// have no embedding vector, newest first.
	GetMissingEmbeddings(ctx context.Context, ownerID string, limit int) ([]*core.Record, error)

	// GetEmbedded returns up to limit records for the owner that carry an
	// embedding vector, newest first. Used by the fallback search path.
	GetEmbedded(ctx context.Context, ownerID string, limit int) ([]*core.Record, error)

	// GetRecent returns up to limit records created at or after since,
	// newest first, with or without vectors.
	GetRecent(ctx context.Context, ownerID string, since time.Time, limit int) ([]*core.Record, error)

	// WriteVector attaches a vector to the record identified by
	// (ownerID, sourceRef). The write is an idempotent upsert. Returns
	// false (and no error) if the record does not exist, so batch callers
	// can count failures without aborting.
	WriteVector(ctx context.Context, ownerID, sourceRef string, vector []float32) (bool, error)

	// WriteVectors applies WriteVector per item. One item's failure must
	// not block the others; there is no transaction spanning the batch.
	WriteVectors(ctx context.Context, ownerID string, writes []VectorWrite) (success, failed int, err error)

	// ClearVectors removes all embedding vectors for the owner, forcing
	// the next orchestrator run to regenerate them.
	ClearVectors(ctx context.Context, ownerID string) (int, error)

	// EmbeddingStats computes the owner's embedding completion snapshot.
	EmbeddingStats(ctx context.Context, ownerID string) (core.JobProgress, error)

	// FindSimilar ranks the owner's embedded records by cosine similarity
	// to the query vector using the backend's native vector operator,
	// returning hits with similarity >= minSimilarity, highest first.
	// Backends without a native operator return ErrSearchUnavailable.
	FindSimilar(ctx context.Context, ownerID string, vector []float32, minSimilarity float32, limit int) ([]core.ScoredRecord, error)

	// Close releases the storage backend and its resources.
	Close() error
}

// ProfileStore provides read access to owner profile snapshots maintained
// outside this subsystem.
type ProfileStore interface {
	// GetProfile returns the owner's profile snapshot, or nil (and no
	// error) when the owner has none.
	GetProfile(ctx context.Context, ownerID string) (*core.OwnerProfile, error)

	// PutProfile stores or replaces the owner's profile snapshot.
	PutProfile(ctx context.Context, profile *core.OwnerProfile) error
}

// CosineDistanceThreshold converts a minimum-similarity bound into the
// distance bound expected by operators that speak cosine distance
// (distance = 1 - similarity). The inversion is easy to get backwards;
// every distance-speaking backend must go through this function.
func CosineDistanceThreshold(minSimilarity float32) float32 {
	return 1 - minSimilarity
}
