package search

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/ai/mock"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
	"github.com/poiesic/recall/storage/badger"
)

func newTestEngine(t *testing.T) (*Engine, storage.RecordStore) {
	t.Helper()
	records, _, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() {
		records.Close()
		backend.Close()
	})

	engine, err := NewEngine(records, mock.NewMockEmbedder())
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	return engine, records
}

func addEmbedded(t *testing.T, records storage.RecordStore, ownerID, sourceRef, text string, createdAt time.Time, vector []float32) {
	t.Helper()
	ctx := context.Background()
	_, _, err := records.AddRecords(ctx, ownerID, []*core.Record{{
		SourceRef: sourceRef,
		Text:      text,
		Category:  "commit",
		CreatedAt: createdAt,
	}})
	require.NoError(t, err)
	if vector != nil {
		written, err := records.WriteVector(ctx, ownerID, sourceRef, ai.Normalize(vector))
		require.NoError(t, err)
		require.True(t, written)
	}
}

func TestNewEngine(t *testing.T) {
	records, _, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer func() {
		records.Close()
		backend.Close()
	}()

	embedder := mock.NewMockEmbedder()

	t.Run("valid configuration", func(t *testing.T) {
		engine, err := NewEngine(records, embedder)
		require.NoError(t, err)
		assert.NotNil(t, engine)
		engine.Close()
	})

	t.Run("with options", func(t *testing.T) {
		engine, err := NewEngine(records, embedder, WithLogger(slog.Default()), WithPoolSize(2))
		require.NoError(t, err)
		assert.NotNil(t, engine)
		engine.Close()
	})

	t.Run("nil record store", func(t *testing.T) {
		_, err := NewEngine(nil, embedder)
		assert.Equal(t, ErrRecordStoreRequired, err)
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewEngine(records, nil)
		assert.Equal(t, ErrEmbedderRequired, err)
	})
}

func TestSearchFallbackRanksAndFilters(t *testing.T) {
	engine, records := newTestEngine(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	// BadgerDB has no native operator, so this exercises the fallback scan.
	addEmbedded(t, records, "octocat", "exact", "identical work", now.Add(-3*time.Hour), []float32{1, 0})
	addEmbedded(t, records, "octocat", "close", "related work", now.Add(-2*time.Hour), []float32{0.6, 0.8})
	addEmbedded(t, records, "octocat", "far", "unrelated work", now.Add(-time.Hour), []float32{0, 1})
	addEmbedded(t, records, "octocat", "no-vector", "pending work", now, nil)

	hits, err := engine.Search(ctx, "octocat", []float32{1, 0}, 0.5, 10)
	require.NoError(t, err)

	require.Len(t, hits, 2)
	assert.Equal(t, "exact", hits[0].Record.SourceRef)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-5)
	assert.Equal(t, "close", hits[1].Record.SourceRef)
	assert.InDelta(t, 0.6, hits[1].Similarity, 1e-5)
	for _, hit := range hits {
		assert.Equal(t, core.OriginSemantic, hit.Origin)
	}
}

func TestSearchHonorsLimit(t *testing.T) {
	engine, records := newTestEngine(t)
	ctx := context.Background()
	now := time.Now().UTC()

	addEmbedded(t, records, "octocat", "a", "work a", now.Add(-3*time.Hour), []float32{1, 0})
	addEmbedded(t, records, "octocat", "b", "work b", now.Add(-2*time.Hour), []float32{0.9, 0.43589})
	addEmbedded(t, records, "octocat", "c", "work c", now.Add(-time.Hour), []float32{0.8, 0.6})

	hits, err := engine.Search(ctx, "octocat", []float32{1, 0}, 0.5, 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].Record.SourceRef)
}

func TestSearchTiesKeepNewestFirst(t *testing.T) {
	engine, records := newTestEngine(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	// Identical vectors tie on similarity; the newer record must rank first.
	addEmbedded(t, records, "octocat", "older", "older duplicate", now.Add(-2*time.Hour), []float32{1, 0})
	addEmbedded(t, records, "octocat", "newer", "newer duplicate", now.Add(-time.Hour), []float32{1, 0})

	hits, err := engine.Search(ctx, "octocat", []float32{1, 0}, 0.5, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "newer", hits[0].Record.SourceRef)
	assert.Equal(t, "older", hits[1].Record.SourceRef)
}

func TestSearchEmptyCorpus(t *testing.T) {
	engine, _ := newTestEngine(t)

	hits, err := engine.Search(context.Background(), "nobody", []float32{1, 0}, 0.5, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchInvalidInputs(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Search(ctx, "octocat", nil, 0.5, 10)
	assert.Equal(t, ErrInvalidQueryVector, err)

	hits, err := engine.Search(ctx, "octocat", []float32{1, 0}, 0.5, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

// nativeStore fakes a backend with a working vector operator so the test
// can tell which path served the query.
type nativeStore struct {
	storage.RecordStore
	hits   []core.ScoredRecord
	called bool
}

func (s *nativeStore) FindSimilar(ctx context.Context, ownerID string, vector []float32, minSimilarity float32, limit int) ([]core.ScoredRecord, error) {
	s.called = true
	return s.hits, nil
}

func TestSearchPrefersNativeOperator(t *testing.T) {
	records, _, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer func() {
		records.Close()
		backend.Close()
	}()

	native := &nativeStore{
		RecordStore: records,
		hits: []core.ScoredRecord{{
			Record:     &core.Record{SourceRef: "served-natively"},
			Similarity: 0.9,
			Origin:     core.OriginSemantic,
		}},
	}

	engine, err := NewEngine(native, mock.NewMockEmbedder())
	require.NoError(t, err)
	defer engine.Close()

	hits, err := engine.Search(context.Background(), "octocat", []float32{1, 0}, 0.5, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "served-natively", hits[0].Record.SourceRef)
	assert.True(t, native.called)
}

func TestSearchText(t *testing.T) {
	engine, records := newTestEngine(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// The mock embedder derives correlated vectors from shared words, so a
	// query reusing the record's words lands above the threshold.
	vec := mock.DeterministicVector("deploy pipeline retries", mock.DefaultDimensions)
	addEmbedded(t, records, "octocat", "ref-1", "deploy pipeline retries", now, vec)

	hits, err := engine.SearchText(ctx, "octocat", "deploy pipeline retries", 0.5, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "ref-1", hits[0].Record.SourceRef)
}
