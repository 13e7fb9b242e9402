package search

import (
	"context"
	"log/slog"
	"runtime"
	"slices"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// fallbackScanCap bounds how many embedded records the client-side scan
// will pull from the store. Owners above the cap only have their newest
// records considered, which matches the recency bias of the date index.
const fallbackScanCap = 1000

// Engine ranks an owner's embedded records by similarity to a query
// vector. The store's native operator is the primary path; any failure
// there degrades to a concurrent client-side scan over the same data.
type Engine struct {
	store    storage.RecordStore
	embedder ai.Embedder
	pool     *ants.Pool
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithPoolSize sets the worker pool size for fallback scan scoring.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(e *Engine) error {
		if size < 1 {
			size = 1
		}
		if e.pool != nil {
			e.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		e.pool = pool
		return nil
	}
}

// NewEngine creates a new search engine.
func NewEngine(store storage.RecordStore, embedder ai.Embedder, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, ErrRecordStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		store:    store,
		embedder: embedder,
		pool:     pool,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(e); optErr != nil {
			e.Close()
			return nil, optErr
		}
	}

	return e, nil
}

// Close releases the scoring worker pool.
func (e *Engine) Close() {
	if e.pool != nil {
		e.pool.Release()
	}
}

// SearchText embeds the query text and delegates to Search.
func (e *Engine) SearchText(ctx context.Context, ownerID, query string, minSimilarity float32, limit int) ([]core.ScoredRecord, error) {
	vector, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return e.Search(ctx, ownerID, vector, minSimilarity, limit)
}

// Search ranks the owner's embedded records against the query vector,
// returning up to limit hits with similarity >= minSimilarity, highest
// first. A failing store operator is logged and served by the fallback
// scan instead; the two paths are interchangeable for callers.
func (e *Engine) Search(ctx context.Context, ownerID string, vector []float32, minSimilarity float32, limit int) ([]core.ScoredRecord, error) {
	if len(vector) == 0 {
		return nil, ErrInvalidQueryVector
	}
	if limit <= 0 {
		return nil, nil
	}

	hits, err := e.store.FindSimilar(ctx, ownerID, vector, minSimilarity, limit)
	if err == nil {
		return hits, nil
	}

	e.logger.Warn("store similarity search unavailable, falling back to scan",
		"owner", ownerID,
		"error", err)
	return e.scanSimilar(ctx, ownerID, vector, minSimilarity, limit)
}

// scanSimilar is the client-side path: pull the owner's newest embedded
// records up to the scan cap, score them concurrently, then filter, rank,
// and truncate.
func (e *Engine) scanSimilar(ctx context.Context, ownerID string, vector []float32, minSimilarity float32, limit int) ([]core.ScoredRecord, error) {
	candidates, err := e.store.GetEmbedded(ctx, ownerID, fallbackScanCap)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	// Score into an index-preserving slice so the newest-first candidate
	// order survives into the stable sort below.
	scores := make([]float32, len(candidates))
	var wg sync.WaitGroup
	for i, candidate := range candidates {
		i, candidate := i, candidate
		wg.Add(1)
		submitErr := e.pool.Submit(func() {
			defer wg.Done()
			scores[i] = ai.CosineSimilarity(vector, candidate.Vector)
		})
		if submitErr != nil {
			// Pool rejected the task; score inline.
			scores[i] = ai.CosineSimilarity(vector, candidate.Vector)
			wg.Done()
		}
	}
	wg.Wait()

	results := make([]core.ScoredRecord, 0, len(candidates))
	for i, candidate := range candidates {
		if scores[i] >= minSimilarity {
			results = append(results, core.ScoredRecord{
				Record:     candidate,
				Similarity: scores[i],
				Origin:     core.OriginSemantic,
			})
		}
	}

	slices.SortStableFunc(results, func(a, b core.ScoredRecord) int {
		if a.Similarity > b.Similarity {
			return -1
		}
		if a.Similarity < b.Similarity {
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
