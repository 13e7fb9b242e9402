package contextbuild

import (
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

const (
	// defaultMaxItems bounds how many records one bundle may carry across
	// the ranked and recent sections combined.
	defaultMaxItems = 5

	// minSimilarity is the relevance floor for ranked hits.
	minSimilarity = 0.5

	// recencyWindow bounds the recency top-up.
	recencyWindow = 7 * 24 * time.Hour
)

// Searcher is the similarity engine surface the builder depends on.
type Searcher interface {
	SearchText(ctx context.Context, ownerID, query string, minSimilarity float32, limit int) ([]core.ScoredRecord, error)
}

// Options tunes one Build call. A nil Options means up to 5 items with the
// recency top-up enabled.
type Options struct {
	MaxItems      int
	IncludeRecent bool
}

// Builder assembles context bundles for content generation.
type Builder struct {
	engine   Searcher
	store    storage.RecordStore
	profiles storage.ProfileStore
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Builder.
type Option func(*Builder) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
		return nil
	}
}

// NewBuilder creates a context builder.
func NewBuilder(engine Searcher, store storage.RecordStore, profiles storage.ProfileStore, opts ...Option) (*Builder, error) {
	if engine == nil {
		return nil, ErrSearcherRequired
	}
	if store == nil {
		return nil, ErrRecordStoreRequired
	}
	if profiles == nil {
		return nil, ErrProfileStoreRequired
	}

	b := &Builder{
		engine:   engine,
		store:    store,
		profiles: profiles,
		logger:   slog.Default(),
		now:      time.Now,
	}

	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Build assembles a context bundle for the prompt. It never returns an
// error: any failing source is logged and left out, and an owner with no
// usable data yields a bundle whose FormattedText is the empty string.
func (b *Builder) Build(ctx context.Context, ownerID, prompt string, opts *Options) *core.ContextBundle {
	if opts == nil {
		opts = &Options{MaxItems: defaultMaxItems, IncludeRecent: true}
	}
	maxItems := opts.MaxItems
	if maxItems <= 0 {
		maxItems = defaultMaxItems
	}

	analysis := AnalyzePrompt(prompt)
	bundle := &core.ContextBundle{
		QueryTopics: analysis.Topics,
		QueryIntent: analysis.Intent,
	}

	ranked, err := b.engine.SearchText(ctx, ownerID, prompt, minSimilarity, maxItems)
	if err != nil {
		b.logger.Warn("semantic search failed, building context without ranked hits",
			"owner", ownerID,
			"error", err)
	}
	bundle.RankedHits = ranked

	if opts.IncludeRecent && len(ranked) < maxItems {
		bundle.RecentHits = b.recentTopUp(ctx, ownerID, maxItems-len(ranked), ranked)
	}

	profile, err := b.profiles.GetProfile(ctx, ownerID)
	if err != nil {
		b.logger.Warn("profile lookup failed, building context without profile",
			"owner", ownerID,
			"error", err)
	} else {
		bundle.Profile = profile
	}

	bundle.FormattedText = FormatContext(bundle)
	return bundle
}

// BuildForTopic finds records relevant to a shorthand topic by expanding
// it into a fuller query first.
func (b *Builder) BuildForTopic(ctx context.Context, ownerID, topic string, limit int) ([]core.ScoredRecord, error) {
	if limit <= 0 {
		limit = defaultMaxItems
	}
	return b.engine.SearchText(ctx, ownerID, ExpandTopic(topic), minSimilarity, limit)
}

// recentTopUp pulls records from the recency window, excluding anything
// already ranked, and wraps them as zero-similarity recent hits.
func (b *Builder) recentTopUp(ctx context.Context, ownerID string, need int, ranked []core.ScoredRecord) []core.ScoredRecord {
	exclude := make(map[string]bool, len(ranked))
	for _, hit := range ranked {
		exclude[hit.Record.SourceRef] = true
	}

	since := b.now().UTC().Add(-recencyWindow)
	// Overfetch so exclusions don't starve the top-up.
	candidates, err := b.store.GetRecent(ctx, ownerID, since, need*2)
	if err != nil {
		b.logger.Warn("recent activity lookup failed, building context without recent hits",
			"owner", ownerID,
			"error", err)
		return nil
	}

	var recent []core.ScoredRecord
	for _, candidate := range candidates {
		if exclude[candidate.SourceRef] {
			continue
		}
		recent = append(recent, core.ScoredRecord{
			Record:     candidate,
			Similarity: 0,
			Origin:     core.OriginRecent,
		})
		if len(recent) == need {
			break
		}
	}
	return recent
}
