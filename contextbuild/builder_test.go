package contextbuild

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/recall/ai/mock"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/search"
	"github.com/poiesic/recall/storage"
	"github.com/poiesic/recall/storage/badger"
)

type builderFixture struct {
	builder  *Builder
	records  storage.RecordStore
	profiles storage.ProfileStore
	now      time.Time
}

func newBuilderFixture(t *testing.T) *builderFixture {
	t.Helper()
	records, profiles, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() {
		records.Close()
		backend.Close()
	})

	engine, err := search.NewEngine(records, mock.NewMockEmbedder())
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	builder, err := NewBuilder(engine, records, profiles)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Microsecond)
	builder.now = func() time.Time { return now }

	return &builderFixture{builder: builder, records: records, profiles: profiles, now: now}
}

func (f *builderFixture) seed(t *testing.T, sourceRef, text string, age time.Duration, embed bool) {
	t.Helper()
	ctx := context.Background()
	_, _, err := f.records.AddRecords(ctx, "octocat", []*core.Record{{
		SourceRef: sourceRef,
		Text:      text,
		Category:  "recall",
		CreatedAt: f.now.Add(-age),
	}})
	require.NoError(t, err)
	if embed {
		written, err := f.records.WriteVector(ctx, "octocat", sourceRef,
			mock.DeterministicVector(text, mock.DefaultDimensions))
		require.NoError(t, err)
		require.True(t, written)
	}
}

func TestNewBuilderValidation(t *testing.T) {
	f := newBuilderFixture(t)

	_, err := NewBuilder(nil, f.records, f.profiles)
	assert.Equal(t, ErrSearcherRequired, err)

	_, err = NewBuilder(f.builder.engine, nil, f.profiles)
	assert.Equal(t, ErrRecordStoreRequired, err)

	_, err = NewBuilder(f.builder.engine, f.records, nil)
	assert.Equal(t, ErrProfileStoreRequired, err)
}

func TestBuildRankedAndRecentAreDisjoint(t *testing.T) {
	f := newBuilderFixture(t)
	ctx := context.Background()
	prompt := "deploy pipeline retries"

	// One record matches the prompt text exactly, so it ranks; the rest
	// are recent but semantically unrelated.
	f.seed(t, "match", prompt, 2*time.Hour, true)
	f.seed(t, "recent-1", "unrelated refactoring chores", 3*time.Hour, true)
	f.seed(t, "recent-2", "different unrelated cleanup", 4*time.Hour, false)

	bundle := f.builder.Build(ctx, "octocat", prompt, nil)

	require.Len(t, bundle.RankedHits, 1)
	assert.Equal(t, "match", bundle.RankedHits[0].Record.SourceRef)
	assert.Equal(t, core.OriginSemantic, bundle.RankedHits[0].Origin)

	seen := map[string]bool{"match": true}
	for _, hit := range bundle.RecentHits {
		assert.False(t, seen[hit.Record.SourceRef], "recent hits must not repeat ranked hits")
		seen[hit.Record.SourceRef] = true
		assert.Equal(t, core.OriginRecent, hit.Origin)
		assert.Zero(t, hit.Similarity)
	}
	assert.Len(t, bundle.RecentHits, 2)
	assert.LessOrEqual(t, len(bundle.RankedHits)+len(bundle.RecentHits), defaultMaxItems)
}

func TestBuildExcludesStaleRecent(t *testing.T) {
	f := newBuilderFixture(t)

	f.seed(t, "stale", "ten day old work", 10*24*time.Hour, false)
	f.seed(t, "fresh", "yesterday's work", 24*time.Hour, false)

	bundle := f.builder.Build(context.Background(), "octocat", "summarize my work", nil)

	require.Len(t, bundle.RecentHits, 1)
	assert.Equal(t, "fresh", bundle.RecentHits[0].Record.SourceRef)
}

func TestBuildEmptyOwner(t *testing.T) {
	f := newBuilderFixture(t)

	bundle := f.builder.Build(context.Background(), "nobody", "anything at all", nil)

	assert.Empty(t, bundle.RankedHits)
	assert.Empty(t, bundle.RecentHits)
	assert.Nil(t, bundle.Profile)
	assert.Equal(t, "", bundle.FormattedText)
}

func TestBuildCarriesPromptAnalysis(t *testing.T) {
	f := newBuilderFixture(t)

	bundle := f.builder.Build(context.Background(), "octocat", "my latest api bug fix", nil)

	assert.Equal(t, []string{"API Development", "Bug Fixes"}, bundle.QueryTopics)
	assert.Equal(t, IntentRecentWork, bundle.QueryIntent)
}

func TestBuildIncludesProfile(t *testing.T) {
	f := newBuilderFixture(t)
	ctx := context.Background()

	require.NoError(t, f.profiles.PutProfile(ctx, &core.OwnerProfile{
		OwnerID:  "octocat",
		Projects: []string{"recall"},
		Tags:     []string{"Go"},
	}))

	bundle := f.builder.Build(ctx, "octocat", "summarize my work", nil)

	require.NotNil(t, bundle.Profile)
	assert.Contains(t, bundle.FormattedText, "💼 ACTIVE PROJECTS: recall")
	assert.Contains(t, bundle.FormattedText, "🛠️  TECH STACK: Go")
}

// failingSearcher simulates the engine erroring end to end.
type failingSearcher struct{}

func (failingSearcher) SearchText(ctx context.Context, ownerID, query string, minSimilarity float32, limit int) ([]core.ScoredRecord, error) {
	return nil, errors.New("embedder offline")
}

func TestBuildDegradesWhenSearchFails(t *testing.T) {
	f := newBuilderFixture(t)
	ctx := context.Background()

	f.seed(t, "recent-1", "some recent work", time.Hour, false)

	builder, err := NewBuilder(failingSearcher{}, f.records, f.profiles)
	require.NoError(t, err)
	builder.now = f.builder.now

	bundle := builder.Build(ctx, "octocat", "anything", nil)

	assert.Empty(t, bundle.RankedHits)
	require.Len(t, bundle.RecentHits, 1)
	assert.Contains(t, bundle.FormattedText, "📅 RECENT ACTIVITY:")
}

// failingProfiles simulates a broken profile backend.
type failingProfiles struct{}

func (failingProfiles) GetProfile(ctx context.Context, ownerID string) (*core.OwnerProfile, error) {
	return nil, errors.New("profile backend offline")
}

func (failingProfiles) PutProfile(ctx context.Context, profile *core.OwnerProfile) error {
	return errors.New("profile backend offline")
}

func TestBuildDegradesWhenProfileFails(t *testing.T) {
	f := newBuilderFixture(t)
	ctx := context.Background()

	f.seed(t, "recent-1", "some recent work", time.Hour, false)

	builder, err := NewBuilder(f.builder.engine, f.records, failingProfiles{})
	require.NoError(t, err)
	builder.now = f.builder.now

	bundle := builder.Build(ctx, "octocat", "anything", nil)

	assert.Nil(t, bundle.Profile)
	require.Len(t, bundle.RecentHits, 1)
}

func TestBuildForTopicExpandsQuery(t *testing.T) {
	f := newBuilderFixture(t)
	ctx := context.Background()

	expanded := ExpandTopic("api")
	f.seed(t, "api-work", expanded, time.Hour, true)

	hits, err := f.builder.BuildForTopic(ctx, "octocat", "api", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "api-work", hits[0].Record.SourceRef)
}

func TestBuildHonorsMaxItems(t *testing.T) {
	f := newBuilderFixture(t)

	for i, ref := range []string{"a", "b", "c", "d"} {
		f.seed(t, ref, "recent filler work", time.Duration(i+1)*time.Hour, false)
	}

	bundle := f.builder.Build(context.Background(), "octocat", "whatever",
		&Options{MaxItems: 2, IncludeRecent: true})

	assert.Empty(t, bundle.RankedHits)
	assert.Len(t, bundle.RecentHits, 2)
}
