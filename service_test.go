package recall

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/ai/mock"
	"github.com/poiesic/recall/core"
)

func TestNewService(t *testing.T) {
	t.Run("create new service", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "test_db")
		svc, err := NewService(tmpDir, WithEmbedder(mock.NewMockEmbedder()))
		require.NoError(t, err)
		require.NotNil(t, svc)
		defer svc.Close()

		assert.NotNil(t, svc.RecordStore())
		assert.NotNil(t, svc.ProfileStore())
		assert.NotNil(t, svc.Embedder())
		assert.NotNil(t, svc.backend)
		assert.NotNil(t, svc.logger)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		// A regular file where the database directory should be.
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		err := os.WriteFile(tmpFile, []byte("test"), 0644)
		require.NoError(t, err)

		svc, err := NewService(tmpFile, WithEmbedder(mock.NewMockEmbedder()))
		assert.Error(t, err)
		assert.Nil(t, svc)
	})

	t.Run("invalid ai config fails before opening storage", func(t *testing.T) {
		svc, err := NewService(filepath.Join(t.TempDir(), "db"), WithAIConfig(&ai.Config{}))
		assert.Error(t, err)
		assert.Nil(t, svc)
	})
}

func TestService_Close(t *testing.T) {
	svc, err := NewService(t.TempDir(), WithEmbedder(mock.NewMockEmbedder()))
	require.NoError(t, err)
	require.NotNil(t, svc)

	err = svc.Close()
	assert.NoError(t, err)
}

func TestService_FactoryMethods(t *testing.T) {
	svc, err := NewService(t.TempDir(), WithEmbedder(mock.NewMockEmbedder()))
	require.NoError(t, err)
	require.NotNil(t, svc)
	defer svc.Close()

	t.Run("can create recorder", func(t *testing.T) {
		recorder, err := svc.NewRecorder()
		require.NoError(t, err)
		require.NotNil(t, recorder)
	})

	t.Run("can create runner", func(t *testing.T) {
		runner := svc.NewRunner(nil, nil)
		require.NotNil(t, runner)
	})

	t.Run("can create engine and builder", func(t *testing.T) {
		engine, err := svc.NewEngine()
		require.NoError(t, err)
		require.NotNil(t, engine)
		defer engine.Close()

		builder, err := svc.NewBuilder(engine)
		require.NoError(t, err)
		require.NotNil(t, builder)
	})
}

// Exercises the full pipeline through the facade: ingest commits, embed
// them, then search and assemble context.
func TestService_PipelineRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, err := NewService(t.TempDir(), WithEmbedder(mock.NewMockEmbedder()))
	require.NoError(t, err)
	defer svc.Close()

	const owner = "octocat"

	recorder, err := svc.NewRecorder()
	require.NoError(t, err)

	now := time.Now()
	result, err := recorder.Ingest(ctx, owner, []*core.Record{
		{Text: "Fix race in the search endpoint handler", Category: "api-server", CreatedAt: now.Add(-2 * time.Hour)},
		{Text: "Add retry logic to the embedding client", Category: "ml-infra", CreatedAt: now.Add(-1 * time.Hour)},
		{Text: "Update README badges", Category: "docs", CreatedAt: now.Add(-30 * time.Minute)},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Inserted)

	runner := svc.NewRunner(nil, nil)
	summary, err := runner.Run(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.EmbeddingsGenerated)
	assert.True(t, summary.FinalStats.ReadyForSearch)

	engine, err := svc.NewEngine()
	require.NoError(t, err)
	defer engine.Close()

	hits, err := engine.SearchText(ctx, owner, "Fix race in the search endpoint handler", 0.5, 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "Fix race in the search endpoint handler", hits[0].Record.Text)

	builder, err := svc.NewBuilder(engine)
	require.NoError(t, err)

	bundle := builder.Build(ctx, owner, "what did I fix in the api recently", nil)
	require.NotNil(t, bundle)
	assert.NotEmpty(t, bundle.FormattedText)
}
