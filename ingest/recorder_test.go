package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage/badger"
)

func newTestRecorder(t *testing.T) *Recorder {
	t.Helper()
	records, _, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() {
		records.Close()
		backend.Close()
	})

	recorder, err := NewRecorder(records, nil)
	require.NoError(t, err)
	return recorder
}

func TestIngestCountsAndDedup(t *testing.T) {
	recorder := newTestRecorder(t)
	ctx := context.Background()
	now := time.Now().UTC()

	batch := []*core.Record{
		{SourceRef: "abc123", Text: "Add retry logic", Category: "commit", CreatedAt: now},
		{SourceRef: "def456", Text: "Fix flaky test", Category: "commit", CreatedAt: now},
	}

	result, err := recorder.Ingest(ctx, "octocat", batch)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 0, result.Skipped)

	// Re-ingesting the same feed is idempotent
	rerun := []*core.Record{
		{SourceRef: "abc123", Text: "Add retry logic", Category: "commit", CreatedAt: now},
		{SourceRef: "xyz789", Text: "Document the API", Category: "commit", CreatedAt: now},
	}
	result, err = recorder.Ingest(ctx, "octocat", rerun)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Skipped)
}

func TestIngestDerivesSourceRef(t *testing.T) {
	recorder := newTestRecorder(t)
	ctx := context.Background()

	record := &core.Record{Text: "Standalone note without a commit hash", CreatedAt: time.Now().UTC()}
	result, err := recorder.Ingest(ctx, "octocat", []*core.Record{record})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Len(t, record.SourceRef, 32)
	assert.Equal(t, core.SourceRefFromText(record.Text), record.SourceRef)
}

func TestIngestIsolatesInvalidRecords(t *testing.T) {
	recorder := newTestRecorder(t)
	ctx := context.Background()
	now := time.Now().UTC()

	batch := []*core.Record{
		{SourceRef: "good", Text: "Valid work", CreatedAt: now},
		{SourceRef: "empty", Text: "", CreatedAt: now},
		nil,
		{SourceRef: "future", Text: "Time traveler", CreatedAt: now.Add(48 * time.Hour)},
	}

	result, err := recorder.Ingest(ctx, "octocat", batch)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 3, result.Invalid)
}

func TestIngestRequiresOwner(t *testing.T) {
	recorder := newTestRecorder(t)

	_, err := recorder.Ingest(context.Background(), "", nil)
	assert.True(t, errors.Is(err, core.ErrEmptyOwner))
}

func TestCheckRefresh(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	check := CheckRefresh(time.Time{}, 24*time.Hour, now)
	assert.True(t, check.ShouldRefresh)
	assert.Equal(t, "No data fetched yet", check.Reason)

	check = CheckRefresh(now.Add(-36*time.Hour), 24*time.Hour, now)
	assert.True(t, check.ShouldRefresh)
	assert.InDelta(t, 36.0, check.HoursSinceFetch, 0.01)
	assert.Contains(t, check.Reason, "threshold")

	check = CheckRefresh(now.Add(-2*time.Hour), 24*time.Hour, now)
	assert.False(t, check.ShouldRefresh)
	assert.Contains(t, check.Reason, "fresh")
}
