package contextbuild

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/poiesic/recall/core"
)

func TestFormatContextFull(t *testing.T) {
	bundle := &core.ContextBundle{
		RankedHits: []core.ScoredRecord{
			{
				Record:     &core.Record{Category: "recall", Text: "Add hnsw index to activity records"},
				Similarity: 0.92,
				Origin:     core.OriginSemantic,
			},
			{
				Record:     &core.Record{Category: "recall", Text: "Tune embedding batch size"},
				Similarity: 0.61,
				Origin:     core.OriginSemantic,
			},
		},
		RecentHits: []core.ScoredRecord{
			{
				Record: &core.Record{
					Category:  "recall",
					Text:      "Fix progress bar off by one",
					CreatedAt: time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC),
				},
				Origin: core.OriginRecent,
			},
		},
		Profile: &core.OwnerProfile{
			OwnerID:    "octocat",
			Projects:   []string{"recall", "spoon-knife", "hello-world", "extra"},
			Tags:       []string{"Go", "PostgreSQL", "Badger", "pgvector", "Docker", "extra"},
			FocusAreas: []string{"retrieval quality", "latency", "extra"},
		},
	}

	want := "YOUR ACTUAL WORK (Use these specific details):\n" +
		"\n" +
		"Commit 1 (92% relevant):\n" +
		"  Repository: recall\n" +
		"  What you did: Add hnsw index to activity records\n" +
		"\n" +
		"Commit 2 (61% relevant):\n" +
		"  Repository: recall\n" +
		"  What you did: Tune embedding batch size\n" +
		"\n" +
		"📅 RECENT ACTIVITY:\n" +
		"1. [recall] Fix progress bar off by one (Jan 02)\n" +
		"\n" +
		"💼 ACTIVE PROJECTS: recall, spoon-knife, hello-world\n" +
		"🛠️  TECH STACK: Go, PostgreSQL, Badger, pgvector, Docker\n" +
		"🎯 FOCUS AREAS: retrieval quality, latency\n"

	assert.Equal(t, want, FormatContext(bundle))
}

func TestFormatContextIsDeterministic(t *testing.T) {
	bundle := &core.ContextBundle{
		RankedHits: []core.ScoredRecord{{
			Record:     &core.Record{Category: "recall", Text: "Ship it"},
			Similarity: 0.75,
		}},
	}
	assert.Equal(t, FormatContext(bundle), FormatContext(bundle))
}

func TestFormatContextCapsRankedHits(t *testing.T) {
	hits := make([]core.ScoredRecord, 5)
	for i := range hits {
		hits[i] = core.ScoredRecord{
			Record:     &core.Record{Category: "recall", Text: "work"},
			Similarity: 0.9,
		}
	}
	out := FormatContext(&core.ContextBundle{RankedHits: hits})
	assert.Contains(t, out, "Commit 3")
	assert.NotContains(t, out, "Commit 4")
}

func TestFormatContextZeroDateLabel(t *testing.T) {
	out := FormatContext(&core.ContextBundle{
		RecentHits: []core.ScoredRecord{{
			Record: &core.Record{Category: "recall", Text: "undated work"},
		}},
	})
	assert.Contains(t, out, "(Recently)")
}

func TestFormatContextEmptyBundle(t *testing.T) {
	assert.Equal(t, "", FormatContext(&core.ContextBundle{}))
	assert.Equal(t, "", FormatContext(&core.ContextBundle{Profile: &core.OwnerProfile{OwnerID: "octocat"}}))
}
