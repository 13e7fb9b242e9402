package contextbuild

import (
	"fmt"
	"strings"

	"github.com/poiesic/recall/core"
)

// Section caps for the formatted rendering.
const (
	maxFormattedRanked   = 3
	maxFormattedRecent   = 2
	maxProfileProjects   = 3
	maxProfileTags       = 5
	maxProfileFocusAreas = 2
)

// FormatContext renders a bundle as prompt-ready text. The rendering is a
// pure function of the bundle: same input, same string. An empty bundle
// renders as the empty string.
func FormatContext(bundle *core.ContextBundle) string {
	var lines []string

	if len(bundle.RankedHits) > 0 {
		lines = append(lines, "YOUR ACTUAL WORK (Use these specific details):", "")
		for i, hit := range bundle.RankedHits {
			if i >= maxFormattedRanked {
				break
			}
			lines = append(lines,
				fmt.Sprintf("Commit %d (%.0f%% relevant):", i+1, hit.Similarity*100),
				fmt.Sprintf("  Repository: %s", hit.Record.Category),
				fmt.Sprintf("  What you did: %s", hit.Record.Text),
				"")
		}
	}

	if len(bundle.RecentHits) > 0 {
		lines = append(lines, "📅 RECENT ACTIVITY:")
		for i, hit := range bundle.RecentHits {
			if i >= maxFormattedRecent {
				break
			}
			dateLabel := "Recently"
			if !hit.Record.CreatedAt.IsZero() {
				dateLabel = hit.Record.CreatedAt.Format("Jan 02")
			}
			lines = append(lines,
				fmt.Sprintf("%d. [%s] %s (%s)", i+1, hit.Record.Category, hit.Record.Text, dateLabel))
		}
		lines = append(lines, "")
	}

	if profile := bundle.Profile; profile != nil {
		wrote := false
		if len(profile.Projects) > 0 {
			lines = append(lines, "💼 ACTIVE PROJECTS: "+joinCapped(profile.Projects, maxProfileProjects))
			wrote = true
		}
		if len(profile.Tags) > 0 {
			lines = append(lines, "🛠️  TECH STACK: "+joinCapped(profile.Tags, maxProfileTags))
			wrote = true
		}
		if len(profile.FocusAreas) > 0 {
			lines = append(lines, "🎯 FOCUS AREAS: "+joinCapped(profile.FocusAreas, maxProfileFocusAreas))
			wrote = true
		}
		if wrote {
			lines = append(lines, "")
		}
	}

	return strings.Join(lines, "\n")
}

func joinCapped(items []string, limit int) string {
	if len(items) > limit {
		items = items[:limit]
	}
	return strings.Join(items, ", ")
}
