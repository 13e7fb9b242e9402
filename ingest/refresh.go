package ingest

import (
	"fmt"
	"time"
)

// RefreshCheck is the outcome of a staleness check against the owner's last
// successful ingest.
type RefreshCheck struct {
	ShouldRefresh   bool
	HoursSinceFetch float64
	Reason          string
}

// CheckRefresh decides whether the owner's corpus is stale. A zero
// lastFetch means nothing was ever ingested and always recommends a
// refresh.
func CheckRefresh(lastFetch time.Time, threshold time.Duration, now time.Time) RefreshCheck {
	if lastFetch.IsZero() {
		return RefreshCheck{
			ShouldRefresh: true,
			Reason:        "No data fetched yet",
		}
	}

	hours := now.Sub(lastFetch).Hours()
	if hours > threshold.Hours() {
		return RefreshCheck{
			ShouldRefresh:   true,
			HoursSinceFetch: hours,
			Reason:          fmt.Sprintf("Data is %.1f hours old (threshold: %.0fh)", hours, threshold.Hours()),
		}
	}
	return RefreshCheck{
		ShouldRefresh:   false,
		HoursSinceFetch: hours,
		Reason:          fmt.Sprintf("Data is fresh (%.1f hours old)", hours),
	}
}
