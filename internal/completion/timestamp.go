package completion

import "time"

// timestampMarker renders the marker message inserted ahead of a user
// prompt classified as starting a new topic (spec.md §4.6 step 6). Later
// history-retrieval and summary-rollup logic bounds its window by the
// most recent marker rather than the whole conversation.
func timestampMarker() string {
	return "--- conversation marker: " + time.Now().UTC().Format(time.RFC3339) + " ---"
}
