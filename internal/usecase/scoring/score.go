// Package scoring provides the single article ranking function shared by
// the Deduplicator (best-of-cluster selection), the Quota Distributor
// (per-category ranking), and the Holding Queue (backpressure eviction).
package scoring

import (
	"time"

	"catchup-feed/internal/domain/entity"
)

// officialSources is the fixed allow-list used for scoring — narrower
// than the primary-domain allow-list the Brief Rewriter's gate uses.
var officialSources = map[string]bool{
	"white-house":     true,
	"state-dept":      true,
	"defense-dept":    true,
	"federal-reserve": true,
	"un-news":         true,
}

// IsOfficialSource reports whether sourceID is on the fixed official
// source list.
func IsOfficialSource(sourceID string) bool {
	return officialSources[sourceID]
}

// Score ranks an article for best-of-cluster selection and quota
// ranking: content depth, capped at 2.0; a flat bonus for official
// sources; and recency, linearly decaying to zero after 5 hours.
func Score(a *entity.Article, now time.Time) float64 {
	contentScore := float64(len(a.Content)) / 1000
	if contentScore > 2.0 {
		contentScore = 2.0
	}

	var officialBonus float64
	if IsOfficialSource(a.SourceID) {
		officialBonus = 3.0
	}

	hoursSincePublish := now.Sub(a.PublishedAt).Hours()
	recencyScore := 5 - hoursSincePublish
	if recencyScore < 0 {
		recencyScore = 0
	}

	return contentScore + officialBonus + recencyScore
}
