// Package novelty implements the Novelty Filter: the first admission
// check a freshly-fetched article goes through before it is allowed into
// the Holding Queue.
package novelty

import (
	"context"
	"log/slog"
	"strings"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/repository"
)

// titleWindowChars is how much of the candidate's title is used as the
// substring-match window against stored titles.
const titleWindowChars = 100

// titleCandidateLimit bounds how many stored articles the fuzzy-title
// pass compares the candidate against.
const titleCandidateLimit = 5

// similarityThreshold is the containment ratio above which a candidate
// is considered a re-post of a stored article.
const similarityThreshold = 0.8

// Filter decides whether a freshly-fetched article is new relative to
// everything already stored.
type Filter struct {
	articles repository.ArticleRepository
}

// New builds a Filter backed by articles.
func New(articles repository.ArticleRepository) *Filter {
	return &Filter{articles: articles}
}

// IsNew reports whether candidate should be admitted. A stored-data
// lookup failure admits the candidate rather than risks losing it — the
// cost of an occasional duplicate is lower than the cost of a dropped
// story.
func (f *Filter) IsNew(ctx context.Context, candidate *entity.Article) bool {
	exists, err := f.articles.Exists(ctx, candidate.URL)
	if err != nil {
		slog.Warn("novelty: url lookup failed, admitting candidate",
			slog.String("url", candidate.URL), slog.Any("error", err))
		return true
	}
	if exists {
		return false
	}

	window := firstNChars(candidate.Title, titleWindowChars)
	stored, err := f.articles.TitleCandidates(ctx, window, titleCandidateLimit)
	if err != nil {
		slog.Warn("novelty: title lookup failed, admitting candidate",
			slog.String("title", candidate.Title), slog.Any("error", err))
		return true
	}

	newWords := wordSet(candidate.Title)
	for _, old := range stored {
		if titleContainmentRatio(wordSet(old.Title), newWords) >= similarityThreshold {
			return false
		}
	}
	return true
}

// titleContainmentRatio is the asymmetric overlap measure the original
// novelty check uses: the fraction of the new title's distinct words
// that are also present in a previously stored title. Unlike Jaccard
// (used by the Deduplicator, §4.F), this is intentionally one-sided —
// admission only cares whether the new item looks like a re-post of
// something already known, not how much of the old title is covered.
func titleContainmentRatio(oldWords, newWords map[string]struct{}) float64 {
	if len(newWords) == 0 {
		return 0
	}
	var common int
	for w := range newWords {
		if _, ok := oldWords[w]; ok {
			common++
		}
	}
	return float64(common) / float64(len(newWords))
}

func wordSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, w := range fields {
		set[w] = struct{}{}
	}
	return set
}

func firstNChars(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
