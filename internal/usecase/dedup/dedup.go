// Package dedup implements the Deduplicator: an exact-match pass
// followed by a weighted-similarity clustering pass over the articles
// drained from the Holding Queue, reducing each cluster to its single
// best representative.
package dedup

import (
	"hash/fnv"
	"strings"
	"time"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/observability/metrics"
	"catchup-feed/internal/usecase/scoring"
)

// SimilarityThreshold is the weighted-similarity score at or above which
// two articles are considered duplicates of each other.
const SimilarityThreshold = 0.82

const exactPassContentPrefix = 100

// Result is the output of one Dedupe invocation.
type Result struct {
	// Unique holds exactly one representative per cluster, in the order
	// clusters were first formed.
	Unique []*entity.Article
	// Duplicates maps a representative's article id to the ids of every
	// article folded into its cluster, for observability.
	Duplicates map[string][]string
}

// Deduplicator groups near-identical articles and keeps the best
// representative of each group.
type Deduplicator struct{}

// New builds a Deduplicator.
func New() *Deduplicator {
	return &Deduplicator{}
}

// Dedupe runs the exact pass then the similarity pass over candidates,
// scoring survivors at now. The similarity cache is scoped to this one
// call and discarded on return.
func (d *Deduplicator) Dedupe(candidates []*entity.Article, now time.Time) Result {
	unprocessed := d.exactPass(candidates)

	cache := make(map[string]float64)
	used := make([]bool, len(unprocessed))
	result := Result{Duplicates: make(map[string][]string)}

	for i := range unprocessed {
		if used[i] {
			continue
		}
		used[i] = true
		cluster := []*entity.Article{unprocessed[i]}

		for j := i + 1; j < len(unprocessed); j++ {
			if used[j] {
				continue
			}
			if weightedSimilarity(unprocessed[i], unprocessed[j], cache) >= SimilarityThreshold {
				used[j] = true
				cluster = append(cluster, unprocessed[j])
			}
		}

		winner := bestOfCluster(cluster, now)
		result.Unique = append(result.Unique, winner)
		if len(cluster) > 1 {
			var dupIDs []string
			for _, a := range cluster {
				if a != winner {
					dupIDs = append(dupIDs, a.ID)
				}
			}
			result.Duplicates[winner.ID] = dupIDs
		}
	}

	metrics.RecordDedupCollapsed(len(candidates) - len(result.Unique))

	return result
}

// exactPass drops later collisions on
// hash(lower(title) ++ lower(url) ++ first_100(lower(content))),
// keeping input order among survivors.
func (d *Deduplicator) exactPass(candidates []*entity.Article) []*entity.Article {
	seen := make(map[string]bool, len(candidates))
	out := make([]*entity.Article, 0, len(candidates))
	for _, a := range candidates {
		key := exactKey(a)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}

func exactKey(a *entity.Article) string {
	content := strings.ToLower(a.Content)
	if len(content) > exactPassContentPrefix {
		content = content[:exactPassContentPrefix]
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.ToLower(a.Title)))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(strings.ToLower(a.URL)))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(content))
	return string(h.Sum(nil))
}

// weightedSimilarity computes the §4.F weighted score between a and b,
// using cache to avoid recomputing a pair already scored within this
// invocation.
func weightedSimilarity(a, b *entity.Article, cache map[string]float64) float64 {
	key := cacheKey(a.ID, b.ID)
	if v, ok := cache[key]; ok {
		return v
	}
	v := computeSimilarity(a, b)
	cache[key] = v
	return v
}

func cacheKey(idA, idB string) string {
	if idA > idB {
		idA, idB = idB, idA
	}
	return idA + "\x00" + idB
}

func computeSimilarity(a, b *entity.Article) float64 {
	var sum, weight float64

	if a.Title != "" || b.Title != "" {
		sum += jaccard(wordSet(a.Title), wordSet(b.Title)) * 0.4
		weight += 0.4
	}
	if a.Content != "" || b.Content != "" {
		sum += jaccard(wordSet(a.Content), wordSet(b.Content)) * 0.4
		weight += 0.4
	}
	if a.URL != "" || b.URL != "" {
		sum += urlSimilarity(a.URL, b.URL) * 0.2
		weight += 0.2
	}

	if weight == 0 {
		return 0
	}
	return sum / weight
}

func wordSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, w := range fields {
		set[w] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	var intersection int
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func urlSimilarity(urlA, urlB string) float64 {
	hostA, pathA := splitURL(urlA)
	hostB, pathB := splitURL(urlB)

	if hostA != hostB {
		return 0
	}
	segA := pathSegments(pathA)
	segB := pathSegments(pathB)
	if len(segA) == 0 && len(segB) == 0 {
		return 1
	}
	if len(segA) == 0 || len(segB) == 0 {
		return 0.5
	}

	setB := make(map[string]struct{}, len(segB))
	for _, s := range segB {
		setB[s] = struct{}{}
	}
	var common int
	for _, s := range segA {
		if _, ok := setB[s]; ok {
			common++
		}
	}
	maxLen := len(segA)
	if len(segB) > maxLen {
		maxLen = len(segB)
	}
	return float64(common) / float64(maxLen)
}

func splitURL(raw string) (host, path string) {
	lower := strings.ToLower(raw)
	lower = strings.TrimPrefix(lower, "https://")
	lower = strings.TrimPrefix(lower, "http://")
	idx := strings.Index(lower, "/")
	if idx == -1 {
		return lower, ""
	}
	return lower[:idx], lower[idx:]
}

func pathSegments(path string) []string {
	var out []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

// bestOfCluster picks the highest-scored member, breaking ties by
// earliest publish time then lexicographically smallest id.
func bestOfCluster(cluster []*entity.Article, now time.Time) *entity.Article {
	best := cluster[0]
	bestScore := scoring.Score(best, now)
	for _, a := range cluster[1:] {
		s := scoring.Score(a, now)
		switch {
		case s > bestScore:
			best, bestScore = a, s
		case s == bestScore:
			if a.PublishedAt.Before(best.PublishedAt) ||
				(a.PublishedAt.Equal(best.PublishedAt) && a.ID < best.ID) {
				best, bestScore = a, s
			}
		}
	}
	return best
}
