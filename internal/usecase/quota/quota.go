// Package quota implements the Quota Distributor: it takes the
// deduplicated candidate set and decides how many articles per category
// make it into this batch, respecting the daily article limit and each
// category's per-category cap.
package quota

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/observability/metrics"
	"catchup-feed/internal/repository"
	"catchup-feed/internal/usecase/scoring"
)

// DailyArticleLimit is the total number of articles allowed across all
// categories in a single day.
const DailyArticleLimit = 150

// MaxArticlesPerCategory caps any one category's contribution to a
// batch, regardless of how much quota remains for the day.
const MaxArticlesPerCategory = 50

// targetSplit is the even three-way split of the daily limit across
// the fixed category set.
var targetSplit = map[entity.Category]float64{
	entity.CategoryUSNational:    1.0 / 3,
	entity.CategoryInternational: 1.0 / 3,
	entity.CategoryFinanceMacro:  1.0 / 3,
}

// Distributor selects, per category, the highest-scored candidates that
// fit within what's left of today's quota.
type Distributor struct {
	articles repository.ArticleRepository
}

// New builds a Distributor.
func New(articles repository.ArticleRepository) *Distributor {
	return &Distributor{articles: articles}
}

// Distribute ranks candidates within each category by scoring.Score,
// caps each category at min(MaxArticlesPerCategory, remaining daily
// quota), then round-robins across categories so that if the combined
// selection still exceeds DailyArticleLimit, the lowest-scored items
// are the ones left out.
func (d *Distributor) Distribute(ctx context.Context, candidates []*entity.Article, now time.Time) ([]*entity.Article, error) {
	alreadyToday, err := d.articles.CountByCategorySince(ctx, startOfDay(now))
	if err != nil {
		return nil, fmt.Errorf("count articles by category: %w", err)
	}

	byCategory := make(map[entity.Category][]*entity.Article, len(entity.Categories))
	for _, a := range candidates {
		byCategory[a.Category] = append(byCategory[a.Category], a)
	}

	ranked := make(map[entity.Category][]*entity.Article, len(entity.Categories))
	for _, c := range entity.Categories {
		cap := effectiveCap(c, alreadyToday[c])
		items := rankByScore(byCategory[c], now)
		if len(items) > cap {
			metrics.RecordQuotaRejected(string(c), len(items)-cap)
			items = items[:cap]
		}
		ranked[c] = items
	}

	return roundRobinMerge(ranked), nil
}

func effectiveCap(c entity.Category, already int) int {
	target := int(math.Floor(DailyArticleLimit * targetSplit[c]))
	remaining := target - already
	if remaining < 0 {
		remaining = 0
	}
	if remaining > MaxArticlesPerCategory {
		return MaxArticlesPerCategory
	}
	return remaining
}

// CategorySnapshot is one category's quota accounting for the current
// day: its effective cap against today's count, how much of it has
// already been used, and what remains.
type CategorySnapshot struct {
	Cap       int
	Used      int
	Remaining int
}

// Snapshot reports, per category, today's quota accounting without
// mutating anything — the daily_limits_snapshot() control operation's
// read-only counterpart to Distribute.
func (d *Distributor) Snapshot(ctx context.Context, now time.Time) (map[entity.Category]CategorySnapshot, error) {
	alreadyToday, err := d.articles.CountByCategorySince(ctx, startOfDay(now))
	if err != nil {
		return nil, fmt.Errorf("count articles by category: %w", err)
	}

	out := make(map[entity.Category]CategorySnapshot, len(entity.Categories))
	for _, c := range entity.Categories {
		used := alreadyToday[c]
		cap := effectiveCap(c, used) + used
		remaining := cap - used
		if remaining < 0 {
			remaining = 0
		}
		out[c] = CategorySnapshot{Cap: cap, Used: used, Remaining: remaining}
	}
	return out, nil
}

func rankByScore(articles []*entity.Article, now time.Time) []*entity.Article {
	sorted := make([]*entity.Article, len(articles))
	copy(sorted, articles)
	sort.SliceStable(sorted, func(i, j int) bool {
		si, sj := scoring.Score(sorted[i], now), scoring.Score(sorted[j], now)
		if si != sj {
			return si > sj
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

// roundRobinMerge interleaves each category's ranked slice one item at
// a time, in entity.Categories order, stopping at DailyArticleLimit.
// Because each round takes each category's next-best item, a hard stop
// mid-merge only ever cuts off the lowest-ranked remaining items.
func roundRobinMerge(ranked map[entity.Category][]*entity.Article) []*entity.Article {
	var out []*entity.Article
	indices := make(map[entity.Category]int, len(entity.Categories))
	for {
		progressed := false
		for _, c := range entity.Categories {
			i := indices[c]
			if i < len(ranked[c]) {
				out = append(out, ranked[c][i])
				indices[c] = i + 1
				progressed = true
				if len(out) >= DailyArticleLimit {
					return out
				}
			}
		}
		if !progressed {
			break
		}
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
