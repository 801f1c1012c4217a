// Package holding implements the Holding Queue: the FIFO of novel
// articles accumulated between batches, with breaking-news preemption
// and a backpressure cap.
package holding

import (
	"strings"
	"sync"

	"catchup-feed/internal/domain/entity"
)

// breakingNewsKeywords is the fixed, case-insensitive list scanned
// against title or content on enqueue.
var breakingNewsKeywords = []string{
	"breaking", "urgent", "alert", "crisis", "emergency", "attack",
	"disaster", "election", "resignation", "impeachment", "war",
	"conflict", "coup", "market crash", "economic crisis", "natural disaster",
}

// backpressureMultiple bounds queue size at this many times
// dailyArticleLimit before further enqueues start dropping the
// lowest-scored items.
const backpressureMultiple = 10

// Item is one novel article waiting for the next batch.
type Item struct {
	Article    *entity.Article
	EnqueuedAt int64 // unix nanos, supplied by the caller (no wall-clock reads inside the queue)
}

// ScoreFunc ranks items for backpressure eviction — the same score the
// Deduplicator and Quota Distributor use (§4.F), passed in so the queue
// does not depend on their package.
type ScoreFunc func(a *entity.Article) float64

// Queue is a single-writer (sweep)/single-reader (batch) FIFO guarded by
// a lock around drain+clear, per the spec's shared-resource policy.
type Queue struct {
	mu      sync.Mutex
	items   []Item
	preempt chan struct{}
	maxSize int
	score   ScoreFunc
}

// New builds an empty Queue. dailyArticleLimit feeds the backpressure
// cap (10x); score ranks items when backpressure must drop the worst
// ones.
func New(dailyArticleLimit int, score ScoreFunc) *Queue {
	return &Queue{
		preempt: make(chan struct{}, 1),
		maxSize: dailyArticleLimit * backpressureMultiple,
		score:   score,
	}
}

// Preempt returns the channel the Poller selects on to learn about a
// breaking-news preemption request. At most one signal is buffered; a
// pending signal is not duplicated.
func (q *Queue) Preempt() <-chan struct{} {
	return q.preempt
}

// Enqueue adds items to the tail of the queue, scans them for
// breaking-news keywords, and emits at most one preemption signal for
// the whole call if any match. If the queue would exceed its
// backpressure cap, the lowest-scored items (old and new combined) are
// dropped to bound memory.
func (q *Queue) Enqueue(items []Item) {
	if len(items) == 0 {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	breaking := false
	for _, it := range items {
		if containsBreakingNewsKeyword(it.Article) {
			breaking = true
		}
	}

	q.items = append(q.items, items...)
	if len(q.items) > q.maxSize {
		q.evictLowestScored()
	}

	if breaking {
		q.signalPreemption()
	}
}

func (q *Queue) signalPreemption() {
	select {
	case q.preempt <- struct{}{}:
	default:
		// a preemption signal is already pending; nothing more to do
	}
}

func (q *Queue) evictLowestScored() {
	excess := len(q.items) - q.maxSize
	if excess <= 0 {
		return
	}
	sorted := make([]Item, len(q.items))
	copy(sorted, q.items)
	// simple selection of the excess lowest-scored items to drop,
	// stable otherwise (insertion order preserved among survivors)
	scores := make(map[*entity.Article]float64, len(sorted))
	for _, it := range sorted {
		scores[it.Article] = q.score(it.Article)
	}
	drop := make(map[*entity.Article]bool, excess)
	for i := 0; i < excess; i++ {
		var worst *entity.Article
		worstScore := 0.0
		first := true
		for _, it := range sorted {
			if drop[it.Article] {
				continue
			}
			s := scores[it.Article]
			if first || s < worstScore {
				worst = it.Article
				worstScore = s
				first = false
			}
		}
		if worst != nil {
			drop[worst] = true
		}
	}

	kept := q.items[:0]
	for _, it := range q.items {
		if !drop[it.Article] {
			kept = append(kept, it)
		}
	}
	q.items = kept
}

// Drain returns every queued item and empties the queue atomically.
func (q *Queue) Drain() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

// Size reports the current queue length.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// ByCategory groups the current queue contents by article category,
// without draining it.
func (q *Queue) ByCategory() map[entity.Category][]*entity.Article {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make(map[entity.Category][]*entity.Article)
	for _, it := range q.items {
		out[it.Article.Category] = append(out[it.Article.Category], it.Article)
	}
	return out
}

// Clear empties the queue without returning its contents.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}

func containsBreakingNewsKeyword(a *entity.Article) bool {
	haystack := strings.ToLower(a.Title + " " + a.Content)
	for _, kw := range breakingNewsKeywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}
