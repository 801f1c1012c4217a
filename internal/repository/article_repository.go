package repository

import (
	"context"
	"time"

	"catchup-feed/internal/domain/entity"
)

// ArticleRepository exposes the semantic operations the pipeline needs
// against stored articles — not a general CRUD surface. Every write is
// expected to be idempotent under replay of the same batch (§4.I).
type ArticleRepository interface {
	Get(ctx context.Context, id string) (*entity.Article, error)

	// Exists reports whether an article with the exact URL is already
	// stored — the Novelty Filter's first, cheapest check.
	Exists(ctx context.Context, url string) (bool, error)

	// TitleCandidates returns up to limit stored articles whose title
	// substring-contains titleWindow, for the Novelty Filter's fuzzy
	// title pass (§4.D step 2).
	TitleCandidates(ctx context.Context, titleWindow string, limit int) ([]*entity.Article, error)

	// InWindow returns every stored article with publish time in
	// [start, end], used by the Deduplicator's day-window dedup pass.
	InWindow(ctx context.Context, start, end time.Time) ([]*entity.Article, error)

	// CountByCategorySince counts stored articles per category with
	// publish time >= since, feeding the Quota Distributor's
	// already_today accounting.
	CountByCategorySince(ctx context.Context, since time.Time) (map[entity.Category]int, error)

	// UpsertBatch idempotently inserts or updates articles, chunked
	// internally; a failing chunk does not abort the remaining chunks.
	UpsertBatch(ctx context.Context, articles []*entity.Article) error

	// MarkBriefGenerated flips BriefGenerated on the given article ids.
	MarkBriefGenerated(ctx context.Context, ids []string) error
}

// BriefRepository persists generated briefs, keyed by id (single
// conflict key upsert per §4.I).
type BriefRepository interface {
	UpsertBatch(ctx context.Context, briefs []*entity.Brief) error
	Get(ctx context.Context, id string) (*entity.Brief, error)
	ListByStatus(ctx context.Context, status entity.BriefStatus, limit int) ([]*entity.Brief, error)
}

// ProcessingLogRepository appends the one record each batch run emits.
// Emission is best-effort: a failure here must never propagate back
// into the batch result (§4.J).
type ProcessingLogRepository interface {
	Append(ctx context.Context, log *entity.ProcessingLog) error
}
