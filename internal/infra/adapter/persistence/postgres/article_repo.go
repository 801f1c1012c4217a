package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/repository"

	"github.com/lib/pq"
)

type ArticleRepo struct{ db *sql.DB }

func NewArticleRepo(db *sql.DB) repository.ArticleRepository {
	return &ArticleRepo{db: db}
}

// upsertChunkSize bounds the number of rows rewritten in a single
// statement so one oversized batch can't pin the connection or blow
// past postgres' bind-parameter limit (§4.I).
const upsertChunkSize = 50

func scanArticle(row interface {
	Scan(dest ...interface{}) error
}) (*entity.Article, error) {
	var a entity.Article
	var tags pq.StringArray
	if err := row.Scan(&a.ID, &a.SourceID, &a.Title, &a.Description, &a.Content,
		&a.URL, &a.Category, &a.PublishedAt, &a.CapturedAt, &tags, &a.BriefGenerated); err != nil {
		return nil, err
	}
	a.Tags = []string(tags)
	return &a, nil
}

func (repo *ArticleRepo) Get(ctx context.Context, id string) (*entity.Article, error) {
	const query = `
SELECT id, source_id, title, description, content, url, category, published_at, captured_at, tags, brief_generated
FROM articles
WHERE id = $1
LIMIT 1`
	article, err := scanArticle(repo.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return article, nil
}

func (repo *ArticleRepo) Exists(ctx context.Context, url string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM articles WHERE url = $1)`
	var existsFlag bool
	err := repo.db.QueryRowContext(ctx, query, url).Scan(&existsFlag)
	if err != nil {
		return false, fmt.Errorf("Exists: %w", err)
	}
	return existsFlag, nil
}

// TitleCandidates backs the Novelty Filter's fuzzy-title pass: a cheap
// substring scan over recent titles, bounded by limit.
func (repo *ArticleRepo) TitleCandidates(ctx context.Context, titleWindow string, limit int) ([]*entity.Article, error) {
	const query = `
SELECT id, source_id, title, description, content, url, category, published_at, captured_at, tags, brief_generated
FROM articles
WHERE title ILIKE $1
ORDER BY published_at DESC
LIMIT $2`
	param := "%" + titleWindow + "%"
	rows, err := repo.db.QueryContext(ctx, query, param, limit)
	if err != nil {
		return nil, fmt.Errorf("TitleCandidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	articles := make([]*entity.Article, 0, limit)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("TitleCandidates: Scan: %w", err)
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

func (repo *ArticleRepo) InWindow(ctx context.Context, start, end time.Time) ([]*entity.Article, error) {
	const query = `
SELECT id, source_id, title, description, content, url, category, published_at, captured_at, tags, brief_generated
FROM articles
WHERE published_at BETWEEN $1 AND $2
ORDER BY published_at DESC`
	rows, err := repo.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("InWindow: %w", err)
	}
	defer func() { _ = rows.Close() }()

	// パフォーマンス最適化: メモリ再割り当てを削減するため事前割り当て
	articles := make([]*entity.Article, 0, 100)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("InWindow: Scan: %w", err)
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

func (repo *ArticleRepo) CountByCategorySince(ctx context.Context, since time.Time) (map[entity.Category]int, error) {
	const query = `
SELECT category, COUNT(*)
FROM articles
WHERE published_at >= $1
GROUP BY category`
	rows, err := repo.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("CountByCategorySince: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[entity.Category]int)
	for rows.Next() {
		var category entity.Category
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("CountByCategorySince: Scan: %w", err)
		}
		counts[category] = count
	}
	return counts, rows.Err()
}

// UpsertBatch dedupes the incoming batch by id and by URL (the first
// occurrence of each wins), then upserts in chunks of upsertChunkSize.
// A failing chunk is recorded but does not abort the remaining chunks.
func (repo *ArticleRepo) UpsertBatch(ctx context.Context, articles []*entity.Article) error {
	deduped := dedupeArticles(articles)
	if len(deduped) == 0 {
		return nil
	}

	var firstErr error
	for start := 0; start < len(deduped); start += upsertChunkSize {
		end := start + upsertChunkSize
		if end > len(deduped) {
			end = len(deduped)
		}
		if err := repo.upsertChunk(ctx, deduped[start:end]); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("UpsertBatch: chunk [%d:%d]: %w", start, end, err)
			}
		}
	}
	return firstErr
}

func dedupeArticles(articles []*entity.Article) []*entity.Article {
	seenID := make(map[string]struct{}, len(articles))
	seenURL := make(map[string]struct{}, len(articles))
	out := make([]*entity.Article, 0, len(articles))
	for _, a := range articles {
		if _, ok := seenID[a.ID]; ok {
			continue
		}
		if _, ok := seenURL[a.URL]; ok {
			continue
		}
		seenID[a.ID] = struct{}{}
		seenURL[a.URL] = struct{}{}
		out = append(out, a)
	}
	return out
}

func (repo *ArticleRepo) upsertChunk(ctx context.Context, chunk []*entity.Article) error {
	var sb strings.Builder
	sb.WriteString(`
INSERT INTO articles (id, source_id, title, description, content, url, category, published_at, captured_at, tags, brief_generated)
VALUES `)
	args := make([]interface{}, 0, len(chunk)*11)
	for i, a := range chunk {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 11
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10, base+11)
		args = append(args, a.ID, a.SourceID, a.Title, a.Description, a.Content,
			a.URL, a.Category, a.PublishedAt, a.CapturedAt, pq.Array(a.Tags), a.BriefGenerated)
	}
	sb.WriteString(`
ON CONFLICT (id) DO UPDATE SET
    title           = EXCLUDED.title,
    description     = EXCLUDED.description,
    content         = EXCLUDED.content,
    tags            = EXCLUDED.tags,
    brief_generated = EXCLUDED.brief_generated`)

	_, err := repo.db.ExecContext(ctx, sb.String(), args...)
	return err
}

func (repo *ArticleRepo) MarkBriefGenerated(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	const query = `UPDATE articles SET brief_generated = TRUE WHERE id = ANY($1)`
	_, err := repo.db.ExecContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("MarkBriefGenerated: %w", err)
	}
	return nil
}
