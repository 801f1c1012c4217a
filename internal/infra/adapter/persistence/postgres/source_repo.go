package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/repository"
)

type SourceRepo struct{ db *sql.DB }

func NewSourceRepo(db *sql.DB) repository.SourceRepository {
	return &SourceRepo{db: db}
}

func scanSource(row interface {
	Scan(dest ...interface{}) error
}) (*entity.Source, error) {
	var s entity.Source
	if err := row.Scan(&s.ID, &s.Name, &s.FeedURL, &s.Category, &s.Active, &s.LastCheckedAt, &s.LastError); err != nil {
		return nil, err
	}
	return &s, nil
}

func (repo *SourceRepo) Get(ctx context.Context, id string) (*entity.Source, error) {
	const query = `
SELECT id, name, feed_url, category, active, last_checked_at, last_error
FROM sources
WHERE id = $1
LIMIT 1`
	source, err := scanSource(repo.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return source, nil
}

func (repo *SourceRepo) List(ctx context.Context) ([]*entity.Source, error) {
	const query = `
SELECT id, name, feed_url, category, active, last_checked_at, last_error
FROM sources
ORDER BY id ASC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	// パフォーマンス最適化: メモリ再割り当てを削減するため事前割り当て
	sources := make([]*entity.Source, 0, 50)
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

func (repo *SourceRepo) ListActive(ctx context.Context) ([]*entity.Source, error) {
	const query = `
SELECT id, name, feed_url, category, active, last_checked_at, last_error
FROM sources
WHERE active = TRUE
ORDER BY id ASC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListActive: %w", err)
	}
	defer func() { _ = rows.Close() }()

	// パフォーマンス最適化: メモリ再割り当てを削減するため事前割り当て
	active := make([]*entity.Source, 0, 50)
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("ListActive: %w", err)
		}
		active = append(active, source)
	}
	return active, rows.Err()
}

// Upsert inserts a source or refreshes its mutable fields (name, feed
// url, active flag) on conflict. Category is set only on first insert —
// it is immutable per entity.ErrImmutableCategory — so updates never
// touch it.
func (repo *SourceRepo) Upsert(ctx context.Context, source *entity.Source) error {
	const query = `
INSERT INTO sources (id, name, feed_url, category, active, last_checked_at, last_error)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
    name     = EXCLUDED.name,
    feed_url = EXCLUDED.feed_url,
    active   = EXCLUDED.active`
	_, err := repo.db.ExecContext(ctx, query,
		source.ID, source.Name, source.FeedURL, source.Category,
		source.Active, source.LastCheckedAt, source.LastError,
	)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}

func (repo *SourceRepo) TouchChecked(ctx context.Context, id string, t time.Time) error {
	const query = `UPDATE sources SET last_checked_at = $1, last_error = '' WHERE id = $2`
	_, err := repo.db.ExecContext(ctx, query, t, id)
	if err != nil {
		return fmt.Errorf("TouchChecked: %w", err)
	}
	return nil
}

func (repo *SourceRepo) RecordError(ctx context.Context, id string, t time.Time, errMsg string) error {
	const query = `UPDATE sources SET last_checked_at = $1, last_error = $2 WHERE id = $3`
	_, err := repo.db.ExecContext(ctx, query, t, errMsg, id)
	if err != nil {
		return fmt.Errorf("RecordError: %w", err)
	}
	return nil
}
