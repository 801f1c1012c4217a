package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/repository"
)

type BriefRepo struct{ db *sql.DB }

func NewBriefRepo(db *sql.DB) repository.BriefRepository {
	return &BriefRepo{db: db}
}

func scanBrief(row interface {
	Scan(dest ...interface{}) error
}) (*entity.Brief, error) {
	var b entity.Brief
	var sourceArticles, tags pq.StringArray
	if err := row.Scan(
		&b.ID, &b.Headline, &b.Body, &sourceArticles, &b.Category, &b.PublishedAt, &tags, &b.Status,
		&b.LLM.ModelID, &b.LLM.PromptVersion, &b.LLM.InputTokens, &b.LLM.OutputTokens,
		&b.LLM.CostUSD, &b.LLM.ProcessingMS, &b.LLM.SubjectivityScore, &b.LLM.RevisionCount,
	); err != nil {
		return nil, err
	}
	b.SourceArticles = []string(sourceArticles)
	b.Tags = []string(tags)
	return &b, nil
}

const briefColumns = `id, headline, body, source_articles, category, published_at, tags, status,
model_id, prompt_version, input_tokens, output_tokens, cost_usd, processing_ms, subjectivity_score, revision_count`

func (repo *BriefRepo) Get(ctx context.Context, id string) (*entity.Brief, error) {
	query := `SELECT ` + briefColumns + ` FROM briefs WHERE id = $1 LIMIT 1`
	brief, err := scanBrief(repo.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return brief, nil
}

func (repo *BriefRepo) ListByStatus(ctx context.Context, status entity.BriefStatus, limit int) ([]*entity.Brief, error) {
	query := `SELECT ` + briefColumns + ` FROM briefs WHERE status = $1 ORDER BY published_at DESC LIMIT $2`
	rows, err := repo.db.QueryContext(ctx, query, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("ListByStatus: %w", err)
	}
	defer func() { _ = rows.Close() }()

	briefs := make([]*entity.Brief, 0, limit)
	for rows.Next() {
		brief, err := scanBrief(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByStatus: Scan: %w", err)
		}
		briefs = append(briefs, brief)
	}
	return briefs, rows.Err()
}

// UpsertBatch upserts briefs in chunks of upsertChunkSize, keyed solely
// on id — replays of the same batch collide onto the same row (§4.I).
func (repo *BriefRepo) UpsertBatch(ctx context.Context, briefs []*entity.Brief) error {
	if len(briefs) == 0 {
		return nil
	}

	var firstErr error
	for start := 0; start < len(briefs); start += upsertChunkSize {
		end := start + upsertChunkSize
		if end > len(briefs) {
			end = len(briefs)
		}
		if err := repo.upsertChunk(ctx, briefs[start:end]); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("UpsertBatch: chunk [%d:%d]: %w", start, end, err)
			}
		}
	}
	return firstErr
}

func (repo *BriefRepo) upsertChunk(ctx context.Context, chunk []*entity.Brief) error {
	const cols = 16
	var sb strings.Builder
	sb.WriteString(`
INSERT INTO briefs (id, headline, body, source_articles, category, published_at, tags, status,
    model_id, prompt_version, input_tokens, output_tokens, cost_usd, processing_ms, subjectivity_score, revision_count)
VALUES `)
	args := make([]interface{}, 0, len(chunk)*cols)
	for i, b := range chunk {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * cols
		sb.WriteString("(")
		for j := 1; j <= cols; j++ {
			if j > 1 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", base+j)
		}
		sb.WriteString(")")
		args = append(args,
			b.ID, b.Headline, b.Body, pq.Array(b.SourceArticles), b.Category, b.PublishedAt, pq.Array(b.Tags), b.Status,
			b.LLM.ModelID, b.LLM.PromptVersion, b.LLM.InputTokens, b.LLM.OutputTokens,
			b.LLM.CostUSD, b.LLM.ProcessingMS, b.LLM.SubjectivityScore, b.LLM.RevisionCount,
		)
	}
	sb.WriteString(`
ON CONFLICT (id) DO UPDATE SET
    body               = EXCLUDED.body,
    tags               = EXCLUDED.tags,
    status             = EXCLUDED.status,
    input_tokens       = EXCLUDED.input_tokens,
    output_tokens      = EXCLUDED.output_tokens,
    cost_usd           = EXCLUDED.cost_usd,
    processing_ms      = EXCLUDED.processing_ms,
    subjectivity_score = EXCLUDED.subjectivity_score,
    revision_count     = EXCLUDED.revision_count`)

	_, err := repo.db.ExecContext(ctx, sb.String(), args...)
	return err
}
