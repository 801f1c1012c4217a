package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/repository"
)

type ProcessingLogRepo struct{ db *sql.DB }

func NewProcessingLogRepo(db *sql.DB) repository.ProcessingLogRepository {
	return &ProcessingLogRepo{db: db}
}

// Append inserts one processing log row. Emission is best-effort: the
// caller must not let a failure here interrupt the batch it describes.
func (repo *ProcessingLogRepo) Append(ctx context.Context, log *entity.ProcessingLog) error {
	const query = `
INSERT INTO processing_logs
    (id, run_at, success, articles_processed, briefs_generated, errors,
     processing_ms, input_tokens, output_tokens, cost_usd, model_id, prompt_version)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := repo.db.ExecContext(ctx, query,
		log.ID, log.RunAt, log.Success, log.ArticlesProcessed, log.BriefsGenerated, pq.Array(log.Errors),
		log.ProcessingMS, log.InputTokens, log.OutputTokens, log.CostUSD, log.ModelID, log.PromptVersion,
	)
	if err != nil {
		return fmt.Errorf("Append: %w", err)
	}
	return nil
}
