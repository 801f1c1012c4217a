package repository

import (
	"context"
	"time"

	"catchup-feed/internal/domain/entity"
)

// SourceRepository persists the fixed set of syndicated feed sources.
// Sources are loaded at startup from static config and rarely change, so
// this interface is read-heavy plus the two mutations the Poller needs
// after each fetch attempt: recording success and recording failure.
type SourceRepository interface {
	Get(ctx context.Context, id string) (*entity.Source, error)
	List(ctx context.Context) ([]*entity.Source, error)
	ListActive(ctx context.Context) ([]*entity.Source, error)
	// Upsert idempotently creates or updates a source by id, used to sync
	// the static source config file into the database at startup.
	Upsert(ctx context.Context, source *entity.Source) error
	// TouchChecked records a successful poll: clears LastError and sets
	// LastCheckedAt to t.
	TouchChecked(ctx context.Context, id string, t time.Time) error
	// RecordError records a failed poll without advancing LastCheckedAt,
	// so an admitting Poller can tell "never succeeded" from "failing now".
	RecordError(ctx context.Context, id string, t time.Time, errMsg string) error
}
