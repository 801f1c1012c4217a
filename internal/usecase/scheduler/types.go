package scheduler

import (
	"errors"

	"catchup-feed/internal/domain/entity"
	"github.com/sony/gobreaker"
)

// ErrBatchInFlight is returned by a manual trigger when a batch is
// already running; the scheduler's own ticks silently skip instead of
// returning this, since nothing is waiting on their result.
var ErrBatchInFlight = errors.New("batch already in flight")

// ProcessingResult is the outcome of one batch run: drain, dedup,
// distribute, rewrite, persist. It is always fully populated, even when
// individual steps failed — failures are folded into Errors rather than
// aborting the batch (§7 propagation policy).
type ProcessingResult struct {
	ArticlesProcessed int
	BriefsGenerated   int
	CategoriesAtLimit []entity.Category
	Errors            []string
	ProcessingMS      int64
	InputTokens       int
	OutputTokens      int
	CostUSD           float64
}

// Status is the snapshot the status() control operation returns.
type Status struct {
	IsProcessing    bool
	QueueSize       int
	LastProcessed   *ProcessingResult
	CircuitSnapshot map[string]gobreaker.State
}

// DailyLimitsSnapshot is the daily_limits_snapshot() control operation's
// result: per-category counts already persisted today against the
// Quota Distributor's caps.
type DailyLimitsSnapshot struct {
	DailyLimit  int
	PerCategory map[entity.Category]CategoryLimit
}

// CategoryLimit is one category's quota accounting for the current day.
type CategoryLimit struct {
	Cap       int
	Used      int
	Remaining int
}
