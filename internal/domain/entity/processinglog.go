package entity

import (
	"time"

	"github.com/google/uuid"
)

// ProcessingLog is the append-only record emitted after each poll or
// batch run. It is best-effort: a failure to persist one must never
// propagate back into the pipeline that produced it.
type ProcessingLog struct {
	ID                string
	RunAt             time.Time
	Success           bool
	ArticlesProcessed int
	BriefsGenerated   int
	Errors            []string
	ProcessingMS      int64
	InputTokens       int
	OutputTokens      int
	CostUSD           float64
	ModelID           string
	PromptVersion     string
}

// NewProcessingLogID generates a fresh identifier for one batch run's
// processing log row.
func NewProcessingLogID() string {
	return uuid.NewString()
}
