package entity

import (
	"errors"
	"fmt"
	"time"
)

// EmbeddingID derives the deterministic identity of one embedding row
// from the article it was computed from plus the type/provider/model
// triple that already forms its unique constraint, the same
// fold-then-concatenate scheme ArticleID uses.
func EmbeddingID(articleID string, embeddingType EmbeddingType, provider EmbeddingProvider, model string) string {
	return fmt.Sprintf("%08x-%08x",
		fold32(normalizeForHash(articleID)),
		fold32(normalizeForHash(string(embeddingType)+"|"+string(provider)+"|"+model)),
	)
}

// EmbeddingType identifies which field of an article a vector was derived
// from. Embeddings are optional and additive: their absence never blocks
// dedup or rewrite, which fall back to the lexical paths.
type EmbeddingType string

const (
	EmbeddingTypeTitle   EmbeddingType = "title"
	EmbeddingTypeContent EmbeddingType = "content"
	EmbeddingTypeSummary EmbeddingType = "summary"
)

// IsValid reports whether et is one of the known embedding types.
func (et EmbeddingType) IsValid() bool {
	switch et {
	case EmbeddingTypeTitle, EmbeddingTypeContent, EmbeddingTypeSummary:
		return true
	default:
		return false
	}
}

// EmbeddingProvider identifies the vector source.
type EmbeddingProvider string

const (
	EmbeddingProviderOpenAI EmbeddingProvider = "openai"
	EmbeddingProviderVoyage EmbeddingProvider = "voyage"
)

// IsValid reports whether ep is one of the known embedding providers.
func (ep EmbeddingProvider) IsValid() bool {
	switch ep {
	case EmbeddingProviderOpenAI, EmbeddingProviderVoyage:
		return true
	default:
		return false
	}
}

var (
	ErrInvalidEmbeddingType      = errors.New("invalid embedding type")
	ErrInvalidEmbeddingProvider  = errors.New("invalid embedding provider")
	ErrEmptyEmbedding            = errors.New("embedding vector must not be empty")
	ErrInvalidEmbeddingDimension = errors.New("embedding dimension does not match vector length")
)

// ArticleEmbedding is an optional dense vector attached to an article,
// used by the Deduplicator's similarity pass as a supplementary signal
// alongside the Jaccard-weighted lexical comparison. Never required for
// correctness: a missing embedding degrades the comparison to lexical-only.
type ArticleEmbedding struct {
	ID            string
	ArticleID     string
	EmbeddingType EmbeddingType
	Provider      EmbeddingProvider
	Model         string
	Dimension     int32
	Embedding     []float32
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Validate checks the fixed invariants on an ArticleEmbedding.
func (e *ArticleEmbedding) Validate() error {
	if e.ArticleID == "" {
		return &ValidationError{Field: "ArticleID", Message: "article id is required"}
	}
	if !e.EmbeddingType.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidEmbeddingType, e.EmbeddingType)
	}
	if !e.Provider.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidEmbeddingProvider, e.Provider)
	}
	if len(e.Embedding) == 0 {
		return ErrEmptyEmbedding
	}
	if int(e.Dimension) != len(e.Embedding) {
		return fmt.Errorf("%w: dimension=%d len=%d", ErrInvalidEmbeddingDimension, e.Dimension, len(e.Embedding))
	}
	return nil
}
