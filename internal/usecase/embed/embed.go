// Package embed implements the optional article-embedding hook: a
// best-effort, fire-and-forget step that computes a dense vector for a
// freshly persisted article and stores it for the Deduplicator's
// similarity pass to consult later. It is never on the critical path —
// a slow or failing embedding call must never block or fail a batch.
package embed

import (
	"context"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"catchup-feed/internal/config"
	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/repository"
)

// Hook generates and stores an embedding for an article in a detached
// goroutine, decoupled from the batch that produced the article.
type Hook struct {
	client *openai.Client
	repo   repository.ArticleEmbeddingRepository
	cfg    config.EmbeddingConfig
}

// New builds a Hook. A nil *Hook (via NewDisabled) is valid and simply
// skips every call, so callers never need a separate enabled check.
func New(apiKey string, repo repository.ArticleEmbeddingRepository, cfg config.EmbeddingConfig) *Hook {
	return &Hook{
		client: openai.NewClient(apiKey),
		repo:   repo,
		cfg:    cfg,
	}
}

// EmbedArticleAsync computes and persists a content embedding for the
// article without blocking the caller. Disabled hooks, nil articles,
// and embedding failures are all silently absorbed.
func (h *Hook) EmbedArticleAsync(ctx context.Context, article *entity.Article) {
	if h == nil || !h.cfg.Enabled || article == nil {
		return
	}
	go h.embedArticle(article)
}

func (h *Hook) embedArticle(article *entity.Article) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("embed: panic generating article embedding",
				slog.String("article_id", article.ID), slog.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.Timeout)
	defer cancel()

	text := article.Title + "\n" + article.Content
	if text == "\n" {
		return
	}

	start := time.Now()
	resp, err := h.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(h.cfg.Model),
	})
	if err != nil {
		slog.Warn("embed: failed to generate article embedding",
			slog.String("article_id", article.ID), slog.Duration("duration", time.Since(start)), slog.Any("error", err))
		return
	}
	if len(resp.Data) == 0 {
		slog.Warn("embed: empty embedding response", slog.String("article_id", article.ID))
		return
	}

	vector := resp.Data[0].Embedding
	embedding := &entity.ArticleEmbedding{
		ID:            entity.EmbeddingID(article.ID, entity.EmbeddingTypeContent, entity.EmbeddingProviderOpenAI, h.cfg.Model),
		ArticleID:     article.ID,
		EmbeddingType: entity.EmbeddingTypeContent,
		Provider:      entity.EmbeddingProviderOpenAI,
		Model:         h.cfg.Model,
		Dimension:     int32(len(vector)),
		Embedding:     vector,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if err := embedding.Validate(); err != nil {
		slog.Warn("embed: generated embedding failed validation",
			slog.String("article_id", article.ID), slog.Any("error", err))
		return
	}
	if err := h.repo.Upsert(ctx, embedding); err != nil {
		slog.Warn("embed: failed to persist article embedding",
			slog.String("article_id", article.ID), slog.Any("error", err))
		return
	}

	slog.Info("embed: article embedding stored",
		slog.String("article_id", article.ID), slog.Int("dimension", len(vector)), slog.Duration("duration", time.Since(start)))
}
