// Package bootstrap builds the pipeline collaborators shared by every
// binary that runs the Poller — cmd/worker and cmd/api both call Build
// rather than duplicating the wiring.
package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"catchup-feed/internal/config"
	"catchup-feed/internal/domain/entity"
	pgRepo "catchup-feed/internal/infra/adapter/persistence/postgres"
	"catchup-feed/internal/infra/db"
	"catchup-feed/internal/infra/fetcher"
	"catchup-feed/internal/infra/llm"
	"catchup-feed/internal/infra/notifier"
	workerPkg "catchup-feed/internal/infra/worker"
	pkgconfig "catchup-feed/internal/pkg/config"
	"catchup-feed/internal/repository"
	"catchup-feed/internal/resilience/circuitbreaker"
	"catchup-feed/internal/usecase/dedup"
	"catchup-feed/internal/usecase/embed"
	"catchup-feed/internal/usecase/fetch"
	"catchup-feed/internal/usecase/holding"
	"catchup-feed/internal/usecase/notify"
	"catchup-feed/internal/usecase/novelty"
	"catchup-feed/internal/usecase/quota"
	"catchup-feed/internal/usecase/rewrite"
	"catchup-feed/internal/usecase/scheduler"
	"catchup-feed/internal/usecase/scoring"
)

// Pipeline holds every collaborator the Poller needs plus the metrics
// instance that was wired into it, so a caller that also runs its own
// HTTP surface (health, metrics, control) can reuse the same instance.
type Pipeline struct {
	Poller  *scheduler.Poller
	Config  scheduler.Config
	Metrics *workerPkg.WorkerMetrics
	Notify  notify.Service
}

// OpenDatabase opens the database connection and blocks until the
// migrations table is reachable, so both cmd/worker and cmd/api start
// against a ready schema regardless of which one boots first.
func OpenDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	const probe = "SELECT 1 FROM sources LIMIT 1"
	for i := 0; i < 10; i++ {
		if _, err := database.Exec(probe); err == nil {
			return database
		}
		logger.Info("waiting for migrations, retrying in 3s", slog.Int("attempt", i+1))
		time.Sleep(3 * time.Second)
	}
	logger.Error("migrations did not complete in time")
	os.Exit(1)
	return nil
}

// Build syncs the static source list, constructs every pipeline
// collaborator exactly as cmd/worker and cmd/api both need them, and
// returns a Poller ready to Start. It never returns a partially built
// Pipeline: any unrecoverable configuration error exits the process,
// matching the teacher's fail-fast startup style.
func Build(ctx context.Context, logger *slog.Logger, database *sql.DB) *Pipeline {
	srcRepo := pgRepo.NewSourceRepo(database)
	artRepo := pgRepo.NewArticleRepo(database)
	briefRepo := pgRepo.NewBriefRepo(database)
	logRepo := pgRepo.NewProcessingLogRepo(database)
	embeddingRepo := pgRepo.NewArticleEmbeddingRepo(database)

	syncStaticSources(ctx, logger, srcRepo)
	tags := loadTagDictionary(logger)

	httpClient := createHTTPClient()
	feedFetcher := fetch.NewRSSFetcher(httpClient)
	contentFetcher := setupContentFetcher(logger)

	breakers := circuitbreaker.NewRegistry()
	noveltyFilter := novelty.New(artRepo)
	deduplicator := dedup.New()
	distributor := quota.New(artRepo)
	queue := holding.New(quota.DailyArticleLimit, func(a *entity.Article) float64 {
		return scoring.Score(a, time.Now())
	})

	rewriter := setupRewriter(logger)
	embedder := setupEmbedder(logger, embeddingRepo)
	notifyService := setupNotifyService(logger)

	metrics := workerPkg.NewWorkerMetrics()
	metrics.MustRegister()

	pollerCfg := scheduler.LoadConfig()
	poller := scheduler.New(
		srcRepo,
		artRepo,
		briefRepo,
		logRepo,
		feedFetcher,
		contentFetcher,
		breakers,
		tags,
		noveltyFilter,
		queue,
		deduplicator,
		distributor,
		rewriter,
		embedder,
		notifyService,
		pollerCfg,
	).WithMetrics(metrics)

	return &Pipeline{Poller: poller, Config: pollerCfg, Metrics: metrics, Notify: notifyService}
}

// HealthPort reports the configured health-check port, reloading the
// worker config the same way Build's internal call did. Kept as a
// separate accessor so callers that only need the port (cmd/worker)
// don't have to thread WorkerConfig through Pipeline.
func HealthPort(logger *slog.Logger, metrics *workerPkg.WorkerMetrics) int {
	cfg, _ := workerPkg.LoadConfigFromEnv(logger, metrics)
	return cfg.HealthPort
}

// syncStaticSources loads the fixed source list from its configured YAML
// file and idempotently upserts each one, so a restart never drops a
// source a prior deploy added.
func syncStaticSources(ctx context.Context, logger *slog.Logger, srcRepo repository.SourceRepository) {
	path := pkgconfig.LoadEnvString("SOURCES_CONFIG_PATH", "configs/sources.yaml")
	sources, err := config.LoadSources(path)
	if err != nil {
		logger.Error("failed to load static sources config", slog.String("path", path), slog.Any("error", err))
		os.Exit(1)
	}
	for _, source := range sources {
		if err := srcRepo.Upsert(ctx, source); err != nil {
			logger.Error("failed to sync source", slog.String("source_id", source.ID), slog.Any("error", err))
			os.Exit(1)
		}
	}
	logger.Info("static sources synced", slog.Int("count", len(sources)), slog.String("path", path))
}

// loadTagDictionary loads the keyword→tag map, logging and disabling
// tagging rather than exiting if the file is missing or malformed —
// tags are a supplementary signal, not required for correctness.
func loadTagDictionary(logger *slog.Logger) *config.TagDictionary {
	path := pkgconfig.LoadEnvString("TAG_DICTIONARY_PATH", "configs/tags.yaml")
	dict, err := config.LoadTagDictionary(path)
	if err != nil {
		logger.Warn("failed to load tag dictionary, tagging disabled", slog.String("path", path), slog.Any("error", err))
		return nil
	}
	return dict
}

// setupContentFetcher builds the full-article content fetcher, falling
// back to RSS-only content if its configuration is invalid.
func setupContentFetcher(logger *slog.Logger) fetch.ContentFetcher {
	cfg, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		logger.Warn("failed to load content fetch configuration, content fetching disabled", slog.Any("error", err))
		return nil
	}
	if !cfg.Enabled {
		logger.Info("content fetching disabled")
		return nil
	}
	logger.Info("content fetching enabled",
		slog.Int("threshold", cfg.Threshold),
		slog.Int("parallelism", cfg.Parallelism),
		slog.Duration("timeout", cfg.Timeout))
	return fetcher.NewReadabilityFetcher(cfg)
}

// setupRewriter selects the brief-rewriting LLM provider from
// LLM_PROVIDER (default "claude") and builds the Rewriter around it.
func setupRewriter(logger *slog.Logger) *rewrite.Rewriter {
	providerName := pkgconfig.LoadEnvString("LLM_PROVIDER", "claude")

	var provider llm.Provider
	var err error
	switch providerName {
	case "claude":
		provider, err = llm.NewClaudeFromEnv()
	case "openai":
		provider, err = llm.NewOpenAIFromEnv()
	default:
		logger.Error("invalid LLM_PROVIDER", slog.String("provider", providerName), slog.String("expected", "claude or openai"))
		os.Exit(1)
	}
	if err != nil {
		logger.Error("failed to initialize LLM provider", slog.String("provider", providerName), slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("LLM provider initialized", slog.String("provider", providerName))

	return rewrite.New(provider, rewrite.LoadConfig())
}

// setupEmbedder builds the optional article-embedding hook. Disabled by
// default and whenever OPENAI_API_KEY is absent, since embeddings are an
// additive signal, never required for the pipeline to run.
func setupEmbedder(logger *slog.Logger, repo repository.ArticleEmbeddingRepository) *embed.Hook {
	cfg := config.LoadEmbeddingConfig()
	if !cfg.Enabled {
		logger.Info("article embedding disabled")
		return nil
	}
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		logger.Warn("EMBEDDING_ENABLED set but OPENAI_API_KEY is empty, embedding disabled")
		return nil
	}
	logger.Info("article embedding enabled", slog.String("model", cfg.Model))
	return embed.New(apiKey, repo, cfg)
}

// setupNotifyService wires whichever of Discord/Slack are enabled into a
// single notify.Service. With no channels configured the service still
// runs, it simply has nothing to fan out to.
func setupNotifyService(logger *slog.Logger) notify.Service {
	var channels []notify.Channel

	discordConfig := loadDiscordConfig(logger)
	if discordConfig.Enabled {
		channels = append(channels, notify.NewDiscordChannel(discordConfig))
		logger.Info("Discord channel initialized")
	} else {
		logger.Info("Discord channel disabled")
	}

	slackConfig := loadSlackConfig(logger)
	if slackConfig.Enabled {
		channels = append(channels, notify.NewSlackChannel(slackConfig))
		logger.Info("Slack channel initialized")
	} else {
		logger.Info("Slack channel disabled")
	}

	maxConcurrent := pkgconfig.LoadEnvInt("NOTIFY_MAX_CONCURRENT", 10, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 100)
	}).Value.(int)
	service := notify.NewService(channels, maxConcurrent)
	logger.Info("notification service initialized", slog.Int("channels", len(channels)))
	return service
}

// createHTTPClient creates an HTTP client with timeouts and connection pooling.
// TLS 1.2+ is enforced for security.
func createHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

// loadDiscordConfig loads Discord configuration from environment variables.
func loadDiscordConfig(logger *slog.Logger) notifier.DiscordConfig {
	enabled := os.Getenv("DISCORD_ENABLED") == "true"
	webhookURL := os.Getenv("DISCORD_WEBHOOK_URL")

	if !enabled {
		return notifier.DiscordConfig{Enabled: false}
	}
	if webhookURL == "" {
		logger.Warn("Discord webhook URL is empty, disabling notifications")
		return notifier.DiscordConfig{Enabled: false}
	}

	u, err := url.Parse(webhookURL)
	if err != nil {
		logger.Warn("invalid Discord webhook URL format, disabling notifications", slog.Any("error", err))
		return notifier.DiscordConfig{Enabled: false}
	}
	if u.Scheme != "https" || u.Host != "discord.com" || !strings.HasPrefix(u.Path, "/api/webhooks/") {
		logger.Warn("invalid Discord webhook URL, disabling notifications", slog.String("host", u.Host), slog.String("path", u.Path))
		return notifier.DiscordConfig{Enabled: false}
	}

	return notifier.DiscordConfig{Enabled: true, WebhookURL: webhookURL, Timeout: 30 * time.Second}
}

// loadSlackConfig loads Slack configuration from environment variables.
func loadSlackConfig(logger *slog.Logger) notifier.SlackConfig {
	enabled := os.Getenv("SLACK_ENABLED") == "true"
	webhookURL := os.Getenv("SLACK_WEBHOOK_URL")

	if !enabled {
		return notifier.SlackConfig{Enabled: false}
	}
	if webhookURL == "" {
		logger.Warn("Slack webhook URL is empty, disabling notifications")
		return notifier.SlackConfig{Enabled: false}
	}

	u, err := url.Parse(webhookURL)
	if err != nil {
		logger.Warn("invalid Slack webhook URL format, disabling notifications", slog.Any("error", err))
		return notifier.SlackConfig{Enabled: false}
	}
	if u.Scheme != "https" || u.Host != "hooks.slack.com" || !strings.HasPrefix(u.Path, "/services/") {
		logger.Warn("invalid Slack webhook URL, disabling notifications", slog.String("host", u.Host), slog.String("path", u.Path))
		return notifier.SlackConfig{Enabled: false}
	}

	return notifier.SlackConfig{Enabled: true, WebhookURL: webhookURL, Timeout: 30 * time.Second}
}
