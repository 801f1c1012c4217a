// Package scheduler implements the Poller: the two independent cadences
// (sweep and batch) that drive the pipeline, plus the manual-trigger and
// breaking-news-preemption operations that share the batch path.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"catchup-feed/internal/config"
	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/observability/slo"
	"catchup-feed/internal/observability/tracing"
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
)

// enhanceContentThreshold is the syndicated-content length below which
// the Poller attempts to fetch the full article page.
const enhanceContentThreshold = 500

// Poller owns both cadences and the shared pipeline collaborators they
// drive. It is the one place the Circuit Breaker Registry and the
// Holding Queue are both written from, matching the shared-resource
// policy's single-writer rule.
type Poller struct {
	sources        repository.SourceRepository
	articles       repository.ArticleRepository
	briefs         repository.BriefRepository
	processingLogs repository.ProcessingLogRepository

	fetcher        fetch.FeedFetcher
	contentFetcher fetch.ContentFetcher
	breakers       *circuitbreaker.Registry
	tags           *config.TagDictionary

	novelty  *novelty.Filter
	queue    *holding.Queue
	dedup    *dedup.Deduplicator
	quota    *quota.Distributor
	rewriter *rewrite.Rewriter
	embedder *embed.Hook
	notifier notify.Service

	cfg Config
	cr  *cron.Cron

	batchInFlight atomic.Bool
	batchMu       sync.Mutex

	resultMu   sync.Mutex
	lastResult *ProcessingResult

	stopOnce sync.Once
	stopCh   chan struct{}

	metrics BatchMetrics

	sloRuns   atomic.Uint64
	sloErrors atomic.Uint64
}

// BatchMetrics is the optional Prometheus recording hook for batch runs.
// Nil-safe: a Poller built without WithMetrics records nothing.
type BatchMetrics interface {
	RecordBatchRun(status string)
	RecordBatchDuration(seconds float64)
	RecordArticlesProcessed(count int)
	RecordLastSuccess()
}

// WithMetrics attaches a metrics recorder to the Poller and returns it
// for chaining. Safe to skip entirely; an unattached Poller just never
// records batch metrics.
func (p *Poller) WithMetrics(m BatchMetrics) *Poller {
	p.metrics = m
	return p
}

// New builds a Poller from its collaborators. tags may be nil if no tag
// dictionary is configured; embedder may be nil to skip embedding
// generation entirely; notifier may be nil to skip external
// notifications entirely.
func New(
	sources repository.SourceRepository,
	articles repository.ArticleRepository,
	briefs repository.BriefRepository,
	processingLogs repository.ProcessingLogRepository,
	fetcher fetch.FeedFetcher,
	contentFetcher fetch.ContentFetcher,
	breakers *circuitbreaker.Registry,
	tags *config.TagDictionary,
	noveltyFilter *novelty.Filter,
	queue *holding.Queue,
	deduplicator *dedup.Deduplicator,
	distributor *quota.Distributor,
	rewriter *rewrite.Rewriter,
	embedder *embed.Hook,
	notifier notify.Service,
	cfg Config,
) *Poller {
	return &Poller{
		sources:        sources,
		articles:       articles,
		briefs:         briefs,
		processingLogs: processingLogs,
		fetcher:        fetcher,
		contentFetcher: contentFetcher,
		breakers:       breakers,
		tags:           tags,
		novelty:        noveltyFilter,
		queue:          queue,
		dedup:          deduplicator,
		quota:          distributor,
		rewriter:       rewriter,
		embedder:       embedder,
		notifier:       notifier,
		cfg:            cfg,
		stopCh:         make(chan struct{}),
	}
}

// Start wires the cron schedule (sweep every SweepInterval, batch every
// BatchInterval), fires the first sweep after InitialSweepDelay instead
// of waiting a full interval, and launches the preemption listener. It
// returns once the schedule is running; Stop tears it down.
func (p *Poller) Start(ctx context.Context) error {
	loc, err := time.LoadLocation(p.cfg.Timezone)
	if err != nil {
		slog.Warn("poller: invalid timezone, using UTC", slog.String("timezone", p.cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}

	p.cr = cron.New(cron.WithLocation(loc))
	if _, err := p.cr.AddFunc(everySpec(p.cfg.SweepInterval), func() { p.sweepOnce(ctx) }); err != nil {
		return err
	}
	if _, err := p.cr.AddFunc(everySpec(p.cfg.BatchInterval), func() { p.runBatchTick(ctx) }); err != nil {
		return err
	}
	p.cr.Start()

	go func() {
		select {
		case <-time.After(p.cfg.InitialSweepDelay):
			p.sweepOnce(ctx)
		case <-p.stopCh:
		case <-ctx.Done():
		}
	}()

	go p.preemptionLoop(ctx)

	return nil
}

// Stop halts the cron schedule and the preemption listener.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		if p.cr != nil {
			<-p.cr.Stop().Done()
		}
	})
}

func everySpec(d time.Duration) string {
	return "@every " + d.String()
}

// preemptionLoop starts an immediate batch whenever the Holding Queue
// signals breaking news, unless one is already running — a scheduled or
// manual batch already satisfies the same need.
func (p *Poller) preemptionLoop(ctx context.Context) {
	for {
		select {
		case <-p.queue.Preempt():
			slog.Info("poller: breaking news preemption, starting immediate batch")
			p.runBatchTick(ctx)
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// sweepOnce fetches every active source concurrently, bounded to
// MaxConcurrentSources in flight, admitting each fetch through the
// source's circuit breaker. Novel items are tagged and pushed onto the
// Holding Queue.
func (p *Poller) sweepOnce(ctx context.Context) {
	ctx, span := tracing.StartSpan(ctx, "poller.sweep")
	defer span.End()

	sources, err := p.sources.ListActive(ctx)
	if err != nil {
		slog.Error("poller: failed to list active sources", slog.Any("error", err))
		return
	}

	limit := p.cfg.MaxConcurrentSources
	if limit <= 0 || limit > len(sources) {
		limit = len(sources)
	}
	if limit == 0 {
		return
	}
	sem := make(chan struct{}, limit)

	eg, egCtx := errgroup.WithContext(ctx)
	for _, source := range sources {
		source := source
		eg.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			p.sweepSource(egCtx, source)
			return nil
		})
	}
	_ = eg.Wait()
}

func (p *Poller) sweepSource(ctx context.Context, source *entity.Source) {
	breaker := p.breakers.Get(source.ID)

	itemsAny, err := breaker.Execute(func() (interface{}, error) {
		return p.fetcher.Fetch(ctx, source)
	})
	if err != nil {
		now := time.Now()
		if recErr := p.sources.RecordError(ctx, source.ID, now, err.Error()); recErr != nil {
			slog.Warn("poller: failed to record source error", slog.String("source", source.ID), slog.Any("error", recErr))
		}
		slog.Warn("poller: sweep failed for source", slog.String("source", source.ID), slog.Any("error", err))
		return
	}

	items, _ := itemsAny.([]fetch.FeedItem)
	now := time.Now()
	if err := p.sources.TouchChecked(ctx, source.ID, now); err != nil {
		slog.Warn("poller: failed to record source success", slog.String("source", source.ID), slog.Any("error", err))
	}

	var admitted []holding.Item
	for _, item := range items {
		content := fetch.EnhanceContent(ctx, p.contentFetcher, item, enhanceContentThreshold)
		article := &entity.Article{
			ID:          entity.ArticleID(source.ID, item.GUID, item.URL),
			SourceID:    source.ID,
			Title:       item.Title,
			Description: item.Description,
			Content:     content,
			URL:         item.URL,
			Category:    source.Category,
			PublishedAt: item.PublishedAt,
			CapturedAt:  now,
			Tags:        p.tags.Match(item.Title + " " + item.Description),
		}
		if !p.novelty.IsNew(ctx, article) {
			continue
		}
		admitted = append(admitted, holding.Item{Article: article, EnqueuedAt: now.UnixNano()})
	}
	if len(admitted) > 0 {
		p.queue.Enqueue(admitted)
	}
}

// runBatchTick runs a batch if one is not already in flight; scheduled
// and preemption-triggered ticks silently skip rather than enqueue
// (§4.C), unlike TriggerManualBatch which reports the conflict.
func (p *Poller) runBatchTick(ctx context.Context) {
	if _, err := p.runBatch(ctx); err != nil {
		slog.Info("poller: batch tick skipped, one already in flight")
	}
}

// TriggerManualBatch runs a batch with the same semantics as a scheduled
// tick, reporting ErrBatchInFlight instead of silently skipping when one
// is already running.
func (p *Poller) TriggerManualBatch(ctx context.Context) (ProcessingResult, error) {
	return p.runBatch(ctx)
}

func (p *Poller) runBatch(ctx context.Context) (ProcessingResult, error) {
	if !p.batchInFlight.CompareAndSwap(false, true) {
		return ProcessingResult{}, ErrBatchInFlight
	}
	defer p.batchInFlight.Store(false)

	p.batchMu.Lock()
	defer p.batchMu.Unlock()

	batchCtx, cancel := context.WithTimeout(ctx, p.cfg.BatchTimeout)
	defer cancel()

	result := p.executeBatch(batchCtx)

	p.resultMu.Lock()
	p.lastResult = &result
	p.resultMu.Unlock()

	p.appendProcessingLog(batchCtx, result)
	p.recordBatchMetrics(result)

	return result, nil
}

// recordBatchMetrics reports one batch run to the attached metrics
// recorder, if any, and updates the rolling batch SLO gauges. A batch
// that produced errors but still ran to completion is recorded as a
// failure.
func (p *Poller) recordBatchMetrics(result ProcessingResult) {
	p.recordBatchSLO(result)

	if p.metrics == nil {
		return
	}
	status := "success"
	if len(result.Errors) > 0 {
		status = "failure"
	} else {
		p.metrics.RecordLastSuccess()
	}
	p.metrics.RecordBatchRun(status)
	p.metrics.RecordBatchDuration(float64(result.ProcessingMS) / 1000)
	p.metrics.RecordArticlesProcessed(result.ArticlesProcessed)
}

// recordBatchSLO folds one run into the lifetime run/error counters and
// pushes the rolling availability and error-rate ratios, plus this run's
// duration as the latency gauges' latest sample — there's no histogram
// wired here, so p95/p99 track the most recent run rather than a true
// windowed percentile.
func (p *Poller) recordBatchSLO(result ProcessingResult) {
	runs := p.sloRuns.Add(1)
	errs := p.sloErrors.Load()
	if len(result.Errors) > 0 {
		errs = p.sloErrors.Add(1)
	}

	errorRate := float64(errs) / float64(runs)
	slo.UpdateErrorRate(errorRate)
	slo.UpdateAvailability(1 - errorRate)

	seconds := float64(result.ProcessingMS) / 1000
	slo.UpdateLatencyP95(seconds)
	slo.UpdateLatencyP99(seconds)
}

// executeBatch runs drain → dedup → distribute → rewrite → persist
// against the Holding Queue's current contents. Every step's failure is
// folded into the result's Errors slice rather than aborting the batch.
func (p *Poller) executeBatch(ctx context.Context) ProcessingResult {
	ctx, span := tracing.StartSpan(ctx, "poller.batch")
	defer span.End()

	start := time.Now()
	result := ProcessingResult{}

	items := p.queue.Drain()
	if len(items) == 0 {
		result.ProcessingMS = time.Since(start).Milliseconds()
		return result
	}

	candidates := make([]*entity.Article, 0, len(items))
	for _, it := range items {
		candidates = append(candidates, it.Article)
	}

	deduped := p.dedup.Dedupe(candidates, start)

	distributed, err := p.quota.Distribute(ctx, deduped.Unique, start)
	if err != nil {
		result.Errors = append(result.Errors, "quota: "+err.Error())
		distributed = deduped.Unique
	}
	result.CategoriesAtLimit = categoriesAtLimit(deduped.Unique, distributed)

	if err := p.articles.UpsertBatch(ctx, distributed); err != nil {
		result.Errors = append(result.Errors, "persist articles: "+err.Error())
	}
	result.ArticlesProcessed = len(distributed)

	for _, article := range distributed {
		p.embedder.EmbedArticleAsync(ctx, article)
	}

	briefs := make([]*entity.Brief, 0, len(distributed))
	generatedIDs := make([]string, 0, len(distributed))
	for _, article := range distributed {
		select {
		case <-ctx.Done():
			result.Errors = append(result.Errors, "batch: "+ctx.Err().Error())
			briefs = append(briefs, nil)
			continue
		default:
		}

		rewriteResult, err := p.rewriter.Rewrite(ctx, article)
		if err != nil {
			result.Errors = append(result.Errors, "rewrite "+article.ID+": "+err.Error())
			continue
		}
		for _, w := range rewriteResult.Warnings {
			result.Errors = append(result.Errors, "rewrite "+article.ID+": "+w)
		}
		briefs = append(briefs, rewriteResult.Brief)
		generatedIDs = append(generatedIDs, article.ID)
		result.InputTokens += rewriteResult.Brief.LLM.InputTokens
		result.OutputTokens += rewriteResult.Brief.LLM.OutputTokens
		result.CostUSD += rewriteResult.Brief.LLM.CostUSD

		p.notifyNewBrief(ctx, article)
	}

	rwCfg := p.rewriter.Config()
	nonNilBriefs := make([]*entity.Brief, 0, len(briefs))
	for _, b := range briefs {
		if b == nil {
			continue
		}
		if err := b.Validate(rwCfg.MinWords, rwCfg.MaxWords); err != nil {
			result.Errors = append(result.Errors, "brief "+b.ID+": "+err.Error())
			continue
		}
		nonNilBriefs = append(nonNilBriefs, b)
	}

	if err := p.briefs.UpsertBatch(ctx, nonNilBriefs); err != nil {
		result.Errors = append(result.Errors, "persist briefs: "+err.Error())
	}
	result.BriefsGenerated = len(nonNilBriefs)

	if len(generatedIDs) > 0 {
		if err := p.articles.MarkBriefGenerated(ctx, generatedIDs); err != nil {
			result.Errors = append(result.Errors, "mark brief generated: "+err.Error())
		}
	}

	result.ProcessingMS = time.Since(start).Milliseconds()
	return result
}

// notifyNewBrief dispatches a best-effort external notification for a
// freshly rewritten article, if a notification service is configured.
// The service itself is non-blocking and swallows delivery failures.
func (p *Poller) notifyNewBrief(ctx context.Context, article *entity.Article) {
	if p.notifier == nil {
		return
	}
	source, err := p.sources.Get(ctx, article.SourceID)
	if err != nil || source == nil {
		return
	}
	if err := p.notifier.NotifyNewArticle(ctx, article, source); err != nil {
		slog.Warn("poller: notification dispatch failed", slog.String("article", article.ID), slog.Any("error", err))
	}
}

// categoriesAtLimit reports which categories the Quota Distributor
// truncated entirely out of the unique candidate set.
func categoriesAtLimit(unique, distributed []*entity.Article) []entity.Category {
	seen := make(map[entity.Category]int)
	for _, a := range unique {
		seen[a.Category]++
	}
	kept := make(map[entity.Category]int)
	for _, a := range distributed {
		kept[a.Category]++
	}
	var at []entity.Category
	for _, c := range entity.Categories {
		if seen[c] > 0 && kept[c] < seen[c] {
			at = append(at, c)
		}
	}
	return at
}

func (p *Poller) appendProcessingLog(ctx context.Context, result ProcessingResult) {
	log := &entity.ProcessingLog{
		ID:                entity.NewProcessingLogID(),
		RunAt:             time.Now(),
		Success:           len(result.Errors) == 0,
		ArticlesProcessed: result.ArticlesProcessed,
		BriefsGenerated:   result.BriefsGenerated,
		Errors:            result.Errors,
		ProcessingMS:      result.ProcessingMS,
		InputTokens:       result.InputTokens,
		OutputTokens:      result.OutputTokens,
		CostUSD:           result.CostUSD,
	}
	if err := p.processingLogs.Append(ctx, log); err != nil {
		slog.Warn("poller: failed to append processing log", slog.Any("error", err))
	}
}

// Status reports the control surface's status() snapshot.
func (p *Poller) Status() Status {
	p.resultMu.Lock()
	last := p.lastResult
	p.resultMu.Unlock()

	return Status{
		IsProcessing:    p.batchInFlight.Load(),
		QueueSize:       p.queue.Size(),
		LastProcessed:   last,
		CircuitSnapshot: p.breakers.Snapshot(),
	}
}

// ResetCircuitBreaker implements the reset_circuit_breaker(source_id)
// control operation.
func (p *Poller) ResetCircuitBreaker(sourceID string) {
	p.breakers.Reset(sourceID)
}

// DailyLimitsSnapshot implements the daily_limits_snapshot() control
// operation: today's quota accounting per category, read-only.
func (p *Poller) DailyLimitsSnapshot(ctx context.Context) (DailyLimitsSnapshot, error) {
	perCategory, err := p.quota.Snapshot(ctx, time.Now())
	if err != nil {
		return DailyLimitsSnapshot{}, err
	}

	out := DailyLimitsSnapshot{
		DailyLimit:  quota.DailyArticleLimit,
		PerCategory: make(map[entity.Category]CategoryLimit, len(perCategory)),
	}
	for c, snap := range perCategory {
		out.PerCategory[c] = CategoryLimit{Cap: snap.Cap, Used: snap.Used, Remaining: snap.Remaining}
	}
	return out, nil
}
