// Package rewrite implements the Brief Rewriter: the iterative
// draft/bias-scan/length-loop/gate pipeline that turns one source
// article into a neutral Brief.
package rewrite

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/infra/llm"
	"catchup-feed/internal/observability/tracing"
	"catchup-feed/internal/utils/text"
)

// Result is one Rewrite call's outcome: the brief plus any soft
// warnings the batch orchestrator should fold into its processing log
// (a missing primary source, or that an LLM failure forced a fallback
// brief). Warnings never cause Rewrite to return an error — the
// contract is that a brief is always produced for valid input.
type Result struct {
	Brief    *entity.Brief
	Warnings []string
}

// Rewriter drives one article through the draft/bias-scan/length-loop/
// gate pipeline against a single LLM provider.
type Rewriter struct {
	provider llm.Provider
	config   Config
}

// New builds a Rewriter.
func New(provider llm.Provider, config Config) *Rewriter {
	return &Rewriter{provider: provider, config: config}
}

// Config returns the word-count band and other settings this Rewriter
// was built with, so a caller can re-validate a Brief before persisting
// it without duplicating the band's values.
func (r *Rewriter) Config() Config {
	return r.config
}

// Rewrite turns article into a Brief. It never returns an error for an
// LLM failure or a repairable gate violation — those produce a
// fallback brief or a repaired one, respectively, with a warning
// attached. It returns an error only if the article itself lacks a URL,
// since the gate's one guaranteed source-repair step depends on it.
func (r *Rewriter) Rewrite(ctx context.Context, article *entity.Article) (Result, error) {
	ctx, span := tracing.StartSpan(ctx, "rewrite.article")
	defer span.End()

	start := time.Now()

	if article.URL == "" {
		return Result{}, ErrInsufficientSources
	}

	completion, err := r.provider.Complete(ctx, systemPrompt,
		buildDraftPrompt(article.Title, article.Content, article.SourceID, article.URL, r.config.MinWords, r.config.MaxWords))
	if err != nil {
		slog.WarnContext(ctx, "brief draft call failed, using fallback brief",
			slog.String("article_id", article.ID), slog.String("error", err.Error()))
		return r.fallbackBrief(article, start), nil
	}

	sections, err := parseSections(completion.Text)
	if err != nil {
		slog.WarnContext(ctx, "brief draft response unparseable, using fallback brief",
			slog.String("article_id", article.ID))
		return r.fallbackBrief(article, start), nil
	}

	inputTokens, outputTokens := completion.InputTokens, completion.OutputTokens
	costUSD := completion.CostUSD
	modelID := completion.ModelID
	revisionCount := 0

	if flagged := scanBias(sections.Body); len(flagged) > 0 {
		revised, revErr := r.provider.Complete(ctx, systemPrompt, buildBiasRevisionPrompt(renderSections(sections), flagged))
		if revErr == nil {
			if reParsed, perr := parseSections(revised.Text); perr == nil {
				sections = reParsed
				revisionCount++
				inputTokens += revised.InputTokens
				outputTokens += revised.OutputTokens
				costUSD += revised.CostUSD
			}
		}
	}

	for attempt := 0; attempt < MaxExpansionAttempts && entity.WordCount(sections.Body) < r.config.MinWords; attempt++ {
		expanded, expErr := r.provider.Complete(ctx, systemPrompt, buildExpansionPrompt(renderSections(sections), r.config.MinWords))
		if expErr != nil {
			break
		}
		reParsed, perr := parseSections(expanded.Text)
		if perr != nil {
			break
		}
		sections = reParsed
		revisionCount++
		inputTokens += expanded.InputTokens
		outputTokens += expanded.OutputTokens
		costUSD += expanded.CostUSD
	}
	if entity.WordCount(sections.Body) < r.config.MinWords {
		sections.Body = appendFiller(sections.Body, r.config.MinWords)
	}

	var warnings []string
	sections.Sources = ensureURLPresent(sections.Sources, article.URL)
	if len(sections.Sources) < MinSources {
		return Result{}, ErrInsufficientSources
	}
	if !anyPrimarySource(sections.Sources) {
		warnings = append(warnings, ErrMissingPrimarySource.Error())
	}
	if entity.WordCount(sections.Body) > r.config.MaxWords {
		sections.Body = truncateWords(sections.Body, r.config.MaxWords) + "..."
	}
	if wc := entity.WordCount(sections.Body); wc < r.config.MinWords || wc > r.config.MaxWords {
		return Result{}, ErrWordCountOutOfBand
	}

	headline := sections.Headline
	if headline == "" {
		headline = article.Title
	}

	brief := &entity.Brief{
		ID:             entity.BriefID(article.Category, headline, start),
		Headline:       headline,
		Body:           sections.Body,
		SourceArticles: sections.Sources,
		Category:       article.Category,
		PublishedAt:    start,
		Tags:           article.Tags,
		Status:         r.config.InitialStatus,
		LLM: entity.LLMMetadata{
			ModelID:           modelID,
			PromptVersion:     r.config.PromptVersion,
			InputTokens:       inputTokens,
			OutputTokens:      outputTokens,
			CostUSD:           costUSD,
			ProcessingMS:      time.Since(start).Milliseconds(),
			SubjectivityScore: subjectivityScore(sections.Body),
			RevisionCount:     revisionCount,
		},
	}

	return Result{Brief: brief, Warnings: warnings}, nil
}

// fallbackBrief builds the deterministic brief the error-handling
// design mandates when every LLM call for this article fails: headline
// falls back to the original title (or a fixed placeholder), body
// falls back to the article's description or a prefix of its content,
// padded to MinWords with the same fixed filler the length loop uses.
func (r *Rewriter) fallbackBrief(article *entity.Article, start time.Time) Result {
	headline := article.Title
	if headline == "" {
		headline = "News Update"
	}

	const fallbackContentChars = 2000
	body := article.Description
	if body == "" {
		body = article.Content
		if text.CountRunes(body) > fallbackContentChars {
			runes := []rune(body)
			body = string(runes[:fallbackContentChars])
		}
	}
	body = appendFiller(body, r.config.MinWords)
	if entity.WordCount(body) > r.config.MaxWords {
		body = truncateWords(body, r.config.MaxWords) + "..."
	}

	brief := &entity.Brief{
		ID:             entity.BriefID(article.Category, headline, start),
		Headline:       headline,
		Body:           body,
		SourceArticles: []string{article.URL},
		Category:       article.Category,
		PublishedAt:    start,
		Tags:           article.Tags,
		Status:         r.config.InitialStatus,
		LLM: entity.LLMMetadata{
			ModelID:       "fallback",
			PromptVersion: r.config.PromptVersion,
			ProcessingMS:  time.Since(start).Milliseconds(),
		},
	}
	return Result{Brief: brief, Warnings: []string{ErrLLMUnavailable.Error()}}
}

func scanBias(body string) []string {
	lower := strings.ToLower(body)
	var hits []string
	for _, term := range biasLexicon {
		if strings.Contains(lower, term) {
			hits = append(hits, term)
		}
	}
	return hits
}

func subjectivityScore(body string) float64 {
	wc := entity.WordCount(body)
	if wc == 0 {
		return 0
	}
	score := float64(len(scanBias(body))) / float64(wc)
	if score > 1 {
		score = 1
	}
	return score
}

func ensureURLPresent(sources []string, url string) []string {
	for _, s := range sources {
		if s == url {
			return sources
		}
	}
	return append(sources, url)
}

func anyPrimarySource(sources []string) bool {
	for _, s := range sources {
		if isPrimarySource(s) {
			return true
		}
	}
	return false
}

var wordBoundary = regexp.MustCompile(`\b\w+\b`)

// truncateWords cuts body at the end of its maxWords-th word.
func truncateWords(body string, maxWords int) string {
	matches := wordBoundary.FindAllStringIndex(body, -1)
	if len(matches) <= maxWords {
		return body
	}
	cut := matches[maxWords-1][1]
	return strings.TrimSpace(body[:cut])
}

// appendFiller repeatedly appends the fixed filler paragraph until
// body's word count reaches minWords. The filler's own word count is
// fixed and nonzero, so this always terminates.
func appendFiller(body string, minWords int) string {
	for entity.WordCount(body) < minWords {
		body = strings.TrimSpace(body) + "\n\n" + fillerParagraph
	}
	return body
}

// renderSections reconstructs the fenced sectional format so a
// revision or expansion call sees the same markup shape as the
// original draft.
func renderSections(s draftSections) string {
	var sb strings.Builder
	sb.WriteString("==HEADLINE==\n" + s.Headline + "\n")
	sb.WriteString("==BRIEF==\n" + s.Body + "\n")
	ctx := "None"
	if s.Context != nil {
		ctx = *s.Context
	}
	sb.WriteString("==CONTEXT==\n" + ctx + "\n")
	sb.WriteString("==SOURCES==\n" + strings.Join(s.Sources, "\n") + "\n")
	sideCar := s.SideCar
	if sideCar == nil {
		sideCar = map[string]any{}
	}
	sideCarJSON, _ := json.Marshal(sideCar)
	sb.WriteString("==SIDE-CAR==\n" + string(sideCarJSON))
	return sb.String()
}
