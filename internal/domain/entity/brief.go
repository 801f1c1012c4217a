package entity

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Brief is the neutral, fact-checked rewrite produced by the LLM pipeline
// from one or more source articles. Its id is built from the category,
// the first three alphanumeric words of the headline, and a capture-time
// millisecond suffix so replays of the same batch at the same instant
// collide onto the same id (idempotent upsert) while distinct runs don't.
type Brief struct {
	ID              string
	Headline        string
	Body            string
	SourceArticles  []string // article ids or URLs
	Category        Category
	PublishedAt     time.Time
	Tags            []string
	Status          BriefStatus
	LLM             LLMMetadata
}

// LLMMetadata captures the provenance of a brief's generation.
type LLMMetadata struct {
	ModelID         string
	PromptVersion   string
	InputTokens     int
	OutputTokens    int
	CostUSD         float64
	ProcessingMS    int64
	SubjectivityScore float64
	RevisionCount   int
}

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// BriefID builds the deterministic-shape identifier described in the
// data model: <category>-<slug3>-<epoch_ms>.
func BriefID(category Category, headline string, at time.Time) string {
	return fmt.Sprintf("%s-%s-%d", category, slug3(headline), at.UnixMilli())
}

// slug3 extracts the first three alphanumeric words of a headline,
// lowercased and hyphen-joined, for use inside a brief id.
func slug3(headline string) string {
	words := strings.Fields(headline)
	var kept []string
	for _, w := range words {
		cleaned := nonAlphanumeric.ReplaceAllString(w, "")
		if cleaned == "" {
			continue
		}
		kept = append(kept, strings.ToLower(cleaned))
		if len(kept) == 3 {
			break
		}
	}
	if len(kept) == 0 {
		return "untitled"
	}
	return strings.Join(kept, "-")
}

// Validate checks the fixed invariants on a Brief: at least one source,
// body word count within [minWords, maxWords], and a non-increasing
// subjectivity score is enforced by the caller across revisions (it
// cannot be checked from a single snapshot).
func (b *Brief) Validate(minWords, maxWords int) error {
	if len(b.SourceArticles) == 0 {
		return &ValidationError{Field: "source_articles", Message: "brief must cite at least one source"}
	}
	wc := WordCount(b.Body)
	if wc < minWords || wc > maxWords {
		return &ValidationError{Field: "body", Message: fmt.Sprintf("word count %d outside band [%d,%d]", wc, minWords, maxWords)}
	}
	return nil
}

var wordPattern = regexp.MustCompile(`\b\w+\b`)

// WordCount tokenizes text the way the rewrite gate does: \b\w+\b runs.
func WordCount(s string) int {
	return len(wordPattern.FindAllString(s, -1))
}
