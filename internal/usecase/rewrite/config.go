package rewrite

import (
	"catchup-feed/internal/domain/entity"
	pkgconfig "catchup-feed/internal/pkg/config"
)

// MinSources is the gate's minimum required source count.
const MinSources = 1

// MaxExpansionAttempts bounds the length loop's expansion calls.
const MaxExpansionAttempts = 3

// Config is the Rewriter's operator-facing policy. Two canonical
// word-count bands are used in practice, short-form and long-form;
// this type keeps both configurable rather than hard-coding either.
type Config struct {
	MinWords      int
	MaxWords      int
	PromptVersion string
	InitialStatus entity.BriefStatus
}

// DefaultWordBand is the narrower of the two canonical profiles.
var DefaultWordBand = struct{ Min, Max int }{180, 260}

// AlternateWordBand is the longer-form canonical profile.
var AlternateWordBand = struct{ Min, Max int }{400, 500}

// LoadConfig reads the Rewriter's policy from the environment, falling
// back to DefaultWordBand and a pending initial brief status. The
// Rewriter always persists at its configured initial status; status
// transitions (approval, publication) happen outside the pipeline.
func LoadConfig() Config {
	minWords := pkgconfig.LoadEnvInt("REWRITER_MIN_WORDS", DefaultWordBand.Min, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 10000)
	}).Value.(int)
	maxWords := pkgconfig.LoadEnvInt("REWRITER_MAX_WORDS", DefaultWordBand.Max, func(v int) error {
		return pkgconfig.ValidateIntRange(v, minWords, 10000)
	}).Value.(int)
	promptVersion := pkgconfig.LoadEnvString("REWRITER_PROMPT_VERSION", "v1")

	return Config{
		MinWords:      minWords,
		MaxWords:      maxWords,
		PromptVersion: promptVersion,
		InitialStatus: entity.BriefStatusPending,
	}
}
