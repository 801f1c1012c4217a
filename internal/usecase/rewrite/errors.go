package rewrite

import "errors"

var (
	// ErrInsufficientSources is returned when the gate cannot bring a
	// brief's source list to MinSources even after repair.
	ErrInsufficientSources = errors.New("insufficient_sources")
	// ErrMissingPrimarySource marks the gate's soft warning for when no
	// cited source matches the primary-domain allow-list. It is never
	// returned as a hard failure — see Rewrite.
	ErrMissingPrimarySource = errors.New("missing_primary_source")
	// ErrWordCountOutOfBand is returned only if the gate's truncate/pad
	// repair still leaves the body outside [MinWords, MaxWords].
	ErrWordCountOutOfBand = errors.New("word_count_out_of_band")
	// ErrLLMUnavailable marks every LLM call in the pipeline failing;
	// Rewrite falls back to a deterministic brief rather than
	// propagating this.
	ErrLLMUnavailable = errors.New("llm_unavailable")
	// ErrParseError is returned when a response contains none of the
	// five section delimiters at all.
	ErrParseError = errors.New("parse_error")
)
