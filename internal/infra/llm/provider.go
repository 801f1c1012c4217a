// Package llm provides the chat-completion providers the Brief Rewriter
// drives: a thin, reliability-wrapped adapter per vendor, speaking a single
// system/user message-pair protocol and returning raw assistant text plus
// token/cost accounting. Parsing that text into a brief's sections is the
// Rewriter's job, not this package's.
package llm

import (
	"context"
	"time"
)

// Temperature and token-budget bounds from the LLM provider protocol: a
// low temperature for consistent, fact-checking-style output, and a
// max_tokens window wide enough for a full sectional response.
const (
	Temperature  = 0.2
	MinMaxTokens = 900
	MaxMaxTokens = 1400
)

// Completion is one provider call's result: the raw assistant text plus
// the accounting the Rewriter folds into a brief's LLM metadata.
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	ModelID      string
	Duration     time.Duration
}

// Provider is a single chat-completion call: a fixed system prompt plus
// one user message, temperature and token budget fixed by the protocol.
// Draft, bias-revision, and expansion calls all go through this same
// method — only the prompts differ, and those are the Rewriter's
// concern.
type Provider interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (Completion, error)
}

// estimateTokens approximates token count from rune count, matching the
// "tokens = approx_input + approx_output" accounting the protocol calls
// for rather than a vendor-specific tokenizer.
func estimateTokens(s string) int {
	runes := []rune(s)
	return (len(runes) + 3) / 4
}

// Per-million-token rates for draft-path calls, matching the protocol's
// documented $0.15/$0.60 figures.
const (
	inputRatePerMillion  = 0.15
	outputRatePerMillion = 0.60
)

func estimateCost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1_000_000*inputRatePerMillion +
		float64(outputTokens)/1_000_000*outputRatePerMillion
}
