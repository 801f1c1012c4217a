package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sony/gobreaker"

	"catchup-feed/internal/resilience/circuitbreaker"
	"catchup-feed/internal/resilience/retry"
)

// ClaudeConfig holds the Claude-specific knobs for the rewrite pipeline.
type ClaudeConfig struct {
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// LoadClaudeConfig returns the default Claude configuration. The model
// and token budget follow the LLM provider protocol rather than an
// environment variable, since they're a contract the rewrite pipeline
// relies on rather than an operator preference.
func LoadClaudeConfig() ClaudeConfig {
	return ClaudeConfig{
		Model:     string(anthropic.ModelClaudeSonnet4_5_20250929),
		MaxTokens: MaxMaxTokens,
		Timeout:   60 * time.Second,
	}
}

// Claude implements Provider over Anthropic's Messages API, wrapped in
// the same circuit-breaker-plus-retry shape as every other outbound
// call in this system.
type Claude struct {
	client         anthropic.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	config         ClaudeConfig
	metrics        CompletionMetricsRecorder
}

// NewClaude builds a Claude provider from an API key.
func NewClaude(apiKey string) *Claude {
	config := LoadClaudeConfig()
	slog.Info("initialized claude llm provider",
		slog.String("model", config.Model),
		slog.Int("max_tokens", config.MaxTokens))

	return &Claude{
		client:         anthropic.NewClient(option.WithAPIKey(apiKey)),
		circuitBreaker: circuitbreaker.New(circuitbreaker.DefaultConfig("claude-api")),
		retryConfig:    retry.AIAPIConfig(),
		config:         config,
		metrics:        NewPrometheusCompletionMetrics(),
	}
}

// NewClaudeFromEnv builds a Claude provider from ANTHROPIC_API_KEY,
// returning an error rather than exiting so callers control the
// failure path.
func NewClaudeFromEnv() (*Claude, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	return NewClaude(apiKey), nil
}

// Complete issues one system/user completion call through the circuit
// breaker and retry policy, within the provider protocol's 60s hard
// deadline.
func (c *Claude) Complete(ctx context.Context, systemPrompt, userMessage string) (Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var result Completion
	retryErr := retry.WithBackoff(ctx, c.retryConfig, func() error {
		cbResult, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.doComplete(ctx, systemPrompt, userMessage)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("claude api circuit breaker open, request rejected",
					slog.String("service", "claude-api"),
					slog.String("state", c.circuitBreaker.State().String()))
				return fmt.Errorf("claude api unavailable: circuit breaker open")
			}
			return err
		}
		result = cbResult.(Completion)
		return nil
	})
	if retryErr != nil {
		return Completion{}, fmt.Errorf("claude completion failed after retries: %w", retryErr)
	}
	return result, nil
}

func (c *Claude) doComplete(ctx context.Context, systemPrompt, userMessage string) (Completion, error) {
	start := time.Now()

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.config.Model),
		MaxTokens:   int64(c.config.MaxTokens),
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Temperature: anthropic.Float(Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage)),
		},
	})

	duration := time.Since(start)
	if err != nil {
		slog.ErrorContext(ctx, "claude completion failed",
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return Completion{}, fmt.Errorf("claude api error: %w", err)
	}
	if len(message.Content) == 0 {
		return Completion{}, fmt.Errorf("claude api returned empty response")
	}

	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		return Completion{}, fmt.Errorf("claude api returned unexpected response type")
	}

	inputTokens := estimateTokens(systemPrompt + userMessage)
	outputTokens := estimateTokens(textBlock.Text)
	cost := estimateCost(inputTokens, outputTokens)

	c.metrics.RecordDuration("claude", duration)
	c.metrics.RecordTokens("claude", inputTokens, outputTokens)
	c.metrics.RecordCost("claude", cost)

	slog.InfoContext(ctx, "claude completion succeeded",
		slog.Int("input_tokens", inputTokens),
		slog.Int("output_tokens", outputTokens),
		slog.Duration("duration", duration))

	return Completion{
		Text:         textBlock.Text,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		CostUSD:      cost,
		ModelID:      c.config.Model,
		Duration:     duration,
	}, nil
}
