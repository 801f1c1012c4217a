package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"catchup-feed/internal/resilience/circuitbreaker"
	"catchup-feed/internal/resilience/retry"
)

// OpenAIConfig holds the OpenAI-specific knobs for the rewrite pipeline.
type OpenAIConfig struct {
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// LoadOpenAIConfig returns the default OpenAI configuration.
func LoadOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		Model:     "gpt-4o-mini",
		MaxTokens: MaxMaxTokens,
		Timeout:   60 * time.Second,
	}
}

// OpenAI implements Provider over OpenAI's chat completions API, with
// the same circuit-breaker-plus-retry shape as the Claude adapter.
type OpenAI struct {
	client         *openai.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	config         OpenAIConfig
	metrics        CompletionMetricsRecorder
}

// NewOpenAI builds an OpenAI provider from an API key.
func NewOpenAI(apiKey string) *OpenAI {
	config := LoadOpenAIConfig()
	slog.Info("initialized openai llm provider",
		slog.String("model", config.Model),
		slog.Int("max_tokens", config.MaxTokens))

	return &OpenAI{
		client:         openai.NewClient(apiKey),
		circuitBreaker: circuitbreaker.New(circuitbreaker.DefaultConfig("openai-api")),
		retryConfig:    retry.AIAPIConfig(),
		config:         config,
		metrics:        NewPrometheusCompletionMetrics(),
	}
}

// NewOpenAIFromEnv builds an OpenAI provider from OPENAI_API_KEY,
// returning an error rather than exiting so callers control the
// failure path.
func NewOpenAIFromEnv() (*OpenAI, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	return NewOpenAI(apiKey), nil
}

// Complete issues one system/user completion call through the circuit
// breaker and retry policy.
func (o *OpenAI) Complete(ctx context.Context, systemPrompt, userMessage string) (Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	var result Completion
	retryErr := retry.WithBackoff(ctx, o.retryConfig, func() error {
		cbResult, err := o.circuitBreaker.Execute(func() (interface{}, error) {
			return o.doComplete(ctx, systemPrompt, userMessage)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("openai api circuit breaker open, request rejected",
					slog.String("service", "openai-api"),
					slog.String("state", o.circuitBreaker.State().String()))
				return fmt.Errorf("openai api unavailable: circuit breaker open")
			}
			return err
		}
		result = cbResult.(Completion)
		return nil
	})
	if retryErr != nil {
		return Completion{}, fmt.Errorf("openai completion failed after retries: %w", retryErr)
	}
	return result, nil
}

func (o *OpenAI) doComplete(ctx context.Context, systemPrompt, userMessage string) (Completion, error) {
	start := time.Now()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.config.Model,
		MaxTokens:   o.config.MaxTokens,
		Temperature: Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
	})

	duration := time.Since(start)
	if err != nil {
		slog.ErrorContext(ctx, "openai completion failed",
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return Completion{}, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, fmt.Errorf("openai api returned empty response")
	}

	text := resp.Choices[0].Message.Content
	inputTokens := resp.Usage.PromptTokens
	outputTokens := resp.Usage.CompletionTokens
	if inputTokens == 0 && outputTokens == 0 {
		inputTokens = estimateTokens(systemPrompt + userMessage)
		outputTokens = estimateTokens(text)
	}
	cost := estimateCost(inputTokens, outputTokens)

	o.metrics.RecordDuration("openai", duration)
	o.metrics.RecordTokens("openai", inputTokens, outputTokens)
	o.metrics.RecordCost("openai", cost)

	slog.InfoContext(ctx, "openai completion succeeded",
		slog.Int("input_tokens", inputTokens),
		slog.Int("output_tokens", outputTokens),
		slog.Duration("duration", duration))

	return Completion{
		Text:         text,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		CostUSD:      cost,
		ModelID:      o.config.Model,
		Duration:     duration,
	}, nil
}
