package config

import (
	"time"

	pkgconfig "catchup-feed/internal/pkg/config"
)

// EmbeddingConfig is the optional article-embedding hook's policy. It
// is off unless explicitly enabled: embeddings are an additive signal
// for the Deduplicator's similarity pass, never required for
// correctness.
type EmbeddingConfig struct {
	Enabled bool
	Model   string
	Timeout time.Duration
}

// LoadEmbeddingConfig reads the embedding hook's policy from the
// environment, disabled by default.
func LoadEmbeddingConfig() EmbeddingConfig {
	enabled := pkgconfig.LoadEnvBool("EMBEDDING_ENABLED", false).Value.(bool)
	model := pkgconfig.LoadEnvString("EMBEDDING_MODEL", "text-embedding-3-small")
	timeout := pkgconfig.LoadEnvDuration("EMBEDDING_TIMEOUT", 30*time.Second, pkgconfig.ValidatePositiveDuration).Value.(time.Duration)

	return EmbeddingConfig{
		Enabled: enabled,
		Model:   model,
		Timeout: timeout,
	}
}
