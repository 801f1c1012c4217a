package db

import "database/sql"

// MigrateUp creates the pipeline schema: sources, articles, briefs,
// article_embeddings (optional/additive), and processing_logs. All
// statements are idempotent so repeated startups are safe.
func MigrateUp(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sources (
    id                TEXT PRIMARY KEY,
    name              TEXT NOT NULL,
    feed_url          TEXT NOT NULL UNIQUE,
    category          VARCHAR(32) NOT NULL,
    active            BOOLEAN NOT NULL DEFAULT TRUE,
    last_checked_at   TIMESTAMPTZ,
    last_error        TEXT NOT NULL DEFAULT ''
)`,
		`CREATE TABLE IF NOT EXISTS articles (
    id               TEXT PRIMARY KEY,
    source_id        TEXT NOT NULL REFERENCES sources(id),
    title            TEXT NOT NULL,
    description      TEXT NOT NULL DEFAULT '',
    content          TEXT NOT NULL DEFAULT '',
    url              TEXT NOT NULL UNIQUE,
    category         VARCHAR(32) NOT NULL,
    published_at     TIMESTAMPTZ NOT NULL,
    captured_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    tags             TEXT[] NOT NULL DEFAULT '{}',
    brief_generated  BOOLEAN NOT NULL DEFAULT FALSE
)`,
		`CREATE TABLE IF NOT EXISTS briefs (
    id                  TEXT PRIMARY KEY,
    headline            TEXT NOT NULL,
    body                TEXT NOT NULL,
    source_articles      TEXT[] NOT NULL DEFAULT '{}',
    category            VARCHAR(32) NOT NULL,
    published_at        TIMESTAMPTZ NOT NULL,
    tags                TEXT[] NOT NULL DEFAULT '{}',
    status              VARCHAR(20) NOT NULL DEFAULT 'pending',
    model_id            TEXT NOT NULL DEFAULT '',
    prompt_version      TEXT NOT NULL DEFAULT '',
    input_tokens        INT NOT NULL DEFAULT 0,
    output_tokens       INT NOT NULL DEFAULT 0,
    cost_usd            DOUBLE PRECISION NOT NULL DEFAULT 0,
    processing_ms       BIGINT NOT NULL DEFAULT 0,
    subjectivity_score  DOUBLE PRECISION NOT NULL DEFAULT 0,
    revision_count      INT NOT NULL DEFAULT 0
)`,
		`CREATE TABLE IF NOT EXISTS processing_logs (
    id                  TEXT PRIMARY KEY,
    run_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
    success             BOOLEAN NOT NULL,
    articles_processed  INT NOT NULL DEFAULT 0,
    briefs_generated    INT NOT NULL DEFAULT 0,
    errors              TEXT[] NOT NULL DEFAULT '{}',
    processing_ms       BIGINT NOT NULL DEFAULT 0,
    input_tokens        INT NOT NULL DEFAULT 0,
    output_tokens       INT NOT NULL DEFAULT 0,
    cost_usd            DOUBLE PRECISION NOT NULL DEFAULT 0,
    model_id            TEXT NOT NULL DEFAULT '',
    prompt_version      TEXT NOT NULL DEFAULT ''
)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles(published_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_source_id ON articles(source_id)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_category ON articles(category)`,
		`CREATE INDEX IF NOT EXISTS idx_sources_active ON sources(active) WHERE active = TRUE`,
		`CREATE INDEX IF NOT EXISTS idx_briefs_status ON briefs(status)`,
		`CREATE INDEX IF NOT EXISTS idx_processing_logs_run_at ON processing_logs(run_at DESC)`,
	}

	// pg_trgm backs the title substring search the Novelty Filter's
	// fuzzy-title pass runs; ignore the error if the extension or the
	// privilege to create it is unavailable (degrades to a seq scan).
	_, _ = db.Exec(`CREATE EXTENSION IF NOT EXISTS pg_trgm`)
	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_articles_title_gin ON articles USING gin(title gin_trgm_ops)`)

	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	// pgvector extension + optional embedding column/table: additive,
	// never required for correctness. Ignore the error if unavailable.
	_, _ = db.Exec(`CREATE EXTENSION IF NOT EXISTS vector`)
	_, _ = db.Exec(`
CREATE TABLE IF NOT EXISTS article_embeddings (
    id              TEXT PRIMARY KEY,
    article_id      TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
    embedding_type  VARCHAR(50) NOT NULL,
    provider        VARCHAR(50) NOT NULL,
    model           VARCHAR(100) NOT NULL,
    dimension       INT NOT NULL,
    embedding       vector(1536) NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE(article_id, embedding_type, provider, model)
)`)
	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_article_embeddings_article_id ON article_embeddings(article_id)`)
	_, _ = db.Exec(`
CREATE INDEX IF NOT EXISTS idx_article_embeddings_vector
    ON article_embeddings USING ivfflat (embedding vector_cosine_ops)
    WITH (lists = 100)`)

	return nil
}

// MigrateDownEmbeddingsOnly rolls back only the optional embedding
// feature, preserving the core pipeline schema.
func MigrateDownEmbeddingsOnly(db *sql.DB) error {
	statements := []string{
		`DROP INDEX IF EXISTS idx_article_embeddings_vector`,
		`DROP INDEX IF EXISTS idx_article_embeddings_article_id`,
		`DROP TABLE IF EXISTS article_embeddings CASCADE`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
