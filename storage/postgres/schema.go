// Package postgres provides a PostgreSQL-backed record store using the
// pgvector extension for server-side similarity search.
//
// One [pgxpool.Pool] serves all operations. The pgvector extension must be
// available in the target database; [Migrate] installs it automatically via
// CREATE EXTENSION IF NOT EXISTS.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn, 768)
//	if err != nil { … }
//	defer store.Close()
//
//	hits, err := store.FindSimilar(ctx, ownerID, queryVec, 0.5, 10)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlProfiles = `
CREATE TABLE IF NOT EXISTS owner_profiles (
    owner_id    TEXT         PRIMARY KEY,
    projects    TEXT[]       NOT NULL DEFAULT '{}',
    tags        TEXT[]       NOT NULL DEFAULT '{}',
    focus_areas TEXT[]       NOT NULL DEFAULT '{}',
    updated_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);
`

// ddlRecords returns the activity record DDL with the embedding dimension
// substituted. The vector dimension is baked into the column type at schema
// creation time.
func ddlRecords(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS activity_records (
    id          BIGSERIAL    PRIMARY KEY,
    owner_id    TEXT         NOT NULL,
    source_ref  TEXT         NOT NULL,
    text        TEXT         NOT NULL,
    category    TEXT         NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    embedding   vector(%d),
    UNIQUE (owner_id, source_ref)
);

CREATE INDEX IF NOT EXISTS idx_activity_records_owner_created
    ON activity_records (owner_id, created_at DESC);

CREATE INDEX IF NOT EXISTS idx_activity_records_embedding
    ON activity_records USING hnsw (embedding vector_cosine_ops);
`, embeddingDimensions)
}

// Migrate creates or ensures all required database tables and extensions
// exist. It is idempotent and safe to call on every application start.
//
// embeddingDimensions must match the output dimension of the configured
// embedding model (e.g., 768 for embeddinggemma). Changing this value after
// the first migration requires a manual schema update.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	statements := []string{
		ddlRecords(embeddingDimensions),
		ddlProfiles,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
