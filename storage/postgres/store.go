package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

var (
	_ storage.RecordStore  = (*Store)(nil)
	_ storage.ProfileStore = (*Store)(nil)
)

// Store is a PostgreSQL-backed record and profile store. Similarity search
// runs server-side through the pgvector cosine distance operator, so
// FindSimilar never falls back to a client scan here.
//
// All operations are safe for concurrent use.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a new Store, establishes a connection pool to the
// PostgreSQL database at dsn, registers pgvector types on every connection,
// and runs [Migrate] to ensure all required tables and extensions exist.
//
// embeddingDimensions must match the output dimension of the embedding
// model producing record vectors.
func NewStore(ctx context.Context, dsn string, embeddingDimensions int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	// Register pgvector types on every new connection so that vector
	// columns can be scanned into and inserted from pgvector.Vector values.
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool, embeddingDimensions); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &Store{
		pool:   pool,
		logger: slog.Default(),
	}, nil
}

// Close releases all connections held by the underlying connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// AddRecords inserts records for an owner, relying on the
// (owner_id, source_ref) unique constraint to skip duplicates. A failing
// record is logged and counted as skipped without blocking the rest.
func (s *Store) AddRecords(ctx context.Context, ownerID string, records []*core.Record) (inserted, skipped int, err error) {
	const q = `
		INSERT INTO activity_records (owner_id, source_ref, text, category, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (owner_id, source_ref) DO NOTHING`

	for _, record := range records {
		createdAt := record.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		tag, execErr := s.pool.Exec(ctx, q, ownerID, record.SourceRef, record.Text, record.Category, createdAt)
		if execErr != nil {
			s.logger.Warn("record insert failed",
				"owner", ownerID,
				"source_ref", record.SourceRef,
				"error", execErr)
			skipped++
			if err == nil {
				err = fmt.Errorf("postgres store: add records: %w", execErr)
			}
			continue
		}
		if tag.RowsAffected() > 0 {
			inserted++
		} else {
			skipped++
		}
	}
	return inserted, skipped, err
}

// GetMissingEmbeddings returns up to limit records without a vector,
// newest first.
func (s *Store) GetMissingEmbeddings(ctx context.Context, ownerID string, limit int) ([]*core.Record, error) {
	const q = `
		SELECT id, owner_id, source_ref, text, category, created_at, embedding
		FROM   activity_records
		WHERE  owner_id = $1 AND embedding IS NULL
		ORDER  BY created_at DESC
		LIMIT  $2`
	return s.queryRecords(ctx, q, ownerID, limit)
}

// GetEmbedded returns up to limit records carrying a vector, newest first.
func (s *Store) GetEmbedded(ctx context.Context, ownerID string, limit int) ([]*core.Record, error) {
	const q = `
		SELECT id, owner_id, source_ref, text, category, created_at, embedding
		FROM   activity_records
		WHERE  owner_id = $1 AND embedding IS NOT NULL
		ORDER  BY created_at DESC
		LIMIT  $2`
	return s.queryRecords(ctx, q, ownerID, limit)
}

// GetRecent returns up to limit records created at or after since, newest
// first.
func (s *Store) GetRecent(ctx context.Context, ownerID string, since time.Time, limit int) ([]*core.Record, error) {
	const q = `
		SELECT id, owner_id, source_ref, text, category, created_at, embedding
		FROM   activity_records
		WHERE  owner_id = $1 AND created_at >= $2
		ORDER  BY created_at DESC
		LIMIT  $3`

	rows, err := s.pool.Query(ctx, q, ownerID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres store: get recent: %w", err)
	}
	return collectRecords(rows)
}

// WriteVector attaches a vector to the record identified by
// (ownerID, sourceRef). Returns false without error when no such record
// exists.
func (s *Store) WriteVector(ctx context.Context, ownerID, sourceRef string, vector []float32) (bool, error) {
	const q = `
		UPDATE activity_records
		SET    embedding = $3
		WHERE  owner_id = $1 AND source_ref = $2`

	tag, err := s.pool.Exec(ctx, q, ownerID, sourceRef, pgvector.NewVector(vector))
	if err != nil {
		return false, fmt.Errorf("postgres store: write vector: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// WriteVectors applies WriteVector per item, isolating failures so one bad
// write cannot sink the batch.
func (s *Store) WriteVectors(ctx context.Context, ownerID string, writes []storage.VectorWrite) (success, failed int, err error) {
	for _, w := range writes {
		written, writeErr := s.WriteVector(ctx, ownerID, w.SourceRef, w.Vector)
		if writeErr != nil {
			s.logger.Warn("vector write failed",
				"owner", ownerID,
				"source_ref", w.SourceRef,
				"error", writeErr)
			failed++
			continue
		}
		if !written {
			failed++
			continue
		}
		success++
	}
	return success, failed, nil
}

// ClearVectors strips embedding vectors from all of the owner's records.
func (s *Store) ClearVectors(ctx context.Context, ownerID string) (int, error) {
	const q = `
		UPDATE activity_records
		SET    embedding = NULL
		WHERE  owner_id = $1 AND embedding IS NOT NULL`

	tag, err := s.pool.Exec(ctx, q, ownerID)
	if err != nil {
		return 0, fmt.Errorf("postgres store: clear vectors: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// EmbeddingStats counts the owner's records with and without vectors.
func (s *Store) EmbeddingStats(ctx context.Context, ownerID string) (core.JobProgress, error) {
	const q = `
		SELECT COUNT(*), COUNT(embedding)
		FROM   activity_records
		WHERE  owner_id = $1`

	var total, withVector int
	if err := s.pool.QueryRow(ctx, q, ownerID).Scan(&total, &withVector); err != nil {
		return core.JobProgress{}, fmt.Errorf("postgres store: embedding stats: %w", err)
	}
	return core.NewJobProgress(total, withVector), nil
}

// FindSimilar ranks the owner's embedded records by cosine similarity to
// the query vector using the pgvector <=> operator. The minimum-similarity
// bound is translated into a cosine distance bound; operator failures wrap
// storage.ErrSearchUnavailable so callers can fall back to a client-side
// scan.
func (s *Store) FindSimilar(ctx context.Context, ownerID string, vector []float32, minSimilarity float32, limit int) ([]core.ScoredRecord, error) {
	const q = `
		SELECT id, owner_id, source_ref, text, category, created_at, embedding,
		       1 - (embedding <=> $2) AS similarity
		FROM   activity_records
		WHERE  owner_id = $1
		  AND  embedding IS NOT NULL
		  AND  embedding <=> $2 <= $3
		ORDER  BY embedding <=> $2
		LIMIT  $4`

	queryVec := pgvector.NewVector(vector)
	maxDistance := storage.CosineDistanceThreshold(minSimilarity)

	rows, err := s.pool.Query(ctx, q, ownerID, queryVec, maxDistance, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrSearchUnavailable, err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.ScoredRecord, error) {
		var (
			record     core.Record
			vec        *pgvector.Vector
			similarity float64
		)
		if scanErr := row.Scan(
			&record.Id,
			&record.OwnerID,
			&record.SourceRef,
			&record.Text,
			&record.Category,
			&record.CreatedAt,
			&vec,
			&similarity,
		); scanErr != nil {
			return core.ScoredRecord{}, scanErr
		}
		if vec != nil {
			record.Vector = vec.Slice()
		}
		return core.ScoredRecord{
			Record:     &record,
			Similarity: float32(similarity),
			Origin:     core.OriginSemantic,
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scan rows: %w", storage.ErrSearchUnavailable, err)
	}
	return results, nil
}

// GetProfile returns the owner's profile, or nil when none exists.
func (s *Store) GetProfile(ctx context.Context, ownerID string) (*core.OwnerProfile, error) {
	const q = `
		SELECT owner_id, projects, tags, focus_areas, updated_at
		FROM   owner_profiles
		WHERE  owner_id = $1`

	var profile core.OwnerProfile
	err := s.pool.QueryRow(ctx, q, ownerID).Scan(
		&profile.OwnerID,
		&profile.Projects,
		&profile.Tags,
		&profile.FocusAreas,
		&profile.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres store: get profile: %w", err)
	}
	return &profile, nil
}

// PutProfile stores or replaces the owner's profile.
func (s *Store) PutProfile(ctx context.Context, profile *core.OwnerProfile) error {
	const q = `
		INSERT INTO owner_profiles (owner_id, projects, tags, focus_areas, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (owner_id) DO UPDATE SET
		    projects    = EXCLUDED.projects,
		    tags        = EXCLUDED.tags,
		    focus_areas = EXCLUDED.focus_areas,
		    updated_at  = EXCLUDED.updated_at`

	_, err := s.pool.Exec(ctx, q,
		profile.OwnerID,
		profile.Projects,
		profile.Tags,
		profile.FocusAreas,
		profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres store: put profile: %w", err)
	}
	return nil
}

// Helpers

func (s *Store) queryRecords(ctx context.Context, q, ownerID string, limit int) ([]*core.Record, error) {
	rows, err := s.pool.Query(ctx, q, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres store: query records: %w", err)
	}
	return collectRecords(rows)
}

func collectRecords(rows pgx.Rows) ([]*core.Record, error) {
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*core.Record, error) {
		var (
			record core.Record
			vec    *pgvector.Vector
		)
		if scanErr := row.Scan(
			&record.Id,
			&record.OwnerID,
			&record.SourceRef,
			&record.Text,
			&record.Category,
			&record.CreatedAt,
			&vec,
		); scanErr != nil {
			return nil, scanErr
		}
		if vec != nil {
			record.Vector = vec.Slice()
		}
		return &record, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan rows: %w", err)
	}
	return records, nil
}
