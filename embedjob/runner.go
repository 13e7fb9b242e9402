// Copyright 2026 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package embedjob

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// Config holds configuration for an embedding run.
type Config struct {
	// BatchSize is the number of records embedded per provider call
	BatchSize int

	// MaxRecords caps how many records one run will process (0 = no cap)
	MaxRecords int

	// Regenerate clears the owner's existing vectors before the run so
	// everything is re-embedded from scratch
	Regenerate bool

	// ReportInterval is how often to report progress (number of records)
	ReportInterval int

	// MaxRetries is the maximum number of retry attempts for provider calls
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      50,
		ReportInterval: 50,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Summary reports what one embedding run accomplished. Batch-level
// failures land in the Failed counter rather than aborting the run.
type Summary struct {
	TotalProcessed      int
	EmbeddingsGenerated int
	Failed              int
	BatchesProcessed    int
	VectorsCleared      int
	FinalStats          core.JobProgress
}

// Runner orchestrates batch embedding generation for one owner at a time.
type Runner struct {
	store    storage.RecordStore
	embedder ai.Embedder
	config   *Config
	progress io.Writer
	logger   *slog.Logger
}

// NewRunner creates a new runner.
// progress: where to write progress output (typically os.Stderr)
func NewRunner(store storage.RecordStore, embedder ai.Embedder, config *Config, progress io.Writer) *Runner {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultConfig().BatchSize
	}
	if config.ReportInterval <= 0 {
		config.ReportInterval = config.BatchSize
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Runner{
		store:    store,
		embedder: embedder,
		config:   config,
		progress: progress,
		logger:   slog.Default().With("component", "embedjob"),
	}
}

// Run embeds the owner's backlog of records without vectors. The returned
// error covers only setup failures and context cancellation; embedding and
// write failures are absorbed into the Summary counters so a bad batch
// never aborts the run.
func (r *Runner) Run(ctx context.Context, ownerID string) (Summary, error) {
	var summary Summary

	if r.config.Regenerate {
		cleared, err := r.store.ClearVectors(ctx, ownerID)
		if err != nil {
			return summary, fmt.Errorf("failed to clear vectors: %w", err)
		}
		summary.VectorsCleared = cleared
		fmt.Fprintf(r.progress, "Cleared %d existing embeddings for regeneration\n", cleared)
	}

	stats, err := r.store.EmbeddingStats(ctx, ownerID)
	if err != nil {
		return summary, fmt.Errorf("failed to query embedding stats: %w", err)
	}
	summary.FinalStats = stats

	target := stats.RecordsWithoutVector
	if target == 0 {
		fmt.Fprintf(r.progress, "All records already have embeddings (%d total)\n", stats.TotalRecords)
		return summary, nil
	}
	if r.config.MaxRecords > 0 && target > r.config.MaxRecords {
		target = r.config.MaxRecords
	}

	fmt.Fprintf(r.progress, "Starting embedding generation for %d records (batch size: %d)\n",
		target, r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, target, r.config.ReportInterval)
	tracker.Start()

	for summary.TotalProcessed < target {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		batchLimit := r.config.BatchSize
		if remaining := target - summary.TotalProcessed; remaining < batchLimit {
			batchLimit = remaining
		}

		records, err := r.store.GetMissingEmbeddings(ctx, ownerID, batchLimit)
		if err != nil {
			r.logger.Error("failed to fetch records for batch", "owner", ownerID, "error", err)
			break
		}
		if len(records) == 0 {
			break
		}

		generated, failed := r.processBatch(ctx, ownerID, records)
		summary.EmbeddingsGenerated += generated
		summary.Failed += failed
		summary.TotalProcessed += len(records)
		summary.BatchesProcessed++
		tracker.Update(summary.TotalProcessed)
	}

	tracker.Finish()

	finalStats, err := r.store.EmbeddingStats(ctx, ownerID)
	if err == nil {
		summary.FinalStats = finalStats
	}

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Embedding run complete. Generated %d embeddings in %d batches (%d failed, %v elapsed)\n",
		summary.EmbeddingsGenerated, summary.BatchesProcessed, summary.Failed, elapsed.Round(time.Second))

	return summary, nil
}

// processBatch embeds one batch and writes the vectors back, returning how
// many landed and how many failed. Provider failures after retries mark
// the whole batch failed.
func (r *Runner) processBatch(ctx context.Context, ownerID string, records []*core.Record) (generated, failed int) {
	texts := make([]string, len(records))
	for i, record := range records {
		texts[i] = record.Text
	}

	var embeddings []ai.Embedding
	err := RetryWithBackoff(ctx, func() error {
		var embedErr error
		embeddings, embedErr = r.embedder.EmbedTexts(ctx, texts, ai.TaskDocument)
		return embedErr
	}, r.config.MaxRetries, r.config.RetryDelay)

	if err != nil {
		r.logger.Error("batch embedding failed after retries",
			"owner", ownerID,
			"batch_size", len(records),
			"error", err)
		return 0, len(records)
	}

	writes := make([]storage.VectorWrite, 0, len(embeddings))
	for _, embedding := range embeddings {
		writes = append(writes, storage.VectorWrite{
			SourceRef: records[embedding.Index].SourceRef,
			Vector:    embedding.Vector,
		})
	}
	// Blank texts are filtered by the embedder and never come back
	failed += len(records) - len(embeddings)

	success, writeFailed, writeErr := r.store.WriteVectors(ctx, ownerID, writes)
	if writeErr != nil {
		r.logger.Error("batch vector write failed", "owner", ownerID, "error", writeErr)
	}
	return success, failed + writeFailed
}
