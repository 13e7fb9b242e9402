package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// Result summarizes one intake batch.
type Result struct {
	Inserted int
	Skipped  int
	Invalid  int
}

// Recorder validates and stores incoming activity records.
type Recorder struct {
	store  storage.RecordStore
	logger *slog.Logger
}

// NewRecorder creates a Recorder over the given store.
func NewRecorder(store storage.RecordStore, logger *slog.Logger) (*Recorder, error) {
	if store == nil {
		return nil, fmt.Errorf("record store required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:  store,
		logger: logger.With("component", "ingest"),
	}, nil
}

// Ingest validates each record, fills in a content-hash source ref where
// the caller supplied none, and inserts the batch for the owner. Invalid
// records are logged and counted, never blocking the rest; duplicates are
// skipped by the store.
func (r *Recorder) Ingest(ctx context.Context, ownerID string, records []*core.Record) (Result, error) {
	if ownerID == "" {
		return Result{}, core.ErrEmptyOwner
	}

	var result Result
	valid := make([]*core.Record, 0, len(records))
	for _, record := range records {
		if record == nil {
			result.Invalid++
			continue
		}
		record.OwnerID = ownerID
		if record.SourceRef == "" {
			record.SourceRef = core.SourceRefFromText(record.Text)
		}
		if err := core.ValidateRecord(record); err != nil {
			r.logger.Warn("dropping invalid record",
				"owner", ownerID,
				"source_ref", record.SourceRef,
				"error", err)
			result.Invalid++
			continue
		}
		valid = append(valid, record)
	}

	inserted, skipped, err := r.store.AddRecords(ctx, ownerID, valid)
	result.Inserted = inserted
	result.Skipped = skipped
	if err != nil {
		return result, fmt.Errorf("ingest: %w", err)
	}

	r.logger.Info("ingest complete",
		"owner", ownerID,
		"inserted", result.Inserted,
		"skipped", result.Skipped,
		"invalid", result.Invalid)
	return result, nil
}
