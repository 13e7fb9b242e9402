package badger

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// maxIndexTime is the seek anchor for reverse iteration over the date index.
var maxIndexTime = time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC)

// Store implements storage.RecordStore for BadgerDB.
//
// BadgerDB has no native vector operator, so FindSimilar always reports
// storage.ErrSearchUnavailable and similarity ranking happens in the
// caller's fallback scan.
type Store struct {
	backend *Backend
	idSeq   *badger.Sequence
	logger  *slog.Logger
}

var _ storage.RecordStore = (*Store)(nil)

// NewRecordStore creates a record store over an open backend. The caller
// remains responsible for closing the backend after the store.
func NewRecordStore(backend *Backend) (*Store, error) {
	idSeq, err := backend.GetSequence(recordIDSeq)
	if err != nil {
		return nil, err
	}

	return &Store{
		backend: backend,
		idSeq:   idSeq,
		logger:  slog.Default(),
	}, nil
}

// Close releases the ID sequence.
func (s *Store) Close() error {
	return s.idSeq.Release()
}

// AddRecords inserts records for an owner, skipping duplicates on
// (owner, sourceRef). Records arriving without a creation time are
// stamped with the current time.
func (s *Store) AddRecords(ctx context.Context, ownerID string, records []*core.Record) (inserted, skipped int, err error) {
	err = s.backend.WithTx(func(tx *badger.Txn) error {
		for _, record := range records {
			key := makeRecordKey(ownerID, record.SourceRef)

			if _, getErr := tx.Get(key); getErr == nil {
				skipped++
				continue
			} else if getErr != badger.ErrKeyNotFound {
				return getErr
			}

			nextID, seqErr := s.idSeq.Next()
			if seqErr != nil {
				return seqErr
			}
			// BadgerDB sequences can return 0 on first call, so we skip it
			if nextID == 0 {
				nextID, seqErr = s.idSeq.Next()
				if seqErr != nil {
					return seqErr
				}
			}
			record.Id = core.ID(nextID)
			record.OwnerID = ownerID
			if record.CreatedAt.IsZero() {
				record.CreatedAt = time.Now().UTC()
			}

			if setErr := tx.Set(key, storage.MarshalRecord(record)); setErr != nil {
				return setErr
			}

			dateKey := makeDateKey(ownerID, record.CreatedAt, record.Id)
			if setErr := tx.Set(dateKey, []byte(record.SourceRef)); setErr != nil {
				return setErr
			}

			inserted++
		}
		return tx.Commit()
	}, true)

	return inserted, skipped, err
}

// GetMissingEmbeddings returns up to limit records without a vector,
// newest first.
func (s *Store) GetMissingEmbeddings(ctx context.Context, ownerID string, limit int) ([]*core.Record, error) {
	return s.collectNewestFirst(ownerID, limit, func(record *core.Record) bool {
		return !record.HasVector()
	})
}

// GetEmbedded returns up to limit records carrying a vector, newest first.
func (s *Store) GetEmbedded(ctx context.Context, ownerID string, limit int) ([]*core.Record, error) {
	return s.collectNewestFirst(ownerID, limit, func(record *core.Record) bool {
		return record.HasVector()
	})
}

// GetRecent returns up to limit records created at or after since, newest
// first. The date index is ordered, so iteration stops at the first record
// older than the cutoff.
func (s *Store) GetRecent(ctx context.Context, ownerID string, since time.Time, limit int) ([]*core.Record, error) {
	var results []*core.Record
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		return s.iterateNewestFirst(tx, ownerID, func(record *core.Record) (bool, error) {
			if record.CreatedAt.Before(since) {
				return false, nil
			}
			results = append(results, record)
			return len(results) < limit, nil
		})
	}, false)
	return results, err
}

// WriteVector attaches a vector to the record identified by
// (ownerID, sourceRef). Returns false without error when no such record
// exists.
func (s *Store) WriteVector(ctx context.Context, ownerID, sourceRef string, vector []float32) (bool, error) {
	var written bool
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeRecordKey(ownerID, sourceRef)
		record, readErr := readRecord(tx, key)
		if readErr != nil {
			return readErr
		}
		if record == nil {
			return nil
		}

		record.Vector = vector
		if setErr := tx.Set(key, storage.MarshalRecord(record)); setErr != nil {
			return setErr
		}
		written = true
		return tx.Commit()
	}, true)
	return written, err
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
	cleared := 0
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeOwnerRecordPrefix(ownerID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()

			var record *core.Record
			if readErr := item.Value(func(val []byte) error {
				var unmarshalErr error
				record, unmarshalErr = storage.UnmarshalRecord(val)
				return unmarshalErr
			}); readErr != nil {
				return readErr
			}
			if record == nil || !record.HasVector() {
				continue
			}

			record.Vector = nil
			key := item.KeyCopy(nil)
			if setErr := tx.Set(key, storage.MarshalRecord(record)); setErr != nil {
				return setErr
			}
			cleared++
		}
		// The iterator must be closed before commit or badger panics.
		iter.Close()
		return tx.Commit()
	}, true)
	return cleared, err
}

// EmbeddingStats counts the owner's records with and without vectors.
func (s *Store) EmbeddingStats(ctx context.Context, ownerID string) (core.JobProgress, error) {
	total := 0
	withVector := 0
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeOwnerRecordPrefix(ownerID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var record *core.Record
			if readErr := iter.Item().Value(func(val []byte) error {
				var unmarshalErr error
				record, unmarshalErr = storage.UnmarshalRecord(val)
				return unmarshalErr
			}); readErr != nil {
				return readErr
			}
			if record == nil {
				continue
			}
			total++
			if record.HasVector() {
				withVector++
			}
		}
		return nil
	}, false)
	if err != nil {
		return core.JobProgress{}, err
	}
	return core.NewJobProgress(total, withVector), nil
}

// FindSimilar reports that BadgerDB has no native vector operator.
func (s *Store) FindSimilar(ctx context.Context, ownerID string, vector []float32, minSimilarity float32, limit int) ([]core.ScoredRecord, error) {
	return nil, storage.ErrSearchUnavailable
}

// Helper methods

// collectNewestFirst walks the owner's date index in reverse and collects
// up to limit records matching keep.
func (s *Store) collectNewestFirst(ownerID string, limit int, keep func(*core.Record) bool) ([]*core.Record, error) {
	var results []*core.Record
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		return s.iterateNewestFirst(tx, ownerID, func(record *core.Record) (bool, error) {
			if keep(record) {
				results = append(results, record)
			}
			return len(results) < limit, nil
		})
	}, false)
	return results, err
}

// iterateNewestFirst walks the owner's date index newest first, resolving
// each entry to its full record. fn returns false to stop early.
func (s *Store) iterateNewestFirst(tx *badger.Txn, ownerID string, fn func(*core.Record) (bool, error)) error {
	opts := badger.DefaultIteratorOptions
	opts.Reverse = true

	iter := tx.NewIterator(opts)
	defer iter.Close()

	startKey := makePartialDateKey(ownerID, maxIndexTime)
	prefix := makeOwnerDatePrefix(ownerID)

	for iter.Seek(startKey); iter.Valid(); iter.Next() {
		key := iter.Item().Key()
		if !bytes.HasPrefix(key, prefix) {
			break
		}

		var sourceRef string
		if err := iter.Item().Value(func(val []byte) error {
			sourceRef = string(val)
			return nil
		}); err != nil {
			return err
		}

		record, err := readRecord(tx, makeRecordKey(ownerID, sourceRef))
		if err != nil {
			return err
		}
		if record == nil {
			continue
		}

		cont, err := fn(record)
		if err != nil {
			return err
		}
		if !cont {
			break
		}
	}
	return nil
}

// readRecord reads a record from the transaction. Returns nil without
// error when the key is absent.
func readRecord(tx *badger.Txn, key []byte) (*core.Record, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var record *core.Record
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		record, unmarshalErr = storage.UnmarshalRecord(val)
		return unmarshalErr
	})
	return record, err
}
