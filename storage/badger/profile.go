package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// ProfileStore implements storage.ProfileStore for BadgerDB.
type ProfileStore struct {
	backend *Backend
}

var _ storage.ProfileStore = (*ProfileStore)(nil)

// NewProfileStore creates a profile store over an open backend.
func NewProfileStore(backend *Backend) *ProfileStore {
	return &ProfileStore{backend: backend}
}

// GetProfile returns the owner's profile, or nil when none exists.
func (s *ProfileStore) GetProfile(ctx context.Context, ownerID string) (*core.OwnerProfile, error) {
	var profile *core.OwnerProfile
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, getErr := tx.Get(makeProfileKey(ownerID))
		if getErr != nil {
			if getErr == badger.ErrKeyNotFound {
				return nil
			}
			return getErr
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			profile, unmarshalErr = storage.UnmarshalOwnerProfile(val)
			return unmarshalErr
		})
	}, false)
	return profile, err
}

// PutProfile stores or replaces the owner's profile.
func (s *ProfileStore) PutProfile(ctx context.Context, profile *core.OwnerProfile) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeProfileKey(profile.OwnerID)
		if err := tx.Set(key, storage.MarshalOwnerProfile(profile)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}
