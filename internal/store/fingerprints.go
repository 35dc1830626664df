// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/trustbond/internal/models"
)

func fingerprintKey(fp string) []byte {
	return []byte(fingerprintKeyPrefix + fp)
}

// GetFingerprint returns the record for fp or models.ErrNotFound.
func (s *Store) GetFingerprint(ctx context.Context, fp string) (*models.FingerprintRecord, error) {
	var rec *models.FingerprintRecord
	err := s.execute(ctx, "get_fingerprint", func() error {
		return s.db.View(func(txn *badger.Txn) error {
			var err error
			rec, err = getJSON[models.FingerprintRecord](txn, fingerprintKey(fp))
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// CreateFingerprint inserts rec unless a record for the same fingerprint
// already exists. It returns the stored record and whether it was created by
// this call. A concurrent insert of the same fingerprint resolves to a read
// of the winner's record.
func (s *Store) CreateFingerprint(ctx context.Context, rec *models.FingerprintRecord) (*models.FingerprintRecord, bool, error) {
	var (
		stored  *models.FingerprintRecord
		created bool
	)
	defer s.lockKey(fingerprintKey(rec.Fingerprint))()
	err := s.execute(ctx, "create_fingerprint", func() error {
		return s.withRetry(ctx, "create_fingerprint", func() error {
			return s.db.Update(func(txn *badger.Txn) error {
				key := fingerprintKey(rec.Fingerprint)
				existing, err := getJSON[models.FingerprintRecord](txn, key)
				if err == nil {
					stored, created = existing, false
					return nil
				}
				if !errors.Is(err, models.ErrNotFound) {
					return err
				}
				if err := setJSON(txn, key, rec); err != nil {
					return err
				}
				cp := *rec
				stored, created = &cp, true
				return nil
			})
		})
	})
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

// UpdateFingerprint applies fn to the record for fp inside one transaction
// and stores the result. fn may be called more than once when the
// transaction is retried after a conflict, so it must only mutate the record
// it is given. An error returned by fn aborts the update and is returned
// unchanged.
func (s *Store) UpdateFingerprint(ctx context.Context, fp string, fn func(*models.FingerprintRecord) error) (*models.FingerprintRecord, error) {
	var updated *models.FingerprintRecord
	defer s.lockKey(fingerprintKey(fp))()
	err := s.execute(ctx, "update_fingerprint", func() error {
		return s.withRetry(ctx, "update_fingerprint", func() error {
			return s.db.Update(func(txn *badger.Txn) error {
				key := fingerprintKey(fp)
				rec, err := getJSON[models.FingerprintRecord](txn, key)
				if err != nil {
					return err
				}
				if err := fn(rec); err != nil {
					return &callerError{err: err}
				}
				if err := setJSON(txn, key, rec); err != nil {
					return err
				}
				updated = rec
				return nil
			})
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ListFingerprints returns every fingerprint record in key order.
func (s *Store) ListFingerprints(ctx context.Context) ([]*models.FingerprintRecord, error) {
	var out []*models.FingerprintRecord
	err := s.execute(ctx, "list_fingerprints", func() error {
		out = out[:0]
		return s.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = true
			it := txn.NewIterator(opts)
			defer it.Close()

			prefix := []byte(fingerprintKeyPrefix)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				if err := ctx.Err(); err != nil {
					return err
				}
				var rec models.FingerprintRecord
				if err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &rec)
				}); err != nil {
					return fmt.Errorf("decode fingerprint: %w", err)
				}
				out = append(out, &rec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteFingerprintsUpdatedBefore deletes every record whose UpdatedAt is
// earlier than cutoff and returns how many were removed. Candidates are
// re-checked inside the deleting transaction so a record touched after the
// scan survives.
func (s *Store) DeleteFingerprintsUpdatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	var candidates [][]byte
	err := s.execute(ctx, "scan_stale_fingerprints", func() error {
		candidates = candidates[:0]
		return s.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = true
			it := txn.NewIterator(opts)
			defer it.Close()

			prefix := []byte(fingerprintKeyPrefix)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				var rec struct {
					UpdatedAt time.Time `json:"updated_at"`
				}
				item := it.Item()
				if err := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &rec)
				}); err != nil {
					return fmt.Errorf("decode fingerprint: %w", err)
				}
				if rec.UpdatedAt.Before(cutoff) {
					candidates = append(candidates, item.KeyCopy(nil))
				}
			}
			return nil
		})
	})
	if err != nil {
		return 0, err
	}

	deleted := 0
	for start := 0; start < len(candidates); start += deleteBatchSize {
		end := start + deleteBatchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batch := candidates[start:end]

		var n int
		err := s.execute(ctx, "delete_stale_fingerprints", func() error {
			return s.withRetry(ctx, "delete_stale_fingerprints", func() error {
				n = 0
				return s.db.Update(func(txn *badger.Txn) error {
					for _, key := range batch {
						rec, err := getJSON[models.FingerprintRecord](txn, key)
						if errors.Is(err, models.ErrNotFound) {
							continue
						}
						if err != nil {
							return err
						}
						if !rec.UpdatedAt.Before(cutoff) {
							continue
						}
						if err := txn.Delete(key); err != nil {
							return fmt.Errorf("delete %s: %w", key, err)
						}
						n++
					}
					return nil
				})
			})
		})
		if err != nil {
			return deleted, err
		}
		deleted += n
	}
	return deleted, nil
}
