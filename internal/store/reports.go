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

	"github.com/tomtom215/trustbond/internal/models"
)

// ErrDuplicateReport is returned by SaveReport when the id or reference code
// is already taken.
var ErrDuplicateReport = errors.New("report already exists")

func reportKey(id string) []byte {
	return []byte(reportKeyPrefix + id)
}

func reportRefKey(code string) []byte {
	return []byte(reportRefKeyPrefix + code)
}

func reportTimeKey(r *models.Report) []byte {
	return []byte(reportTimeKeyPrefix + timeKey(r.CreatedAt) + ":" + r.ID)
}

func reportDeviceKey(r *models.Report) []byte {
	return []byte(reportDeviceKeyPrefix + r.DeviceFingerprint + ":" + timeKey(r.CreatedAt) + ":" + r.ID)
}

// SaveReport stores a new report together with its time, device and
// reference indexes.
func (s *Store) SaveReport(ctx context.Context, r *models.Report) error {
	return s.execute(ctx, "save_report", func() error {
		return s.withRetry(ctx, "save_report", func() error {
			return s.db.Update(func(txn *badger.Txn) error {
				if _, err := txn.Get(reportKey(r.ID)); err == nil {
					return &callerError{err: fmt.Errorf("%w: id %s", ErrDuplicateReport, r.ID)}
				} else if !errors.Is(err, badger.ErrKeyNotFound) {
					return fmt.Errorf("get report: %w", err)
				}
				if r.ReferenceCode != "" {
					if _, err := txn.Get(reportRefKey(r.ReferenceCode)); err == nil {
						return &callerError{err: fmt.Errorf("%w: reference %s", ErrDuplicateReport, r.ReferenceCode)}
					} else if !errors.Is(err, badger.ErrKeyNotFound) {
						return fmt.Errorf("get reference: %w", err)
					}
				}

				if err := setJSON(txn, reportKey(r.ID), r); err != nil {
					return err
				}
				if err := txn.Set(reportTimeKey(r), []byte(r.ID)); err != nil {
					return fmt.Errorf("set time index: %w", err)
				}
				if r.DeviceFingerprint != "" {
					if err := txn.Set(reportDeviceKey(r), []byte(r.ID)); err != nil {
						return fmt.Errorf("set device index: %w", err)
					}
				}
				if r.ReferenceCode != "" {
					if err := txn.Set(reportRefKey(r.ReferenceCode), []byte(r.ID)); err != nil {
						return fmt.Errorf("set reference index: %w", err)
					}
				}
				return nil
			})
		})
	})
}

// GetReport returns the report with id or models.ErrNotFound.
func (s *Store) GetReport(ctx context.Context, id string) (*models.Report, error) {
	var r *models.Report
	err := s.execute(ctx, "get_report", func() error {
		return s.db.View(func(txn *badger.Txn) error {
			var err error
			r, err = getJSON[models.Report](txn, reportKey(id))
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetReportByReference resolves a human-readable reference code.
func (s *Store) GetReportByReference(ctx context.Context, code string) (*models.Report, error) {
	var r *models.Report
	err := s.execute(ctx, "get_report_by_reference", func() error {
		return s.db.View(func(txn *badger.Txn) error {
			item, err := txn.Get(reportRefKey(code))
			if errors.Is(err, badger.ErrKeyNotFound) {
				return models.ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("get reference: %w", err)
			}
			id, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("read reference: %w", err)
			}
			r, err = getJSON[models.Report](txn, reportKey(string(id)))
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// UpdateReport applies fn to the report with id inside one transaction. The
// same retry rules as UpdateFingerprint apply. fn must not change the id,
// creation time, fingerprint or reference code.
func (s *Store) UpdateReport(ctx context.Context, id string, fn func(*models.Report) error) (*models.Report, error) {
	var updated *models.Report
	defer s.lockKey(reportKey(id))()
	err := s.execute(ctx, "update_report", func() error {
		return s.withRetry(ctx, "update_report", func() error {
			return s.db.Update(func(txn *badger.Txn) error {
				r, err := getJSON[models.Report](txn, reportKey(id))
				if err != nil {
					return err
				}
				if err := fn(r); err != nil {
					return &callerError{err: err}
				}
				if err := setJSON(txn, reportKey(id), r); err != nil {
					return err
				}
				updated = r
				return nil
			})
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ReportsByFingerprintSince returns the reports submitted by fp at or after
// since, oldest first.
func (s *Store) ReportsByFingerprintSince(ctx context.Context, fp string, since time.Time) ([]*models.Report, error) {
	prefix := reportDeviceKeyPrefix + fp + ":"
	return s.reportsFromIndex(ctx, "reports_by_fingerprint", prefix, since)
}

// ReportsSince returns every report created at or after since, oldest
// first.
func (s *Store) ReportsSince(ctx context.Context, since time.Time) ([]*models.Report, error) {
	return s.reportsFromIndex(ctx, "reports_since", reportTimeKeyPrefix, since)
}

func (s *Store) reportsFromIndex(ctx context.Context, op, prefix string, since time.Time) ([]*models.Report, error) {
	var out []*models.Report
	err := s.execute(ctx, op, func() error {
		out = out[:0]
		return s.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = false
			it := txn.NewIterator(opts)
			defer it.Close()

			p := []byte(prefix)
			for it.Seek([]byte(prefix + timeKey(since))); it.ValidForPrefix(p); it.Next() {
				if err := ctx.Err(); err != nil {
					return err
				}
				id := lastSegment(string(it.Item().Key()))
				r, err := getJSON[models.Report](txn, reportKey(id))
				if errors.Is(err, models.ErrNotFound) {
					continue
				}
				if err != nil {
					return err
				}
				out = append(out, r)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ScanReports walks reports newest first and returns up to limit of those
// for which keep returns true. limit <= 0 means no limit.
func (s *Store) ScanReports(ctx context.Context, limit int, keep func(*models.Report) bool) ([]*models.Report, error) {
	var out []*models.Report
	err := s.execute(ctx, "scan_reports", func() error {
		out = out[:0]
		return s.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = false
			opts.Reverse = true
			it := txn.NewIterator(opts)
			defer it.Close()

			p := []byte(reportTimeKeyPrefix)
			for it.Seek(prefixEnd(reportTimeKeyPrefix)); it.ValidForPrefix(p); it.Next() {
				if err := ctx.Err(); err != nil {
					return err
				}
				id := lastSegment(string(it.Item().Key()))
				r, err := getJSON[models.Report](txn, reportKey(id))
				if errors.Is(err, models.ErrNotFound) {
					continue
				}
				if err != nil {
					return err
				}
				if !keep(r) {
					continue
				}
				out = append(out, r)
				if limit > 0 && len(out) >= limit {
					return nil
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
