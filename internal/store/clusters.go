// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/trustbond/internal/models"
)

func clusterKey(c *models.Cluster) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:%06d", clusterKeyPrefix, timeKey(c.Timestamp), c.RunID, c.ClusterID))
}

// ReplaceClusters deletes every cluster whose timestamp is before cutoff and
// inserts clusters, all in one transaction. Readers see either the previous
// state or the new one. It returns the number of clusters deleted.
func (s *Store) ReplaceClusters(ctx context.Context, cutoff time.Time, clusters []models.Cluster) (int, error) {
	var deleted int
	err := s.execute(ctx, "replace_clusters", func() error {
		return s.withRetry(ctx, "replace_clusters", func() error {
			deleted = 0
			return s.db.Update(func(txn *badger.Txn) error {
				var stale [][]byte
				opts := badger.DefaultIteratorOptions
				opts.PrefetchValues = false
				it := txn.NewIterator(opts)

				upper := []byte(clusterKeyPrefix + timeKey(cutoff))
				prefix := []byte(clusterKeyPrefix)
				for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
					key := it.Item().Key()
					if bytes.Compare(key, upper) >= 0 {
						break
					}
					stale = append(stale, it.Item().KeyCopy(nil))
				}
				it.Close()

				for _, key := range stale {
					if err := txn.Delete(key); err != nil {
						return fmt.Errorf("delete cluster: %w", err)
					}
				}
				deleted = len(stale)

				for i := range clusters {
					if err := setJSON(txn, clusterKey(&clusters[i]), &clusters[i]); err != nil {
						return err
					}
				}
				return nil
			})
		})
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// LatestClusters returns the clusters of the most recent run whose timestamp
// is at or after since, ordered by cluster id. An empty result means no run
// has produced clusters in the window.
func (s *Store) LatestClusters(ctx context.Context, since time.Time) ([]models.Cluster, error) {
	var out []models.Cluster
	err := s.execute(ctx, "latest_clusters", func() error {
		out = out[:0]
		return s.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = true
			opts.Reverse = true
			it := txn.NewIterator(opts)
			defer it.Close()

			lower := []byte(clusterKeyPrefix + timeKey(since))
			prefix := []byte(clusterKeyPrefix)
			runID := ""
			for it.Seek(prefixEnd(clusterKeyPrefix)); it.ValidForPrefix(prefix); it.Next() {
				item := it.Item()
				if bytes.Compare(item.Key(), lower) < 0 {
					break
				}
				var c models.Cluster
				if err := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &c)
				}); err != nil {
					return fmt.Errorf("decode cluster: %w", err)
				}
				if runID == "" {
					runID = c.RunID
				}
				if c.RunID != runID {
					break
				}
				out = append(out, c)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClusterID < out[j].ClusterID })
	return out, nil
}

// ListClustersSince returns up to limit clusters with a timestamp at or after
// since, newest first. limit <= 0 means no limit.
func (s *Store) ListClustersSince(ctx context.Context, since time.Time, limit int) ([]models.Cluster, error) {
	var out []models.Cluster
	err := s.execute(ctx, "list_clusters", func() error {
		out = out[:0]
		return s.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = true
			opts.Reverse = true
			it := txn.NewIterator(opts)
			defer it.Close()

			lower := []byte(clusterKeyPrefix + timeKey(since))
			prefix := []byte(clusterKeyPrefix)
			for it.Seek(prefixEnd(clusterKeyPrefix)); it.ValidForPrefix(prefix); it.Next() {
				item := it.Item()
				if bytes.Compare(item.Key(), lower) < 0 {
					break
				}
				var c models.Cluster
				if err := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &c)
				}); err != nil {
					return fmt.Errorf("decode cluster: %w", err)
				}
				out = append(out, c)
				if limit > 0 && len(out) >= limit {
					break
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

// GetClusteringConfig returns the stored clustering parameters or
// models.ErrNotFound when none were saved.
func (s *Store) GetClusteringConfig(ctx context.Context) (models.ClusteringConfig, error) {
	var cfg *models.ClusteringConfig
	err := s.execute(ctx, "get_clustering_config", func() error {
		return s.db.View(func(txn *badger.Txn) error {
			var err error
			cfg, err = getJSON[models.ClusteringConfig](txn, []byte(clusteringConfigKey))
			return err
		})
	})
	if err != nil {
		return models.ClusteringConfig{}, err
	}
	return *cfg, nil
}

// SaveClusteringConfig stores the clustering parameters.
func (s *Store) SaveClusteringConfig(ctx context.Context, cfg models.ClusteringConfig) error {
	return s.execute(ctx, "save_clustering_config", func() error {
		return s.db.Update(func(txn *badger.Txn) error {
			return setJSON(txn, []byte(clusteringConfigKey), cfg)
		})
	})
}

// LoadClusteringConfig returns the stored parameters, or the defaults when
// none were saved.
func (s *Store) LoadClusteringConfig(ctx context.Context) (models.ClusteringConfig, error) {
	cfg, err := s.GetClusteringConfig(ctx)
	if errors.Is(err, models.ErrNotFound) {
		return models.DefaultClusteringConfig(), nil
	}
	return cfg, err
}
