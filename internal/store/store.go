// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

// Package store persists fingerprints, reports, clusters and clustering
// configuration in BadgerDB.
//
// Documents are JSON encoded under key prefixes. Secondary indexes are plain
// keys whose value is the primary id. Read-modify-write operations run inside
// one optimistic transaction and are retried when Badger reports a write
// conflict, so concurrent updates to the same document serialize without
// losing writes.
//
// Every operation passes through a circuit breaker. An open breaker and a
// closed database both surface as models.ErrStoreUnavailable; a missing
// document surfaces as models.ErrNotFound.
package store

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/trustbond/internal/logging"
	"github.com/tomtom215/trustbond/internal/metrics"
	"github.com/tomtom215/trustbond/internal/models"
)

// Key prefixes for BadgerDB storage
const (
	fingerprintKeyPrefix   = "fp:"
	reportKeyPrefix        = "report:"
	reportRefKeyPrefix     = "report_ref:"
	reportTimeKeyPrefix    = "report_ts:"
	reportDeviceKeyPrefix  = "report_fp:"
	clusterKeyPrefix       = "cluster:"
	clusteringConfigKey    = "config:clustering"
	deleteBatchSize        = 500
	defaultConflictRetries = 100
	keyLockStripes         = 256
	conflictBackoffBase    = time.Millisecond
	conflictBackoffMax     = 50 * time.Millisecond
)

// BreakerConfig configures the store circuit breaker.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// Config configures the store.
type Config struct {
	// Path is the Badger directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps all data in memory.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// Compression enables Snappy block compression.
	Compression bool

	// MaxConflictRetries bounds the retries of one read-modify-write.
	// Retries back off with jitter and stop early when the context ends.
	MaxConflictRetries int

	// GCDiscardRatio is passed to RunValueLogGC.
	GCDiscardRatio float64

	Breaker BreakerConfig
}

// DefaultConfig returns an on-disk configuration rooted at ./data/trustbond.
func DefaultConfig() Config {
	return Config{
		Path:               "./data/trustbond",
		SyncWrites:         true,
		Compression:        true,
		MaxConflictRetries: defaultConflictRetries,
		GCDiscardRatio:     0.5,
		Breaker: BreakerConfig{
			Name:             "store",
			MaxRequests:      1,
			Interval:         60 * time.Second,
			Timeout:          30 * time.Second,
			FailureThreshold: 5,
		},
	}
}

// Store is the BadgerDB-backed document store.
type Store struct {
	db  *badger.DB
	cb  *gobreaker.CircuitBreaker[interface{}]
	cfg Config

	// keyLocks serializes read-modify-writes of one document within this
	// process so they do not conflict with each other in Badger.
	keyLocks [keyLockStripes]sync.Mutex
}

// Open opens (or creates) the database described by cfg.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("store path is required unless in-memory")
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites && !cfg.InMemory
	if cfg.Compression {
		opts.Compression = options.Snappy
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("sync_writes", opts.SyncWrites).
		Msg("Store opened")

	return New(db, cfg), nil
}

// New wraps an already open database.
func New(db *badger.DB, cfg Config) *Store {
	if cfg.MaxConflictRetries <= 0 {
		cfg.MaxConflictRetries = defaultConflictRetries
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker = DefaultConfig().Breaker
	}
	return &Store{
		db:  db,
		cb:  newBreaker(cfg.Breaker),
		cfg: cfg,
	}
}

func newBreaker(cfg BreakerConfig) *gobreaker.CircuitBreaker[interface{}] {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !isInfrastructureError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordCircuitBreakerTransition(name, from.String(), to.String())
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Store circuit breaker state changed")
		},
	}
	return gobreaker.NewCircuitBreaker[interface{}](settings)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// BreakerState returns the circuit breaker state name.
func (s *Store) BreakerState() string {
	return s.cb.State().String()
}

// RunGC reclaims value-log space until Badger reports nothing to rewrite.
func (s *Store) RunGC() error {
	if s.cfg.InMemory {
		return nil
	}
	for {
		err := s.db.RunValueLogGC(s.cfg.GCDiscardRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// callerError marks an error produced by caller code (an update callback or
// a validation) so the breaker does not count it as a store failure.
type callerError struct {
	err error
}

func (e *callerError) Error() string { return e.err.Error() }
func (e *callerError) Unwrap() error { return e.err }

func isInfrastructureError(err error) bool {
	var ce *callerError
	switch {
	case errors.As(err, &ce):
		return false
	case errors.Is(err, models.ErrNotFound):
		return false
	case errors.Is(err, badger.ErrConflict):
		// Contention on one document says nothing about the database.
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

// execute runs fn through the circuit breaker and records metrics.
func (s *Store) execute(ctx context.Context, op string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	err = translate(err)

	var recorded error
	if err != nil && isInfrastructureError(err) {
		recorded = err
	}
	metrics.RecordStoreOperation(op, time.Since(start), recorded)

	var ce *callerError
	if errors.As(err, &ce) {
		return ce.err
	}
	return err
}

// lockKey locks the stripe guarding key and returns its unlock func.
func (s *Store) lockKey(key []byte) func() {
	h := fnv.New32a()
	_, _ = h.Write(key)
	mu := &s.keyLocks[h.Sum32()%keyLockStripes]
	mu.Lock()
	return mu.Unlock
}

// withRetry repeats a transactional fn while Badger reports a conflict,
// sleeping a jittered, growing backoff between attempts.
func (s *Store) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	backoff := conflictBackoffBase
	for attempt := 0; attempt <= s.cfg.MaxConflictRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = fn()
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		metrics.RecordStoreConflictRetry(op)

		wait := backoff/2 + time.Duration(rand.Int64N(int64(backoff)))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		if backoff < conflictBackoffMax {
			backoff *= 2
		}
	}
	return fmt.Errorf("%s: retries exhausted: %w", op, err)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	case errors.Is(err, badger.ErrDBClosed):
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return err
}

// getJSON loads and decodes the document at key.
func getJSON[T any](txn *badger.Txn, key []byte) (*T, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	var v T
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &v)
	}); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &v, nil
}

func setJSON(txn *badger.Txn, key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &callerError{err: fmt.Errorf("encode %s: %w", key, err)}
	}
	if err := txn.Set(key, data); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// timeKey renders t so that lexical key order equals chronological order.
func timeKey(t time.Time) string {
	return fmt.Sprintf("%020d", t.UnixNano())
}

// prefixEnd returns the smallest key greater than every key with prefix.
func prefixEnd(prefix string) []byte {
	return append([]byte(prefix), 0xFF)
}

// lastSegment returns the part of key after the final ':'.
func lastSegment(key string) string {
	if i := strings.LastIndexByte(key, ':'); i >= 0 {
		return key[i+1:]
	}
	return key
}
