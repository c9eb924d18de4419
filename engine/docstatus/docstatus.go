// Package docstatus provides a Redis-backed implementation of the document
// status store port that backs DocumentGate's idempotency check
// (SPEC_FULL.md §3, §4.1) and the operator-facing lease reaper
// (SPEC_FULL.md §3's ProcessingLease supplement).
package docstatus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kgraph/indexer/engine/domain"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Get when no status row exists for the document.
var ErrNotFound = errors.New("docstatus: not found")

// Store is a Redis-backed DocumentStatus store, one JSON string key per
// document plus a parallel lease key for PROCESSING rows.
type Store struct {
	client redis.UniversalClient
}

// New creates a Store against the given Redis address and logical DB.
func New(addr string, db int) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("docstatus: ping redis %s: %w", addr, err)
	}
	return &Store{client: client}, nil
}

// NewWithClient wraps an existing redis.UniversalClient, for tests.
func NewWithClient(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

func statusKey(docID string) string { return "docstatus:" + docID }
func leaseKey(docID string) string  { return "doclease:" + docID }

// Get returns the current DocumentStatus for a document, or ErrNotFound if
// it has never been ingested.
func (s *Store) Get(ctx context.Context, docID string) (domain.DocumentStatus, error) {
	data, err := s.client.Get(ctx, statusKey(docID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.DocumentStatus{}, ErrNotFound
	}
	if err != nil {
		return domain.DocumentStatus{}, fmt.Errorf("docstatus: get %s: %w", docID, err)
	}
	var st domain.DocumentStatus
	if err := json.Unmarshal(data, &st); err != nil {
		return domain.DocumentStatus{}, fmt.Errorf("docstatus: unmarshal %s: %w", docID, err)
	}
	return st, nil
}

// Put writes a DocumentStatus row, overwriting any existing one.
func (s *Store) Put(ctx context.Context, st domain.DocumentStatus) error {
	st.UpdatedAt = time.Now().UTC()
	if st.CreatedAt.IsZero() {
		st.CreatedAt = st.UpdatedAt
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("docstatus: marshal %s: %w", st.DocID, err)
	}
	if err := s.client.Set(ctx, statusKey(st.DocID), data, 0).Err(); err != nil {
		return fmt.Errorf("docstatus: set %s: %w", st.DocID, err)
	}
	return nil
}

// TransitionToProcessing acquires a processing lease with the given TTL and
// writes the PROCESSING status, atomically from the lease's perspective:
// the lease key uses SETNX semantics so two concurrent DocumentGate calls
// cannot both proceed (SPEC_FULL.md §4.1's "at-most-one concurrent ingest").
func (s *Store) TransitionToProcessing(ctx context.Context, docID string, ttl time.Duration) (bool, error) {
	acquired, err := s.client.SetNX(ctx, leaseKey(docID), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("docstatus: acquire lease %s: %w", docID, err)
	}
	if !acquired {
		return false, nil
	}
	if err := s.Put(ctx, domain.DocumentStatus{DocID: docID, ProcessingState: domain.StatusProcessing}); err != nil {
		return false, err
	}
	return true, nil
}

// ReleaseLease clears the processing lease, called after a terminal status
// write (COMPLETED or FAILED).
func (s *Store) ReleaseLease(ctx context.Context, docID string) error {
	if err := s.client.Del(ctx, leaseKey(docID)).Err(); err != nil {
		return fmt.Errorf("docstatus: release lease %s: %w", docID, err)
	}
	return nil
}

// Reclaim resets PROCESSING rows whose lease has expired back to FAILED,
// unblocking documents orphaned by a crashed ingest process. This is the
// operator-facing reaper SPEC_FULL.md §3 exposes outside DocumentGate's own
// decision logic; it is never called from the ingestion core itself.
func (s *Store) Reclaim(ctx context.Context, docIDs []string, olderThan time.Duration) (int, error) {
	reclaimed := 0
	cutoff := time.Now().UTC().Add(-olderThan)
	for _, docID := range docIDs {
		exists, err := s.client.Exists(ctx, leaseKey(docID)).Result()
		if err != nil {
			return reclaimed, fmt.Errorf("docstatus: check lease %s: %w", docID, err)
		}
		if exists > 0 {
			continue // lease still live, not orphaned
		}
		st, err := s.Get(ctx, docID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return reclaimed, err
		}
		if st.ProcessingState != domain.StatusProcessing || st.UpdatedAt.After(cutoff) {
			continue
		}
		st.ProcessingState = domain.StatusFailed
		st.ErrorMessage = "reclaimed: processing lease expired without a terminal status"
		if err := s.Put(ctx, st); err != nil {
			return reclaimed, err
		}
		reclaimed++
	}
	return reclaimed, nil
}

// Close releases the underlying Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
