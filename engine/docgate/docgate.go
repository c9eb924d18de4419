// Package docgate implements C1 (DocumentGate): the idempotency check and
// PENDING/PROCESSING/COMPLETED/FAILED lifecycle transitions that wrap every
// ingest call (SPEC_FULL.md §4.1).
package docgate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kgraph/indexer/engine/docstatus"
	"github.com/kgraph/indexer/engine/domain"
	"github.com/kgraph/indexer/internal/errs"
)

// StatusStore is the doc-status port (engine/docstatus.Store satisfies it).
type StatusStore interface {
	Get(ctx context.Context, docID string) (domain.DocumentStatus, error)
	Put(ctx context.Context, st domain.DocumentStatus) error
	TransitionToProcessing(ctx context.Context, docID string, ttl time.Duration) (bool, error)
	ReleaseLease(ctx context.Context, docID string) error
}

// Result is what a successful pipeline run reports back to the gate for the
// terminal COMPLETED status write.
type Result struct {
	ChunkCount    int
	EntityCount   int
	RelationCount int
}

// Pipeline runs the full ingestion pipeline (C2-C6) for one document.
type Pipeline func(ctx context.Context, doc domain.Document) (Result, error)

// Gate is C1: DocumentGate.
type Gate struct {
	store    StatusStore
	leaseTTL time.Duration
}

// New builds a Gate. leaseTTL bounds how long a PROCESSING lease is held
// before it becomes eligible for the out-of-band reaper
// (docstatus.Store.Reclaim).
func New(store StatusStore, leaseTTL time.Duration) *Gate {
	return &Gate{store: store, leaseTTL: leaseTTL}
}

// Ingest runs pipeline for doc unless the document is already COMPLETED or
// currently PROCESSING, in which case it returns immediately without doing
// any work (SPEC_FULL.md §4.1's idempotency and at-most-one-concurrent-
// ingest guarantees).
func (g *Gate) Ingest(ctx context.Context, doc domain.Document, pipeline Pipeline) (string, error) {
	docID := doc.ID

	st, err := g.store.Get(ctx, docID)
	if err != nil && !errors.Is(err, docstatus.ErrNotFound) {
		return "", errs.NewPortFailure("docstatus.Get", err)
	}

	switch st.ProcessingState {
	case domain.StatusCompleted:
		return docID, nil
	case domain.StatusProcessing:
		return docID, nil
	}

	acquired, err := g.store.TransitionToProcessing(ctx, docID, g.leaseTTL)
	if err != nil {
		return "", errs.NewPortFailure("docstatus.TransitionToProcessing", err)
	}
	if !acquired {
		// Lost the race to a concurrent ingest of the same document.
		return docID, nil
	}

	result, pipeErr := pipeline(ctx, doc)
	if pipeErr != nil {
		g.writeTerminalStatus(ctx, docID, doc.Metadata["filepath"], domain.StatusFailed, pipeErr.Error(), Result{})
		return "", errs.NewDocumentFailure(docID, pipeErr)
	}

	g.writeTerminalStatus(ctx, docID, doc.Metadata["filepath"], domain.StatusCompleted, "", result)
	return docID, nil
}

// writeTerminalStatus writes the final status row and releases the
// processing lease. A failure to write the status itself is logged but
// never propagated: the caller already has the real pipeline error (or
// success) to act on (SPEC_FULL.md §4.1's failure semantics).
func (g *Gate) writeTerminalStatus(ctx context.Context, docID, filePath string, state domain.ProcessingStatus, errMsg string, result Result) {
	st := domain.DocumentStatus{
		DocID:           docID,
		FilePath:        filePath,
		ProcessingState: state,
		ChunkCount:      result.ChunkCount,
		EntityCount:     result.EntityCount,
		RelationCount:   result.RelationCount,
		ErrorMessage:    errMsg,
	}
	if err := g.store.Put(ctx, st); err != nil {
		slog.Error("docgate: failed to write terminal status", "doc_id", docID, "state", state, "error", err)
	}
	if err := g.store.ReleaseLease(ctx, docID); err != nil {
		slog.Error("docgate: failed to release processing lease", "doc_id", docID, "error", err)
	}
}
