package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/kgraph/indexer/engine/domain"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// --- Mocks ---

type mockResult struct {
	records []*neo4j.Record
	idx     int
}

func (r *mockResult) Next(_ context.Context) bool {
	if r.idx < len(r.records) {
		r.idx++
		return true
	}
	return false
}

func (r *mockResult) Record() *neo4j.Record {
	if r.idx <= 0 || r.idx > len(r.records) {
		return nil
	}
	return r.records[r.idx-1]
}

func newMockResult(records ...*neo4j.Record) *mockResult {
	return &mockResult{records: records}
}

type mockSession struct {
	runResult CypherResult
	runErr    error
	writeErr  error
	closed    bool
}

func (s *mockSession) Run(_ context.Context, _ string, _ map[string]any) (CypherResult, error) {
	return s.runResult, s.runErr
}

func (s *mockSession) Close(_ context.Context) error {
	s.closed = true
	return nil
}

func (s *mockSession) ExecuteWrite(_ context.Context, work func(tx CypherRunner) (any, error)) (any, error) {
	if s.writeErr != nil {
		return nil, s.writeErr
	}
	return work(&mockTx{runResult: s.runResult, runErr: s.runErr})
}

type mockTx struct {
	runResult CypherResult
	runErr    error
}

func (t *mockTx) Run(_ context.Context, _ string, _ map[string]any) (CypherResult, error) {
	if t.runResult == nil {
		return newMockResult(), t.runErr
	}
	return t.runResult, t.runErr
}

type mockOpener struct {
	session *mockSession
}

func (o *mockOpener) OpenSession(_ context.Context) CypherSession {
	return o.session
}

func makeEntityRecord(props map[string]any) *neo4j.Record {
	node := dbtype.Node{Props: props}
	return &neo4j.Record{Keys: []string{"n"}, Values: []any{node}}
}

// --- Pure function tests ---

func TestSanitizeRelType(t *testing.T) {
	tests := []struct{ input, want string }{
		{"founded", "FOUNDED"},
		{"works_at", "WORKS_AT"},
		{"", "RELATED_TO"},
		{"has-ties", "HASTIES"},
		{"ALREADY_UPPER", "ALREADY_UPPER"},
	}
	for _, tt := range tests {
		if got := sanitizeRelType(tt.input); got != tt.want {
			t.Errorf("sanitizeRelType(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestRelationTypeHint(t *testing.T) {
	if got := relationTypeHint("founded, early employee"); got != "founded" {
		t.Errorf("got %q", got)
	}
	if got := relationTypeHint("   "); got != "RELATED_TO" {
		t.Errorf("got %q", got)
	}
}

func TestEntityFromProps(t *testing.T) {
	props := map[string]any{
		"name":        "MIT",
		"type":        "ORG",
		"description": "a university",
	}
	e := entityFromProps(props)
	if e.Name != "MIT" || e.Type != "ORG" || e.Description != "a university" {
		t.Fatalf("unexpected entity: %+v", e)
	}
}

// --- GraphStore method tests with mocks ---

func TestUpsertEntities_Success(t *testing.T) {
	sess := &mockSession{runResult: newMockResult()}
	gs := NewWithOpener(&mockOpener{session: sess})

	err := gs.UpsertEntities(context.Background(), "proj1", []domain.Entity{{Name: "MIT", Type: "ORG"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sess.closed {
		t.Fatal("session not closed")
	}
}

func TestUpsertEntities_Empty(t *testing.T) {
	sess := &mockSession{runResult: newMockResult()}
	gs := NewWithOpener(&mockOpener{session: sess})

	if err := gs.UpsertEntities(context.Background(), "proj1", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpsertEntities_Error(t *testing.T) {
	sess := &mockSession{runErr: errors.New("db error")}
	gs := NewWithOpener(&mockOpener{session: sess})

	err := gs.UpsertEntities(context.Background(), "proj1", []domain.Entity{{Name: "MIT"}})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestUpsertRelations_Success(t *testing.T) {
	sess := &mockSession{runResult: newMockResult()}
	gs := NewWithOpener(&mockOpener{session: sess})

	err := gs.UpsertRelations(context.Background(), "proj1", []domain.Relation{
		{SrcName: "MIT", TgtName: "Cambridge", Keywords: "located_in"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpsertRelations_Error(t *testing.T) {
	sess := &mockSession{writeErr: errors.New("tx failed")}
	gs := NewWithOpener(&mockOpener{session: sess})

	err := gs.UpsertRelations(context.Background(), "proj1", []domain.Relation{
		{SrcName: "A", TgtName: "B"},
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestGetEntity_Success(t *testing.T) {
	rec := makeEntityRecord(map[string]any{"name": "MIT", "type": "ORG"})
	sess := &mockSession{runResult: newMockResult(rec)}
	gs := NewWithOpener(&mockOpener{session: sess})

	e, err := gs.GetEntity(context.Background(), "proj1", "MIT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Name != "MIT" {
		t.Fatalf("expected MIT, got %s", e.Name)
	}
}

func TestGetEntity_NotFound(t *testing.T) {
	sess := &mockSession{runResult: newMockResult()}
	gs := NewWithOpener(&mockOpener{session: sess})

	_, err := gs.GetEntity(context.Background(), "proj1", "missing")
	if err == nil {
		t.Fatal("expected error for not found")
	}
}

func TestNeighbors_DefaultDepth(t *testing.T) {
	sess := &mockSession{runResult: newMockResult()}
	gs := NewWithOpener(&mockOpener{session: sess})

	ents, err := gs.Neighbors(context.Background(), "proj1", "MIT", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ents != nil {
		t.Fatalf("expected nil for no results, got %v", ents)
	}
}

func TestFindByType_Success(t *testing.T) {
	rec := makeEntityRecord(map[string]any{"name": "MIT", "type": "ORG"})
	sess := &mockSession{runResult: newMockResult(rec)}
	gs := NewWithOpener(&mockOpener{session: sess})

	ents, err := gs.FindByType(context.Background(), "proj1", "ORG")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ents) != 1 {
		t.Fatalf("expected 1, got %d", len(ents))
	}
}
