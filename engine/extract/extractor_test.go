package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/kgraph/indexer/engine/domain"
)

type scriptedLLM struct {
	responses []string
	errs      []error
	calls     int
}

func (s *scriptedLLM) Call(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return "", errors.New("scriptedLLM: no more responses")
}

type fakeCache struct {
	entries map[string]domain.ExtractionCache
	puts    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]domain.ExtractionCache{}}
}

func (c *fakeCache) key(projectID string, cacheType domain.CacheType, contentHash string) string {
	return projectID + "|" + string(cacheType) + "|" + contentHash
}

func (c *fakeCache) Get(ctx context.Context, projectID string, cacheType domain.CacheType, contentHash string) (domain.ExtractionCache, error) {
	e, ok := c.entries[c.key(projectID, cacheType, contentHash)]
	if !ok {
		return domain.ExtractionCache{}, errMiss
	}
	return e, nil
}

func (c *fakeCache) Put(ctx context.Context, entry domain.ExtractionCache) error {
	c.puts++
	c.entries[c.key(entry.ProjectID, entry.CacheType, entry.ContentHash)] = entry
	return nil
}

var errMiss = errors.New("miss")

const testEntityRecord = "entity<|#|>Alpha<|#|>CONCEPT<|#|>first<|COMPLETE|>"
const testNoNewRecord = "<|COMPLETE|>"

func TestExtract_InitialPassOnly(t *testing.T) {
	llm := &scriptedLLM{responses: []string{testEntityRecord}}
	e := NewExtractor(llm, nil, Opts{NameMaxLength: 500, GleaningEnabled: false})

	out := e.Extract(context.Background(), "proj-1", "chunk-1", "some text")
	if len(out.Entities) != 1 || out.Entities[0].Name != "Alpha" {
		t.Fatalf("unexpected result: %+v", out)
	}
	if llm.calls != 1 {
		t.Fatalf("expected 1 LLM call with gleaning disabled, got %d", llm.calls)
	}
}

func TestExtract_GleaningAddsNewEntities(t *testing.T) {
	const secondPass = "entity<|#|>Beta<|#|>CONCEPT<|#|>second<|COMPLETE|>"
	llm := &scriptedLLM{responses: []string{testEntityRecord, secondPass, testNoNewRecord}}
	e := NewExtractor(llm, nil, Opts{NameMaxLength: 500, GleaningEnabled: true, MaxPasses: 2})

	out := e.Extract(context.Background(), "proj-1", "chunk-1", "some text")
	if len(out.Entities) != 2 {
		t.Fatalf("expected 2 entities after gleaning, got %d: %+v", len(out.Entities), out.Entities)
	}
	if llm.calls != 3 {
		t.Fatalf("expected 3 LLM calls (initial + 2 gleaning passes), got %d", llm.calls)
	}
}

func TestExtract_EarlyStopsWhenNothingNew(t *testing.T) {
	llm := &scriptedLLM{responses: []string{testEntityRecord, testNoNewRecord, "should not be called"}}
	e := NewExtractor(llm, nil, Opts{NameMaxLength: 500, GleaningEnabled: true, MaxPasses: 5})

	out := e.Extract(context.Background(), "proj-1", "chunk-1", "some text")
	if len(out.Entities) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(out.Entities))
	}
	if llm.calls != 2 {
		t.Fatalf("expected early stop after 1 gleaning pass found nothing new, got %d calls", llm.calls)
	}
}

func TestExtract_InitialFailureReturnsEmptyWithoutPanicking(t *testing.T) {
	llm := &scriptedLLM{errs: []error{errors.New("boom")}}
	e := NewExtractor(llm, nil, Opts{NameMaxLength: 500, GleaningEnabled: true, MaxPasses: 3})

	out := e.Extract(context.Background(), "proj-1", "chunk-1", "some text")
	if len(out.Entities) != 0 || len(out.Relations) != 0 {
		t.Fatalf("expected empty result on initial failure, got %+v", out)
	}
	if llm.calls != 1 {
		t.Fatalf("expected no gleaning calls after initial failure, got %d calls", llm.calls)
	}
}

func TestExtract_GleaningFailureReturnsAccumulatedResult(t *testing.T) {
	llm := &scriptedLLM{
		responses: []string{testEntityRecord, ""},
		errs:      []error{nil, errors.New("gleaning boom")},
	}
	e := NewExtractor(llm, nil, Opts{NameMaxLength: 500, GleaningEnabled: true, MaxPasses: 3})

	out := e.Extract(context.Background(), "proj-1", "chunk-1", "some text")
	if len(out.Entities) != 1 || out.Entities[0].Name != "Alpha" {
		t.Fatalf("expected accumulated result from before the gleaning failure, got %+v", out)
	}
}

func TestExtract_UsesCacheOnSecondCall(t *testing.T) {
	llm := &scriptedLLM{responses: []string{testEntityRecord, testEntityRecord}}
	cache := newFakeCache()
	hasher := func(s string) string { return s }
	e := NewExtractor(llm, cache, Opts{
		NameMaxLength: 500, GleaningEnabled: false, CacheEnabled: true, ContentHasher: hasher,
	})

	out1 := e.Extract(context.Background(), "proj-1", "chunk-1", "same text")
	out2 := e.Extract(context.Background(), "proj-1", "chunk-1", "same text")

	if len(out1.Entities) != 1 || len(out2.Entities) != 1 {
		t.Fatalf("expected both calls to resolve entities: %+v / %+v", out1, out2)
	}
	if llm.calls != 1 {
		t.Fatalf("expected the second call to hit cache and skip the LLM, got %d calls", llm.calls)
	}
	if cache.puts != 1 {
		t.Fatalf("expected exactly one cache write, got %d", cache.puts)
	}
}

func TestMergeNew_KeepsLongerDescription(t *testing.T) {
	accum := ParsedRecords{Entities: []domain.Entity{{Name: "Alpha", Description: "short"}}}
	parsed := ParsedRecords{Entities: []domain.Entity{{Name: "alpha", Description: "a much longer description"}}}

	newEntities, _ := mergeNew(&accum, parsed)
	if newEntities != 0 {
		t.Fatalf("expected 0 new entities (case-insensitive match), got %d", newEntities)
	}
	if accum.Entities[0].Description != "a much longer description" {
		t.Fatalf("expected longer description to win, got %q", accum.Entities[0].Description)
	}
}
