package cache

import (
	"testing"

	"github.com/kgraph/indexer/engine/domain"
)

func TestContentHash_Deterministic(t *testing.T) {
	a := ContentHash("hello world")
	b := ContentHash("hello world")
	if a != b {
		t.Fatalf("expected deterministic hash, got %q != %q", a, b)
	}
	if ContentHash("different") == a {
		t.Fatal("expected different content to hash differently")
	}
}

func TestCacheKey_Namespacing(t *testing.T) {
	k1 := cacheKey("proj-1", domain.CacheEntityExtraction, "abc")
	k2 := cacheKey("proj-2", domain.CacheEntityExtraction, "abc")
	if k1 == k2 {
		t.Fatal("expected different projects to produce different keys")
	}
	k3 := cacheKey("proj-1", domain.CacheGleaning, "abc")
	if k1 == k3 {
		t.Fatal("expected different cache types to produce different keys")
	}
}
