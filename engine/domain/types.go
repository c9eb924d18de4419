// Package domain holds the core value types shared across the ingestion and
// knowledge-graph construction pipeline: documents, chunks, vector entries,
// entities and relations, and the bookkeeping types used to dedupe and
// cluster them.
package domain

import "time"

// ProcessingStatus is the lifecycle state of a Document as tracked by the
// doc-status store.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "PENDING"
	StatusProcessing ProcessingStatus = "PROCESSING"
	StatusCompleted  ProcessingStatus = "COMPLETED"
	StatusFailed     ProcessingStatus = "FAILED"
)

// Document is the opaque input to the pipeline.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string // must carry "projectId"; may carry "documentId", "filepath"
}

// ProjectID returns the project namespace this document belongs to.
func (d Document) ProjectID() string {
	return d.Metadata["projectId"]
}

// DocumentStatus records where a document is in its ingestion lifecycle.
type DocumentStatus struct {
	DocID           string
	FilePath        string
	ProcessingState ProcessingStatus
	ChunkCount      int
	EntityCount     int
	RelationCount   int
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ProcessingLease is the optional out-of-band reaper record for documents
// stuck in PROCESSING past a TTL. It is not part of core ingestion logic;
// it is exposed by the doc-status store as a separate maintenance
// operation (see docstatus.Store.Reclaim).
type ProcessingLease struct {
	DocID      string
	AcquiredAt time.Time
	ExpiresAt  time.Time
}

// Chunk is an immutable, token-bounded slice of a document's text.
type Chunk struct {
	ChunkID     string // time-ordered 128-bit id (UUID v7)
	SourceDocID string
	ChunkIndex  int
	Content     string
	TokenCount  int
}

// VectorKind distinguishes chunk vectors from entity vectors in a single
// vector store collection's metadata.
type VectorKind string

const (
	VectorKindChunk  VectorKind = "chunk"
	VectorKindEntity VectorKind = "entity"
)

// VectorMeta is the metadata payload attached to a VectorEntry.
type VectorMeta struct {
	Type        VectorKind
	Content     string
	DocumentID  string
	ChunkIndex  int
	HasChunkIdx bool
	ProjectID   string
}

// VectorEntry is a single row in a vector store.
type VectorEntry struct {
	ID     string
	Vector []float32
	Meta   VectorMeta
}

// Entity is a node in the knowledge graph, identified within a project by
// NormalizeEntityName(Name).
type Entity struct {
	Name           string
	Type           string
	Description    string
	SourceChunkIDs *BoundedIDSet
	FilePath       string
	DocumentID     string
}

// Relation is a typed, directed edge between two entities, identified by
// entity name (never by pointer — see SPEC_FULL.md §9 on cycles).
type Relation struct {
	SrcName        string
	TgtName        string
	Description    string
	Keywords       string
	Weight         float64
	SourceChunkIDs *BoundedIDSet
}

// CanonicalPairKey returns the pair sorted, for use as a lock key
// independent of direction.
func CanonicalPairKey(a, b string) (string, string) {
	if a <= b {
		return a, b
	}
	return b, a
}

// EntitySimilarityScore is the pairwise similarity between two same-typed
// entities, computed across several metrics and combined into Final.
type EntitySimilarityScore struct {
	Name1, Name2 string
	Type1, Type2 string
	Jaccard      float64
	Containment  float64
	Levenshtein  float64
	Abbreviation float64
	Final        float64
}

// EntityCluster groups entities judged to be the same real-world thing.
type EntityCluster struct {
	CanonicalEntity   Entity
	MemberIndices     []int
	Aliases           []string
	MergedDescription string
}

// CacheType enumerates the kinds of work an ExtractionCache entry can
// memoize.
type CacheType string

const (
	CacheEntityExtraction CacheType = "ENTITY_EXTRACTION"
	CacheGleaning         CacheType = "GLEANING"
	CacheSummarization    CacheType = "SUMMARIZATION"
	CacheKeywordExtract   CacheType = "KEYWORD_EXTRACTION"
	CacheQueryResponse    CacheType = "QUERY_RESPONSE"
)

// ExtractionCache is a memoized result of an LLM call, keyed by
// (ProjectID, CacheType, ContentHash).
type ExtractionCache struct {
	ID          string
	ProjectID   string
	CacheType   CacheType
	ChunkID     string
	ContentHash string
	Result      string
	TokensUsed  int
	CreatedAt   time.Time
}
