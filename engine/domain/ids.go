package domain

import (
	"github.com/google/uuid"
)

// globalProjectFallback is used as the UUID v5 namespace name component
// when a VectorEntry's ProjectID is absent (SPEC_FULL.md §6: "Missing
// projectId in vector metadata is tolerated").
const globalProjectFallback = "global"

// entityVectorNamespace is a fixed namespace UUID this module mints entity
// vector ids under; combined with "<projectId>:<name>" it makes
// EntityVectorID deterministic across re-ingests, as required by
// SPEC_FULL.md §3 and §8 (re-ingesting the same document must reproduce the
// same entity-vector id bit-for-bit).
var entityVectorNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// EntityVectorID derives the deterministic UUID v5 id for an entity's
// vector row: namespace entityVectorNamespace and name projectId (falling
// back to "global") + ":" + entityName.
func EntityVectorID(projectID, entityName string) string {
	if projectID == "" {
		projectID = globalProjectFallback
	}
	return uuid.NewSHA1(entityVectorNamespace, []byte(projectID+":"+entityName)).String()
}

// NewChunkID mints a time-ordered UUID v7 for a new chunk.
func NewChunkID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// uuid.NewV7 only fails if the runtime's random source is broken;
		// fall back to v4 rather than propagating a contract-breaking panic.
		return uuid.New().String()
	}
	return id.String()
}
