package domain

import "strings"

// ValidateDocument checks that a Document has a non-blank id and a
// non-blank metadata projectId. DocumentGate.Ingest (engine/docgate) does
// not call it.
func ValidateDocument(d Document) error {
	if strings.TrimSpace(d.ID) == "" {
		return NewValidationError("id", d.ID, ErrMissingDocID)
	}
	if d.Metadata == nil || strings.TrimSpace(d.Metadata["projectId"]) == "" {
		return NewValidationError("metadata.projectId", "", ErrMissingProjectID)
	}
	return nil
}
