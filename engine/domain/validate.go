package domain

import (
	"regexp"
	"strings"
)

const (
	DefaultEntityNameMaxLength = 500
	DefaultEntityDescMaxLength = 1000
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeEntityName is the identity function for entities within a
// project: trim surrounding whitespace and collapse internal whitespace
// runs, preserving case. This is distinct from the lowercase/alnum-only
// normalization EntityResolver uses for similarity scoring.
func NormalizeEntityName(name string) string {
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(name), " ")
}

// ValidateEntity checks an extracted entity against the invariants of
// SPEC_FULL.md §8: non-empty normalized name, and name/description length
// bounds.
func ValidateEntity(e Entity, nameMaxLen, descMaxLen int) error {
	name := NormalizeEntityName(e.Name)
	if name == "" {
		return NewValidationError("name", e.Name, ErrEmptyEntityName)
	}
	if nameMaxLen > 0 && len(name) > nameMaxLen {
		return NewValidationError("name", name, ErrEntityNameTooLong)
	}
	if descMaxLen > 0 && len(e.Description) > descMaxLen {
		return NewValidationError("description", e.Description, ErrEntityDescTooLong)
	}
	return nil
}

// ValidateRelation checks a relation against the self-reference invariant:
// normalize(src) must differ from normalize(tgt), compared case-insensitively.
func ValidateRelation(r Relation) error {
	src := NormalizeEntityName(r.SrcName)
	tgt := NormalizeEntityName(r.TgtName)
	if src == "" || tgt == "" {
		return NewValidationError("src/tgt", src+"/"+tgt, ErrEmptyRelationEndpoint)
	}
	if strings.EqualFold(src, tgt) {
		return NewValidationError("src/tgt", src, ErrSelfReferentialRelation)
	}
	return nil
}
