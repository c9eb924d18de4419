package extract

import (
	"regexp"
	"strings"

	"github.com/kgraph/indexer/engine/domain"
)

const (
	tupleDelimiter      = "<|#|>"
	completionDelimiter = "<|COMPLETE|>"

	defaultEntityType          = "CONCEPT"
	defaultRelationDescription = "RELATED_TO"
	defaultRelationWeight      = 1.0
)

var (
	reLiteralTupleDelim      = regexp.MustCompile(`(?i)\\?\{tuple_delimiter\\?\}`)
	reLiteralCompletionDelim = regexp.MustCompile(`(?i)\\?\{completion_delimiter\\?\}`)
	reTupleWhitespace        = regexp.MustCompile(`<\s*\|\s*#\s*\|\s*>`)
	reCompleteWhitespace     = regexp.MustCompile(`(?i)<\s*\|\s*complete\s*\|\s*>`)
	rePartialOpen            = regexp.MustCompile(`<\|#([^|]|\z)`)
	rePartialClose           = regexp.MustCompile(`([^|]|\A)#\|>`)
	reEmbeddedRecord         = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(tupleDelimiter) + `(entity|relation)` + regexp.QuoteMeta(tupleDelimiter))
	reWhitespaceRun          = regexp.MustCompile(`\s+`)
)

// normalize repairs the corrupted delimiter spellings real LLM output
// produces, folding every variant back to the canonical tuple and
// completion delimiters (SPEC_FULL.md §4.4.3 step 1).
func normalize(raw string) string {
	s := raw
	s = reLiteralTupleDelim.ReplaceAllString(s, tupleDelimiter)
	s = reLiteralCompletionDelim.ReplaceAllString(s, completionDelimiter)
	s = reTupleWhitespace.ReplaceAllString(s, tupleDelimiter)
	s = reCompleteWhitespace.ReplaceAllString(s, completionDelimiter)
	s = rePartialOpen.ReplaceAllString(s, tupleDelimiter+"$1")
	s = rePartialClose.ReplaceAllString(s, "$1"+tupleDelimiter)

	// Legacy completion spellings, case-insensitive.
	for _, legacy := range []string{"<|COMPLETE|>", "<|complete|>", "<|Complete|>"} {
		s = strings.ReplaceAll(s, legacy, completionDelimiter)
	}

	// Collapse doubled delimiters introduced by any of the above passes.
	doubled := tupleDelimiter + tupleDelimiter
	for strings.Contains(s, doubled) {
		s = strings.ReplaceAll(s, doubled, tupleDelimiter)
	}
	return s
}

// rawRecord is a line, post-split and post-recovery, still unclassified.
type rawRecord struct {
	fields []string
}

// splitRecords normalizes raw LLM output, truncates at the completion
// sentinel, splits into lines, recovers records embedded mid-line, and
// returns each candidate record's tuple-delimited fields
// (SPEC_FULL.md §4.4.3 steps 2-3).
func splitRecords(raw string) []rawRecord {
	s := normalize(raw)

	if idx := strings.Index(s, completionDelimiter); idx >= 0 {
		s = s[:idx]
	}

	var candidates []string
	for _, line := range strings.Split(s, "\n") {
		candidates = append(candidates, recoverEmbedded(line)...)
	}

	records := make([]rawRecord, 0, len(candidates))
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		records = append(records, rawRecord{fields: strings.Split(c, tupleDelimiter)})
	}
	return records
}

// recoverEmbedded splits a line that contains multiple records joined
// without a newline between them, restoring the dropped "entity"/"relation"
// prefix at each recovered boundary (SPEC_FULL.md §4.4.3 step 3).
func recoverEmbedded(line string) []string {
	indices := reEmbeddedRecord.FindAllStringSubmatchIndex(line, -1)
	if len(indices) == 0 {
		return []string{line}
	}

	var segments []string
	prevEnd := 0
	for _, idx := range indices {
		keywordStart := idx[2]
		segEnd := keywordStart - len(tupleDelimiter)
		if segEnd < prevEnd {
			segEnd = prevEnd
		}
		if seg := line[prevEnd:segEnd]; strings.TrimSpace(seg) != "" {
			segments = append(segments, seg)
		}
		prevEnd = keywordStart
	}
	segments = append(segments, line[prevEnd:])
	return segments
}

// normalizeName strips surrounding quotes, trims, collapses internal
// whitespace, and truncates to maxLen (SPEC_FULL.md §4.4.3 step 5).
func normalizeName(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	s = strings.TrimSpace(s)
	s = reWhitespaceRun.ReplaceAllString(s, " ")
	if maxLen > 0 && len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}

// ParsedRecords holds the classified, validated output of one LLM
// response (SPEC_FULL.md §4.4.4).
type ParsedRecords struct {
	Entities  []domain.Entity
	Relations []domain.Relation
}

// Parse classifies and validates every record recovered from raw LLM
// output, applying the default-value and rejection rules of
// SPEC_FULL.md §4.4.4.
func Parse(raw string, nameMaxLen int) ParsedRecords {
	var out ParsedRecords
	for _, rec := range splitRecords(raw) {
		if len(rec.fields) == 0 {
			continue
		}
		kind := strings.ToLower(strings.TrimSpace(rec.fields[0]))
		switch kind {
		case "entity":
			if e, ok := parseEntity(rec.fields, nameMaxLen); ok {
				out.Entities = append(out.Entities, e)
			}
		case "relation":
			if r, ok := parseRelation(rec.fields, nameMaxLen); ok {
				out.Relations = append(out.Relations, r)
			}
		}
	}
	return out
}

func parseEntity(fields []string, nameMaxLen int) (domain.Entity, bool) {
	if len(fields) < 4 {
		return domain.Entity{}, false
	}
	name := normalizeName(fields[1], nameMaxLen)
	if name == "" {
		return domain.Entity{}, false
	}
	entityType := strings.TrimSpace(fields[2])
	if entityType == "" {
		entityType = defaultEntityType
	}
	description := strings.TrimSpace(fields[3])
	return domain.Entity{Name: name, Type: entityType, Description: description}, true
}

func parseRelation(fields []string, nameMaxLen int) (domain.Relation, bool) {
	if len(fields) < 5 {
		return domain.Relation{}, false
	}
	src := normalizeName(fields[1], nameMaxLen)
	tgt := normalizeName(fields[2], nameMaxLen)
	if src == "" || tgt == "" {
		return domain.Relation{}, false
	}
	if strings.EqualFold(src, tgt) {
		return domain.Relation{}, false
	}
	keywords := strings.TrimSpace(fields[3])
	description := strings.TrimSpace(fields[4])
	if description == "" {
		description = defaultRelationDescription
	}
	return domain.Relation{
		SrcName:     src,
		TgtName:     tgt,
		Keywords:    keywords,
		Description: description,
		Weight:      defaultRelationWeight,
	}, true
}
