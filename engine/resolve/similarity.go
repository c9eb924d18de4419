// Package resolve implements C6 (EntityResolver, EntitySimilarityCalculator,
// EntityClusterer): type-blocked multi-metric entity similarity and
// connected-component (or DBSCAN-style) clustering over the result.
package resolve

import (
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/kgraph/indexer/engine/domain"
)

var nonAlnumRun = regexp.MustCompile(`[^a-z0-9]+`)

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "and": true, "or": true,
	"for": true, "in": true, "on": true, "at": true, "to": true, "from": true,
}

// normalize lowercases, strips non-alphanumerics, and collapses whitespace
// (SPEC_FULL.md §4.6.2). Distinct from domain.NormalizeEntityName, which
// preserves case and punctuation for identity purposes.
func normalize(name string) string {
	s := strings.ToLower(name)
	s = nonAlnumRun.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// jaccard computes the Jaccard index over whitespace tokens of the
// normalized names.
func jaccard(a, b string) float64 {
	ta := strings.Fields(normalize(a))
	tb := strings.Fields(normalize(b))
	if len(ta) == 0 && len(tb) == 0 {
		return 1
	}
	setA := make(map[string]bool, len(ta))
	for _, t := range ta {
		setA[t] = true
	}
	setB := make(map[string]bool, len(tb))
	for _, t := range tb {
		setB[t] = true
	}

	inter := 0
	for t := range setA {
		if setB[t] {
			inter++
		}
	}
	union := len(setA)
	for t := range setB {
		if !setA[t] {
			union++
		}
	}
	if union == 0 {
		return 1
	}
	return float64(inter) / float64(union)
}

// containment returns 1 iff one normalized name is a substring of the
// other.
func containment(a, b string) float64 {
	na, nb := normalize(a), normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return 1
	}
	return 0
}

// levenshteinSimilarity is 1 - editDistance/max(len(a),len(b)) on
// normalized names; identical normalized names score 1.
func levenshteinSimilarity(a, b string) float64 {
	na, nb := normalize(a), normalize(b)
	if na == nb {
		return 1
	}
	maxLen := len([]rune(na))
	if l := len([]rune(nb)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(na, nb)
	sim := 1 - float64(dist)/float64(maxLen)
	if sim < 0 {
		sim = 0
	}
	return sim
}

// abbreviation returns 1 iff the shorter normalized name equals the
// concatenation of first letters of the longer normalized name's word
// tokens, skipping stop words, or the two normalized names are identical.
func abbreviation(a, b string) float64 {
	na, nb := normalize(a), normalize(b)
	if na == nb {
		return 1
	}

	shorter, longer := na, nb
	if len(longer) < len(shorter) {
		shorter, longer = longer, shorter
	}
	if shorter == "" {
		return 0
	}

	var initials strings.Builder
	for _, tok := range strings.Fields(longer) {
		if stopWords[tok] {
			continue
		}
		initials.WriteByte(tok[0])
	}
	if initials.String() == strings.ReplaceAll(shorter, " ", "") {
		return 1
	}
	return 0
}

// Weights holds the per-metric weighting used to combine similarity
// components into a final score. Must sum to 1.0 (enforced at config
// load, see internal/config.Validate).
type Weights struct {
	Jaccard      float64
	Containment  float64
	Levenshtein  float64
	Abbreviation float64
}

// earlyReject applies the cheap heuristics of SPEC_FULL.md §4.6.2 that let
// Score skip the full metric computation for pairs that cannot plausibly
// match.
func earlyReject(typeA, typeB, a, b string) bool {
	if typeA != typeB {
		return true
	}

	na, nb := normalize(a), normalize(b)
	lenA, lenB := len(na), len(nb)
	minLen, maxLen := lenA, lenB
	if minLen > maxLen {
		minLen, maxLen = maxLen, minLen
	}
	if minLen > 10 && maxLen > 10 && minLen > 0 && float64(maxLen)/float64(minLen) > 5 {
		return true
	}

	shortNoSpace := func(s string) bool {
		return len(s) <= 10 && !strings.Contains(s, " ")
	}
	if shortNoSpace(na) || shortNoSpace(nb) {
		return false
	}

	firstToken := func(s string) string {
		f := strings.Fields(s)
		if len(f) == 0 {
			return ""
		}
		return f[0]
	}
	fa, fb := firstToken(na), firstToken(nb)
	if sharesPrefix(fa, fb, 2) || charOverlapRatio(fa, fb) > 0.5 {
		return false
	}
	return true
}

func sharesPrefix(a, b string, n int) bool {
	if len(a) < n || len(b) < n {
		return false
	}
	return a[:n] == b[:n]
}

func charOverlapRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	counts := make(map[rune]int)
	for _, r := range a {
		counts[r]++
	}
	overlap := 0
	for _, r := range b {
		if counts[r] > 0 {
			counts[r]--
			overlap++
		}
	}
	denom := len(a)
	if len(b) < denom {
		denom = len(b)
	}
	return float64(overlap) / float64(denom)
}

// Score computes the full EntitySimilarityScore for one pair, applying the
// early-reject heuristics before the per-metric computation.
func Score(a, b domain.Entity, w Weights) domain.EntitySimilarityScore {
	out := domain.EntitySimilarityScore{
		Name1: a.Name, Name2: b.Name,
		Type1: a.Type, Type2: b.Type,
	}
	if earlyReject(a.Type, b.Type, a.Name, b.Name) {
		return out
	}

	out.Jaccard = jaccard(a.Name, b.Name)
	out.Containment = containment(a.Name, b.Name)
	out.Levenshtein = levenshteinSimilarity(a.Name, b.Name)
	out.Abbreviation = abbreviation(a.Name, b.Name)

	// An abbreviation match (e.g. "MIT" / "Massachusetts Institute of
	// Technology") is a strong identity signal on its own: the two names
	// share almost no characters or tokens, so the weighted blend of the
	// other three metrics would otherwise drown it out at its 0.10 default
	// weight. Short-circuit it to a full match, the same way the early-reject
	// checks short-circuit Final to 0.
	if out.Abbreviation == 1 {
		out.Final = 1
		return out
	}

	out.Final = w.Jaccard*out.Jaccard + w.Containment*out.Containment +
		w.Levenshtein*out.Levenshtein + w.Abbreviation*out.Abbreviation
	return out
}
