// Package extract implements C4 (KGExtractor): prompt assembly, the
// tuple-delimiter wire protocol, a tolerant parser, and the iterative
// gleaning loop that refines extraction over several LLM passes.
package extract

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kgraph/indexer/engine/domain"
	"github.com/kgraph/indexer/engine/llmclient"
)

// Cache is the extraction-cache port (engine/cache.Store satisfies this).
type Cache interface {
	Get(ctx context.Context, projectID string, cacheType domain.CacheType, contentHash string) (domain.ExtractionCache, error)
	Put(ctx context.Context, entry domain.ExtractionCache) error
}

// Extractor turns chunk text into entities and relations via the LLM, with
// gleaning and per-chunk failure isolation (SPEC_FULL.md §4.4).
type Extractor struct {
	llm    llmclient.LLM
	cache  Cache
	prompt PromptConfig

	nameMaxLen    int
	gleaning      bool
	maxPasses     int
	cacheEnabled  bool
	contentHasher func(string) string
}

// Opts configures an Extractor.
type Opts struct {
	PromptConfig    PromptConfig
	NameMaxLength   int
	GleaningEnabled bool
	MaxPasses       int
	CacheEnabled    bool
	ContentHasher   func(string) string
}

// NewExtractor builds an Extractor. cache may be nil if CacheEnabled is
// false.
func NewExtractor(llm llmclient.LLM, cache Cache, opts Opts) *Extractor {
	return &Extractor{
		llm:           llm,
		cache:         cache,
		prompt:        opts.PromptConfig,
		nameMaxLen:    opts.NameMaxLength,
		gleaning:      opts.GleaningEnabled,
		maxPasses:     opts.MaxPasses,
		cacheEnabled:  opts.CacheEnabled && cache != nil,
		contentHasher: opts.ContentHasher,
	}
}

// gleaningState names the state machine steps of SPEC_FULL.md §9: a loop
// with an accumulator, not recursion.
type gleaningState int

const (
	stateInitial gleaningState = iota
	statePass
	stateEarlyStop
	stateExhausted
	stateFailedSoft
)

// Extract runs the initial extraction pass plus up to maxPasses gleaning
// passes for a single chunk. Any LLM error — initial or gleaning — is
// logged and the accumulated result returned; a failure in one chunk must
// never abort the surrounding batch (SPEC_FULL.md §4.4.6).
func (e *Extractor) Extract(ctx context.Context, projectID, chunkID, chunkText string) ParsedRecords {
	accum, lastResponse, ok := e.initialPass(ctx, projectID, chunkID, chunkText)
	if !ok {
		return accum
	}

	if !e.gleaning || e.maxPasses <= 0 {
		return accum
	}

	state := statePass
	pass := 1
	for ; pass <= e.maxPasses && state == statePass; pass++ {
		resp, err := e.callGleaning(ctx, projectID, chunkID, chunkText, lastResponse, pass)
		if err != nil {
			slog.Warn("extract: gleaning pass failed, returning accumulated result", "chunk_id", chunkID, "pass", pass, "error", err)
			state = stateFailedSoft
			break
		}
		lastResponse = resp

		parsed := Parse(resp, e.nameMaxLen)
		newEntities, newRelations := mergeNew(&accum, parsed)
		if newEntities == 0 && newRelations == 0 {
			state = stateEarlyStop
			break
		}
		if pass == e.maxPasses {
			state = stateExhausted
		}
	}
	slog.Debug("extract: gleaning finished", "chunk_id", chunkID, "passes_run", pass, "final_state", gleaningStateName(state))
	return accum
}

func gleaningStateName(s gleaningState) string {
	switch s {
	case stateEarlyStop:
		return "EARLY_STOP"
	case stateExhausted:
		return "EXHAUSTED"
	case stateFailedSoft:
		return "FAILED_SOFT"
	default:
		return "PASS"
	}
}

func (e *Extractor) initialPass(ctx context.Context, projectID, chunkID, chunkText string) (ParsedRecords, string, bool) {
	systemPrompt := BuildSystemPrompt(e.prompt, chunkText)

	resp, err := e.callCached(ctx, projectID, chunkID, domain.CacheEntityExtraction, chunkText, func() (string, error) {
		return e.llm.Call(ctx, systemPrompt, "Extract entities and relationships from the text above.")
	})
	if err != nil {
		slog.Warn("extract: initial extraction failed, returning empty result", "chunk_id", chunkID, "error", err)
		return ParsedRecords{}, "", false
	}

	return Parse(resp, e.nameMaxLen), resp, true
}

func (e *Extractor) callGleaning(ctx context.Context, projectID, chunkID, chunkText, previousResponse string, pass int) (string, error) {
	prompt := BuildGleaningPrompt(e.prompt, chunkText, previousResponse)
	return e.callCached(ctx, projectID, chunkID, domain.CacheGleaning, prompt, func() (string, error) {
		return e.llm.Call(ctx, prompt, "")
	})
}

func (e *Extractor) callCached(ctx context.Context, projectID, chunkID string, cacheType domain.CacheType, cacheInput string, call func() (string, error)) (string, error) {
	if !e.cacheEnabled {
		return call()
	}

	hash := e.hash(cacheInput)
	if hit, err := e.cache.Get(ctx, projectID, cacheType, hash); err == nil {
		return hit.Result, nil
	}

	resp, err := call()
	if err != nil {
		return "", err
	}

	_ = e.cache.Put(ctx, domain.ExtractionCache{
		ProjectID:   projectID,
		CacheType:   cacheType,
		ChunkID:     chunkID,
		ContentHash: hash,
		Result:      resp,
	})
	return resp, nil
}

func (e *Extractor) hash(s string) string {
	if e.contentHasher != nil {
		return e.contentHasher(s)
	}
	return s
}

// mergeNew unions parsed into accum by key (lowercased entity name;
// lowercased "src->tgt" for relations), keeping the longer description on
// conflict, and returns how many genuinely new keys were added
// (SPEC_FULL.md §4.4.5 steps 4-6).
func mergeNew(accum *ParsedRecords, parsed ParsedRecords) (newEntities, newRelations int) {
	entityIdx := make(map[string]int, len(accum.Entities))
	for i, e := range accum.Entities {
		entityIdx[strings.ToLower(e.Name)] = i
	}
	for _, e := range parsed.Entities {
		key := strings.ToLower(e.Name)
		if i, exists := entityIdx[key]; exists {
			if len(e.Description) > len(accum.Entities[i].Description) {
				accum.Entities[i].Description = e.Description
			}
			continue
		}
		entityIdx[key] = len(accum.Entities)
		accum.Entities = append(accum.Entities, e)
		newEntities++
	}

	relIdx := make(map[string]int, len(accum.Relations))
	for i, r := range accum.Relations {
		relIdx[relationKey(r.SrcName, r.TgtName)] = i
	}
	for _, r := range parsed.Relations {
		key := relationKey(r.SrcName, r.TgtName)
		if i, exists := relIdx[key]; exists {
			if len(r.Description) > len(accum.Relations[i].Description) {
				accum.Relations[i].Description = r.Description
			}
			continue
		}
		relIdx[key] = len(accum.Relations)
		accum.Relations = append(accum.Relations, r)
		newRelations++
	}
	return newEntities, newRelations
}

func relationKey(src, tgt string) string {
	return strings.ToLower(src) + "->" + strings.ToLower(tgt)
}
