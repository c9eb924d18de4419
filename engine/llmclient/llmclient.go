// Package llmclient defines the LLM and Embedder capability ports used by
// KGExtractor (C4) and ChunkEmbedder (C3), plus OpenAI and Anthropic
// adapters wrapped in circuit breaker and rate limiter resilience.
package llmclient

import (
	"context"
	"time"

	"github.com/kgraph/indexer/pkg/resilience"
)

// LLM is the single capability port every extraction call goes through
// (SPEC_FULL.md §6). Implementations must be safe for concurrent use.
type LLM interface {
	Call(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Embedder batches text into vectors (SPEC_FULL.md §6). Output order must
// match input order; implementations must be safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ResilientOpts configures the breaker+limiter wrapping applied uniformly
// to every port adapter in this package.
type ResilientOpts struct {
	Breaker resilience.BreakerOpts
	Limiter resilience.LimiterOpts
}

// DefaultResilientOpts mirrors the teacher's defaults for outbound model
// calls: trip after 5 consecutive failures, 30s cooldown, 2 req/s steady
// state with a small burst.
var DefaultResilientOpts = ResilientOpts{
	Breaker: resilience.DefaultBreakerOpts,
	Limiter: resilience.LimiterOpts{Rate: 2, Burst: 4},
}

// resilientLLM wraps an LLM with a circuit breaker and rate limiter.
type resilientLLM struct {
	inner   LLM
	breaker *resilience.Breaker
	limiter *resilience.Limiter
}

// WrapLLM adds circuit-breaker and rate-limiter protection around any LLM
// implementation, used for both the OpenAI and Anthropic adapters.
func WrapLLM(inner LLM, opts ResilientOpts) LLM {
	return &resilientLLM{
		inner:   inner,
		breaker: resilience.NewBreaker(opts.Breaker),
		limiter: resilience.NewLimiter(opts.Limiter),
	}
}

func (r *resilientLLM) Call(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var out string
	err := r.breaker.Call(ctx, func(ctx context.Context) error {
		return r.limiter.CallWait(ctx, func(ctx context.Context) error {
			callCtx, cancel := context.WithTimeout(ctx, callTimeout)
			defer cancel()
			resp, err := r.inner.Call(callCtx, systemPrompt, userPrompt)
			if err != nil {
				return err
			}
			out = resp
			return nil
		})
	})
	return out, err
}

// resilientEmbedder wraps an Embedder with the same protections.
type resilientEmbedder struct {
	inner   Embedder
	breaker *resilience.Breaker
	limiter *resilience.Limiter
}

// WrapEmbedder adds circuit-breaker and rate-limiter protection around any
// Embedder implementation.
func WrapEmbedder(inner Embedder, opts ResilientOpts) Embedder {
	return &resilientEmbedder{
		inner:   inner,
		breaker: resilience.NewBreaker(opts.Breaker),
		limiter: resilience.NewLimiter(opts.Limiter),
	}
}

func (r *resilientEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := r.breaker.Call(ctx, func(ctx context.Context) error {
		return r.limiter.CallWait(ctx, func(ctx context.Context) error {
			callCtx, cancel := context.WithTimeout(ctx, callTimeout)
			defer cancel()
			vecs, err := r.inner.Embed(callCtx, texts)
			if err != nil {
				return err
			}
			out = vecs
			return nil
		})
	})
	return out, err
}

// callTimeout bounds a single LLM round trip so a hung provider cannot wedge
// a gleaning pass indefinitely.
const callTimeout = 60 * time.Second
