package sentiment

import (
	"time"

	"github.com/seenimoa/tickersent/internal/infra"
)

// CachingScorer memoises successful scores by exact text. Scoring is a pure
// function of text, so a hit is indistinguishable from a fresh call. Errors
// are never cached.
type CachingScorer struct {
	inner Scorer
	cache *infra.Cache[float64]
}

// NewCachingScorer wraps inner with a text-keyed cache.
func NewCachingScorer(inner Scorer, ttl time.Duration) *CachingScorer {
	return &CachingScorer{inner: inner, cache: infra.NewCache[float64](ttl)}
}

// Score implements Scorer.
func (c *CachingScorer) Score(text string) (float64, error) {
	if v, ok := c.cache.Get(text); ok {
		return v, nil
	}
	v, err := c.inner.Score(text)
	if err != nil {
		return 0, err
	}
	c.cache.Set(text, v)
	return v, nil
}

// Cleanup drops expired scores.
func (c *CachingScorer) Cleanup() { c.cache.Cleanup() }
