// Package sentiment scores headlines and assembles scored record sets.
//
// The scorer is pluggable: anything satisfying Scorer can be injected. The
// built-in Lexicon is an offline, deterministic keyword scorer.
package sentiment

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
)

// Scorer maps headline text to a sentiment score in [-1, 1].
// Implementations must be safe for concurrent use.
type Scorer interface {
	Score(text string) (float64, error)
}

// ScorerFunc adapts a plain function to Scorer.
type ScorerFunc func(text string) (float64, error)

// Score calls f(text).
func (f ScorerFunc) Score(text string) (float64, error) { return f(text) }

// ------------------------------------------------------------------
// Keyword-based sentiment scorer (offline, no model needed).
// ------------------------------------------------------------------

// bullish / bearish keyword dictionaries (lowercase). Single words match
// whole tokens, so every inflection that should count is listed; phrases
// match as substrings.
var bullishWords = inflections(map[float64][]string{
	0.7: {"bullish", "surge", "surges", "surged", "surging", "soar", "soars", "soared", "soaring",
		"record high", "all-time high"},
	0.6: {"rally", "rallies", "rallied", "rallying", "upgrade", "upgrades", "upgraded",
		"outperform", "outperforms", "outperformed", "breakout", "beats estimates"},
	0.5: {"upbeat", "buy", "recover", "recovers", "recovered", "recovery", "beat", "beats",
		"jump", "jumps", "jumped", "exceed", "exceeds", "exceeded", "approval", "approved"},
	0.4: {"positive", "growth", "strong", "stronger", "expansion", "gain", "gains", "gained",
		"dividend", "dividends"},
	0.3: {"profit", "profits", "profitable", "raise", "raises", "raised"},
})

var bearishWords = inflections(map[float64][]string{
	0.9: {"bankrupt", "bankruptcy"},
	0.8: {"crash", "crashes", "crashed", "fraud", "scam"},
	0.7: {"bearish", "plunge", "plunges", "plunged", "selloff", "sell-off", "default", "defaults", "defaulted"},
	0.6: {"slump", "slumps", "slumped", "tumble", "tumbles", "tumbled", "downgrade", "downgrades",
		"downgraded", "underperform", "underperforms", "lawsuit", "lawsuits"},
	0.5: {"sell", "sells", "decline", "declines", "declined", "correction", "investigation",
		"miss", "misses", "missed", "warning", "warns", "warned", "layoff", "layoffs", "recall", "recalls"},
	0.4: {"negative", "weak", "weaker", "loss", "losses", "fall", "falls", "fell"},
	0.3: {"cut", "cuts", "concern", "concerns"},
})

// inflections flattens weight-grouped word lists into a word → weight map.
func inflections(groups map[float64][]string) map[string]float64 {
	m := make(map[string]float64)
	for w, words := range groups {
		for _, word := range words {
			m[word] = w
		}
	}
	return m
}

// Lexicon scores text against weighted bullish and bearish keyword lists.
type Lexicon struct {
	Bullish map[string]float64
	Bearish map[string]float64
}

// DefaultLexicon returns the built-in financial-news lexicon.
func DefaultLexicon() *Lexicon {
	return &Lexicon{Bullish: bullishWords, Bearish: bearishWords}
}

// Score implements Scorer.
func (l *Lexicon) Score(text string) (float64, error) {
	score, _ := l.ScoreDetailed(text)
	return score, nil
}

// ScoreDetailed returns the net score and a confidence derived from the
// number of keyword matches.
func (l *Lexicon) ScoreDetailed(text string) (score float64, confidence float64) {
	lower := strings.ToLower(text)
	tokens := Preprocess(text)

	bullScore, bullHits := matchWeights(l.Bullish, lower, tokens)
	bearScore, bearHits := matchWeights(l.Bearish, lower, tokens)
	matches := bullHits + bearHits

	total := bullScore + bearScore
	if matches == 0 || total == 0 {
		return 0, 0.1 // no signal
	}

	// Net score normalized to -1..+1.
	score = (bullScore - bearScore) / total
	confidence = math.Min(float64(matches)*0.15+0.2, 0.85)
	return score, confidence
}

func matchWeights(words map[string]float64, lower string, tokens []string) (sum float64, hits int) {
	for word, weight := range words {
		if strings.ContainsAny(word, " -") {
			if strings.Contains(lower, word) {
				sum += weight
				hits++
			}
			continue
		}
		if slices.Contains(tokens, word) {
			sum += weight
			hits++
		}
	}
	return sum, hits
}

// ScoreHeadline scores a single headline with the default lexicon.
// Score ranges from -1.0 (very bearish) to +1.0 (very bullish).
func ScoreHeadline(headline string) (score float64, confidence float64) {
	return DefaultLexicon().ScoreDetailed(headline)
}

// ByName returns the scorer registered under name. cacheTTL > 0 wraps it in
// a CachingScorer.
func ByName(name string, cacheTTL time.Duration) (Scorer, error) {
	var s Scorer
	switch strings.ToLower(name) {
	case "", "lexicon":
		s = DefaultLexicon()
	default:
		return nil, fmt.Errorf("unknown scorer %q", name)
	}
	if cacheTTL > 0 {
		s = NewCachingScorer(s, cacheTTL)
	}
	return s, nil
}
