package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/seenimoa/tickersent/internal/analysis/sentiment"
	"github.com/seenimoa/tickersent/internal/config"
	"github.com/seenimoa/tickersent/internal/datasource"
	"github.com/seenimoa/tickersent/internal/infra"
	"github.com/seenimoa/tickersent/internal/llm"
	"github.com/seenimoa/tickersent/internal/pipeline"
	"github.com/seenimoa/tickersent/pkg/utils"
)

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// newFinViz builds the FinViz supplier. Its row cache expires at midnight in
// the pipeline timezone; an invalid timezone falls back to local time and is
// reported by pipelineOptions.
func newFinViz(c *config.Config) *datasource.FinViz {
	loc, err := c.Location()
	if err != nil {
		loc = time.Local
	}
	return datasource.NewFinViz(datasource.FinVizOptions{
		QuoteURL:       c.Scrape.QuoteURL,
		NewsURL:        c.Scrape.NewsURL,
		ScreenerURL:    c.Scrape.ScreenerURL,
		ScreenMaxPages: c.Scrape.ScreenMaxPages,
		UserAgent:      c.Scrape.UserAgent,
		Timeout:        seconds(c.Scrape.TimeoutSec),
		CacheTTL:       seconds(c.Scrape.CacheTTL),
		Location:       loc,
	})
}

// cleaners returns the components holding expirable caches.
func cleaners(parts ...any) []infra.Cleaner {
	var out []infra.Cleaner
	for _, p := range parts {
		if c, ok := p.(infra.Cleaner); ok {
			out = append(out, c)
		}
	}
	return out
}

// newSupplier builds the supplier named by pipeline.supplier.
func newSupplier(c *config.Config) (datasource.Supplier, error) {
	switch strings.ToLower(c.Pipeline.Supplier) {
	case "", "finviz":
		return newFinViz(c), nil
	case "rss":
		loc, err := c.Location()
		if err != nil {
			return nil, err
		}
		return datasource.NewRSS(c.RSS.URLTemplate, c.Scrape.UserAgent, seconds(c.Scrape.CacheTTL), loc), nil
	case "csv":
		if c.Pipeline.Input == "" {
			return nil, fmt.Errorf("csv supplier needs pipeline.input (or --input)")
		}
		return datasource.NewCSVFile(c.Pipeline.Input), nil
	default:
		return nil, fmt.Errorf("unknown supplier %q (want finviz, rss or csv)", c.Pipeline.Supplier)
	}
}

// newScorer builds the scorer named by scorer.name, cached when
// scorer.cache_ttl > 0.
func newScorer(c *config.Config) (sentiment.Scorer, error) {
	if !strings.EqualFold(c.Scorer.Name, "llm") {
		return sentiment.ByName(c.Scorer.Name, seconds(c.Scorer.CacheTTL))
	}

	lc := c.Scorer.LLM
	client := llm.NewClient(lc.BaseURL, llm.WithAPIKey(lc.APIKey), llm.WithModel(lc.Model))
	var s sentiment.Scorer = sentiment.NewLLMScorer(client, seconds(lc.TimeoutSec))
	if c.Scorer.CacheTTL > 0 {
		s = sentiment.NewCachingScorer(s, seconds(c.Scorer.CacheTTL))
	}
	return s, nil
}

// pipelineOptions maps config onto pipeline options.
func pipelineOptions(c *config.Config, l *slog.Logger) ([]pipeline.Option, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	return []pipeline.Option{
		pipeline.WithClock(utils.Clock(loc)),
		pipeline.WithWorkers(c.Pipeline.Workers),
		pipeline.WithLogger(l),
	}, nil
}

// splitFilters parses a comma-separated screener filter list. Filters are
// case-sensitive FinViz codes, so they are only trimmed.
func splitFilters(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
