// Package pipeline wires the normalizer, the sentiment table builder and the
// aggregator into one batch run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/tickersent/internal/aggregate"
	"github.com/seenimoa/tickersent/internal/analysis/sentiment"
	"github.com/seenimoa/tickersent/internal/datasource"
	"github.com/seenimoa/tickersent/internal/headline"
	"github.com/seenimoa/tickersent/internal/infra"
	"github.com/seenimoa/tickersent/pkg/models"
	"github.com/seenimoa/tickersent/pkg/utils"
)

// Pipeline turns raw rows into a ticker × date sentiment table.
type Pipeline struct {
	scorer      sentiment.Scorer
	today       func() civil.Date
	workers     int
	tickerOrder []string
	log         *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock sets the source of "current date" used for Today/Yesterday.
func WithClock(today func() civil.Date) Option {
	return func(p *Pipeline) { p.today = today }
}

// WithWorkers bounds concurrent ticker folds and scorer calls.
func WithWorkers(n int) Option {
	return func(p *Pipeline) { p.workers = n }
}

// WithTickerOrder fixes the output column order.
func WithTickerOrder(tickers ...string) Option {
	return func(p *Pipeline) { p.tickerOrder = tickers }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// New creates a pipeline around scorer.
func New(scorer sentiment.Scorer, opts ...Option) *Pipeline {
	p := &Pipeline{
		scorer:  scorer,
		today:   utils.Clock(time.Local),
		workers: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = infra.OrDefault(p.log)
	if p.workers < 1 {
		p.workers = 1
	}
	return p
}

// With returns a copy of p with opts applied on top of its settings.
func (p *Pipeline) With(opts ...Option) *Pipeline {
	cp := *p
	for _, opt := range opts {
		opt(&cp)
	}
	cp.log = infra.OrDefault(cp.log)
	if cp.workers < 1 {
		cp.workers = 1
	}
	return &cp
}

// Result is the outcome of one run.
type Result struct {
	Date     civil.Date // "current date" fixed at invocation
	Records  []models.ScoredRecord
	Dropped  []headline.Outcome
	Failures []sentiment.ScoreFailure
	Table    *aggregate.Table
}

// Summary holds the run's counts.
type Summary struct {
	Rows       int `json:"rows"`
	Scored     int `json:"scored"`
	Dropped    int `json:"dropped"`
	Unanchored int `json:"unanchored"`
	Malformed  int `json:"malformed"`
	Failed     int `json:"failed"`
	Cells      int `json:"cells"`
}

// Summary counts what happened to the run's rows.
func (r *Result) Summary() Summary {
	s := Summary{
		Scored:  len(r.Records),
		Dropped: len(r.Dropped),
		Failed:  len(r.Failures),
	}
	for _, d := range r.Dropped {
		switch {
		case errors.Is(d.Reason, headline.ErrUnanchoredTimeRow):
			s.Unanchored++
		case errors.Is(d.Reason, headline.ErrMalformedDateToken):
			s.Malformed++
		}
	}
	s.Rows = s.Scored + s.Dropped + s.Failed
	if r.Table != nil {
		s.Cells = r.Table.Len()
	}
	return s
}

// Run normalizes, scores and aggregates rows. Dropped rows and scoring
// failures are reported in the result; the only error returned is an input
// contract violation or ctx's.
func (p *Pipeline) Run(ctx context.Context, rows []models.RawRow) (*Result, error) {
	today := p.today()

	normalized, dropped, err := headline.Normalize(ctx, rows, today, p.workers)
	if err != nil {
		return nil, err
	}
	for _, d := range dropped {
		p.log.Debug("row dropped", "ticker", d.Row.Ticker, "index", d.Index, "label", d.Row.Label, "reason", d.Reason)
	}

	scored, failures, err := sentiment.Build(ctx, normalized, p.scorer, sentiment.BuildOptions{Workers: p.workers})
	if err != nil {
		return nil, err
	}
	for _, f := range failures {
		p.log.Debug("record not scored", "ticker", f.Record.Ticker, "date", f.Record.Date.String(), "error", f.Err)
	}

	res := &Result{
		Date:     today,
		Records:  scored,
		Dropped:  dropped,
		Failures: failures,
		Table:    aggregate.Aggregate(scored, aggregate.WithTickerOrder(p.tickerOrder...)),
	}

	s := res.Summary()
	p.log.Info("sentiment run complete",
		"date", today.String(),
		"rows", s.Rows,
		"scored", s.Scored,
		"dropped", s.Dropped,
		"failed", s.Failed,
		"cells", s.Cells,
	)
	return res, nil
}

// FetchError reports a ticker whose rows could not be supplied.
type FetchError struct {
	Ticker string
	Err    error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetch %s: %v", e.Ticker, e.Err) }

func (e *FetchError) Unwrap() error { return e.Err }

// Collect fetches rows for each ticker from sup. A ticker that fails is
// logged, reported in the returned slice and otherwise skipped. Rows and
// fetch errors are returned in ticker order.
func (p *Pipeline) Collect(ctx context.Context, sup datasource.Supplier, tickers []string) ([]models.RawRow, []FetchError, error) {
	perTicker := make([][]models.RawRow, len(tickers))
	perErr := make([]error, len(tickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, t := range tickers {
		i, t := i, t
		g.Go(func() error {
			rows, err := sup.Rows(gctx, t)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				p.log.Warn("ticker fetch failed", "source", sup.Name(), "ticker", t, "error", err)
				perErr[i] = err
				return nil // non-fatal
			}
			perTicker[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var rows []models.RawRow
	var fetchErrs []FetchError
	for i, r := range perTicker {
		rows = append(rows, r...)
		if perErr[i] != nil {
			fetchErrs = append(fetchErrs, FetchError{Ticker: tickers[i], Err: perErr[i]})
		}
	}
	return rows, fetchErrs, nil
}

// RunSupplier collects rows for tickers from sup and runs the pipeline on
// them.
func (p *Pipeline) RunSupplier(ctx context.Context, sup datasource.Supplier, tickers []string) (*Result, []FetchError, error) {
	rows, fetchErrs, err := p.Collect(ctx, sup, tickers)
	if err != nil {
		return nil, nil, err
	}
	res, err := p.Run(ctx, rows)
	if err != nil {
		return nil, fetchErrs, err
	}
	return res, fetchErrs, nil
}
