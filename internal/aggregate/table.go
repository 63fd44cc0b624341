// Package aggregate reduces scored headlines into a sparse ticker × date
// table of mean sentiment.
package aggregate

import (
	"sort"

	"cloud.google.com/go/civil"

	"github.com/seenimoa/tickersent/pkg/models"
)

// key is the composite group key.
type key struct {
	ticker string
	date   civil.Date
}

type group struct {
	sum   float64
	count int
}

// Table is a sparse (ticker, date) → mean score matrix. Cells only exist for
// pairs with at least one record.
type Table struct {
	cells   map[key]group
	dates   []civil.Date
	tickers []string
}

// Option configures Aggregate.
type Option func(*options)

type options struct {
	tickerOrder []string
}

// WithTickerOrder fixes the column order. Listed tickers come first, in the
// given order, even if they have no records; other observed tickers follow
// alphabetically.
func WithTickerOrder(tickers ...string) Option {
	return func(o *options) { o.tickerOrder = tickers }
}

// Aggregate groups records by (ticker, date) and computes each group's
// arithmetic mean. The result does not depend on the order of records.
func Aggregate(records []models.ScoredRecord, opts ...Option) *Table {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cells := make(map[key]group)
	seenDates := make(map[civil.Date]struct{})
	seenTickers := make(map[string]struct{})
	for _, r := range records {
		k := key{ticker: r.Ticker, date: r.Date}
		g := cells[k]
		g.sum += r.Score
		g.count++
		cells[k] = g
		seenDates[r.Date] = struct{}{}
		seenTickers[r.Ticker] = struct{}{}
	}

	dates := make([]civil.Date, 0, len(seenDates))
	for d := range seenDates {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	return &Table{
		cells:   cells,
		dates:   dates,
		tickers: orderTickers(seenTickers, o.tickerOrder),
	}
}

func orderTickers(seen map[string]struct{}, order []string) []string {
	out := make([]string, 0, len(seen)+len(order))
	placed := make(map[string]struct{}, len(order))
	for _, t := range order {
		if _, dup := placed[t]; dup {
			continue
		}
		placed[t] = struct{}{}
		out = append(out, t)
	}

	var rest []string
	for t := range seen {
		if _, ok := placed[t]; !ok {
			rest = append(rest, t)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// Dates returns the distinct dates, ascending.
func (t *Table) Dates() []civil.Date {
	return append([]civil.Date(nil), t.dates...)
}

// Tickers returns the column order.
func (t *Table) Tickers() []string {
	return append([]string(nil), t.tickers...)
}

// Cell returns the mean score for (ticker, date). ok is false when no record
// exists for the pair.
func (t *Table) Cell(ticker string, date civil.Date) (mean float64, ok bool) {
	g, ok := t.cells[key{ticker: ticker, date: date}]
	if !ok {
		return 0, false
	}
	return g.sum / float64(g.count), true
}

// Count returns the number of records behind a cell, 0 when absent.
func (t *Table) Count(ticker string, date civil.Date) int {
	return t.cells[key{ticker: ticker, date: date}].count
}

// Len returns the number of non-empty cells.
func (t *Table) Len() int { return len(t.cells) }

// Cells enumerates non-empty cells in date order, then column order.
func (t *Table) Cells() []models.AggregateCell {
	out := make([]models.AggregateCell, 0, len(t.cells))
	for _, d := range t.dates {
		for _, tk := range t.tickers {
			g, ok := t.cells[key{ticker: tk, date: d}]
			if !ok {
				continue
			}
			out = append(out, models.AggregateCell{
				Ticker:    tk,
				Date:      d,
				MeanScore: g.sum / float64(g.count),
				Count:     g.count,
			})
		}
	}
	return out
}
