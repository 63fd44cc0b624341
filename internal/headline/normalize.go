// Package headline resolves the date/time labels of scraped news-table rows
// into absolute calendar dates.
//
// News tables only print the date on the first headline of each day; the
// rows that follow carry a bare time. Resolution is therefore a fold over
// each ticker's rows in arrival order, with the last resolved date as the
// fold state. Tickers are folded independently of each other.
package headline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/tickersent/pkg/models"
)

// Relative date keywords, matched case-sensitively.
const (
	KeywordToday     = "Today"
	KeywordYesterday = "Yesterday"
)

// DateLayout is the abbreviated month-day-year layout used by news tables,
// e.g. "Jan-05-24".
const DateLayout = "Jan-02-06"

// parseLayout also accepts an unpadded day ("Jan-5-24").
const parseLayout = "Jan-2-06"

// labelTimeLayout is the time-of-day layout FormatLabel produces.
const labelTimeLayout = "03:04PM"

var (
	// ErrUnanchoredTimeRow means a bare time row arrived before any row of
	// the same ticker resolved to a date.
	ErrUnanchoredTimeRow = errors.New("time-only row has no preceding date")

	// ErrMalformedDateToken means the leading token is neither a relative
	// keyword nor a parseable date.
	ErrMalformedDateToken = errors.New("malformed date token")
)

// DropError records why a row was dropped.
type DropError struct {
	Ticker string
	Index  int // position within the ticker's rows
	Label  string
	Err    error
}

func (e *DropError) Error() string {
	return fmt.Sprintf("%s row %d (%q): %v", e.Ticker, e.Index, e.Label, e.Err)
}

func (e *DropError) Unwrap() error { return e.Err }

// Outcome is the per-row result of normalization: either a resolved record
// or the reason the row was dropped.
type Outcome struct {
	Index  int
	Row    models.RawRow
	Record models.NormalizedRecord
	Reason error // nil when resolved
}

// Resolved reports whether the row produced a record.
func (o Outcome) Resolved() bool { return o.Reason == nil }

// anchor is the fold state: the last date resolved for the current ticker.
type anchor struct {
	date civil.Date
	set  bool
}

// NormalizeTicker folds one ticker's rows, in arrival order, into outcomes.
// The rows are assumed to belong to a single ticker.
func NormalizeTicker(rows []models.RawRow, today civil.Date) []Outcome {
	out := make([]Outcome, 0, len(rows))
	var a anchor
	for i, row := range rows {
		var o Outcome
		o, a = resolve(i, row, a, today)
		out = append(out, o)
	}
	return out
}

// resolve applies the label rules to one row and returns the next fold state.
func resolve(i int, row models.RawRow, a anchor, today civil.Date) (Outcome, anchor) {
	o := Outcome{Index: i, Row: row}
	label := strings.TrimSpace(row.Label)

	keyword, rest, hasSpace := strings.Cut(label, " ")
	if !hasSpace {
		if !a.set {
			o.Reason = &DropError{Ticker: row.Ticker, Index: i, Label: row.Label, Err: ErrUnanchoredTimeRow}
			return o, a
		}
		o.Record = record(row, a.date, label)
		return o, a
	}

	var date civil.Date
	switch keyword {
	case KeywordToday:
		date = today
	case KeywordYesterday:
		date = today.AddDays(-1)
	default:
		d, err := ParseDateToken(keyword)
		if err != nil {
			o.Reason = &DropError{Ticker: row.Ticker, Index: i, Label: row.Label, Err: err}
			return o, a
		}
		date = d
	}

	o.Record = record(row, date, strings.TrimSpace(rest))
	return o, anchor{date: date, set: true}
}

func record(row models.RawRow, date civil.Date, tod string) models.NormalizedRecord {
	return models.NormalizedRecord{
		Ticker: row.Ticker,
		Date:   date,
		Time:   tod,
		Text:   row.Text,
	}
}

// ParseDateToken parses an abbreviated month-day-year token such as
// "Jan-05-24" or "Jan-5-24".
func ParseDateToken(tok string) (civil.Date, error) {
	t, err := time.Parse(parseLayout, tok)
	if err != nil {
		return civil.Date{}, fmt.Errorf("%w: %q", ErrMalformedDateToken, tok)
	}
	return civil.DateOf(t), nil
}

// FormatLabel renders a timestamp as a "DATE TIME" label, e.g.
// "Jan-05-24 08:00AM".
func FormatLabel(t time.Time) string {
	return t.Format(DateLayout + " " + labelTimeLayout)
}

// Normalize validates rows, splits them by ticker and folds up to workers
// tickers concurrently. Each fold owns its anchor and writes only its own
// slot. Records are returned grouped by ticker in order of first
// appearance, arrival order within a ticker. Dropped rows are returned
// separately so callers can audit them; they never abort the run.
//
// A structurally invalid row fails the whole call with
// models.ErrInputContract.
func Normalize(ctx context.Context, rows []models.RawRow, today civil.Date, workers int) ([]models.NormalizedRecord, []Outcome, error) {
	if err := models.ValidateRows(rows); err != nil {
		return nil, nil, err
	}
	if workers < 1 {
		workers = 1
	}

	groups := GroupByTicker(rows)
	outcomes := make([][]Outcome, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, grp := range groups {
		i, grp := i, grp
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = NormalizeTicker(grp.Rows, today)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var records []models.NormalizedRecord
	var dropped []Outcome
	for _, outs := range outcomes {
		for _, o := range outs {
			if o.Resolved() {
				records = append(records, o.Record)
			} else {
				dropped = append(dropped, o)
			}
		}
	}
	return records, dropped, nil
}

// TickerRows is one ticker's subsequence of rows.
type TickerRows struct {
	Ticker string
	Rows   []models.RawRow
}

// GroupByTicker splits rows into per-ticker subsequences, keeping tickers in
// order of first appearance and rows in arrival order.
func GroupByTicker(rows []models.RawRow) []TickerRows {
	idx := make(map[string]int)
	var groups []TickerRows
	for _, r := range rows {
		i, ok := idx[r.Ticker]
		if !ok {
			i = len(groups)
			idx[r.Ticker] = i
			groups = append(groups, TickerRows{Ticker: r.Ticker})
		}
		groups[i].Rows = append(groups[i].Rows, r)
	}
	return groups
}
