package sentiment

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/tickersent/pkg/models"
)

// ErrScoring wraps any failure of the injected scorer for one record.
var ErrScoring = errors.New("scoring failed")

// ScoreFailure describes a record excluded because its text could not be
// scored.
type ScoreFailure struct {
	Index  int // position in the input sequence
	Record models.NormalizedRecord
	Err    error
}

func (f *ScoreFailure) Error() string {
	return fmt.Sprintf("%s %s %q: %v", f.Record.Ticker, f.Record.Date, f.Record.Text, f.Err)
}

func (f *ScoreFailure) Unwrap() error { return f.Err }

// BuildOptions tunes Build.
type BuildOptions struct {
	// Workers bounds concurrent scorer calls. Values <= 1 score sequentially.
	Workers int
}

type slot struct {
	score float64
	err   error
}

// Build scores every record exactly once and returns the scored records in
// input order. A failing record is reported in the failures slice and left
// out of the result; it never stops the remaining records. The only error
// returned is ctx's.
func Build(ctx context.Context, records []models.NormalizedRecord, scorer Scorer, opts BuildOptions) ([]models.ScoredRecord, []ScoreFailure, error) {
	slots := make([]slot, len(records))

	if opts.Workers <= 1 {
		for i, r := range records {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
			slots[i].score, slots[i].err = scoreOne(scorer, r.Text)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Workers)
		for i, r := range records {
			i, r := i, r
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				// Each goroutine owns its slot.
				slots[i].score, slots[i].err = scoreOne(scorer, r.Text)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
	}

	scored := make([]models.ScoredRecord, 0, len(records))
	var failures []ScoreFailure
	for i, s := range slots {
		if s.err != nil {
			failures = append(failures, ScoreFailure{Index: i, Record: records[i], Err: s.err})
			continue
		}
		scored = append(scored, models.ScoredRecord{NormalizedRecord: records[i], Score: s.score})
	}
	return scored, failures, nil
}

// scoreOne calls the scorer once, turning errors, panics and out-of-range
// values into ErrScoring.
func scoreOne(s Scorer, text string) (score float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			score, err = 0, fmt.Errorf("%w: panic: %v", ErrScoring, r)
		}
	}()

	score, err = s.Score(text)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrScoring, err)
	}
	if math.IsNaN(score) || score < -1 || score > 1 {
		return 0, fmt.Errorf("%w: score %v outside [-1, 1]", ErrScoring, score)
	}
	return score, nil
}
