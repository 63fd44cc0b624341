package aggregate

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/seenimoa/tickersent/pkg/models"
)

func day(d int) civil.Date { return civil.Date{Year: 2024, Month: time.June, Day: d} }

func rec(ticker string, d civil.Date, score float64) models.ScoredRecord {
	return models.ScoredRecord{
		NormalizedRecord: models.NormalizedRecord{Ticker: ticker, Date: d, Time: "09:00AM", Text: "t"},
		Score:            score,
	}
}

func TestAggregateMean(t *testing.T) {
	tbl := Aggregate([]models.ScoredRecord{
		rec("X", day(1), 0.2),
		rec("X", day(1), -0.4),
		rec("X", day(1), 0.6),
	})

	got, ok := tbl.Cell("X", day(1))
	if !ok {
		t.Fatal("expected cell for (X, D)")
	}
	if math.Abs(got-0.4/3) > 1e-6 {
		t.Errorf("mean: got %.6f, want 0.133333", got)
	}
	if tbl.Count("X", day(1)) != 3 {
		t.Errorf("count: got %d, want 3", tbl.Count("X", day(1)))
	}

	// (X, D2) has no records: absent, not zero.
	if v, ok := tbl.Cell("X", day(2)); ok {
		t.Errorf("expected absent cell, got %v", v)
	}
	if tbl.Count("X", day(2)) != 0 {
		t.Error("expected zero count for absent cell")
	}
}

func TestAggregateAxes(t *testing.T) {
	tbl := Aggregate([]models.ScoredRecord{
		rec("MSFT", day(3), 0.1),
		rec("AAPL", day(1), 0.2),
		rec("MSFT", day(1), -0.3),
		rec("GOOG", day(2), 0.0),
	})

	dates := tbl.Dates()
	if len(dates) != 3 || dates[0] != day(1) || dates[1] != day(2) || dates[2] != day(3) {
		t.Errorf("dates not ascending: %v", dates)
	}
	tickers := tbl.Tickers()
	want := []string{"AAPL", "GOOG", "MSFT"}
	for i := range want {
		if tickers[i] != want[i] {
			t.Fatalf("tickers: got %v, want %v", tickers, want)
		}
	}
	if tbl.Len() != 4 {
		t.Errorf("Len: got %d, want 4", tbl.Len())
	}

	// Zero-valued mean is still a present cell.
	if v, ok := tbl.Cell("GOOG", day(2)); !ok || v != 0 {
		t.Errorf("expected present 0 cell, got %v ok=%v", v, ok)
	}
}

func TestAggregateTickerOrder(t *testing.T) {
	tbl := Aggregate([]models.ScoredRecord{
		rec("AMD", day(1), 0.1),
		rec("AMZN", day(1), 0.1),
		rec("TSLA", day(1), 0.1),
	}, WithTickerOrder("TSLA", "NVDA", "AMZN", "TSLA"))

	got := tbl.Tickers()
	want := []string{"TSLA", "NVDA", "AMZN", "AMD"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if _, ok := tbl.Cell("NVDA", day(1)); ok {
		t.Error("NVDA has no records and must stay empty")
	}
}

func TestAggregatePermutationInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tickers := []string{"AAPL", "AMD", "AMZN", "NVDA"}

	var records []models.ScoredRecord
	for i := 0; i < 300; i++ {
		records = append(records, rec(
			tickers[rng.Intn(len(tickers))],
			day(1+rng.Intn(10)),
			rng.Float64()*2-1,
		))
	}
	base := Aggregate(records)

	for trial := 0; trial < 25; trial++ {
		shuffled := append([]models.ScoredRecord(nil), records...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got := Aggregate(shuffled)

		if len(got.Dates()) != len(base.Dates()) || len(got.Tickers()) != len(base.Tickers()) {
			t.Fatalf("trial %d: axes differ", trial)
		}
		for i, d := range base.Dates() {
			if got.Dates()[i] != d {
				t.Fatalf("trial %d: date %d differs", trial, i)
			}
		}
		for i, tk := range base.Tickers() {
			if got.Tickers()[i] != tk {
				t.Fatalf("trial %d: ticker %d differs", trial, i)
			}
		}
		for _, c := range base.Cells() {
			v, ok := got.Cell(c.Ticker, c.Date)
			if !ok || math.Abs(v-c.MeanScore) > 1e-9 {
				t.Fatalf("trial %d: cell (%s,%s) got %v ok=%v, want %v", trial, c.Ticker, c.Date, v, ok, c.MeanScore)
			}
			if got.Count(c.Ticker, c.Date) != c.Count {
				t.Fatalf("trial %d: count mismatch for (%s,%s)", trial, c.Ticker, c.Date)
			}
		}
		if got.Len() != base.Len() {
			t.Fatalf("trial %d: Len %d, want %d", trial, got.Len(), base.Len())
		}
	}
}

func TestAggregateCellsOrder(t *testing.T) {
	tbl := Aggregate([]models.ScoredRecord{
		rec("B", day(2), 0.5),
		rec("A", day(2), 0.5),
		rec("B", day(1), -0.5),
	})
	cells := tbl.Cells()
	if len(cells) != 3 {
		t.Fatalf("expected 3 cells, got %d", len(cells))
	}
	if cells[0].Ticker != "B" || cells[0].Date != day(1) {
		t.Errorf("first cell: %+v", cells[0])
	}
	if cells[1].Ticker != "A" || cells[2].Ticker != "B" {
		t.Errorf("second row order: %+v", cells[1:])
	}
}

func TestAggregateEmpty(t *testing.T) {
	tbl := Aggregate(nil)
	if tbl.Len() != 0 || len(tbl.Dates()) != 0 || len(tbl.Tickers()) != 0 {
		t.Error("expected empty table")
	}
}
