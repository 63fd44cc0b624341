package export

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/seenimoa/tickersent/internal/aggregate"
	"github.com/seenimoa/tickersent/pkg/models"
)

var (
	d1 = civil.Date{Year: 2024, Month: time.June, Day: 2}
	d2 = civil.Date{Year: 2024, Month: time.June, Day: 3}
)

func scored(ticker string, d civil.Date, score float64) models.ScoredRecord {
	return models.ScoredRecord{
		NormalizedRecord: models.NormalizedRecord{Ticker: ticker, Date: d, Time: "09:00AM", Text: "t"},
		Score:            score,
	}
}

// AMZN has both dates, AMD only d1.
func sampleTable() *aggregate.Table {
	return aggregate.Aggregate([]models.ScoredRecord{
		scored("AMZN", d2, 0.5),
		scored("AMZN", d2, 0.25),
		scored("AMZN", d1, -0.1),
		scored("AMD", d1, -0.5),
	})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"CSV", FormatCSV, false},
		{" json ", FormatJSON, false},
		{"parquet", FormatParquet, false},
		{"sqlite", FormatSQLite, false},
		{"html", FormatHTML, false},
		{"xlsx", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownFormat) {
				t.Errorf("ParseFormat(%q): expected ErrUnknownFormat, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleTable()); err != nil {
		t.Fatal(err)
	}
	recs, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		{"date", "AMD", "AMZN"},
		{"2024-06-02", "-0.5000", "-0.1000"},
		{"2024-06-03", "", "0.3750"},
	}
	if len(recs) != len(want) {
		t.Fatalf("got %d rows, want %d: %v", len(recs), len(want), recs)
	}
	for i := range want {
		for j := range want[i] {
			if recs[i][j] != want[i][j] {
				t.Errorf("row %d col %d: got %q, want %q", i, j, recs[i][j], want[i][j])
			}
		}
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleTable()); err != nil {
		t.Fatal(err)
	}
	var got struct {
		Dates   []string `json:"dates"`
		Tickers []string `json:"tickers"`
		Cells   []struct {
			Ticker    string  `json:"ticker"`
			Date      string  `json:"date"`
			MeanScore float64 `json:"mean_score"`
			Count     int     `json:"count"`
		} `json:"cells"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if len(got.Dates) != 2 || got.Dates[0] != "2024-06-02" {
		t.Errorf("dates: %v", got.Dates)
	}
	if len(got.Cells) != 3 {
		t.Fatalf("expected 3 cells, got %d", len(got.Cells))
	}
	last := got.Cells[2]
	if last.Ticker != "AMZN" || last.Date != "2024-06-03" || last.Count != 2 || last.MeanScore != 0.375 {
		t.Errorf("unexpected last cell: %+v", last)
	}
}

func TestWriteJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, aggregate.Aggregate(nil)); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "null") {
		t.Errorf("empty table should encode empty arrays, got %s", buf.String())
	}
}

func TestWriteParquetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "cells.parquet")
	if err := WriteParquet(path, sampleTable()); err != nil {
		t.Fatal(err)
	}
	rows, err := ReadParquet(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0] != (CellRecord{Ticker: "AMD", Date: "2024-06-02", MeanScore: -0.5, Count: 1}) {
		t.Errorf("unexpected first row: %+v", rows[0])
	}
}

func TestWriteSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentiment.db")
	ctx := context.Background()

	// A second export replaces the first.
	if err := WriteSQLite(ctx, path, aggregate.Aggregate([]models.ScoredRecord{scored("OLD", d1, 1)})); err != nil {
		t.Fatal(err)
	}
	if err := WriteSQLite(ctx, path, sampleTable()); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ` + SQLiteTable).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("expected 3 rows, got %d", n)
	}

	var mean float64
	var count int
	err = db.QueryRow(`SELECT mean_score, count FROM `+SQLiteTable+` WHERE ticker = ? AND date = ?`, "AMZN", "2024-06-03").Scan(&mean, &count)
	if err != nil {
		t.Fatal(err)
	}
	if mean != 0.375 || count != 2 {
		t.Errorf("AMZN 2024-06-03: got %v/%d, want 0.375/2", mean, count)
	}
}

func TestRenderHeatmap(t *testing.T) {
	out := RenderHeatmap(sampleTable())
	for _, want := range []string{"AMD", "AMZN", "2024-06-02", "2024-06-03", "-0.50", "+0.38"} {
		if !strings.Contains(out, want) {
			t.Errorf("heatmap missing %q:\n%s", want, out)
		}
	}
	if lines := strings.Split(strings.TrimRight(out, "\n"), "\n"); len(lines) != 3 {
		t.Errorf("expected header + 2 date lines, got %d", len(lines))
	}
	if got := RenderHeatmap(aggregate.Aggregate(nil)); !strings.Contains(got, "no sentiment data") {
		t.Errorf("empty heatmap: %q", got)
	}
}

func TestHeatColor(t *testing.T) {
	if heatColor(-1) != heatScale[0] {
		t.Error("-1 should map to the most bearish color")
	}
	if heatColor(1) != heatScale[len(heatScale)-1] {
		t.Error("+1 should map to the most bullish color")
	}
	if heatColor(0) != heatScale[len(heatScale)/2] {
		t.Error("0 should map to the neutral color")
	}
	if heatColor(5) != heatScale[len(heatScale)-1] {
		t.Error("out-of-range values should clamp")
	}
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, sampleTable(), "AMZN vs AMD"); err != nil {
		t.Fatal(err)
	}
	html := buf.String()
	for _, want := range []string{"<title>AMZN vs AMD</title>", "<th>AMZN</th>", "0.3750", "rgb(255, 209, 209)"} {
		if !strings.Contains(html, want) {
			t.Errorf("html missing %q", want)
		}
	}
}

func TestWriteDispatch(t *testing.T) {
	ctx := context.Background()
	table := sampleTable()

	var buf bytes.Buffer
	if err := Write(ctx, "csv", "", &buf, table); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "date,AMD,AMZN\n") {
		t.Errorf("unexpected csv: %q", buf.String())
	}

	path := filepath.Join(t.TempDir(), "nested", "table.json")
	if err := Write(ctx, "json", path, nil, table); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"tickers"`) {
		t.Errorf("unexpected json file: %s", data)
	}

	if err := Write(ctx, "parquet", "", &buf, table); !errors.Is(err, ErrPathRequired) {
		t.Errorf("parquet without path: expected ErrPathRequired, got %v", err)
	}
	if err := Write(ctx, "sqlite", "", &buf, table); !errors.Is(err, ErrPathRequired) {
		t.Errorf("sqlite without path: expected ErrPathRequired, got %v", err)
	}
	if err := Write(ctx, "yaml", "", &buf, table); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

type failingCloser struct {
	bytes.Buffer
}

func (f *failingCloser) Close() error { return errors.New("disk full") }

func TestWriteReturnsCloseError(t *testing.T) {
	orig := createFile
	defer func() { createFile = orig }()

	out := &failingCloser{}
	createFile = func(string) (io.WriteCloser, error) { return out, nil }

	err := Write(context.Background(), "csv", "table.csv", nil, sampleTable())
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected close error, got %v", err)
	}
	if !strings.HasPrefix(out.String(), "date,AMD,AMZN\n") {
		t.Errorf("expected csv to be written before close, got %q", out.String())
	}
}
