package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/seenimoa/tickersent/internal/aggregate"
)

// CellRecord is one aggregate cell as stored in Parquet and SQLite.
type CellRecord struct {
	Ticker    string  `parquet:"ticker"`
	Date      string  `parquet:"date"` // YYYY-MM-DD
	MeanScore float64 `parquet:"mean_score"`
	Count     int64   `parquet:"count"`
}

// Records flattens the table into one record per present cell, in date then
// ticker order.
func Records(table *aggregate.Table) []CellRecord {
	cells := table.Cells()
	out := make([]CellRecord, len(cells))
	for i, c := range cells {
		out[i] = CellRecord{
			Ticker:    c.Ticker,
			Date:      c.Date.String(),
			MeanScore: c.MeanScore,
			Count:     int64(c.Count),
		}
	}
	return out
}

// WriteParquet writes one row per cell to path, creating parent directories.
func WriteParquet(path string, table *aggregate.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	if err := parquet.WriteFile(path, Records(table)); err != nil {
		return fmt.Errorf("writing parquet %s: %w", path, err)
	}
	return nil
}

// ReadParquet reads cell records written by WriteParquet.
func ReadParquet(path string) ([]CellRecord, error) {
	rows, err := parquet.ReadFile[CellRecord](path)
	if err != nil {
		return nil, fmt.Errorf("reading parquet %s: %w", path, err)
	}
	return rows, nil
}
