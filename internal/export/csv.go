package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/seenimoa/tickersent/internal/aggregate"
)

// WriteCSV writes the pivoted table: a "date" column followed by one column
// per ticker, one row per date. Absent cells are empty fields.
func WriteCSV(w io.Writer, table *aggregate.Table) error {
	cw := csv.NewWriter(w)

	tickers := table.Tickers()
	header := append([]string{"date"}, tickers...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, d := range table.Dates() {
		rec := make([]string, 0, len(tickers)+1)
		rec = append(rec, d.String())
		for _, t := range tickers {
			if v, ok := table.Cell(t, d); ok {
				rec = append(rec, formatScore(v))
			} else {
				rec = append(rec, "")
			}
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing csv row %s: %w", d, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
