package datasource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/seenimoa/tickersent/pkg/models"
)

// CSVFile is an offline supplier reading "ticker,label,text" rows from a
// file. A header row starting with "ticker" is skipped.
type CSVFile struct {
	path string

	once sync.Once
	rows []models.RawRow
	err  error
}

// NewCSVFile creates a CSV supplier for path. The file is read on first use.
func NewCSVFile(path string) *CSVFile {
	return &CSVFile{path: path}
}

// Name returns the data source name.
func (c *CSVFile) Name() string { return "csv" }

// Rows returns the file's rows for ticker, in file order.
func (c *CSVFile) Rows(_ context.Context, ticker string) ([]models.RawRow, error) {
	all, err := c.load()
	if err != nil {
		return nil, err
	}
	var out []models.RawRow
	for _, r := range all {
		if r.Ticker == ticker {
			out = append(out, r)
		}
	}
	return out, nil
}

// AllRows returns every row in file order.
func (c *CSVFile) AllRows(_ context.Context) ([]models.RawRow, error) {
	all, err := c.load()
	if err != nil {
		return nil, err
	}
	return append([]models.RawRow(nil), all...), nil
}

func (c *CSVFile) load() ([]models.RawRow, error) {
	c.once.Do(func() {
		f, err := os.Open(c.path)
		if err != nil {
			c.err = fmt.Errorf("open %s: %w", c.path, err)
			return
		}
		defer f.Close()
		c.rows, c.err = ReadCSV(f)
	})
	return c.rows, c.err
}

// ReadCSV parses "ticker,label,text" records. Every record must have
// exactly three fields.
func ReadCSV(r io.Reader) ([]models.RawRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true

	var rows []models.RawRow
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV: %w", err)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "ticker") {
			continue
		}
		rows = append(rows, models.RawRow{
			Ticker: strings.TrimSpace(rec[0]),
			Label:  strings.TrimSpace(rec[1]),
			Text:   strings.TrimSpace(rec[2]),
		})
	}
	return rows, nil
}
