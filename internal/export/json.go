package export

import (
	"encoding/json"
	"io"

	"cloud.google.com/go/civil"

	"github.com/seenimoa/tickersent/internal/aggregate"
	"github.com/seenimoa/tickersent/pkg/models"
)

// TableJSON is the JSON shape of an aggregate table. Only present cells are
// listed.
type TableJSON struct {
	Dates   []civil.Date           `json:"dates"`
	Tickers []string               `json:"tickers"`
	Cells   []models.AggregateCell `json:"cells"`
}

// NewTableJSON converts table to its JSON shape.
func NewTableJSON(table *aggregate.Table) TableJSON {
	out := TableJSON{
		Dates:   table.Dates(),
		Tickers: table.Tickers(),
		Cells:   table.Cells(),
	}
	// Keep empty tables as [] rather than null.
	if out.Dates == nil {
		out.Dates = []civil.Date{}
	}
	if out.Tickers == nil {
		out.Tickers = []string{}
	}
	if out.Cells == nil {
		out.Cells = []models.AggregateCell{}
	}
	return out
}

// WriteJSON writes the table as indented JSON.
func WriteJSON(w io.Writer, table *aggregate.Table) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewTableJSON(table))
}
