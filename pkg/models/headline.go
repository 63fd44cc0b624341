package models

import (
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
)

// ErrInputContract is returned when a supplier hands over a structurally
// invalid row. It is the only condition that aborts a pipeline run.
var ErrInputContract = errors.New("input contract violation")

// InputContractViolation identifies the offending row and field.
type InputContractViolation struct {
	Index int    // position in the supplied sequence, -1 if unknown
	Field string // "ticker", "label" or "text"
}

func (e *InputContractViolation) Error() string {
	return fmt.Sprintf("%v: row %d: missing %s", ErrInputContract, e.Index, e.Field)
}

// Unwrap lets errors.Is match ErrInputContract.
func (e *InputContractViolation) Unwrap() error { return ErrInputContract }

// RawRow is one scraped news-table entry as handed over by a supplier.
//
// Label is "DATE TIME" (e.g. "Jan-05-24 08:00AM"), a relative keyword plus a
// time ("Today 10:30AM"), or a bare time ("10:15AM") meaning the same date as
// the preceding row for the ticker.
type RawRow struct {
	Ticker string `json:"ticker"`
	Label  string `json:"label"`
	Text   string `json:"text"`
}

// Validate checks that all required fields are present.
func (r RawRow) Validate() error {
	switch {
	case strings.TrimSpace(r.Ticker) == "":
		return &InputContractViolation{Index: -1, Field: "ticker"}
	case strings.TrimSpace(r.Label) == "":
		return &InputContractViolation{Index: -1, Field: "label"}
	case strings.TrimSpace(r.Text) == "":
		return &InputContractViolation{Index: -1, Field: "text"}
	}
	return nil
}

// ValidateRows validates every row and reports the first violation with its
// index.
func ValidateRows(rows []RawRow) error {
	for i, r := range rows {
		if err := r.Validate(); err != nil {
			var v *InputContractViolation
			if errors.As(err, &v) {
				v.Index = i
			}
			return err
		}
	}
	return nil
}

// NormalizedRecord is a RawRow whose label has been resolved to an absolute
// calendar date and a time-of-day string.
type NormalizedRecord struct {
	Ticker string     `json:"ticker"`
	Date   civil.Date `json:"date"`
	Time   string     `json:"time"`
	Text   string     `json:"text"`
}

// ScoredRecord is a NormalizedRecord with its sentiment score in [-1, 1].
type ScoredRecord struct {
	NormalizedRecord
	Score float64 `json:"score"`
}

// AggregateCell is the mean score of all records sharing (Ticker, Date).
// Cells only exist for groups with at least one record.
type AggregateCell struct {
	Ticker    string     `json:"ticker"`
	Date      civil.Date `json:"date"`
	MeanScore float64    `json:"mean_score"`
	Count     int        `json:"count"`
}
