// Package report accumulates qualifying article records and exports them as a table.
package report

import (
	"time"
)

// DateLayout is how publish dates are rendered in exported tables
const DateLayout = "2006-01-02"

// Columns is the fixed column order of every exported table
var Columns = []string{
	"Title",
	"Date",
	"Description",
	"Filename",
	"Count of Search Phrases",
	"Contains Money?",
}

// Record is one qualifying article
type Record struct {
	Title         string    `json:"title"`
	Date          time.Time `json:"date"`
	Description   string    `json:"description"`
	Filename      string    `json:"filename"`
	PhraseCount   int       `json:"phrase_count"`
	ContainsMoney bool      `json:"contains_money"`
}

// Row renders the record in Columns order
func (r Record) Row() []interface{} {
	date := ""
	if !r.Date.IsZero() {
		date = r.Date.Format(DateLayout)
	}
	return []interface{}{
		r.Title,
		date,
		r.Description,
		r.Filename,
		r.PhraseCount,
		r.ContainsMoney,
	}
}

// TableWriter writes a header row followed by data rows to path
type TableWriter interface {
	WriteTable(path string, columns []string, rows [][]interface{}) error
}

// Accumulator is the append-only, encounter-ordered record collection of one run.
// It is owned by a single goroutine.
type Accumulator struct {
	records []Record
}

// NewAccumulator creates an empty accumulator
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Append adds a record after all previously appended ones
func (a *Accumulator) Append(r Record) {
	a.records = append(a.records, r)
}

// Len returns the number of accumulated records
func (a *Accumulator) Len() int {
	return len(a.records)
}

// Records returns a copy of the records in encounter order
func (a *Accumulator) Records() []Record {
	out := make([]Record, len(a.records))
	copy(out, a.records)
	return out
}

// Export writes the accumulated records to path with the fixed column schema
func (a *Accumulator) Export(w TableWriter, path string) error {
	return Export(w, a.records, path)
}

// Export writes records to path in the given order, without sorting or deduplication
func Export(w TableWriter, records []Record, path string) error {
	rows := make([][]interface{}, 0, len(records))
	for _, r := range records {
		rows = append(rows, r.Row())
	}
	cols := make([]string, len(Columns))
	copy(cols, Columns)
	return w.WriteTable(path, cols, rows)
}
