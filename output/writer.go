package output

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/pevans/dirharvest/extract"
)

// Writer serializes expanded rows as UTF-8 CSV with a fixed header.
type Writer struct {
	csv    *csv.Writer
	schema *Schema
	wrote  int
}

// NewWriter writes the header row immediately so even a run that
// discovers nothing produces a well-formed file.
func NewWriter(w io.Writer, schema *Schema) (*Writer, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(schema.Header()); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	return &Writer{csv: cw, schema: schema}, nil
}

// WriteRecord expands and writes one record.
func (w *Writer) WriteRecord(rec extract.Record) error {
	if err := w.csv.Write(w.schema.Expand(rec)); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	w.wrote++
	return nil
}

// Rows returns how many data rows have been written.
func (w *Writer) Rows() int {
	return w.wrote
}

// Flush drains buffered rows to the underlying writer.
func (w *Writer) Flush() error {
	w.csv.Flush()
	return w.csv.Error()
}
