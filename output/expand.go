// Package output flattens extracted records into fixed-width CSV rows.
// List fields fan out into a bounded number of positionally-numbered
// columns: a flat, spreadsheet-friendly schema bought at the cost of
// dropping list values beyond the cap.
package output

import (
	"fmt"

	"github.com/pevans/dirharvest/extract"
)

// DefaultMaxColumns bounds list fan-out when a list spec does not set its
// own cap.
const DefaultMaxColumns = 5

// Schema fixes the output column set for a run: scalar fields in
// specification order, then per list field exactly MaxColumns numbered
// columns.
type Schema struct {
	scalars []string
	lists   []listColumns
}

type listColumns struct {
	name    string
	prefix  string
	columns int
}

// NewSchema derives the column layout from the field specifications.
func NewSchema(scalarFields []string, listSpecs []extract.ListSpec) *Schema {
	s := &Schema{scalars: scalarFields}
	for _, l := range listSpecs {
		cols := l.MaxColumns
		if cols <= 0 {
			cols = DefaultMaxColumns
		}
		prefix := l.ColumnPrefix
		if prefix == "" {
			prefix = l.Name + "_"
		}
		s.lists = append(s.lists, listColumns{name: l.Name, prefix: prefix, columns: cols})
	}
	return s
}

// Header returns the full column name row.
func (s *Schema) Header() []string {
	header := make([]string, 0, len(s.scalars))
	header = append(header, s.scalars...)
	for _, l := range s.lists {
		for i := 1; i <= l.columns; i++ {
			header = append(header, fmt.Sprintf("%s%d", l.prefix, i))
		}
	}
	return header
}

// Expand flattens a record into one row matching the schema. Absent
// scalars become empty cells, never a textual "None". List values beyond
// the column cap are dropped; shorter lists pad with empty cells.
func (s *Schema) Expand(rec extract.Record) []string {
	row := make([]string, 0, len(s.scalars))

	for _, name := range s.scalars {
		val := rec[name]
		if val.Present {
			row = append(row, val.Scalar)
		} else {
			row = append(row, "")
		}
	}

	for _, l := range s.lists {
		items := rec[l.name].Items
		for i := 0; i < l.columns; i++ {
			if i < len(items) {
				row = append(row, items[i])
			} else {
				row = append(row, "")
			}
		}
	}

	return row
}
