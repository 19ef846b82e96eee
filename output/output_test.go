package output

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/pevans/dirharvest/extract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() *Schema {
	return NewSchema(
		[]string{"name", "rating"},
		[]extract.ListSpec{{Name: "locations", Selector: "li", MaxColumns: 5}},
	)
}

// TestSchema_Header verifies scalar columns followed by numbered list
// columns
func TestSchema_Header(t *testing.T) {
	header := testSchema().Header()

	assert.Equal(t, []string{
		"name", "rating",
		"locations_1", "locations_2", "locations_3", "locations_4", "locations_5",
	}, header)
}

// TestSchema_CustomPrefixAndDefaultCap verifies prefix override and the
// default column cap
func TestSchema_CustomPrefixAndDefaultCap(t *testing.T) {
	schema := NewSchema(nil, []extract.ListSpec{{Name: "tags", Selector: "li", ColumnPrefix: "tag"}})

	header := schema.Header()

	require.Len(t, header, DefaultMaxColumns)
	assert.Equal(t, "tag1", header[0])
	assert.Equal(t, "tag5", header[4])
}

// TestExpand_ListOverCap verifies a 7-item list with cap 5 expands to
// exactly 5 columns, dropping the last two values
func TestExpand_ListOverCap(t *testing.T) {
	rec := extract.Record{
		"name":   {Present: true, Scalar: "Alice"},
		"rating": {Present: true, Scalar: "4.9"},
		"locations": {Present: true, List: true, Items: []string{
			"one", "two", "three", "four", "five", "six", "seven",
		}},
	}

	row := testSchema().Expand(rec)

	assert.Equal(t, []string{"Alice", "4.9", "one", "two", "three", "four", "five"}, row)
}

// TestExpand_ShortListPads verifies short lists pad with empty cells
func TestExpand_ShortListPads(t *testing.T) {
	rec := extract.Record{
		"name":      {Present: true, Scalar: "Bob"},
		"rating":    {},
		"locations": {Present: true, List: true, Items: []string{"only"}},
	}

	row := testSchema().Expand(rec)

	assert.Equal(t, []string{"Bob", "", "only", "", "", "", ""}, row)
}

// TestExpand_AbsentScalarsEmpty verifies absent fields serialize as empty
// cells, never a "None"-like word
func TestExpand_AbsentScalarsEmpty(t *testing.T) {
	rec := extract.Record{
		"name":      {},
		"rating":    {},
		"locations": {List: true},
	}

	row := testSchema().Expand(rec)

	for i, cell := range row {
		assert.Empty(t, cell, "column %d", i)
	}
}

// TestWriter verifies header plus rows round-trip through the CSV encoding
func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, testSchema())
	require.NoError(t, err)

	require.NoError(t, w.WriteRecord(extract.Record{
		"name":      {Present: true, Scalar: "Alice, MD"},
		"rating":    {Present: true, Scalar: "5.0"},
		"locations": {Present: true, List: true, Items: []string{"Central"}},
	}))
	require.NoError(t, w.Flush())
	assert.Equal(t, 1, w.Rows())

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "name", records[0][0])
	assert.Equal(t, "Alice, MD", records[1][0], "comma survives quoting")
	assert.Equal(t, "Central", records[1][2])
}
