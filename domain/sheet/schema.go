package sheet

import "strings"

// ColumnKind distinguishes free text columns from measurement columns
type ColumnKind string

const (
	KindText    ColumnKind = "text"
	KindNumeric ColumnKind = "numeric"
)

// Column describes one grid column
type Column struct {
	Key    string     // JSON field name
	Header string     // display header
	Kind   ColumnKind // text or numeric
	Letter string     // spreadsheet column letter used in formulas
}

// IsNumeric reports whether the column holds a dimension measurement
func (c Column) IsNumeric() bool {
	return c.Kind == KindNumeric
}

// ColumnCount is the fixed width of the grid
const ColumnCount = 8

// MaxRows bounds how far an edit may grow the grid
const MaxRows = 10000

// Columns is the ordered column schema of the grid
var Columns = [ColumnCount]Column{
	{Key: "customer", Header: "Customer", Kind: KindText, Letter: "A"},
	{Key: "product", Header: "Product", Kind: KindText, Letter: "B"},
	{Key: "length1", Header: "Length1", Kind: KindNumeric, Letter: "C"},
	{Key: "length2", Header: "Length2", Kind: KindNumeric, Letter: "D"},
	{Key: "length3", Header: "Length3", Kind: KindNumeric, Letter: "E"},
	{Key: "width1", Header: "Width1", Kind: KindNumeric, Letter: "F"},
	{Key: "width2", Header: "Width2", Kind: KindNumeric, Letter: "G"},
	{Key: "width3", Header: "Width3", Kind: KindNumeric, Letter: "H"},
}

// ColumnIndex returns the position of the column with the given key
func ColumnIndex(key string) (int, bool) {
	for i, col := range Columns {
		if col.Key == key {
			return i, true
		}
	}
	return -1, false
}

// ColumnIndexByHeader matches a file header against column keys and headers, ignoring case
func ColumnIndexByHeader(header string) (int, bool) {
	h := strings.ToLower(strings.TrimSpace(header))
	for i, col := range Columns {
		if h == col.Key || h == strings.ToLower(col.Header) {
			return i, true
		}
	}
	return -1, false
}

// NumericColumns returns the measurement columns in schema order
func NumericColumns() []Column {
	cols := make([]Column, 0, ColumnCount)
	for _, col := range Columns {
		if col.IsNumeric() {
			cols = append(cols, col)
		}
	}
	return cols
}
