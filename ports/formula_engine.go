package ports

import (
	"io"

	"gridsheet/domain/sheet"
)

// FormulaEngine computes the formula cells of a grid
type FormulaEngine interface {
	Evaluate(g *sheet.Grid) (sheet.Evaluation, error)
}

// SheetCodec reads and writes grids as spreadsheet files
type SheetCodec interface {
	Decode(r io.Reader, filename string) ([]sheet.GridRow, error)
	Encode(w io.Writer, g *sheet.Grid, eval sheet.Evaluation) error
}
