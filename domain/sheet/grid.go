package sheet

import (
	"fmt"
	"strings"
)

// CellRef addresses a grid cell by zero-based row and column
type CellRef struct {
	Row int
	Col int
}

// A1 returns the spreadsheet address of the cell; data row 0 is sheet row 1
func (c CellRef) A1() string {
	return fmt.Sprintf("%s%d", Columns[c.Col].Letter, c.Row+1)
}

// IsFormula reports whether raw input should be handed to the formula engine
func IsFormula(raw string) bool {
	s := strings.TrimSpace(raw)
	return len(s) > 1 && s[0] == '='
}

// FormulaResult is the computed value of one formula cell
type FormulaResult struct {
	Value string
	Err   error
}

// Evaluation maps formula cells to their computed results.
// A nil Evaluation means no formula engine is available.
type Evaluation map[CellRef]FormulaResult

// GridRow holds the raw input of one grid row
type GridRow struct {
	ID    *int64
	Cells [ColumnCount]string
}

// Grid is the editable state behind the spreadsheet panel. It keeps what the
// user typed, including formulas and rejected text, so that invalid cells can
// be flagged instead of lost.
type Grid struct {
	rows []GridRow
}

// NewGrid builds a grid from persisted rows
func NewGrid(ds Dataset) *Grid {
	g := &Grid{rows: make([]GridRow, len(ds))}
	for i, row := range ds {
		g.rows[i] = gridRowFrom(row)
	}
	return g
}

// NewGridFromRows builds a grid from raw rows, as read from a file
func NewGridFromRows(rows []GridRow) *Grid {
	g := &Grid{}
	g.Append(rows...)
	return g
}

func gridRowFrom(row Row) GridRow {
	var gr GridRow
	if row.ID != nil {
		gr.ID = ID(*row.ID)
	}
	for i, col := range Columns {
		gr.Cells[i] = row.Raw(col)
	}
	return gr
}

// Len returns the number of rows, spare rows included
func (g *Grid) Len() int {
	return len(g.rows)
}

// Row returns a copy of row i
func (g *Grid) Row(i int) GridRow {
	return g.rows[i]
}

// Raw returns what was typed into a cell
func (g *Grid) Raw(ref CellRef) string {
	if ref.Row < 0 || ref.Row >= len(g.rows) || ref.Col < 0 || ref.Col >= ColumnCount {
		return ""
	}
	return g.rows[ref.Row].Cells[ref.Col]
}

// Set stores raw input, growing the grid when the edit lands past the last row
func (g *Grid) Set(ref CellRef, raw string) error {
	if ref.Col < 0 || ref.Col >= ColumnCount {
		return fmt.Errorf("column %d out of range", ref.Col)
	}
	if ref.Row < 0 || ref.Row >= MaxRows {
		return fmt.Errorf("row %d out of range", ref.Row)
	}
	for len(g.rows) <= ref.Row {
		g.rows = append(g.rows, GridRow{})
	}
	g.rows[ref.Row].Cells[ref.Col] = raw
	return nil
}

// SetID assigns the identity returned by the API to row i
func (g *Grid) SetID(i int, id int64) {
	if i >= 0 && i < len(g.rows) {
		g.rows[i].ID = ID(id)
	}
}

// Append adds rows at the end of the grid
func (g *Grid) Append(rows ...GridRow) {
	for _, row := range rows {
		if row.ID != nil {
			row.ID = ID(*row.ID)
		}
		g.rows = append(g.rows, row)
	}
}

// EnsureSpareRows pads the grid until at least n trailing rows are blank
func (g *Grid) EnsureSpareRows(n int) {
	spare := 0
	for i := len(g.rows) - 1; i >= 0 && g.rows[i].blank(); i-- {
		spare++
	}
	for ; spare < n; spare++ {
		g.rows = append(g.rows, GridRow{})
	}
}

// Trim drops trailing blank rows
func (g *Grid) Trim() {
	end := len(g.rows)
	for end > 0 && g.rows[end-1].blank() {
		end--
	}
	g.rows = g.rows[:end]
}

func (r GridRow) blank() bool {
	for _, c := range r.Cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// FormulaCells lists every cell holding a formula, in row-major order
func (g *Grid) FormulaCells() []CellRef {
	var refs []CellRef
	for r, row := range g.rows {
		for c, raw := range row.Cells {
			if IsFormula(raw) {
				refs = append(refs, CellRef{Row: r, Col: c})
			}
		}
	}
	return refs
}

// Check resolves the grid and returns every invalid cell
func (g *Grid) Check(eval Evaluation) []CellError {
	_, errs := g.resolve(eval)
	return errs
}

// Resolve turns the raw grid into a dataset. Formula cells take their
// computed value. Any invalid cell aborts with a *ValidationError listing all of them.
func (g *Grid) Resolve(eval Evaluation) (Dataset, error) {
	ds, errs := g.resolve(eval)
	if len(errs) > 0 {
		return nil, &ValidationError{Cells: errs}
	}
	return ds, nil
}

// Partial resolves the grid leaving invalid measurements null
func (g *Grid) Partial(eval Evaluation) Dataset {
	ds, _ := g.resolve(eval)
	return ds
}

// Display returns the value to show for a cell. Valid measurements, typed
// or computed, show with two decimals; anything else shows as typed.
func (g *Grid) Display(ref CellRef, eval Evaluation) string {
	raw := g.Raw(ref)
	value, err := g.cellValue(ref, raw, eval)
	if err != nil {
		return raw
	}
	if !Columns[ref.Col].IsNumeric() {
		return value
	}
	v, err := ParseMeasure(value)
	if err != nil || v == nil {
		return raw
	}
	return FormatMeasure(*v)
}

func (g *Grid) resolve(eval Evaluation) (Dataset, []CellError) {
	ds := make(Dataset, len(g.rows))
	var errs []CellError
	for r, gr := range g.rows {
		row := NewEmptyRow()
		if gr.ID != nil {
			row.ID = ID(*gr.ID)
		}
		for c, col := range Columns {
			raw := gr.Cells[c]
			value, err := g.cellValue(CellRef{Row: r, Col: c}, raw, eval)
			if err != nil {
				errs = append(errs, CellError{Row: r, Column: col.Key, Value: raw, Reason: err.Error()})
				continue
			}
			if !col.IsNumeric() {
				row.SetText(col.Key, value)
				continue
			}
			v, err := ParseMeasure(value)
			if err != nil {
				errs = append(errs, CellError{Row: r, Column: col.Key, Value: raw, Reason: err.Error()})
				continue
			}
			row.SetMeasure(col.Key, v)
		}
		ds[r] = row
	}
	return ds, errs
}

func (g *Grid) cellValue(ref CellRef, raw string, eval Evaluation) (string, error) {
	if !IsFormula(raw) {
		return raw, nil
	}
	if eval == nil {
		if Columns[ref.Col].IsNumeric() {
			return "", ErrFormulasDisabled
		}
		return raw, nil
	}
	res, ok := eval[ref]
	if !ok {
		return "", fmt.Errorf("formula was not evaluated")
	}
	if res.Err != nil {
		return "", res.Err
	}
	// Circular and blank references evaluate to nothing
	if Columns[ref.Col].IsNumeric() && strings.TrimSpace(res.Value) == "" {
		return "", ErrFormulaNoValue
	}
	return res.Value, nil
}
