package app

import (
	"gridsheet/domain/sheet"
)

// CellView is one rendered grid cell
type CellView struct {
	Column  string
	Raw     string
	Display string
	Numeric bool
	Invalid bool
	Reason  string
}

// RowView is one rendered grid row
type RowView struct {
	Index int
	ID    *int64
	Cells []CellView
}

// SheetView is everything the spreadsheet page renders
type SheetView struct {
	Columns         []sheet.Column
	Rows            []RowView
	Stats           sheet.Statistics
	Summaries       []sheet.ColumnSummary
	Pending         int
	InvalidCells    int
	FormulasEnabled bool
	SaveMode        SaveMode
}

// View renders the current grid. Pending counts the rows a save would
// submit right now, treating invalid measurements as blank.
func (s *SpreadsheetService) View() SheetView {
	s.mu.Lock()
	defer s.mu.Unlock()

	eval := s.evaluateLocked()
	invalid := make(map[sheet.CellRef]string)
	errs := s.grid.Check(eval)
	for _, ce := range errs {
		col, _ := sheet.ColumnIndex(ce.Column)
		invalid[sheet.CellRef{Row: ce.Row, Col: col}] = ce.Reason
	}

	view := SheetView{
		Columns:         sheet.Columns[:],
		Rows:            make([]RowView, s.grid.Len()),
		Stats:           s.stats,
		InvalidCells:    len(errs),
		FormulasEnabled: s.engine != nil,
		SaveMode:        s.config.SaveMode,
	}
	for r := range view.Rows {
		gr := s.grid.Row(r)
		rv := RowView{Index: r, ID: gr.ID, Cells: make([]CellView, sheet.ColumnCount)}
		for c, col := range sheet.Columns {
			ref := sheet.CellRef{Row: r, Col: c}
			reason, bad := invalid[ref]
			rv.Cells[c] = CellView{
				Column:  col.Key,
				Raw:     gr.Cells[c],
				Display: s.grid.Display(ref, eval),
				Numeric: col.IsNumeric(),
				Invalid: bad,
				Reason:  reason,
			}
		}
		view.Rows[r] = rv
	}

	ds := s.grid.Partial(eval)
	view.Summaries = sheet.Summarize(ds.Trimmed())
	view.Pending = len(s.snapshot.ChangedIndexes(ds))
	return view
}

// Statistics returns the last statistics fetched from the API
func (s *SpreadsheetService) Statistics() sheet.Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
