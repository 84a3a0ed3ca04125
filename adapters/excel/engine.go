package excel

import (
	"fmt"
	"strconv"
	"strings"

	"gridsheet/domain/sheet"
	"gridsheet/internal"
	"gridsheet/ports"

	"github.com/xuri/excelize/v2"
)

// FormulaEngine evaluates grid formulas with the excelize calculation engine.
// The grid is laid out without a header row: data row i is sheet row i+1 and
// columns follow the schema letters, so "=C1*2" refers to Length1 of the first row.
type FormulaEngine struct {
	logger *internal.Logger
}

var _ ports.FormulaEngine = (*FormulaEngine)(nil)

// NewFormulaEngine creates a formula engine
func NewFormulaEngine(logger *internal.Logger) *FormulaEngine {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &FormulaEngine{logger: logger.Named("FormulaEngine")}
}

// Evaluate computes every formula cell of g. Per-cell failures are reported
// in the result; the error is only for a workbook that could not be built.
func (e *FormulaEngine) Evaluate(g *sheet.Grid) (sheet.Evaluation, error) {
	refs := g.FormulaCells()
	eval := make(sheet.Evaluation, len(refs))
	if len(refs) == 0 {
		return eval, nil
	}

	f := excelize.NewFile()
	defer f.Close()
	name := f.GetSheetName(0)

	if err := writeCells(f, name, g, 0, nil); err != nil {
		return nil, fmt.Errorf("failed to load grid into workbook: %w", err)
	}

	for _, ref := range refs {
		value, err := f.CalcCellValue(name, ref.A1(), excelize.Options{RawCellValue: true})
		if err == nil && strings.HasPrefix(value, "#") {
			err = fmt.Errorf("%s", value)
		}
		if err != nil {
			e.logger.Debug("Formula %s in %s failed: %v", g.Raw(ref), ref.A1(), err)
			eval[ref] = sheet.FormulaResult{Err: fmt.Errorf("formula error: %v", err)}
			continue
		}
		eval[ref] = sheet.FormulaResult{Value: value}
	}

	e.logger.Trace("Evaluated %d formula cells", len(refs))
	return eval, nil
}

// writeCells writes the grid into sheet name starting below offset rows.
// With eval set, formula cells are written as their computed values.
func writeCells(f *excelize.File, name string, g *sheet.Grid, offset int, eval sheet.Evaluation) error {
	for r := 0; r < g.Len(); r++ {
		for c, col := range sheet.Columns {
			ref := sheet.CellRef{Row: r, Col: c}
			raw := g.Raw(ref)
			if strings.TrimSpace(raw) == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1+offset)
			if err != nil {
				return err
			}

			if sheet.IsFormula(raw) {
				if eval == nil {
					if err := f.SetCellFormula(name, cell, strings.TrimPrefix(strings.TrimSpace(raw), "=")); err != nil {
						return err
					}
					continue
				}
				if res, ok := eval[ref]; ok && res.Err == nil {
					raw = res.Value
				}
			}

			if col.IsNumeric() {
				if v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
					if err := f.SetCellValue(name, cell, v); err != nil {
						return err
					}
					continue
				}
			}
			if err := f.SetCellValue(name, cell, raw); err != nil {
				return err
			}
		}
	}
	return nil
}
