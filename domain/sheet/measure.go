package sheet

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

var (
	ErrNotNumeric       = errors.New("is not a number")
	ErrNegative         = errors.New("must not be negative")
	ErrFormulasDisabled = errors.New("formulas are disabled")
	ErrFormulaNoValue   = errors.New("formula has no value")
)

// ParseMeasure parses a dimension cell. Blank input is a null measurement;
// anything else must be a finite, non-negative number.
func ParseMeasure(raw string) (*float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, ErrNotNumeric
	}
	if v < 0 {
		return nil, ErrNegative
	}
	return &v, nil
}

// FormatMeasure renders a measurement with thousands separators and two decimals
func FormatMeasure(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

// CellError describes one cell that failed validation
type CellError struct {
	Row    int    `json:"row"` // zero-based
	Column string `json:"column"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

func (c CellError) String() string {
	header := c.Column
	if i, ok := ColumnIndex(c.Column); ok {
		header = Columns[i].Header
	}
	return fmt.Sprintf("row %d, %s: %q %s", c.Row+1, header, c.Value, c.Reason)
}

// ValidationError aggregates every invalid cell found in a grid
type ValidationError struct {
	Cells []CellError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Cells))
	for i, c := range e.Cells {
		parts[i] = c.String()
	}
	return "invalid values found: " + strings.Join(parts, "; ")
}
