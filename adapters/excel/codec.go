package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gridsheet/domain/sheet"
	"gridsheet/internal"
	"gridsheet/ports"

	"github.com/xuri/excelize/v2"
)

// Codec reads grids from .xlsx/.csv files and writes them as .xlsx workbooks
type Codec struct {
	logger *internal.Logger
}

var _ ports.SheetCodec = (*Codec)(nil)

// NewCodec creates a spreadsheet file codec
func NewCodec(logger *internal.Logger) *Codec {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Codec{logger: logger.Named("Codec")}
}

// fileType returns "csv" or "xlsx" from the file extension
func fileType(filename string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		return "csv", nil
	case ".xlsx", ".xlsm":
		return "xlsx", nil
	default:
		return "", fmt.Errorf("unsupported file type %q", ext)
	}
}

// Decode reads a file whose first row holds headers. Headers are matched
// against the column schema; unknown columns are skipped and an "id"
// column, when present, becomes the row identity.
func (c *Codec) Decode(r io.Reader, filename string) ([]sheet.GridRow, error) {
	kind, err := fileType(filename)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var rows [][]string
	switch kind {
	case "csv":
		rows, err = readCSV(r)
	default:
		rows, err = readWorkbook(r)
	}
	if err != nil {
		return nil, err
	}
	c.logger.Debug("%s file read in %.2fms (%d rows)", strings.ToUpper(kind), float64(time.Since(start).Nanoseconds())/1e6, len(rows))

	return processRows(rows)
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

func readWorkbook(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	name := f.GetSheetName(0)
	if name == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return rows, nil
}

// processRows maps header positions to schema columns and converts data rows
func processRows(rows [][]string) ([]sheet.GridRow, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("file must have a header row")
	}

	idCol := -1
	mapping := make(map[int]int)
	for i, header := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(header), "id") {
			idCol = i
			continue
		}
		if col, ok := sheet.ColumnIndexByHeader(header); ok {
			mapping[i] = col
		}
	}
	if len(mapping) == 0 {
		return nil, fmt.Errorf("no known columns in header %v", rows[0])
	}

	var out []sheet.GridRow
	for line, record := range rows[1:] {
		var gr sheet.GridRow
		blank := true
		for i, value := range record {
			value = strings.TrimSpace(value)
			if i == idCol {
				if value == "" {
					continue
				}
				id, err := strconv.ParseInt(value, 10, 64)
				if err != nil {
					return nil, fmt.Errorf("line %d: invalid id %q", line+2, value)
				}
				gr.ID = sheet.ID(id)
				continue
			}
			col, ok := mapping[i]
			if !ok {
				continue
			}
			gr.Cells[col] = value
			if value != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		out = append(out, gr)
	}
	return out, nil
}

// Encode writes g as a workbook with a header row. Formula cells are written
// as their computed values when eval holds them, so the file does not depend
// on the header-less addressing used while editing.
func (c *Codec) Encode(w io.Writer, g *sheet.Grid, eval sheet.Evaluation) error {
	f := excelize.NewFile()
	defer f.Close()
	name := f.GetSheetName(0)

	header := make([]interface{}, 0, sheet.ColumnCount)
	for _, col := range sheet.Columns {
		header = append(header, col.Header)
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if eval == nil {
		eval = sheet.Evaluation{}
	}
	if err := writeCells(f, name, g, 1, eval); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	c.logger.Debug("Encoded %d rows", g.Len())
	return nil
}
