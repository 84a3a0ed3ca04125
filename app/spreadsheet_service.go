package app

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"gridsheet/domain/sheet"
	"gridsheet/internal"
	"gridsheet/internal/config"
	"gridsheet/internal/errors"
	"gridsheet/ports"

	"golang.org/x/sync/errgroup"
)

// SaveMode selects how changed rows reach the data API
type SaveMode = config.SaveMode

const (
	SaveModeBulk = config.SaveModeBulk
	SaveModeRow  = config.SaveModeRow
)

// SpreadsheetConfig holds spreadsheet panel settings
type SpreadsheetConfig struct {
	SaveMode  SaveMode
	SpareRows int
}

// CellChange is one edit coming from the grid
type CellChange struct {
	Row    int    `json:"row"`
	Column string `json:"column"`
	Value  string `json:"value"`
}

// CellVerdict tells the grid whether an edited cell is acceptable
type CellVerdict struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Valid   bool   `json:"valid"`
	Reason  string `json:"reason,omitempty"`
	Display string `json:"display"`
}

// SaveResult describes a completed save
type SaveResult struct {
	Submitted int
	Rows      []sheet.Row
	Message   string
}

// SpreadsheetService owns the rows of one spreadsheet panel: it loads them,
// applies edits, validates, and submits the rows changed since the last snapshot.
// Saves are not interlocked; the mutex only guards in-memory state. A save
// that completes after a reload leaves the reloaded grid untouched.
type SpreadsheetService struct {
	api    ports.DataAPI
	engine ports.FormulaEngine // nil disables formulas
	codec  ports.SheetCodec
	config SpreadsheetConfig
	logger *internal.Logger

	mu       sync.Mutex
	grid     *sheet.Grid
	snapshot sheet.Snapshot
	stats    sheet.Statistics
	loaded   bool
	lastUsed time.Time
	// generation counts loads so saves can detect a reload in between
	generation uint64
}

// NewSpreadsheetService creates a service with an empty grid
func NewSpreadsheetService(api ports.DataAPI, engine ports.FormulaEngine, codec ports.SheetCodec, config SpreadsheetConfig, logger *internal.Logger) *SpreadsheetService {
	if config.SpareRows < 1 {
		config.SpareRows = 1
	}
	if config.SaveMode == "" {
		config.SaveMode = SaveModeBulk
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}

	s := &SpreadsheetService{
		api:      api,
		engine:   engine,
		codec:    codec,
		config:   config,
		logger:   logger.Named("Spreadsheet"),
		grid:     sheet.NewGrid(nil),
		lastUsed: time.Now(),
	}
	s.grid.EnsureSpareRows(config.SpareRows)
	return s
}

// Load fetches rows and statistics concurrently and resets the grid and snapshot.
// Read failures have already degraded to empty results in the API client.
func (s *SpreadsheetService) Load(ctx context.Context) error {
	var rows []sheet.Row
	var stats sheet.Statistics

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows = s.api.FetchData(gctx)
		return nil
	})
	g.Go(func() error {
		stats = s.api.FetchStats(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "failed to load spreadsheet")
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "spreadsheet load cancelled")
	}

	ds := sheet.Dataset(rows).EnsureSpareRows(s.config.SpareRows)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.grid = sheet.NewGrid(ds)
	s.snapshot = sheet.NewSnapshot(ds)
	s.stats = stats
	s.loaded = true
	s.generation++
	s.touch()

	s.logger.Info("Loaded %d rows", len(rows))
	return nil
}

// Mount loads the spreadsheet the first time it is shown
func (s *SpreadsheetService) Mount(ctx context.Context) error {
	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()
	if loaded {
		return nil
	}
	return s.Load(ctx)
}

// RefreshStats reloads the statistics from the API
func (s *SpreadsheetService) RefreshStats(ctx context.Context) sheet.Statistics {
	stats := s.api.FetchStats(ctx)
	s.mu.Lock()
	s.stats = stats
	s.mu.Unlock()
	return stats
}

// ApplyChanges writes raw edits into the grid and returns a verdict for each.
// Invalid values are kept so the grid can flag them; they block the next save.
func (s *SpreadsheetService) ApplyChanges(changes []CellChange) ([]CellVerdict, error) {
	refs := make([]sheet.CellRef, len(changes))
	for i, ch := range changes {
		col, ok := sheet.ColumnIndex(ch.Column)
		if !ok {
			return nil, errors.InvalidInput(fmt.Sprintf("unknown column %q", ch.Column))
		}
		if ch.Row < 0 || ch.Row >= sheet.MaxRows {
			return nil, errors.InvalidInput(fmt.Sprintf("row %d out of range", ch.Row))
		}
		refs[i] = sheet.CellRef{Row: ch.Row, Col: col}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	for i, ch := range changes {
		if err := s.grid.Set(refs[i], ch.Value); err != nil {
			return nil, errors.WithCode(errors.CodeInvalidInput, err)
		}
	}
	s.grid.EnsureSpareRows(s.config.SpareRows)

	eval := s.evaluateLocked()
	invalid := make(map[sheet.CellRef]string)
	for _, ce := range s.grid.Check(eval) {
		col, _ := sheet.ColumnIndex(ce.Column)
		invalid[sheet.CellRef{Row: ce.Row, Col: col}] = ce.Reason
	}

	verdicts := make([]CellVerdict, len(changes))
	for i, ref := range refs {
		reason, bad := invalid[ref]
		verdicts[i] = CellVerdict{
			Row:     ref.Row,
			Column:  changes[i].Column,
			Valid:   !bad,
			Reason:  reason,
			Display: s.grid.Display(ref, eval),
		}
		if bad {
			s.logger.Debug("Invalid value %q at %s: %s", changes[i].Value, ref.A1(), reason)
		}
	}
	return verdicts, nil
}

// AddRows appends n empty rows to the grid
func (s *SpreadsheetService) AddRows(n int) error {
	if n < 1 || n > sheet.MaxRows {
		return errors.InvalidInput(fmt.Sprintf("cannot add %d rows", n))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grid.Len()+n > sheet.MaxRows {
		return errors.InvalidInput(fmt.Sprintf("grid is limited to %d rows", sheet.MaxRows))
	}
	s.grid.Append(make([]sheet.GridRow, n)...)
	s.touch()
	return nil
}

// Save validates the whole grid, then submits the rows that are non-empty
// and differ from the snapshot. On success the snapshot becomes the saved state.
func (s *SpreadsheetService) Save(ctx context.Context) (SaveResult, error) {
	s.mu.Lock()
	s.touch()
	ds, err := s.grid.Resolve(s.evaluateLocked())
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("Save blocked: %v", err)
		return SaveResult{}, errors.WithCode(errors.CodeValidationError, err)
	}
	idx := s.snapshot.ChangedIndexes(ds)
	gen := s.generation
	s.mu.Unlock()

	if len(idx) == 0 {
		s.logger.Debug("Nothing to save")
		return SaveResult{}, nil
	}

	payload := make([]sheet.Row, len(idx))
	for k, i := range idx {
		payload[k] = ds[i].Clone()
	}

	var result SaveResult
	switch s.config.SaveMode {
	case SaveModeRow:
		result, err = s.saveRows(ctx, gen, ds, idx, payload)
	default:
		result, err = s.saveBulk(ctx, gen, ds, idx, payload)
	}
	if err != nil {
		return SaveResult{}, errors.Wrap(err, "failed to save rows")
	}

	s.RefreshStats(ctx)
	s.logger.Info("Saved %d rows", result.Submitted)
	return result, nil
}

func (s *SpreadsheetService) saveBulk(ctx context.Context, gen uint64, ds sheet.Dataset, idx []int, payload []sheet.Row) (SaveResult, error) {
	receipt, err := s.api.SaveData(ctx, payload)
	if err != nil {
		return SaveResult{}, err
	}
	result := SaveResult{Submitted: len(payload), Rows: payload, Message: receipt.Message}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staleLocked(gen) {
		return result, nil
	}
	if len(receipt.IDs) == len(payload) {
		for k, i := range idx {
			if payload[k].ID == nil {
				s.assignIDLocked(ds, i, receipt.IDs[k])
			}
		}
	}
	s.snapshot = sheet.NewSnapshot(ds)
	return result, nil
}

// saveRows uses the legacy single-row endpoint. Rows saved before a failure
// are recorded in the snapshot so they are not submitted twice.
func (s *SpreadsheetService) saveRows(ctx context.Context, gen uint64, ds sheet.Dataset, idx []int, payload []sheet.Row) (SaveResult, error) {
	for k, i := range idx {
		id, err := s.api.SaveRow(ctx, payload[k])
		if err != nil {
			return SaveResult{}, errors.Wrapf(err, "row %d", i+1)
		}
		s.mu.Lock()
		if !s.staleLocked(gen) {
			if payload[k].ID == nil {
				s.assignIDLocked(ds, i, id)
			}
			s.snapshot.Accept(i, ds[i])
		}
		s.mu.Unlock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.staleLocked(gen) {
		s.snapshot = sheet.NewSnapshot(ds)
	}
	return SaveResult{Submitted: len(payload), Rows: payload}, nil
}

// staleLocked reports whether the grid was reloaded after generation gen
func (s *SpreadsheetService) staleLocked(gen uint64) bool {
	if s.generation == gen {
		return false
	}
	s.logger.Debug("Grid reloaded during save; keeping the reloaded state")
	return true
}

func (s *SpreadsheetService) assignIDLocked(ds sheet.Dataset, i int, id int64) {
	ds[i].ID = sheet.ID(id)
	s.grid.SetID(i, id)
}

// Import appends the rows of an uploaded spreadsheet file as new rows
func (s *SpreadsheetService) Import(r io.Reader, filename string) (int, error) {
	rows, err := s.codec.Decode(r, filename)
	if err != nil {
		return 0, errors.WithCode(errors.CodeInvalidInput, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grid.Len()+len(rows) > sheet.MaxRows {
		return 0, errors.InvalidInput(fmt.Sprintf("grid is limited to %d rows", sheet.MaxRows))
	}
	s.grid.Trim()
	s.grid.Append(rows...)
	s.grid.EnsureSpareRows(s.config.SpareRows)
	s.touch()

	s.logger.Info("Imported %d rows from %s", len(rows), filename)
	return len(rows), nil
}

// Export writes the current grid as a workbook
func (s *SpreadsheetService) Export(w io.Writer) error {
	s.mu.Lock()
	g := sheet.NewGridFromRows(s.rowsLocked())
	eval := s.evaluateLocked()
	s.mu.Unlock()

	g.Trim()
	if err := s.codec.Encode(w, g, eval); err != nil {
		return errors.Wrap(err, "failed to export spreadsheet")
	}
	return nil
}

func (s *SpreadsheetService) rowsLocked() []sheet.GridRow {
	rows := make([]sheet.GridRow, s.grid.Len())
	for i := range rows {
		rows[i] = s.grid.Row(i)
	}
	return rows
}

// evaluateLocked runs the formula engine; nil means formulas are unavailable
func (s *SpreadsheetService) evaluateLocked() sheet.Evaluation {
	if s.engine == nil {
		return nil
	}
	eval, err := s.engine.Evaluate(s.grid)
	if err != nil {
		s.logger.Error("Formula evaluation failed: %v", err)
		return nil
	}
	return eval
}

func (s *SpreadsheetService) touch() {
	s.lastUsed = time.Now()
}

// IdleSince returns when the service was last used
func (s *SpreadsheetService) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}
