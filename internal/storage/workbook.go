package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/kataria/backend/internal/model"
)

// WorkbookSheet is the sheet that holds submissions, one row each.
const WorkbookSheet = "Contact Submissions"

// WorkbookStore keeps submissions in a local .xlsx file.
type WorkbookStore struct {
	path string
	// mu serializes the read-modify-write cycle within this process.
	mu sync.Mutex
}

// NewWorkbookStore creates a store for the workbook at path.
func NewWorkbookStore(path string) *WorkbookStore {
	return &WorkbookStore{path: path}
}

func (s *WorkbookStore) Name() string     { return "xlsx" }
func (s *WorkbookStore) Configured() bool { return s.path != "" }

// Write appends one row. The workbook is written to a temp file and renamed
// over the original so a crash never leaves a truncated workbook.
func (s *WorkbookStore) Write(ctx context.Context, sub *model.ContactSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := f.GetRows(WorkbookSheet)
	if err != nil {
		return fmt.Errorf("storage: read workbook rows: %w", err)
	}
	cell, err := excelize.CoordinatesToCellName(1, len(rows)+1)
	if err != nil {
		return fmt.Errorf("storage: workbook cell: %w", err)
	}
	row := sub.Row()
	if err := f.SetSheetRow(WorkbookSheet, cell, &row); err != nil {
		return fmt.Errorf("storage: set workbook row: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.save(f)
}

// List returns workbook rows as submissions, newest first.
func (s *WorkbookStore) List(ctx context.Context, opts model.SubmissionListOptions) ([]*model.ContactSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []*model.ContactSubmission{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(WorkbookSheet)
	if err != nil {
		return nil, fmt.Errorf("storage: read workbook rows: %w", err)
	}
	all := make([]*model.ContactSubmission, 0, len(rows))
	for i := len(rows) - 1; i >= 1; i-- {
		all = append(all, model.SubmissionFromRow(rows[i]))
	}
	return model.Paginate(all, opts), nil
}

// open loads the workbook, creating it with a styled header row when missing.
func (s *WorkbookStore) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(s.path)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("storage: open workbook: %w", err)
	}

	f = excelize.NewFile()
	if err := f.SetSheetName("Sheet1", WorkbookSheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("storage: name sheet: %w", err)
	}
	header := model.SheetHeader
	if err := f.SetSheetRow(WorkbookSheet, "A1", &header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("storage: write header: %w", err)
	}
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"3B82F6"}, Pattern: 1},
	})
	if err == nil {
		_ = f.SetRowStyle(WorkbookSheet, 1, 1, style)
	}
	return f, nil
}

func (s *WorkbookStore) save(f *excelize.File) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".contact-*.xlsx")
	if err != nil {
		return fmt.Errorf("storage: create temp workbook: %w", err)
	}
	tmpName := tmp.Name()
	if err := f.Write(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("storage: write workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("storage: close temp workbook: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("storage: replace workbook: %w", err)
	}
	return nil
}
