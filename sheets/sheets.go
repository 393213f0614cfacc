// Package sheets reads and rewrites transcript workbooks.
package sheets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Workbook is an open spreadsheet held fully in memory until Save.
type Workbook struct {
	path string
	f    *excelize.File
}

func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	return &Workbook{path: path, f: f}, nil
}

func (w *Workbook) Path() string { return w.path }

// Rows returns the cell values of the first sheet. Trailing blank cells of a
// row are dropped, so rows may differ in length.
func (w *Workbook) Rows() ([][]string, error) {
	sheet := w.f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook %s: no sheets", w.path)
	}
	rows, err := w.f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read rows %s: %w", w.path, err)
	}
	return rows, nil
}

// SetCell writes value into the active sheet. row and col are 0-based.
func (w *Workbook) SetCell(row, col int, value string) error {
	cell, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return err
	}
	sheet := w.f.GetSheetName(w.f.GetActiveSheetIndex())
	if err := w.f.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("set %s!%s in %s: %w", sheet, cell, w.path, err)
	}
	return nil
}

// Save overwrites the workbook at its original path.
func (w *Workbook) Save() error {
	if err := w.f.Save(); err != nil {
		return fmt.Errorf("save workbook %s: %w", w.path, err)
	}
	return nil
}

func (w *Workbook) Close() error { return w.f.Close() }

// ReadRows opens path, returns the first sheet's rows and closes it.
func ReadRows(path string) ([][]string, error) {
	wb, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()
	return wb.Rows()
}

// Discover lists regular files in dir with the given extension, compared
// case-insensitively, sorted by name. Office lock files (~$name) are skipped.
func Discover(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(name, "~$") {
			continue
		}
		if !strings.EqualFold(filepath.Ext(name), ext) {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	sort.Strings(out)
	return out, nil
}

// Write creates a new single-sheet workbook at path holding rows. It is used
// to prepare fixtures and sample inputs.
func Write(path string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			if v == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("write workbook %s: %w", path, err)
	}
	return nil
}
