// =============================================================================
// NAACCR Flat/XML Converter - XLSX Table Reader
// =============================================================================
//
// Registries often maintain their user dictionaries and item lists in Excel.
// This module reads such workbooks as plain rows of cells so they can be
// handled exactly like their CSV counterparts.
//
// SHEET SELECTION:
//   The first sheet of the workbook is read unless a sheet is named.
//   Sheets whose name starts with "_" are treated as scratch sheets and are
//   never picked as the first sheet.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// IsWorkbook reports whether path names an Excel workbook.
func IsWorkbook(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".xlsx" || ext == ".xlsm"
}

// ReadFirstSheet reads every row of the first sheet of a workbook.
//
// PARAMETERS:
//   - path: The path to the XLSX file.
//
// RETURNS:
//   - The rows of the sheet; trailing empty cells are omitted by excelize.
//   - An error if the file cannot be opened or has no usable sheet.
func ReadFirstSheet(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := firstSheet(f.GetSheetList())
	if sheet == "" {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	return readRows(f, sheet)
}

// ReadSheet reads every row of the named sheet.
func ReadSheet(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("workbook %s has no sheet %q", path, sheet)
	}
	return readRows(f, sheet)
}

func firstSheet(names []string) string {
	for _, name := range names {
		if !strings.HasPrefix(name, "_") {
			return name
		}
	}
	return ""
}

func readRows(f *excelize.File, sheet string) ([][]string, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of sheet '%s': %w", sheet, err)
	}
	return rows, nil
}
