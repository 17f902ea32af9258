// Package export writes graded results to spreadsheets and text tables.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/verte-zerg/ojspy/internal/model"
)

// DefaultPath is used when the caller gives no output path.
const DefaultPath = "scores.xlsx"

// SheetName is the worksheet holding the results.
const SheetName = "Sheet1"

// utf8BOM lets spreadsheet apps detect UTF-8 in the Hangul header.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// PersistenceError reports a failure to write the results file.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to save %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Write saves entries to path, picking the format from the extension.
// An empty path means DefaultPath. It returns the path actually written.
func Write(path string, entries []model.GradedEntry) (string, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return path, &PersistenceError{Path: path, Err: err}
		}
	}

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		err = writeXLSX(path, entries)
	case ".csv":
		err = writeCSV(path, entries)
	default:
		err = fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		return path, &PersistenceError{Path: path, Err: err}
	}
	return path, nil
}

func writeXLSX(path string, entries []model.GradedEntry) error {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close; SaveAs already reported write errors.
			_ = cerr
		}
	}()

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return err
	}
	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{e.Rank, e.Student, e.Total, e.Grade}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

func writeCSV(path string, entries []model.GradedEntry) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := file.Write(utf8BOM); err != nil {
		_ = file.Close()
		return err
	}
	if err := gocsv.MarshalFile(&entries, file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
