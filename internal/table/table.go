// Package table reads and writes the row-oriented input/output tables of a
// batch run. Format is chosen by file extension: .xlsx uses a spreadsheet,
// anything else is treated as CSV. No header row is assumed; every row is
// data.
package table

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadURLs reads the first cell of every row of the table at path.
func ReadURLs(path string) ([]string, error) {
	if isXLSX(path) {
		return readURLsXLSX(path)
	}
	return readURLsCSV(path)
}

// WriteRows writes one row per entry to the table at path, in order.
func WriteRows(path string, rows [][]string) error {
	if isXLSX(path) {
		return writeRowsXLSX(path, rows)
	}
	return writeRowsCSV(path, rows)
}

func isXLSX(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}

func readURLsCSV(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input table: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read input table: %w", err)
	}

	urls := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		urls = append(urls, row[0])
	}
	return urls, nil
}

func writeRowsCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output table: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write output table: %w", err)
	}
	return w.Error()
}

func readURLsXLSX(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open input table: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read input table: %w", err)
	}

	urls := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		urls = append(urls, row[0])
	}
	return urls, nil
}

func writeRowsXLSX(path string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("write output table: %w", err)
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write output table: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save output table: %w", err)
	}
	return nil
}
