package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/sentiscope/internal/model"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet used for xlsx tables
const SheetName = "reviews"

var (
	// ErrUnsupportedFormat is returned for table paths other than .csv and .xlsx
	ErrUnsupportedFormat = errors.New("unsupported table format")

	// ErrMissingColumn is returned when a labeled table lacks text or label
	ErrMissingColumn = errors.New("required column missing")
)

type format int

const (
	formatCSV format = iota
	formatXLSX
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return formatCSV, nil
	case ".xlsx":
		return formatXLSX, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// header returns the column names for a table
func header(labeled bool) []string {
	if labeled {
		return []string{"category", "text", "label"}
	}
	return []string{"category", "text"}
}

func record(row model.Row, labeled bool) []string {
	if labeled {
		return []string{row.Category, row.Text, string(row.Label)}
	}
	return []string{row.Category, row.Text}
}

// WriteFile writes rows as a table, choosing CSV or XLSX from the extension
func WriteFile(path string, rows []model.Row, labeled bool) error {
	f, err := formatOf(path)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	switch f {
	case formatXLSX:
		return writeXLSX(path, rows, labeled)
	default:
		return writeCSV(path, rows, labeled)
	}
}

func writeCSV(path string, rows []model.Row, labeled bool) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	w := csv.NewWriter(file)
	if err := w.Write(header(labeled)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(record(row, labeled)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	return file.Close()
}

func writeXLSX(path string, rows []model.Row, labeled bool) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	writeRow := func(n int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, n)
		if err != nil {
			return err
		}
		cells := make([]interface{}, len(values))
		for i, v := range values {
			cells[i] = v
		}
		return f.SetSheetRow(SheetName, cell, &cells)
	}

	if err := writeRow(1, header(labeled)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		if err := writeRow(i+2, record(row, labeled)); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// ReadLabeled reads a labeled table written by WriteFile (or any table with
// text and label columns). Rows missing text or label are dropped.
func ReadLabeled(path string) ([]model.Row, error) {
	f, err := formatOf(path)
	if err != nil {
		return nil, err
	}

	var records [][]string
	switch f {
	case formatXLSX:
		records, err = readXLSX(path)
	default:
		records, err = readCSV(path)
	}
	if err != nil {
		return nil, err
	}

	return rowsFromRecords(records)
}

// ReadLabeledCSV reads a labeled CSV table
func ReadLabeledCSV(path string) ([]model.Row, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	return rowsFromRecords(records)
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	r := csv.NewReader(file)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return records, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	sheet := SheetName
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		sheet = f.GetSheetName(0)
	}

	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return records, nil
}

// rowsFromRecords maps header-addressed records to rows
func rowsFromRecords(records [][]string) ([]model.Row, error) {
	rows := []model.Row{}
	if len(records) == 0 {
		return rows, nil
	}

	cols := make(map[string]int)
	for i, name := range records[0] {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}

	textCol, ok := cols["text"]
	if !ok {
		return nil, fmt.Errorf("%w: text", ErrMissingColumn)
	}
	labelCol, ok := cols["label"]
	if !ok {
		return nil, fmt.Errorf("%w: label", ErrMissingColumn)
	}
	categoryCol, hasCategory := cols["category"]

	field := func(rec []string, i int) string {
		if i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	for _, rec := range records[1:] {
		text := field(rec, textCol)
		label := model.ParseLabel(field(rec, labelCol))
		if text == "" || label == model.LabelNone {
			continue
		}

		row := model.Row{Text: text, Label: label}
		if hasCategory {
			row.Category = field(rec, categoryCol)
		}
		rows = append(rows, row)
	}

	return rows, nil
}
