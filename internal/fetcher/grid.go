package fetcher

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// utf8BOM prefixes CSVs saved from Excel.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadGrid loads every row of a spreadsheet-like file as strings. Files
// ending in .xlsx are read from their first sheet; anything else is parsed
// as CSV. Rows keep their own widths: starter grids are ragged.
func ReadGrid(path string) ([][]string, error) {
	var (
		rows [][]string
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		rows, err = readSheet(path)
	} else {
		rows, err = readCSVGrid(path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "grid: read %s", path)
	}
	return rows, nil
}

func readCSVGrid(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

func readSheet(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, err
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("workbook has no sheets")
	}
	sheet := f.Sheets[0]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			cells[i] = c.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// WriteXLSX saves records, header first, as a one-sheet workbook.
func WriteXLSX(path, sheetName string, records [][]string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrapf(err, "grid: add sheet %q", sheetName)
	}
	for _, rec := range records {
		row := sheet.AddRow()
		for _, v := range rec {
			row.AddCell().SetString(v)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "grid: create dir for %s", path)
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "grid: save %s", path)
	}
	return nil
}
