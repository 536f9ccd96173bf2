// Package table reads and writes typed CSV snapshots.
package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
)

// ErrMissingColumn is returned by RequireColumns.
var ErrMissingColumn = eris.New("table: missing column")

// Read loads every row of the CSV file at path. A missing file is an error.
func Read[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "table: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	rows, err := Decode[T](f)
	if err != nil {
		return nil, eris.Wrapf(err, "table: read %s", path)
	}
	return rows, nil
}

// ReadIfExists is Read that treats a missing file as an empty table.
func ReadIfExists[T any](path string) ([]T, bool, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	rows, err := Read[T](path)
	if err != nil {
		return nil, true, err
	}
	return rows, true, nil
}

// Decode reads a CSV stream with a header row into rows.
func Decode[T any](r io.Reader) ([]T, error) {
	dec, err := csvutil.NewDecoder(blankNaN{csv.NewReader(r)})
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "table: read header")
	}
	dec.Map = normalize

	var rows []T
	for {
		var row T
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, eris.Wrapf(err, "table: decode row %d", len(rows)+1)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// blankNaN rewrites NaN cells to empty before decoding, so nullable
// columns come back nil instead of failing to parse.
type blankNaN struct{ r *csv.Reader }

func (b blankNaN) Read() ([]string, error) {
	record, err := b.r.Read()
	for i, cell := range record {
		if strings.EqualFold(strings.TrimSpace(cell), "nan") {
			record[i] = ""
		}
	}
	return record, err
}

// FieldPos keeps line and column positions in decode errors.
func (b blankNaN) FieldPos(field int) (line, column int) {
	return b.r.FieldPos(field)
}

// normalize adapts cells written by other tools: integer columns may carry
// a trailing ".0" and empty non-nullable numeric cells mean zero. Nullable
// columns never reach it with an empty cell.
func normalize(field, _ string, v any) string {
	switch v.(type) {
	case int, int64:
		if field == "" {
			return "0"
		}
		return strings.TrimSuffix(field, ".0")
	case float64:
		if field == "" {
			return "0"
		}
	}
	return field
}

// Write overwrites path with rows, creating parent directories. The header
// is written even when rows is empty.
func Write[T any](path string, rows []T) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "table: mkdir %s", dir)
		}
	}

	var buf bytes.Buffer
	if err := Encode(&buf, rows); err != nil {
		return eris.Wrapf(err, "table: encode %s", path)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return eris.Wrapf(err, "table: write %s", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		return eris.Wrapf(err, "table: rename %s", path)
	}
	return nil
}

// Encode writes rows with a header row.
func Encode[T any](w io.Writer, rows []T) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	var zero T
	if err := enc.EncodeHeader(zero); err != nil {
		return eris.Wrap(err, "table: encode header")
	}
	for i := range rows {
		if err := enc.Encode(rows[i]); err != nil {
			return eris.Wrapf(err, "table: encode row %d", i+1)
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "table: flush")
}

// Header returns the header row of the CSV file at path.
func Header(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "table: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	header, err := csv.NewReader(f).Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "table: read header %s", path)
	}
	return header, nil
}

// RequireColumns fails with ErrMissingColumn unless every name is in the
// header of the CSV file at path.
func RequireColumns(path string, names ...string) error {
	header, err := Header(path)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[strings.TrimSpace(h)] = true
	}
	for _, n := range names {
		if !have[n] {
			return eris.Wrapf(ErrMissingColumn, "%s: %q", filepath.Base(path), n)
		}
	}
	return nil
}
