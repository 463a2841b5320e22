package spreadsheet

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var ErrUnsupportedFormat = errors.New("unsupported spreadsheet format, expected .xlsx or .csv")

// ReadRows loads every row of a spreadsheet export. The format follows the file
// extension; for .xlsx an empty sheet name selects the first sheet.
func ReadRows(r io.Reader, filename, sheet string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return readXLSX(r, sheet)
	case ".csv", ".tsv", ".txt":
		return readCSV(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filename)
	}
}

func readXLSX(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

// readCSV sniffs the delimiter from the first KB: tab when the sample has tabs but
// no commas, otherwise comma. Semicolons win over commas when they are more frequent,
// which is what spreadsheet tools emit for comma-decimal locales.
func readCSV(r io.Reader) ([][]string, error) {
	br := bufio.NewReader(r)
	// Excel's "CSV UTF-8" export starts with a byte order mark.
	if ch, _, err := br.ReadRune(); err == nil && ch != '\uFEFF' {
		_ = br.UnreadRune()
	}
	sample, _ := br.Peek(1024)

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.Comma = sniffDelimiter(sample)

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cannot read CSV: %w", err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func sniffDelimiter(sample []byte) rune {
	commas := bytes.Count(sample, []byte(","))
	semis := bytes.Count(sample, []byte(";"))
	tabs := bytes.Count(sample, []byte("\t"))
	switch {
	case tabs > 0 && commas == 0 && semis == 0:
		return '\t'
	case semis > commas:
		return ';'
	default:
		return ','
	}
}

// ColumnIndex resolves column against the header row: either a header caption
// (case-insensitive) or a column letter such as "A" or "AB".
func ColumnIndex(header []string, column string) (int, error) {
	column = strings.TrimSpace(column)
	if column == "" {
		return 0, errors.New("column is required")
	}
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), column) {
			return i, nil
		}
	}
	n, err := excelize.ColumnNameToNumber(strings.ToUpper(column))
	if err != nil {
		return 0, fmt.Errorf("unknown column %q", column)
	}
	return n - 1, nil
}

// ColumnValues returns the non-blank cells of column below the header row.
func ColumnValues(rows [][]string, column string) ([]string, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	idx, err := ColumnIndex(rows[0], column)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, row := range rows[1:] {
		if idx >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[idx]); v != "" {
			out = append(out, v)
		}
	}
	return out, nil
}
