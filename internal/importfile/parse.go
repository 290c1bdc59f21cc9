package importfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Parse reads an upload in the given format.
func Parse(r io.Reader, f Format) ([]Row, error) {
	switch f {
	case FormatXLSX:
		return ParseXLSX(r)
	default:
		return ParseCSV(r)
	}
}

// ParseCSV reads a comma-separated sheet. A leading byte-order mark selects
// UTF-8 or UTF-16 decoding; without one the input is read as UTF-8.
func ParseCSV(r io.Reader) ([]Row, error) {
	dec := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	cr := csv.NewReader(dec)
	cr.FieldsPerRecord = -1

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		records = append(records, rec)
	}
	return fromRecords(records)
}

// ParseXLSX reads the first worksheet of a workbook. Timestamp cells stored
// as spreadsheet date serials are rendered as "YYYY-MM-DD HH:MM:SS" so they
// go through the same timestamp parsing as CSV text.
func ParseXLSX(r io.Reader) ([]Row, error) {
	wb, err := excelize.OpenReader(r, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return fromRecords(nil)
	}
	records, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	rows, err := fromRecords(records)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].RequestTimestamp = serialToText(rows[i].RequestTimestamp)
	}
	return rows, nil
}

// serialToText converts a spreadsheet date serial ("44732.126388") to text.
// Any other value is returned unchanged.
func serialToText(v string) string {
	s := strings.TrimSpace(v)
	if s == "" || !strings.ContainsAny(s[:1], "0123456789") {
		return v
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return v
	}
	t, err := excelize.ExcelDateToTime(f, false)
	if err != nil {
		return v
	}
	return t.Round(time.Second).Format("2006-01-02 15:04:05")
}
