// Package importfile reads uploaded weekly text-response sheets into typed
// rows. It accepts CSV (UTF-8 with or without BOM, or BOM-marked UTF-16 as
// produced by spreadsheet exports) and XLSX workbooks, checks that the
// required headers are present, and resolves every data row into a Row once
// so that downstream code never looks values up by header text.
//
// A sheet missing a required header is rejected as a whole with a
// *MissingHeaderError; no rows are returned in that case.
package importfile

import (
	"errors"
	"path/filepath"
	"strings"
)

// Display headers expected in the first row of every upload.
const (
	HeaderWorkerID  = "Worker ID"
	HeaderTimestamp = "Request Timestamp"
)

// Header pairs a logical column name with the header text users see.
type Header struct {
	Key     string
	Display string
}

// RequiredHeaders lists the mandatory columns in reporting order.
var RequiredHeaders = []Header{
	{Key: "worker_id", Display: HeaderWorkerID},
	{Key: "timestamp", Display: HeaderTimestamp},
}

// Row is one data line of an upload.
type Row struct {
	// Line is the 1-based line number in the sheet (the header is line 1).
	Line int
	// WorkerID is the raw worker identifier cell.
	WorkerID string
	// RequestTimestamp is the raw timestamp cell.
	RequestTimestamp string
}

// Format identifies the container of an upload.
type Format int

const (
	FormatCSV Format = iota
	FormatXLSX
)

// ContentType is the MIME type served when an archived upload is downloaded.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

func (f Format) String() string {
	switch f {
	case FormatXLSX:
		return "xlsx"
	default:
		return "csv"
	}
}

var (
	// ErrUnsupportedFormat is returned for file names that are neither .csv
	// nor .xlsx.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrMalformed wraps decoder failures (broken quoting, corrupt workbook).
	ErrMalformed = errors.New("malformed file")
)

// FormatFor picks the parser from the upload's file name. Names without an
// extension are treated as CSV.
func FormatFor(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(name))) {
	case ".csv", ".txt", "":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return FormatCSV, ErrUnsupportedFormat
	}
}

// MissingHeaderError reports required headers absent from an upload.
type MissingHeaderError struct {
	Missing []string
}

func (e *MissingHeaderError) Error() string {
	return "Missing header: " + ToSentence(e.Missing)
}

// ToSentence joins words as an English list: "a", "a and b", "a, b, and c".
func ToSentence(words []string) string {
	switch len(words) {
	case 0:
		return ""
	case 1:
		return words[0]
	case 2:
		return words[0] + " and " + words[1]
	default:
		return strings.Join(words[:len(words)-1], ", ") + ", and " + words[len(words)-1]
	}
}

// fromRecords validates the header line and resolves data lines into rows.
// Cells missing from short lines read as empty strings; lines with no cells
// at all are skipped.
func fromRecords(records [][]string) ([]Row, error) {
	var header []string
	if len(records) > 0 {
		header = records[0]
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, seen := index[h]; !seen {
			index[h] = i
		}
	}

	var missing []string
	for _, h := range RequiredHeaders {
		if _, ok := index[h.Display]; !ok {
			missing = append(missing, h.Display)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingHeaderError{Missing: missing}
	}

	cell := func(rec []string, name string) string {
		if i := index[name]; i < len(rec) {
			return rec[i]
		}
		return ""
	}

	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) == 0 {
			continue
		}
		rows = append(rows, Row{
			Line:             i + 2,
			WorkerID:         cell(rec, HeaderWorkerID),
			RequestTimestamp: cell(rec, HeaderTimestamp),
		})
	}
	return rows, nil
}
