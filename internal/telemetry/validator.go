package telemetry

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Verdict is the immutable result of validating one payload. Exactly one
// shape is populated: valid with a row count, or invalid with an error
// message. RowCount is meaningful only when Valid is true.
type Verdict struct {
	Valid    bool
	RowCount int
	Error    string
}

func valid(rows int) Verdict {
	return Verdict{Valid: true, RowCount: rows}
}

func invalid(format string, args ...any) Verdict {
	return Verdict{Error: fmt.Sprintf(format, args...)}
}

// Validate checks that raw conforms to the telemetry CSV contract:
// an exact ExpectedHeader, between 1 and MaxRows data rows, and parseable
// numeric values in the typed leading columns. Rows are numbered from 2;
// the header occupies logical row 1.
//
// Validate is total. Malformed CSV, bad numeric fields, and any internal
// panic all come back as an invalid Verdict; it never returns an error or
// propagates a panic to the caller.
func Validate(raw string) (v Verdict) {
	defer func() {
		if r := recover(); r != nil {
			v = invalid("CSV parsing error: %v", r)
		}
	}()

	reader := csv.NewReader(strings.NewReader(raw))
	// Column counts are checked per row so the summary-row exemption
	// can apply; the reader must not enforce a fixed width itself.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return invalid("Empty CSV file")
	}
	if err != nil {
		return invalid("CSV parsing error: %v", err)
	}

	if !headerMatches(header) {
		return invalid("Header mismatch. Expected %d columns, got %d",
			len(ExpectedHeader), len(header))
	}

	rowCount := 0
	for rowNum := 2; ; rowNum++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return invalid("CSV parsing error: %v", err)
		}

		rowCount++
		if rowCount > MaxRows {
			// Deliberately discards the count: an over-cap file is
			// rejected outright, not reported as a partial success.
			return invalid("Too many rows (max %d)", MaxRows)
		}

		if len(row) != len(ExpectedHeader) {
			if strings.HasPrefix(row[0], SummaryRowPrefix) {
				// Summary rows are counted but otherwise unchecked.
				continue
			}
			return invalid("Row %d: Expected %d columns, got %d. (%v)",
				rowNum, len(ExpectedHeader), len(row), row)
		}

		if !numericFieldsOK(row) {
			return invalid("Row %d: Invalid numeric values in required fields", rowNum)
		}
	}

	if rowCount == 0 {
		return invalid("No data rows found")
	}

	return valid(rowCount)
}

func headerMatches(header []string) bool {
	if len(header) != len(ExpectedHeader) {
		return false
	}
	for i, name := range ExpectedHeader {
		if header[i] != name {
			return false
		}
	}
	return true
}

// numericFieldsOK parses the typed prefix of a full-width row: integer
// Episode and Step, then float Health through ZPosition.
func numericFieldsOK(row []string) bool {
	for i := 0; i < intColsEnd; i++ {
		if _, err := strconv.Atoi(row[i]); err != nil {
			return false
		}
	}
	for i := intColsEnd; i < floatColsEnd; i++ {
		if _, err := strconv.ParseFloat(row[i], 64); err != nil {
			return false
		}
	}
	return true
}
